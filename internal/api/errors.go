// Package api is the HTTP client for the remote rides service. It maps
// transport and status-code failures onto a small typed taxonomy so the
// sync layer can decide what is retryable without inspecting responses.
package api

import (
    "errors"
    "fmt"
)

// ErrNoToken is returned when a call would go out without a bearer
// token. The call is aborted locally; no request is made.
var ErrNoToken = errors.New("api: no session token")

// ErrorKind buckets remote failures by how callers react to them.
type ErrorKind string

const (
    KindUnauthorized ErrorKind = "unauthorized" // 401: session is gone, force logout
    KindForbidden    ErrorKind = "forbidden"    // 403: staff lacks access to the resource
    KindNotFound     ErrorKind = "not_found"    // 404
    KindValidation   ErrorKind = "validation"   // 400, 422
    KindServer       ErrorKind = "server"       // 5xx: retried once after a cache refresh
    KindUnexpected   ErrorKind = "unexpected"   // anything else non-2xx
)

// StatusError is a non-2xx response from the remote service.
type StatusError struct {
    Kind    ErrorKind
    Status  int
    Message string // server-provided error text when present
}

func (e *StatusError) Error() string {
    if e.Message != "" {
        return fmt.Sprintf("api: %s (%d): %s", e.Kind, e.Status, e.Message)
    }
    return fmt.Sprintf("api: %s (%d)", e.Kind, e.Status)
}

// NetworkError wraps a transport failure: no response was received at
// all, as opposed to a response carrying an error status.
type NetworkError struct {
    Op  string
    Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("api: %s: %v", e.Op, e.Err) }

func (e *NetworkError) Unwrap() error { return e.Err }

// StaleDataError marks a list endpoint that answered 200 with something
// other than a collection. The server's cache is assumed stale; the sync
// layer refreshes it and retries once.
type StaleDataError struct {
    Endpoint string
}

func (e *StaleDataError) Error() string {
    return fmt.Sprintf("api: %s returned a non-collection payload", e.Endpoint)
}

// kindOf maps a status code to its bucket.
func kindOf(status int) ErrorKind {
    switch {
    case status == 401:
        return KindUnauthorized
    case status == 403:
        return KindForbidden
    case status == 404:
        return KindNotFound
    case status == 400 || status == 422:
        return KindValidation
    case status >= 500:
        return KindServer
    default:
        return KindUnexpected
    }
}

// IsUnauthorized reports whether err is a 401 from the remote service.
func IsUnauthorized(err error) bool {
    var se *StatusError
    return errors.As(err, &se) && se.Kind == KindUnauthorized
}

// IsForbidden reports whether err is a 403 from the remote service.
func IsForbidden(err error) bool {
    var se *StatusError
    return errors.As(err, &se) && se.Kind == KindForbidden
}

// Recoverable reports whether err is worth one cache-refresh-and-retry:
// either a stale (non-collection) list payload or a 5xx.
func Recoverable(err error) bool {
    var stale *StaleDataError
    if errors.As(err, &stale) {
        return true
    }
    var se *StatusError
    return errors.As(err, &se) && se.Kind == KindServer
}
