// Package session holds the staff bearer token for the lifetime of one
// console process. Every consumer reads the token through this one cell
// so a forced logout is seen by all of them on their next read.
package session

import "sync"

// Session is the mutable token cell. The zero value is a logged-out
// session. Safe for concurrent use.
type Session struct {
    mu    sync.RWMutex
    token string
}

// New returns a session primed with the given token.
func New(token string) *Session {
    return &Session{token: token}
}

// Token returns the current bearer token, or "" after logout. It
// implements the api client's TokenSource.
func (s *Session) Token() string {
    s.mu.RLock()
    defer s.mu.RUnlock()
    return s.token
}

// Clear wipes the token. Subsequent remote calls abort locally.
func (s *Session) Clear() {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.token = ""
}

// Active reports whether a token is present.
func (s *Session) Active() bool { return s.Token() != "" }
