package api

import (
    "bytes"
    "context"
    "encoding/json"
    "fmt"
    "io"
    "net/http"
    "net/url"
    "strconv"
    "strings"
    "time"

    "github.com/ridelink/agency-console/internal/model"
)

// TokenSource yields the current bearer token, or "" when the session
// has ended. Routing every read through one source keeps the client and
// the sync layer on the same generation of the session.
type TokenSource interface {
    Token() string
}

// ClientConfig holds what a Client needs to talk to the rides service.
type ClientConfig struct {
    // BaseURL is the root of the remote API, e.g. "https://api.example.com".
    BaseURL string
    // Tokens supplies the bearer token for every request.
    Tokens TokenSource
    // HTTPClient is used for all requests. If nil, http.DefaultClient.
    HTTPClient *http.Client
}

// Client talks to the remote rides service. All methods require a live
// session: when the token source is empty the call fails locally with
// ErrNoToken and no request leaves the process.
type Client struct {
    baseURL string
    tokens  TokenSource
    http    *http.Client
}

// NewClient validates the base URL and returns a ready Client.
func NewClient(cfg ClientConfig) (*Client, error) {
    if cfg.BaseURL == "" {
        return nil, fmt.Errorf("api: BaseURL is required")
    }
    if _, err := url.Parse(cfg.BaseURL); err != nil {
        return nil, fmt.Errorf("api: invalid BaseURL %q: %w", cfg.BaseURL, err)
    }
    if cfg.Tokens == nil {
        return nil, fmt.Errorf("api: Tokens is required")
    }
    hc := cfg.HTTPClient
    if hc == nil {
        hc = http.DefaultClient
    }
    return &Client{
        baseURL: strings.TrimRight(cfg.BaseURL, "/"),
        tokens:  cfg.Tokens,
        http:    hc,
    }, nil
}

// do issues one authorized request and returns the response body for
// 2xx statuses. Non-2xx statuses map to StatusError, transport failures
// to NetworkError.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
    token := c.tokens.Token()
    if token == "" {
        return nil, ErrNoToken
    }

    u := c.baseURL + path
    if len(query) > 0 {
        u += "?" + query.Encode()
    }

    var reader io.Reader
    if body != nil {
        payload, err := json.Marshal(body)
        if err != nil {
            return nil, fmt.Errorf("api: marshal %s %s: %w", method, path, err)
        }
        reader = bytes.NewReader(payload)
    }

    req, err := http.NewRequestWithContext(ctx, method, u, reader)
    if err != nil {
        return nil, fmt.Errorf("api: build %s %s: %w", method, path, err)
    }
    req.Header.Set("Authorization", "Bearer "+token)
    if body != nil {
        req.Header.Set("Content-Type", "application/json")
    }

    resp, err := c.http.Do(req)
    if err != nil {
        return nil, &NetworkError{Op: method + " " + path, Err: err}
    }
    defer func() { _ = resp.Body.Close() }()

    raw, err := io.ReadAll(resp.Body)
    if err != nil {
        return nil, &NetworkError{Op: method + " " + path, Err: err}
    }

    if resp.StatusCode < 200 || resp.StatusCode > 299 {
        return nil, &StatusError{
            Kind:    kindOf(resp.StatusCode),
            Status:  resp.StatusCode,
            Message: errorMessage(raw),
        }
    }
    return raw, nil
}

// errorMessage pulls the conventional {"error": "..."} or
// {"message": "..."} text out of an error body, if there is one.
func errorMessage(raw []byte) string {
    var envelope struct {
        Error   string `json:"error"`
        Message string `json:"message"`
    }
    if err := json.Unmarshal(raw, &envelope); err != nil {
        return ""
    }
    if envelope.Error != "" {
        return envelope.Error
    }
    return envelope.Message
}

// decodeList parses a collection response. A 200 whose payload is not a
// JSON array is reported as StaleDataError so the caller can trigger the
// server-side cache refresh.
func decodeList[T any](endpoint string, raw []byte) ([]T, error) {
    trimmed := bytes.TrimSpace(raw)
    if len(trimmed) == 0 || trimmed[0] != '[' {
        return nil, &StaleDataError{Endpoint: endpoint}
    }
    var items []T
    if err := json.Unmarshal(trimmed, &items); err != nil {
        return nil, &StaleDataError{Endpoint: endpoint}
    }
    return items, nil
}

// ListRides fetches every ride visible to the session. With cacheBust
// set, a throwaway _t parameter defeats intermediary caching; it is used
// on the retry after a cache refresh.
func (c *Client) ListRides(ctx context.Context, cacheBust bool) ([]model.Ride, error) {
    var q url.Values
    if cacheBust {
        q = url.Values{"_t": {strconv.FormatInt(time.Now().UnixMilli(), 10)}}
    }
    raw, err := c.do(ctx, http.MethodGet, "/rides", q, nil)
    if err != nil {
        return nil, err
    }
    return decodeList[model.Ride]("/rides", raw)
}

// SearchQuery narrows a ride search. Empty fields are omitted.
type SearchQuery struct {
    From       string
    To         string
    ExactMatch bool
    IsPrivate  bool
}

// SearchRides asks the server for rides matching the query.
func (c *Client) SearchRides(ctx context.Context, sq SearchQuery) ([]model.Ride, error) {
    q := url.Values{}
    if sq.From != "" {
        q.Set("from", sq.From)
    }
    if sq.To != "" {
        q.Set("to", sq.To)
    }
    if sq.ExactMatch {
        q.Set("exact_match", "true")
    }
    if sq.IsPrivate {
        q.Set("isPrivate", "true")
    }
    raw, err := c.do(ctx, http.MethodGet, "/rides/search", q, nil)
    if err != nil {
        return nil, err
    }
    return decodeList[model.Ride]("/rides/search", raw)
}

// ListCategories fetches all destination categories.
func (c *Client) ListCategories(ctx context.Context) ([]model.Category, error) {
    raw, err := c.do(ctx, http.MethodGet, "/destinations", nil, nil)
    if err != nil {
        return nil, err
    }
    return decodeList[model.Category]("/destinations", raw)
}

// ListBookings fetches every booking visible to the session.
func (c *Client) ListBookings(ctx context.Context) ([]model.Booking, error) {
    raw, err := c.do(ctx, http.MethodGet, "/bookings", nil, nil)
    if err != nil {
        return nil, err
    }
    return decodeList[model.Booking]("/bookings", raw)
}

// RideBookings fetches the bookings of one ride. The server answers 403
// when the staff member has no access to that ride's category.
func (c *Client) RideBookings(ctx context.Context, rideID string) ([]model.Booking, error) {
    path := "/rides/" + rideID + "/bookings"
    raw, err := c.do(ctx, http.MethodGet, path, nil, nil)
    if err != nil {
        return nil, err
    }
    return decodeList[model.Booking](path, raw)
}

// RefreshRideCache asks the server to rebuild its ride cache. Its effect
// is opaque to the client; callers only bound their own retries.
func (c *Client) RefreshRideCache(ctx context.Context) error {
    _, err := c.do(ctx, http.MethodPost, "/rides/cache/refresh", nil, nil)
    return err
}

// BookRide books one seat on the ride for the current user.
func (c *Client) BookRide(ctx context.Context, rideID string) error {
    _, err := c.do(ctx, http.MethodPost, "/rides/"+rideID+"/book", nil, nil)
    return err
}

// CancelBooking cancels the current user's booking on the ride.
func (c *Client) CancelBooking(ctx context.Context, rideID string) error {
    _, err := c.do(ctx, http.MethodDelete, "/rides/"+rideID+"/cancel", nil, nil)
    return err
}

// DeleteRide removes a ride. The server performs a soft delete.
func (c *Client) DeleteRide(ctx context.Context, rideID string) error {
    _, err := c.do(ctx, http.MethodDelete, "/rides/"+rideID, nil, nil)
    return err
}

// RideUpdate carries the editable ride fields for UpdateRide. Nil
// pointers leave the server-side value untouched.
type RideUpdate struct {
    From         *string    `json:"from,omitempty"`
    To           *string    `json:"to,omitempty"`
    Departure    *time.Time `json:"departure_time,omitempty"`
    Arrival      *time.Time `json:"estimatedArrivalTime,omitempty"`
    Seats        *int       `json:"seats,omitempty"`
    Price        *float64   `json:"price,omitempty"`
    LicensePlate *string    `json:"licensePlate,omitempty"`
}

// UpdateRide edits a ride in place.
func (c *Client) UpdateRide(ctx context.Context, rideID string, upd RideUpdate) error {
    _, err := c.do(ctx, http.MethodPut, "/rides/"+rideID, nil, upd)
    return err
}

// CheckInRequest is the credential triple submitted at the gate. Both
// the QR path and the manual path build exactly this request.
type CheckInRequest struct {
    RideID    string `json:"rideId"`
    UserID    string `json:"userId"`
    BookingID string `json:"bookingId"`
}

// CheckInResult is the server's confirmation of a consumed booking.
type CheckInResult struct {
    Passenger model.User          `json:"passenger"`
    Status    model.BookingStatus `json:"status"`
}

// CheckIn submits a credential. The server is the single authority on
// idempotency: a second submission for the same booking fails there.
func (c *Client) CheckIn(ctx context.Context, req CheckInRequest) (CheckInResult, error) {
    raw, err := c.do(ctx, http.MethodPost, "/rides/check-in", nil, req)
    if err != nil {
        return CheckInResult{}, err
    }
    var res CheckInResult
    if err := json.Unmarshal(raw, &res); err != nil {
        return CheckInResult{}, fmt.Errorf("api: decode check-in response: %w", err)
    }
    return res, nil
}

// CompleteWithPIN completes a private ride for one passenger using the
// PIN the passenger presents.
func (c *Client) CompleteWithPIN(ctx context.Context, rideID, pin, passengerUserID string) error {
    body := map[string]string{"pin": pin, "passengerUserId": passengerUserID}
    _, err := c.do(ctx, http.MethodPost, "/rides/"+rideID+"/complete-with-pin", nil, body)
    return err
}
