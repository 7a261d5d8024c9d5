package checkin

import (
    "context"
    "fmt"
    "log"
    "strings"
    "sync"
    "time"

    "github.com/ridelink/agency-console/internal/api"
    "github.com/ridelink/agency-console/internal/clock"
    "github.com/ridelink/agency-console/internal/model"
)

// DebounceDelay is how long the manual passenger search waits after the
// last keystroke before filtering.
const DebounceDelay = 300 * time.Millisecond

// Phase is the gate session's state. Transitions are guarded: an
// operation outside its phase fails instead of silently toggling flags.
//
//	idle ──StartScanning──▶ scanning ──valid scan──▶ done
//	idle/scanning ──Select──▶ confirming ──Confirm──▶ done
//	confirming ──Deselect──▶ idle
type Phase string

const (
    PhaseIdle       Phase = "idle"
    PhaseScanning   Phase = "scanning"
    PhaseConfirming Phase = "confirming"
    PhaseDone       Phase = "done"
)

// Gatekeeper is the slice of the remote API the gate needs. *api.Client
// satisfies it.
type Gatekeeper interface {
    CheckIn(ctx context.Context, req api.CheckInRequest) (api.CheckInResult, error)
    RideBookings(ctx context.Context, rideID string) ([]model.Booking, error)
}

// ScanEvent is one check-in attempt, accepted or not, for the audit
// trail.
type ScanEvent struct {
    RideID    string
    UserID    string
    BookingID string
    Outcome   string // "accepted", "rejected" or "error"
    Fault     string // protocol fault code or remote error text
    At        time.Time
}

// Recorder persists scan events. Recording is best-effort: a failed
// write is logged and never blocks the check-in flow.
type Recorder interface {
    Record(ctx context.Context, ev ScanEvent) error
}

// GateConfig assembles a Gate for one open ride.
type GateConfig struct {
    RideID string
    Remote Gatekeeper
    // Clock drives the search debounce. Default: real time.
    Clock clock.Clock
    // Recorder receives the audit trail; nil disables auditing.
    Recorder Recorder
    // OnCheckedIn fires after a successful check-in, once the
    // authoritative bookings refetch has been applied. Typically the
    // synchronizer's Wake.
    OnCheckedIn func()
    // OnResults receives debounced manual-search results.
    OnResults func([]model.Booking)
    // OnUnauthorized fires when any remote call answers 401. Typically
    // the synchronizer's ForceLogout, so a rejected session tears down
    // the whole console, not just this gate.
    OnUnauthorized func()
}

// Gate is the staff-side check-in session for one ride. It owns the
// scanner state machine, the manual search, and the audit trail.
type Gate struct {
    rideID         string
    remote         Gatekeeper
    clk            clock.Clock
    rec            Recorder
    onCheckedIn    func()
    onResults      func([]model.Booking)
    onUnauthorized func()

    mu       sync.Mutex
    phase    Phase
    bookings []model.Booking
    selected *model.Booking
    debounce *clock.Timer
    closed   bool
}

// NewGate returns a Gate in PhaseIdle. Call Open to load the ride's
// bookings before using the manual path.
func NewGate(cfg GateConfig) (*Gate, error) {
    if cfg.RideID == "" {
        return nil, fmt.Errorf("checkin: RideID is required")
    }
    if cfg.Remote == nil {
        return nil, fmt.Errorf("checkin: Remote is required")
    }
    clk := cfg.Clock
    if clk == nil {
        clk = clock.Real()
    }
    return &Gate{
        rideID:         cfg.RideID,
        remote:         cfg.Remote,
        clk:            clk,
        rec:            cfg.Recorder,
        onCheckedIn:    cfg.OnCheckedIn,
        onResults:      cfg.OnResults,
        onUnauthorized: cfg.OnUnauthorized,
        phase:          PhaseIdle,
    }, nil
}

// Open loads the bookings of the open ride. A 403 surfaces unchanged:
// the staff member has no access to this ride's category.
func (g *Gate) Open(ctx context.Context) error {
    bookings, err := g.remote.RideBookings(ctx, g.rideID)
    if err != nil {
        g.noteUnauthorized(err)
        return err
    }
    g.mu.Lock()
    g.bookings = bookings
    g.mu.Unlock()
    return nil
}

// Phase returns the current state.
func (g *Gate) Phase() Phase {
    g.mu.Lock()
    defer g.mu.Unlock()
    return g.phase
}

// Bookings returns the last fetched booking list for the open ride.
func (g *Gate) Bookings() []model.Booking {
    g.mu.Lock()
    defer g.mu.Unlock()
    return g.bookings
}

// StartScanning arms the scanner. Only valid from PhaseIdle.
func (g *Gate) StartScanning() error {
    g.mu.Lock()
    defer g.mu.Unlock()
    if g.phase != PhaseIdle {
        return fmt.Errorf("checkin: cannot start scanning from %q", g.phase)
    }
    g.phase = PhaseScanning
    return nil
}

// Scan validates one QR payload and, only on full validity, submits the
// check-in. Protocol rejections surface immediately and are never
// retried; the gate stays in PhaseScanning so the next passenger can
// present a credential.
func (g *Gate) Scan(ctx context.Context, payload string) (api.CheckInResult, error) {
    g.mu.Lock()
    if g.phase != PhaseScanning {
        phase := g.phase
        g.mu.Unlock()
        return api.CheckInResult{}, fmt.Errorf("checkin: scan outside scanning phase (%q)", phase)
    }
    g.mu.Unlock()

    req, err := Decode(payload, g.rideID)
    if err != nil {
        var fault string
        if pe, ok := err.(*ProtocolError); ok {
            fault = pe.Code
        }
        g.record(ctx, ScanEvent{RideID: g.rideID, Outcome: "rejected", Fault: fault, At: g.clk.Now()})
        return api.CheckInResult{}, err
    }
    return g.submit(ctx, req)
}

// Search debounces manual passenger lookup: the filter runs once the
// term has been stable for DebounceDelay. Matching is a case-insensitive
// substring test on the passenger's name and email.
func (g *Gate) Search(term string) {
    g.mu.Lock()
    defer g.mu.Unlock()
    if g.closed {
        return
    }
    if g.debounce != nil {
        g.debounce.Stop()
    }
    g.debounce = g.clk.AfterFunc(DebounceDelay, func() {
        g.mu.Lock()
        if g.closed {
            g.mu.Unlock()
            return
        }
        matches := filterPassengers(g.bookings, term)
        deliver := g.onResults
        g.mu.Unlock()
        if deliver != nil {
            deliver(matches)
        }
    })
}

// filterPassengers keeps bookings whose passenger name or email
// contains term. A blank term matches everything.
func filterPassengers(bookings []model.Booking, term string) []model.Booking {
    term = strings.ToLower(strings.TrimSpace(term))
    out := make([]model.Booking, 0, len(bookings))
    for i := range bookings {
        b := &bookings[i]
        if term == "" {
            out = append(out, *b)
            continue
        }
        var name, email string
        if b.Passenger.Doc != nil {
            name = strings.ToLower(b.Passenger.Doc.Name)
            email = strings.ToLower(b.Passenger.Doc.Email)
        }
        if strings.Contains(name, term) || strings.Contains(email, term) {
            out = append(out, *b)
        }
    }
    return out
}

// Select stages one listed booking for manual check-in and moves to
// PhaseConfirming. Bookings already consumed are refused up front; the
// server would reject them anyway.
func (g *Gate) Select(bookingID string) error {
    g.mu.Lock()
    defer g.mu.Unlock()
    if g.phase == PhaseDone {
        return fmt.Errorf("checkin: session already completed")
    }
    for i := range g.bookings {
        b := &g.bookings[i]
        if b.ID != bookingID {
            continue
        }
        if b.Status.CheckedIn() {
            return fmt.Errorf("checkin: booking %s is already checked in", bookingID)
        }
        g.selected = b
        g.phase = PhaseConfirming
        return nil
    }
    return fmt.Errorf("checkin: booking %s is not on this ride", bookingID)
}

// Deselect abandons the staged booking and returns to PhaseIdle.
func (g *Gate) Deselect() {
    g.mu.Lock()
    defer g.mu.Unlock()
    if g.phase == PhaseConfirming {
        g.selected = nil
        g.phase = PhaseIdle
    }
}

// Confirm submits the staged booking through the same check-in call the
// scanner uses. Only valid from PhaseConfirming.
func (g *Gate) Confirm(ctx context.Context) (api.CheckInResult, error) {
    g.mu.Lock()
    if g.phase != PhaseConfirming || g.selected == nil {
        phase := g.phase
        g.mu.Unlock()
        return api.CheckInResult{}, fmt.Errorf("checkin: confirm outside confirming phase (%q)", phase)
    }
    req := api.CheckInRequest{
        RideID:    g.rideID,
        UserID:    g.selected.Passenger.ID,
        BookingID: g.selected.ID,
    }
    g.mu.Unlock()
    return g.submit(ctx, req)
}

// submit issues the check-in call and, on success, refetches the ride's
// bookings so the list reflects the server's verdict. The local copy is
// never marked checked-in by guesswork.
func (g *Gate) submit(ctx context.Context, req api.CheckInRequest) (api.CheckInResult, error) {
    res, err := g.remote.CheckIn(ctx, req)
    if err != nil {
        g.record(ctx, ScanEvent{
            RideID: req.RideID, UserID: req.UserID, BookingID: req.BookingID,
            Outcome: "error", Fault: err.Error(), At: g.clk.Now(),
        })
        g.noteUnauthorized(err)
        return api.CheckInResult{}, err
    }
    g.record(ctx, ScanEvent{
        RideID: req.RideID, UserID: req.UserID, BookingID: req.BookingID,
        Outcome: "accepted", At: g.clk.Now(),
    })

    if bookings, refErr := g.remote.RideBookings(ctx, g.rideID); refErr == nil {
        g.mu.Lock()
        g.bookings = bookings
        g.mu.Unlock()
    } else {
        log.Printf("checkin: bookings refetch after check-in failed: %v", refErr)
        g.noteUnauthorized(refErr)
    }

    g.mu.Lock()
    g.phase = PhaseDone
    g.selected = nil
    g.mu.Unlock()

    if g.onCheckedIn != nil {
        g.onCheckedIn()
    }
    return res, nil
}

// Reset reopens a completed session for the next passenger.
func (g *Gate) Reset() {
    g.mu.Lock()
    defer g.mu.Unlock()
    if g.phase == PhaseDone {
        g.phase = PhaseIdle
    }
}

// Close tears the session down: the pending debounce is cancelled and
// late timer fires are ignored, so nothing runs against disposed state.
func (g *Gate) Close() {
    g.mu.Lock()
    defer g.mu.Unlock()
    g.closed = true
    if g.debounce != nil {
        g.debounce.Stop()
        g.debounce = nil
    }
}

// noteUnauthorized reports a 401 from the remote service to the
// session owner. Other errors pass through untouched.
func (g *Gate) noteUnauthorized(err error) {
    if g.onUnauthorized != nil && api.IsUnauthorized(err) {
        g.onUnauthorized()
    }
}

// record writes one audit event, best-effort.
func (g *Gate) record(ctx context.Context, ev ScanEvent) {
    if g.rec == nil {
        return
    }
    if err := g.rec.Record(ctx, ev); err != nil {
        log.Printf("checkin: audit record failed: %v", err)
    }
}
