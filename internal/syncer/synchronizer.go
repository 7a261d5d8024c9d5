// Package syncer keeps the console's view of rides, categories and
// bookings current. One Synchronizer per session owns the fetch loop:
// an interval poll, wake-ups on focus or after mutations, and a bounded
// recovery path for stale or failing list responses.
package syncer

import (
    "context"
    "log"
    "sync"
    "time"

    "github.com/ridelink/agency-console/internal/api"
    "github.com/ridelink/agency-console/internal/clock"
    "github.com/ridelink/agency-console/internal/model"
)

// State is the synchronizer's lifecycle phase.
type State string

const (
    StateIdle      State = "idle"
    StateLoading   State = "loading"
    StateReady     State = "ready"
    StateError     State = "error"
    StateLoggedOut State = "logged_out" // terminal: the session was rejected
)

// Source is the slice of the remote API the synchronizer consumes.
// *api.Client satisfies it.
type Source interface {
    ListRides(ctx context.Context, cacheBust bool) ([]model.Ride, error)
    ListCategories(ctx context.Context) ([]model.Category, error)
    ListBookings(ctx context.Context) ([]model.Booking, error)
    RefreshRideCache(ctx context.Context) error
}

// Snapshot is one consistent generation of the remote collections. All
// readers share one cell, so the poll loop and any recompute always see
// the same generation rather than private copies that can drift apart.
type Snapshot struct {
    Rides      []model.Ride
    Categories []model.Category
    Bookings   []model.Booking
    FetchedAt  time.Time
    Generation uint64
}

// Config assembles a Synchronizer.
type Config struct {
    Source Source
    Clock  clock.Clock
    // PollInterval is the background refresh period. Default 30s.
    PollInterval time.Duration
    // RetryDelay is the pause before the single retry that follows a
    // cache refresh. Default 1s.
    RetryDelay time.Duration
    // OnLogout runs once when the server answers 401, before the
    // synchronizer parks in StateLoggedOut. Typically Session.Clear.
    OnLogout func()
    // OnNewBookings fires when a refresh detects more bookings than
    // the previous total, with both totals. It runs on the sync
    // goroutine after the snapshot is published; long work belongs in
    // a goroutine of its own.
    OnNewBookings func(prev, cur int)
}

// Synchronizer drives the fetch loop and owns the snapshot cell.
type Synchronizer struct {
    src           Source
    clk           clock.Clock
    interval      time.Duration
    retryDelay    time.Duration
    onLogout      func()
    onNewBookings func(prev, cur int)

    wake chan struct{}

    mu          sync.Mutex
    state       State
    lastErr     error
    snap        *Snapshot
    generation  uint64
    prevTotal   int
    newBookings bool
    inFlight    bool
}

// New builds a Synchronizer in StateIdle. Run starts the loop.
func New(cfg Config) *Synchronizer {
    if cfg.Source == nil {
        panic("syncer: nil Source")
    }
    clk := cfg.Clock
    if clk == nil {
        clk = clock.Real()
    }
    interval := cfg.PollInterval
    if interval <= 0 {
        interval = 30 * time.Second
    }
    retry := cfg.RetryDelay
    if retry <= 0 {
        retry = time.Second
    }
    return &Synchronizer{
        src:           cfg.Source,
        clk:           clk,
        interval:      interval,
        retryDelay:    retry,
        onLogout:      cfg.OnLogout,
        onNewBookings: cfg.OnNewBookings,
        wake:          make(chan struct{}, 1),
        state:         StateIdle,
    }
}

// Run fetches immediately, then keeps the snapshot fresh until ctx is
// cancelled: one fetch per poll tick and one per wake-up. The loop is
// the only goroutine that fetches, so two fetches never overlap; wake
// signals arriving while a fetch is in flight are skipped, not queued.
func (s *Synchronizer) Run(ctx context.Context) {
    ticker := s.clk.NewTicker(s.interval)
    defer ticker.Stop()

    s.fetch(ctx)
    s.drainWake()
    for {
        select {
        case <-ctx.Done():
            return
        case <-ticker.C:
        case <-s.wake:
        }
        if ctx.Err() != nil {
            return
        }
        if s.loggedOut() {
            return
        }
        s.fetch(ctx)
        s.drainWake()
    }
}

// Wake requests an immediate refresh: on app focus, on screen mount,
// or after a mutating call has settled. Duplicate wake-ups collapse.
func (s *Synchronizer) Wake() {
    select {
    case s.wake <- struct{}{}:
    default:
    }
}

// Do runs a mutating remote call and, once it has settled, schedules
// the follow-up refresh. The refresh never starts before the mutation
// returns, so a stale read cannot overwrite the mutation's outcome.
func (s *Synchronizer) Do(ctx context.Context, mutate func(context.Context) error) error {
    err := mutate(ctx)
    if api.IsUnauthorized(err) {
        s.forceLogout()
        return err
    }
    s.Wake()
    return err
}

// drainWake discards wake signals that accumulated during the fetch.
func (s *Synchronizer) drainWake() {
    select {
    case <-s.wake:
    default:
    }
}

func (s *Synchronizer) loggedOut() bool {
    s.mu.Lock()
    defer s.mu.Unlock()
    return s.state == StateLoggedOut
}

// fetch loads all three collections and publishes a new snapshot
// generation. List failures that look recoverable trigger exactly one
// server-side cache refresh followed by one retry after a fixed delay.
func (s *Synchronizer) fetch(ctx context.Context) {
    s.setLoading()

    rides, err := s.fetchRides(ctx)
    if err != nil {
        s.fail(err)
        return
    }
    categories, err := recoverList(ctx, s, s.src.ListCategories)
    if err != nil {
        s.fail(err)
        return
    }
    bookings, err := recoverList(ctx, s, s.src.ListBookings)
    if err != nil {
        s.fail(err)
        return
    }

    s.publish(rides, categories, bookings)
}

// fetchRides applies the recovery policy to the ride list; the retry
// adds a cache-bust parameter so no intermediary replays the stale body.
func (s *Synchronizer) fetchRides(ctx context.Context) ([]model.Ride, error) {
    rides, err := s.src.ListRides(ctx, false)
    if err == nil {
        return rides, nil
    }
    if !api.Recoverable(err) {
        return nil, err
    }
    log.Printf("syncer: ride list unusable (%v); refreshing server cache", err)
    if refreshErr := s.src.RefreshRideCache(ctx); refreshErr != nil {
        log.Printf("syncer: cache refresh failed: %v", refreshErr)
    }
    if !s.pause(ctx) {
        return nil, ctx.Err()
    }
    return s.src.ListRides(ctx, true)
}

// recoverList wraps a plain list call with the same one-shot
// refresh-and-retry policy.
func recoverList[T any](ctx context.Context, s *Synchronizer, fn func(context.Context) ([]T, error)) ([]T, error) {
    items, err := fn(ctx)
    if err == nil {
        return items, nil
    }
    if !api.Recoverable(err) {
        return nil, err
    }
    log.Printf("syncer: list fetch unusable (%v); refreshing server cache", err)
    if refreshErr := s.src.RefreshRideCache(ctx); refreshErr != nil {
        log.Printf("syncer: cache refresh failed: %v", refreshErr)
    }
    if !s.pause(ctx) {
        return nil, ctx.Err()
    }
    return fn(ctx)
}

// pause waits out the retry delay; false means ctx ended first.
func (s *Synchronizer) pause(ctx context.Context) bool {
    select {
    case <-ctx.Done():
        return false
    case <-s.clk.After(s.retryDelay):
        return true
    }
}

func (s *Synchronizer) setLoading() {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.state = StateLoading
    s.inFlight = true
}

func (s *Synchronizer) fail(err error) {
    if api.IsUnauthorized(err) {
        s.forceLogout()
        return
    }
    s.mu.Lock()
    defer s.mu.Unlock()
    s.inFlight = false
    s.state = StateError
    s.lastErr = err
    log.Printf("syncer: fetch failed: %v", err)
}

// ForceLogout clears the session and parks the loop in StateLoggedOut.
// Callers that talk to the remote service outside the loop (the gate,
// the search passthrough) report their 401s through here so the logout
// rule holds on every path.
func (s *Synchronizer) ForceLogout() { s.forceLogout() }

// forceLogout clears the session exactly once and parks the loop.
func (s *Synchronizer) forceLogout() {
    s.mu.Lock()
    already := s.state == StateLoggedOut
    s.inFlight = false
    s.state = StateLoggedOut
    s.lastErr = nil
    cb := s.onLogout
    s.mu.Unlock()
    if already || cb == nil {
        return
    }
    log.Printf("syncer: session rejected by server; logging out")
    cb()
}

// publish stores the new generation and runs new-booking detection. The
// first successful load never raises the signal: with no prior total a
// higher count is not news. Detection lives only here, so the UI flag
// and the OnNewBookings callback can never disagree about the totals.
func (s *Synchronizer) publish(rides []model.Ride, categories []model.Category, bookings []model.Booking) {
    s.mu.Lock()

    total := len(bookings)
    prev := s.prevTotal
    signal := prev > 0 && total > prev
    if signal {
        s.newBookings = true
    }
    s.prevTotal = total

    s.generation++
    s.snap = &Snapshot{
        Rides:      rides,
        Categories: categories,
        Bookings:   bookings,
        FetchedAt:  s.clk.Now(),
        Generation: s.generation,
    }
    s.inFlight = false
    s.state = StateReady
    s.lastErr = nil
    cb := s.onNewBookings
    s.mu.Unlock()

    if signal && cb != nil {
        cb(prev, total)
    }
}

// Snapshot returns the latest generation, or false before the first
// successful fetch.
func (s *Synchronizer) Snapshot() (Snapshot, bool) {
    s.mu.Lock()
    defer s.mu.Unlock()
    if s.snap == nil {
        return Snapshot{}, false
    }
    return *s.snap, true
}

// State returns the current phase and, in StateError, the cause.
func (s *Synchronizer) State() (State, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    return s.state, s.lastErr
}

// InFlight reports whether a fetch is currently running.
func (s *Synchronizer) InFlight() bool {
    s.mu.Lock()
    defer s.mu.Unlock()
    return s.inFlight
}

// NewBookings reports whether the booking total grew since the signal
// was last cleared.
func (s *Synchronizer) NewBookings() bool {
    s.mu.Lock()
    defer s.mu.Unlock()
    return s.newBookings
}

// ClearNewBookings acknowledges the signal. The consumer clears it; the
// synchronizer only raises it.
func (s *Synchronizer) ClearNewBookings() {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.newBookings = false
}
