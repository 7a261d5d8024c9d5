package handler

import (
    "net/http"
    "strconv"
    "sync"

    "github.com/labstack/echo/v4"

    "github.com/ridelink/agency-console/internal/api"
    "github.com/ridelink/agency-console/internal/checkin"
    "github.com/ridelink/agency-console/internal/model"
    "github.com/ridelink/agency-console/internal/repository"
    "github.com/ridelink/agency-console/internal/syncer"
)

// CheckInHandler drives gate sessions over HTTP. One gate per open
// ride; the debounced search delivers into the session and is read back
// with a follow-up GET.
type CheckInHandler struct {
    Sync   *syncer.Synchronizer
    Remote *api.Client
    // Recorder receives the scan audit trail; nil disables auditing.
    Recorder checkin.Recorder
    // Audit serves the recent-scans listing; nil when auditing is off.
    Audit *repository.ScanAuditRepo

    mu    sync.Mutex
    gates map[string]*gateRoom
}

type gateRoom struct {
    gate *checkin.Gate

    mu      sync.Mutex
    results []model.Booking
}

func (r *gateRoom) deliver(matches []model.Booking) {
    r.mu.Lock()
    r.results = matches
    r.mu.Unlock()
}

func (r *gateRoom) latest() []model.Booking {
    r.mu.Lock()
    defer r.mu.Unlock()
    return r.results
}

// room returns the open gate session for a ride, or nil. A reserved
// slot whose gate is still loading counts as absent.
func (h *CheckInHandler) room(rideID string) *gateRoom {
    h.mu.Lock()
    defer h.mu.Unlock()
    r := h.gates[rideID]
    if r == nil || r.gate == nil {
        return nil
    }
    return r
}

// OpenGate starts a check-in session for a ride and loads its bookings.
// Opening an already open ride is rejected; close it first.
func (h *CheckInHandler) OpenGate(c echo.Context) error {
    rideID := c.Param("id")

    // Reserve the slot up front so two concurrent opens cannot both
    // pass the existence check while the bookings load.
    room := &gateRoom{}
    h.mu.Lock()
    if h.gates == nil {
        h.gates = make(map[string]*gateRoom)
    }
    if _, exists := h.gates[rideID]; exists {
        h.mu.Unlock()
        return c.JSON(http.StatusConflict, echo.Map{"error": "gate already open for this ride"})
    }
    h.gates[rideID] = room
    h.mu.Unlock()

    release := func() {
        h.mu.Lock()
        delete(h.gates, rideID)
        h.mu.Unlock()
    }

    gate, err := checkin.NewGate(checkin.GateConfig{
        RideID:         rideID,
        Remote:         h.Remote,
        Recorder:       h.Recorder,
        OnCheckedIn:    h.Sync.Wake,
        OnResults:      room.deliver,
        OnUnauthorized: h.Sync.ForceLogout,
    })
    if err != nil {
        release()
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    if err := gate.Open(c.Request().Context()); err != nil {
        release()
        return remoteError(c, err)
    }
    room.gate = gate

    return c.JSON(http.StatusCreated, echo.Map{
        "phase":    gate.Phase(),
        "bookings": gate.Bookings(),
    })
}

// CloseGate tears the session down and cancels any pending search.
func (h *CheckInHandler) CloseGate(c echo.Context) error {
    rideID := c.Param("id")
    h.mu.Lock()
    room := h.gates[rideID]
    if room == nil || room.gate == nil {
        h.mu.Unlock()
        return c.JSON(http.StatusNotFound, echo.Map{"error": "no open gate for this ride"})
    }
    delete(h.gates, rideID)
    h.mu.Unlock()
    room.gate.Close()
    return c.NoContent(http.StatusNoContent)
}

// GateState reports the session's phase and its current booking list.
func (h *CheckInHandler) GateState(c echo.Context) error {
    room := h.room(c.Param("id"))
    if room == nil {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "no open gate for this ride"})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "phase":    room.gate.Phase(),
        "bookings": room.gate.Bookings(),
    })
}

// StartScanning arms the scanner for the next credential.
func (h *CheckInHandler) StartScanning(c echo.Context) error {
    room := h.room(c.Param("id"))
    if room == nil {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "no open gate for this ride"})
    }
    if err := room.gate.StartScanning(); err != nil {
        return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
    }
    return c.JSON(http.StatusOK, echo.Map{"phase": room.gate.Phase()})
}

type scanRequest struct {
    Payload string `json:"payload"`
}

// Scan submits one QR payload. Credential rejections answer 422 with
// the fault code; a server verdict passes through with its own status.
func (h *CheckInHandler) Scan(c echo.Context) error {
    room := h.room(c.Param("id"))
    if room == nil {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "no open gate for this ride"})
    }
    var req scanRequest
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if room.gate.Phase() != checkin.PhaseScanning {
        return c.JSON(http.StatusConflict, echo.Map{"error": "scanner is not armed"})
    }
    res, err := room.gate.Scan(c.Request().Context(), req.Payload)
    if err != nil {
        return remoteError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "phase":     room.gate.Phase(),
        "passenger": res.Passenger,
        "status":    res.Status,
    })
}

type searchRequest struct {
    Term string `json:"term"`
}

// Search kicks off the debounced passenger lookup. The filter runs once
// the term has been stable; fetch the outcome from SearchResults.
func (h *CheckInHandler) Search(c echo.Context) error {
    room := h.room(c.Param("id"))
    if room == nil {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "no open gate for this ride"})
    }
    var req searchRequest
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    room.gate.Search(req.Term)
    return c.JSON(http.StatusAccepted, echo.Map{"status": "searching"})
}

// SearchResults returns the latest debounced matches.
func (h *CheckInHandler) SearchResults(c echo.Context) error {
    room := h.room(c.Param("id"))
    if room == nil {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "no open gate for this ride"})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": room.latest()})
}

type selectRequest struct {
    BookingID string `json:"booking_id"`
}

// Select stages a booking for manual check-in.
func (h *CheckInHandler) Select(c echo.Context) error {
    room := h.room(c.Param("id"))
    if room == nil {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "no open gate for this ride"})
    }
    var req selectRequest
    if err := c.Bind(&req); err != nil || req.BookingID == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "booking_id is required"})
    }
    if err := room.gate.Select(req.BookingID); err != nil {
        return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
    }
    return c.JSON(http.StatusOK, echo.Map{"phase": room.gate.Phase()})
}

// Deselect abandons the staged booking.
func (h *CheckInHandler) Deselect(c echo.Context) error {
    room := h.room(c.Param("id"))
    if room == nil {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "no open gate for this ride"})
    }
    room.gate.Deselect()
    return c.JSON(http.StatusOK, echo.Map{"phase": room.gate.Phase()})
}

// Confirm submits the staged booking for check-in.
func (h *CheckInHandler) Confirm(c echo.Context) error {
    room := h.room(c.Param("id"))
    if room == nil {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "no open gate for this ride"})
    }
    if room.gate.Phase() != checkin.PhaseConfirming {
        return c.JSON(http.StatusConflict, echo.Map{"error": "no booking staged"})
    }
    res, err := room.gate.Confirm(c.Request().Context())
    if err != nil {
        return remoteError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "phase":     room.gate.Phase(),
        "passenger": res.Passenger,
        "status":    res.Status,
    })
}

// ResetGate reopens a completed session for the next passenger.
func (h *CheckInHandler) ResetGate(c echo.Context) error {
    room := h.room(c.Param("id"))
    if room == nil {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "no open gate for this ride"})
    }
    room.gate.Reset()
    return c.JSON(http.StatusOK, echo.Map{"phase": room.gate.Phase()})
}

// Credential renders a passenger's boarding QR as a PNG. The booking
// binding comes from the snapshot: if the passenger holds a booking on
// this ride it is embedded, otherwise the credential carries null.
func (h *CheckInHandler) Credential(c echo.Context) error {
    rideID := c.Param("id")
    userID := c.QueryParam("user_id")
    if userID == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id is required"})
    }
    snap, ok := h.Sync.Snapshot()
    if !ok {
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "no data yet"})
    }

    size := 256
    if raw := c.QueryParam("size"); raw != "" {
        if v, err := strconv.Atoi(raw); err == nil && v >= 64 && v <= 1024 {
            size = v
        }
    }

    cred := checkin.Encode(rideID, userID, snap.Bookings)
    png, err := cred.PNG(size)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "qr encoding failed"})
    }
    return c.Blob(http.StatusOK, "image/png", png)
}

// RecentScans lists the last audit entries for a ride, newest first.
func (h *CheckInHandler) RecentScans(c echo.Context) error {
    if h.Audit == nil {
        return c.JSON(http.StatusNotImplemented, echo.Map{"error": "scan auditing is disabled"})
    }
    limit := 50
    if raw := c.QueryParam("limit"); raw != "" {
        if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= 500 {
            limit = v
        }
    }
    records, err := h.Audit.RecentForRide(c.Request().Context(), c.Param("id"), limit)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "audit store error"})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": records})
}
