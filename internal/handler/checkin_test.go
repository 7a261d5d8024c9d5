package handler

import (
    "bytes"
    "encoding/json"
    "fmt"
    "net/http"
    "net/http/httptest"
    "strings"
    "sync/atomic"
    "testing"

    "github.com/labstack/echo/v4"

    "github.com/ridelink/agency-console/internal/api"
    "github.com/ridelink/agency-console/internal/session"
    "github.com/ridelink/agency-console/internal/syncer"
)

const (
    testRideID    = "64a0000000000000000000a1"
    testOtherRide = "64a0000000000000000000a2"
    testUserID    = "64b0000000000000000000b1"
    testBookingID = "64c0000000000000000000c1"
)

type tokens string

func (t tokens) Token() string { return string(t) }

// fakeRemote is the rides service seen by the gate: one booking on the
// test ride, a check-in endpoint counting submissions.
type fakeRemote struct {
    checkIns     atomic.Int64
    bookingHits  atomic.Int64
    lastCheckIn  atomic.Value // api.CheckInRequest
    rejectStatus int          // when non-zero, check-in answers this status
}

func (f *fakeRemote) register(e *echo.Echo) {
    bookingJSON := fmt.Sprintf(
        `[{"_id":%q,"rideId":%q,"passenger":{"_id":%q,"name":"Ana Hoxha","email":"ana@example.com"},"status":"pending"}]`,
        testBookingID, testRideID, testUserID,
    )
    e.GET("/rides/:id/bookings", func(c echo.Context) error {
        f.bookingHits.Add(1)
        if c.Param("id") != testRideID {
            return c.JSON(http.StatusOK, []any{})
        }
        return c.JSONBlob(http.StatusOK, []byte(bookingJSON))
    })
    e.POST("/rides/check-in", func(c echo.Context) error {
        var req api.CheckInRequest
        if err := c.Bind(&req); err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"errorMessage": "bad body"})
        }
        f.lastCheckIn.Store(req)
        if f.rejectStatus != 0 {
            return c.JSON(f.rejectStatus, echo.Map{"errorMessage": "already checked in"})
        }
        f.checkIns.Add(1)
        return c.JSON(http.StatusOK, echo.Map{
            "passenger": echo.Map{"_id": testUserID, "name": "Ana Hoxha"},
            "status":    "checked_in",
        })
    })
}

func newCheckInHandler(t *testing.T, remote *fakeRemote) *CheckInHandler {
    t.Helper()
    e := echo.New()
    remote.register(e)
    srv := httptest.NewServer(e)
    t.Cleanup(srv.Close)

    client, err := api.NewClient(api.ClientConfig{BaseURL: srv.URL, Tokens: tokens("tok")})
    if err != nil {
        t.Fatalf("NewClient: %v", err)
    }
    return &CheckInHandler{
        Sync:   syncer.New(syncer.Config{Source: &stubSource{}}),
        Remote: client,
    }
}

// call invokes one gate handler with the ride id path param and an
// optional JSON body.
func call(t *testing.T, h echo.HandlerFunc, method, rideID string, body any) *httptest.ResponseRecorder {
    t.Helper()
    var rd *bytes.Reader
    if body != nil {
        raw, err := json.Marshal(body)
        if err != nil {
            t.Fatalf("marshal body: %v", err)
        }
        rd = bytes.NewReader(raw)
    } else {
        rd = bytes.NewReader(nil)
    }
    e := echo.New()
    req := httptest.NewRequest(method, "/", rd)
    req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    rec := httptest.NewRecorder()
    c := e.NewContext(req, rec)
    c.SetParamNames("id")
    c.SetParamValues(rideID)
    if err := h(c); err != nil {
        t.Fatalf("handler: %v", err)
    }
    return rec
}

func openGate(t *testing.T, h *CheckInHandler, rideID string) {
    t.Helper()
    rec := call(t, h.OpenGate, http.MethodPost, rideID, nil)
    if rec.Code != http.StatusCreated {
        t.Fatalf("open gate: status = %d, body = %s", rec.Code, rec.Body)
    }
}

func scanPayload(rideID string) string {
    return fmt.Sprintf(`{"rideId":%q,"userId":%q,"bookingId":%q}`, rideID, testUserID, testBookingID)
}

func TestOpenGateLoadsBookings(t *testing.T) {
    remote := &fakeRemote{}
    h := newCheckInHandler(t, remote)

    openGate(t, h, testRideID)
    if remote.bookingHits.Load() != 1 {
        t.Errorf("booking fetches = %d, want 1", remote.bookingHits.Load())
    }

    rec := call(t, h.GateState, http.MethodGet, testRideID, nil)
    var body struct {
        Phase    string            `json:"phase"`
        Bookings []json.RawMessage `json:"bookings"`
    }
    if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
        t.Fatalf("decode: %v", err)
    }
    if body.Phase != "idle" || len(body.Bookings) != 1 {
        t.Errorf("phase = %q, bookings = %d", body.Phase, len(body.Bookings))
    }
}

func TestOpenGateTwiceConflicts(t *testing.T) {
    h := newCheckInHandler(t, &fakeRemote{})
    openGate(t, h, testRideID)
    rec := call(t, h.OpenGate, http.MethodPost, testRideID, nil)
    if rec.Code != http.StatusConflict {
        t.Fatalf("status = %d, want 409", rec.Code)
    }
}

func TestScanWithoutArmingConflicts(t *testing.T) {
    h := newCheckInHandler(t, &fakeRemote{})
    openGate(t, h, testRideID)
    rec := call(t, h.Scan, http.MethodPost, testRideID, scanRequest{Payload: scanPayload(testRideID)})
    if rec.Code != http.StatusConflict {
        t.Fatalf("status = %d, want 409", rec.Code)
    }
}

func TestScanHappyPath(t *testing.T) {
    remote := &fakeRemote{}
    h := newCheckInHandler(t, remote)
    openGate(t, h, testRideID)
    call(t, h.StartScanning, http.MethodPost, testRideID, nil)

    rec := call(t, h.Scan, http.MethodPost, testRideID, scanRequest{Payload: scanPayload(testRideID)})
    if rec.Code != http.StatusOK {
        t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
    }
    if remote.checkIns.Load() != 1 {
        t.Errorf("check-ins = %d, want 1", remote.checkIns.Load())
    }
    // Accepted scans trigger the authoritative refetch.
    if remote.bookingHits.Load() != 2 {
        t.Errorf("booking fetches = %d, want 2", remote.bookingHits.Load())
    }
    if got := h.room(testRideID).gate.Phase(); string(got) != "done" {
        t.Errorf("phase = %q, want done", got)
    }
}

func TestScanForOtherRideNeverReachesServer(t *testing.T) {
    remote := &fakeRemote{}
    h := newCheckInHandler(t, remote)
    openGate(t, h, testRideID)
    call(t, h.StartScanning, http.MethodPost, testRideID, nil)

    rec := call(t, h.Scan, http.MethodPost, testRideID, scanRequest{Payload: scanPayload(testOtherRide)})
    if rec.Code != http.StatusUnprocessableEntity {
        t.Fatalf("status = %d, want 422", rec.Code)
    }
    if !strings.Contains(rec.Body.String(), "RIDE_MISMATCH") {
        t.Errorf("body = %s, want RIDE_MISMATCH fault", rec.Body)
    }
    if remote.checkIns.Load() != 0 {
        t.Error("rejected credential reached the server")
    }
}

func TestScanServerRejectionPassesThrough(t *testing.T) {
    remote := &fakeRemote{rejectStatus: http.StatusConflict}
    h := newCheckInHandler(t, remote)
    openGate(t, h, testRideID)
    call(t, h.StartScanning, http.MethodPost, testRideID, nil)

    rec := call(t, h.Scan, http.MethodPost, testRideID, scanRequest{Payload: scanPayload(testRideID)})
    if rec.Code != http.StatusConflict {
        t.Fatalf("status = %d, want server's 409", rec.Code)
    }
    if got := h.room(testRideID).gate.Phase(); string(got) != "scanning" {
        t.Errorf("phase = %q, want scanning after rejection", got)
    }
}

func TestScan401LogsOutConsole(t *testing.T) {
    remote := &fakeRemote{rejectStatus: http.StatusUnauthorized}
    h := newCheckInHandler(t, remote)
    sess := session.New("staff-token")
    h.Sync = syncer.New(syncer.Config{Source: &stubSource{}, OnLogout: sess.Clear})

    openGate(t, h, testRideID)
    call(t, h.StartScanning, http.MethodPost, testRideID, nil)

    rec := call(t, h.Scan, http.MethodPost, testRideID, scanRequest{Payload: scanPayload(testRideID)})
    if rec.Code != http.StatusUnauthorized {
        t.Fatalf("status = %d, want 401", rec.Code)
    }
    if state, _ := h.Sync.State(); state != syncer.StateLoggedOut {
        t.Errorf("sync state = %q, want logged_out", state)
    }
    if sess.Active() {
        t.Error("session still active after a 401 on the check-in call")
    }
}

func TestManualSelectAndConfirm(t *testing.T) {
    remote := &fakeRemote{}
    h := newCheckInHandler(t, remote)
    openGate(t, h, testRideID)

    rec := call(t, h.Select, http.MethodPost, testRideID, selectRequest{BookingID: testBookingID})
    if rec.Code != http.StatusOK {
        t.Fatalf("select: status = %d, body = %s", rec.Code, rec.Body)
    }
    rec = call(t, h.Confirm, http.MethodPost, testRideID, nil)
    if rec.Code != http.StatusOK {
        t.Fatalf("confirm: status = %d, body = %s", rec.Code, rec.Body)
    }

    got, _ := remote.lastCheckIn.Load().(api.CheckInRequest)
    if got.BookingID != testBookingID || got.UserID != testUserID {
        t.Errorf("check-in request = %+v", got)
    }
}

func TestConfirmWithoutSelectionConflicts(t *testing.T) {
    h := newCheckInHandler(t, &fakeRemote{})
    openGate(t, h, testRideID)
    rec := call(t, h.Confirm, http.MethodPost, testRideID, nil)
    if rec.Code != http.StatusConflict {
        t.Fatalf("status = %d, want 409", rec.Code)
    }
}

func TestCloseGateThenStateIs404(t *testing.T) {
    h := newCheckInHandler(t, &fakeRemote{})
    openGate(t, h, testRideID)

    rec := call(t, h.CloseGate, http.MethodDelete, testRideID, nil)
    if rec.Code != http.StatusNoContent {
        t.Fatalf("close: status = %d", rec.Code)
    }
    rec = call(t, h.GateState, http.MethodGet, testRideID, nil)
    if rec.Code != http.StatusNotFound {
        t.Fatalf("state after close: status = %d, want 404", rec.Code)
    }
}

func TestCredentialRendersPNG(t *testing.T) {
    remote := &fakeRemote{}
    h := newCheckInHandler(t, remote)

    // The credential resolves its booking from a published snapshot.
    h.Sync = newDashboard(t, &stubSource{}, "ag1").Sync

    e := echo.New()
    req := httptest.NewRequest(http.MethodGet, "/?user_id="+testUserID, nil)
    rec := httptest.NewRecorder()
    c := e.NewContext(req, rec)
    c.SetParamNames("id")
    c.SetParamValues(testRideID)
    if err := h.Credential(c); err != nil {
        t.Fatalf("handler: %v", err)
    }
    if rec.Code != http.StatusOK {
        t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
    }
    if ct := rec.Header().Get(echo.HeaderContentType); ct != "image/png" {
        t.Errorf("content type = %q", ct)
    }
    if !bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")) {
        t.Error("body is not a PNG")
    }
}
