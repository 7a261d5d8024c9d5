package router

import (
    "context"
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/golang-jwt/jwt/v5"
    "github.com/labstack/echo/v4"

    "github.com/ridelink/agency-console/internal/config"
    "github.com/ridelink/agency-console/internal/handler"
    "github.com/ridelink/agency-console/internal/model"
    "github.com/ridelink/agency-console/internal/syncer"
)

const testSecret = "router-secret"

type emptySource struct{}

func (emptySource) ListRides(context.Context, bool) ([]model.Ride, error) { return nil, nil }
func (emptySource) ListCategories(context.Context) ([]model.Category, error) {
    return nil, nil
}
func (emptySource) ListBookings(context.Context) ([]model.Booking, error) { return nil, nil }
func (emptySource) RefreshRideCache(context.Context) error                { return nil }

func newRouter(t *testing.T) *echo.Echo {
    t.Helper()
    sync := syncer.New(syncer.Config{Source: emptySource{}})
    ctx, cancel := context.WithCancel(context.Background())
    t.Cleanup(cancel)
    go sync.Run(ctx)

    e := echo.New()
    Register(e, Deps{
        Dashboard: &handler.DashboardHandler{Sync: sync, AgencyID: "ag1"},
        RideAdmin: &handler.RideAdminHandler{Sync: sync},
        CheckIn:   &handler.CheckInHandler{Sync: sync},
        Station:   &handler.StationHandler{Sync: sync, Secret: testSecret},
        JWTSecret: testSecret,
        Cache:     config.CacheConfig{},
        ScanLimit: config.ScanLimitConfig{},
    })
    return e
}

func staffToken(t *testing.T) string {
    t.Helper()
    claims := jwt.MapClaims{
        "sub":    "staff-1",
        "role":   "AGENCY",
        "agency": "ag1",
        "exp":    time.Now().Add(time.Hour).Unix(),
    }
    tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
    if err != nil {
        t.Fatalf("sign: %v", err)
    }
    return tok
}

func TestHealthIsPublic(t *testing.T) {
    e := newRouter(t)
    req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    if rec.Code != http.StatusOK {
        t.Fatalf("status = %d, want 200", rec.Code)
    }
}

func TestDashboardRequiresStaffToken(t *testing.T) {
    e := newRouter(t)

    req := httptest.NewRequest(http.MethodGet, "/v1/rides", nil)
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    if rec.Code != http.StatusUnauthorized {
        t.Fatalf("without token: status = %d, want 401", rec.Code)
    }

    req = httptest.NewRequest(http.MethodGet, "/v1/rides", nil)
    req.Header.Set("Authorization", "Bearer "+staffToken(t))
    rec = httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    // 200 once the snapshot lands, 503 before; either proves auth passed.
    if rec.Code != http.StatusOK && rec.Code != http.StatusServiceUnavailable {
        t.Fatalf("with token: status = %d", rec.Code)
    }
}

func TestStationUnlockBypassesStaffAuth(t *testing.T) {
    e := newRouter(t)
    req := httptest.NewRequest(http.MethodPost, "/v1/station/unlock", nil)
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    // No staff token required; the handler itself rejects the empty body.
    if rec.Code == http.StatusUnauthorized && rec.Body.String() == `{"error":"missing bearer token"}` {
        t.Fatal("station unlock is behind staff auth")
    }
}
