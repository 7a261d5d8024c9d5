package handler

import (
    "net/http"
    "net/http/httptest"
    "testing"

    "github.com/golang-jwt/jwt/v5"
    "github.com/labstack/echo/v4"

    "github.com/ridelink/agency-console/internal/api"
    "github.com/ridelink/agency-console/internal/syncer"
    "github.com/ridelink/agency-console/internal/utils"
)

func newStationHandler(t *testing.T) *StationHandler {
    t.Helper()
    hash, err := utils.HashPIN("4271", 4)
    if err != nil {
        t.Fatalf("HashPIN: %v", err)
    }
    return &StationHandler{
        Sync:    syncer.New(syncer.Config{Source: &stubSource{}}),
        PINHash: hash,
        Secret:  "station-secret",
    }
}

func TestUnlockIssuesRideBoundToken(t *testing.T) {
    h := newStationHandler(t)
    rec := call(t, h.Unlock, http.MethodPost, "", unlockRequest{
        PIN: "4271", StationID: "gate-2", RideID: testRideID,
    })
    if rec.Code != http.StatusOK {
        t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
    }

    var tok utils.StationToken
    decodeJSON(t, rec, &tok)
    parsed, err := jwt.Parse(tok.Token, func(*jwt.Token) (interface{}, error) {
        return []byte("station-secret"), nil
    })
    if err != nil || !parsed.Valid {
        t.Fatalf("issued token does not verify: %v", err)
    }
    claims := parsed.Claims.(jwt.MapClaims)
    if claims["ride"] != testRideID || claims["role"] != "station" {
        t.Errorf("claims = %v", claims)
    }
}

func TestUnlockRejectsWrongPIN(t *testing.T) {
    h := newStationHandler(t)
    rec := call(t, h.Unlock, http.MethodPost, "", unlockRequest{
        PIN: "0000", StationID: "gate-2", RideID: testRideID,
    })
    if rec.Code != http.StatusUnauthorized {
        t.Fatalf("status = %d, want 401", rec.Code)
    }
}

func TestCompleteForwardsPIN(t *testing.T) {
    var gotPIN string
    e := echo.New()
    e.POST("/rides/:id/complete-with-pin", func(c echo.Context) error {
        var body map[string]string
        if err := c.Bind(&body); err != nil {
            return err
        }
        gotPIN = body["pin"]
        return c.JSON(http.StatusOK, echo.Map{"status": "completed"})
    })
    srv := httptest.NewServer(e)
    t.Cleanup(srv.Close)

    client, err := api.NewClient(api.ClientConfig{BaseURL: srv.URL, Tokens: tokens("tok")})
    if err != nil {
        t.Fatalf("NewClient: %v", err)
    }
    h := newStationHandler(t)
    h.Remote = client

    rec := call(t, h.Complete, http.MethodPost, testRideID, completeRequest{PIN: "4271"})
    if rec.Code != http.StatusOK {
        t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
    }
    if gotPIN != "4271" {
        t.Errorf("forwarded pin = %q", gotPIN)
    }
}
