package handler

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/ridelink/agency-console/internal/api"
    "github.com/ridelink/agency-console/internal/syncer"
    "github.com/ridelink/agency-console/internal/utils"
)

// StationHandler covers the driver-side surface: unlocking a boarding
// station with the agency PIN and completing a ride at departure.
type StationHandler struct {
    Sync   *syncer.Synchronizer
    Remote *api.Client
    // PINHash is the bcrypt hash of the agency's station PIN.
    PINHash string
    // Secret signs station tokens.
    Secret string
}

type unlockRequest struct {
    PIN       string `json:"pin"`
    StationID string `json:"station_id"`
    RideID    string `json:"ride_id"`
}

// Unlock exchanges the agency PIN for a short-lived station token bound
// to one ride. Wrong PINs answer 401 without detail.
func (h *StationHandler) Unlock(c echo.Context) error {
    var req unlockRequest
    if err := c.Bind(&req); err != nil || req.StationID == "" || req.RideID == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "station_id and ride_id are required"})
    }
    if !utils.VerifyPIN(h.PINHash, req.PIN) {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid pin"})
    }
    tok, err := utils.NewStationToken(h.Secret, req.StationID, req.RideID, 4*time.Hour)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token issuance failed"})
    }
    return c.JSON(http.StatusOK, tok)
}

type completeRequest struct {
    PIN             string `json:"pin"`
    PassengerUserID string `json:"passenger_user_id"`
}

// Complete marks a ride finished on the remote service. The PIN travels
// with the request; the server validates it against the ride's agency.
func (h *StationHandler) Complete(c echo.Context) error {
    rideID := c.Param("id")
    var req completeRequest
    if err := c.Bind(&req); err != nil || req.PIN == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "pin is required"})
    }
    err := h.Sync.Do(c.Request().Context(), func(ctx context.Context) error {
        return h.Remote.CompleteWithPIN(ctx, rideID, req.PIN, req.PassengerUserID)
    })
    if err != nil {
        return remoteError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"status": "completed"})
}
