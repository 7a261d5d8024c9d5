package handler

import (
    "context"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/ridelink/agency-console/internal/api"
    "github.com/ridelink/agency-console/internal/syncer"
)

// RideAdminHandler proxies writes to the remote rides service. Every
// mutation goes through the synchronizer's Do so the snapshot refetches
// only after the server has settled, and a 401 anywhere forces logout.
type RideAdminHandler struct {
    Sync   *syncer.Synchronizer
    Remote *api.Client
}

// SearchRides runs a server-side ride search. Results come from the
// remote service, not the snapshot, so they can include rides outside
// the agency's cached view (exact-match and private-ride lookups).
func (h *RideAdminHandler) SearchRides(c echo.Context) error {
    sq := api.SearchQuery{
        From:       c.QueryParam("from"),
        To:         c.QueryParam("to"),
        ExactMatch: c.QueryParam("exact") == "true",
        IsPrivate:  c.QueryParam("private") == "true",
    }
    rides, err := h.Remote.SearchRides(c.Request().Context(), sq)
    if err != nil {
        // Search bypasses the sync loop, so the logout rule is
        // enforced here.
        if api.IsUnauthorized(err) {
            h.Sync.ForceLogout()
        }
        return remoteError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": rides})
}

// BookRide books one seat on a ride on behalf of the agency.
func (h *RideAdminHandler) BookRide(c echo.Context) error {
    rideID := c.Param("id")
    err := h.Sync.Do(c.Request().Context(), func(ctx context.Context) error {
        return h.Remote.BookRide(ctx, rideID)
    })
    if err != nil {
        return remoteError(c, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{"status": "booked"})
}

// CancelBooking cancels the agency's booking on a ride.
func (h *RideAdminHandler) CancelBooking(c echo.Context) error {
    rideID := c.Param("id")
    err := h.Sync.Do(c.Request().Context(), func(ctx context.Context) error {
        return h.Remote.CancelBooking(ctx, rideID)
    })
    if err != nil {
        return remoteError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"status": "cancelled"})
}

// DeleteRide removes one of the agency's rides.
func (h *RideAdminHandler) DeleteRide(c echo.Context) error {
    rideID := c.Param("id")
    err := h.Sync.Do(c.Request().Context(), func(ctx context.Context) error {
        return h.Remote.DeleteRide(ctx, rideID)
    })
    if err != nil {
        return remoteError(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// UpdateRide edits a ride. Only the fields present in the body are
// sent; absent fields stay untouched on the server.
func (h *RideAdminHandler) UpdateRide(c echo.Context) error {
    rideID := c.Param("id")
    var upd api.RideUpdate
    if err := c.Bind(&upd); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    err := h.Sync.Do(c.Request().Context(), func(ctx context.Context) error {
        return h.Remote.UpdateRide(ctx, rideID, upd)
    })
    if err != nil {
        return remoteError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"status": "updated"})
}
