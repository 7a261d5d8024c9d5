package handler

import (
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/ridelink/agency-console/internal/api"
    "github.com/ridelink/agency-console/internal/checkin"
)

// remoteError translates a remote-API failure into the console's own
// response. Status codes from the rides service pass through so the
// operator sees the real verdict; transport failures become 502.
func remoteError(c echo.Context, err error) error {
    var se *api.StatusError
    if errors.As(err, &se) {
        msg := se.Message
        if msg == "" {
            msg = string(se.Kind)
        }
        return c.JSON(se.Status, echo.Map{"error": msg})
    }
    var pe *checkin.ProtocolError
    if errors.As(err, &pe) {
        return c.JSON(http.StatusUnprocessableEntity, echo.Map{
            "error": pe.Code,
            "detail": pe.Detail,
        })
    }
    var ne *api.NetworkError
    if errors.As(err, &ne) {
        return c.JSON(http.StatusBadGateway, echo.Map{"error": "rides service unreachable"})
    }
    if errors.Is(err, api.ErrNoToken) {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "agency session expired"})
    }
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
}
