package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"
)

// Health is the liveness probe. It answers as long as the process is
// up, regardless of the remote rides service.
func Health(c echo.Context) error {
    return c.String(http.StatusOK, "ok")
}
