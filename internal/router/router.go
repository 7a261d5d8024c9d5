// Package router wires the console's handlers onto an Echo instance.
package router

import (
    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/ridelink/agency-console/internal/config"
    "github.com/ridelink/agency-console/internal/handler"
    "github.com/ridelink/agency-console/internal/middleware"
)

// Deps carries everything the routes need. Redis is optional: a nil
// client turns the response cache and scan limiter into pass-throughs.
type Deps struct {
    Dashboard *handler.DashboardHandler
    RideAdmin *handler.RideAdminHandler
    CheckIn   *handler.CheckInHandler
    Station   *handler.StationHandler

    JWTSecret string
    Redis     *redis.Client
    Cache     config.CacheConfig
    ScanLimit config.ScanLimitConfig
}

// Register mounts every route. The health probe stays public; the
// station unlock authenticates by PIN instead of a staff token; all
// other endpoints sit behind staff JWT auth.
func Register(e *echo.Echo, d Deps) {
    e.GET("/healthz", handler.Health)

    // PIN-gated, used from boarding stations that hold no staff token.
    e.POST("/v1/station/unlock", d.Station.Unlock)

    v1 := e.Group("/v1")
    v1.Use(middleware.StaffAuth(d.JWTSecret))
    v1.Use(middleware.RequireRole("AGENCY", "STAFF"))

    registerDashboard(v1, d)
    registerRideAdmin(v1, d)
    registerCheckIn(v1, d)
}

// registerDashboard mounts the snapshot read endpoints. GET responses
// are cached in redis when it is configured.
func registerDashboard(g *echo.Group, d Deps) {
    reads := g.Group("")
    if d.Cache.Enabled {
        reads.Use(middleware.ResponseCache(d.Redis, middleware.CacheOptions{
            TTL:    d.Cache.TTL,
            Prefix: d.Cache.Prefix,
        }))
    }
    reads.GET("/sync/state", d.Dashboard.GetState)
    reads.GET("/rides", d.Dashboard.GetRides)
    reads.GET("/categories", d.Dashboard.GetCategories)
    reads.GET("/categories/:id/rides", d.Dashboard.GetCategoryRides)
    reads.GET("/summary", d.Dashboard.GetSummary)

    g.POST("/sync/refresh", d.Dashboard.Refresh)
    g.POST("/sync/ack-bookings", d.Dashboard.AckNewBookings)
}

// registerRideAdmin mounts the ride mutations and the remote search.
func registerRideAdmin(g *echo.Group, d Deps) {
    g.GET("/search/rides", d.RideAdmin.SearchRides)
    g.POST("/rides/:id/book", d.RideAdmin.BookRide)
    g.DELETE("/rides/:id/booking", d.RideAdmin.CancelBooking)
    g.DELETE("/rides/:id", d.RideAdmin.DeleteRide)
    g.PUT("/rides/:id", d.RideAdmin.UpdateRide)
    g.POST("/rides/:id/complete", d.Station.Complete)
}

// registerCheckIn mounts the gate session endpoints. The scan endpoint
// carries the token-bucket limiter so a looping scanner cannot flood
// the remote service.
func registerCheckIn(g *echo.Group, d Deps) {
    cg := g.Group("/checkin/:id")
    cg.POST("/open", d.CheckIn.OpenGate)
    cg.DELETE("/close", d.CheckIn.CloseGate)
    cg.GET("/state", d.CheckIn.GateState)
    cg.POST("/start-scanning", d.CheckIn.StartScanning)
    cg.POST("/scan", d.CheckIn.Scan, middleware.ScanLimiter(d.ScanLimit, d.Redis))
    cg.POST("/search", d.CheckIn.Search)
    cg.GET("/search/results", d.CheckIn.SearchResults)
    cg.POST("/select", d.CheckIn.Select)
    cg.POST("/deselect", d.CheckIn.Deselect)
    cg.POST("/confirm", d.CheckIn.Confirm)
    cg.POST("/reset", d.CheckIn.ResetGate)
    cg.GET("/credential", d.CheckIn.Credential)
    cg.GET("/scans", d.CheckIn.RecentScans)
}
