// Package handler exposes the console's HTTP surface: dashboard reads
// over the synchronizer's snapshot, ride administration proxied to the
// remote service, and the check-in gate.
package handler

import (
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/ridelink/agency-console/internal/model"
    "github.com/ridelink/agency-console/internal/stats"
    "github.com/ridelink/agency-console/internal/syncer"
    "github.com/ridelink/agency-console/internal/view"
)

// DashboardHandler serves read endpoints straight from the in-memory
// snapshot. No request here ever hits the remote service.
type DashboardHandler struct {
    Sync     *syncer.Synchronizer
    AgencyID string
}

// snapshot answers 503 when no generation has been published yet, so
// dashboards distinguish "still loading" from "no data".
func (h *DashboardHandler) snapshot(c echo.Context) (syncer.Snapshot, bool) {
    snap, ok := h.Sync.Snapshot()
    if !ok {
        state, err := h.Sync.State()
        body := echo.Map{"state": state}
        if err != nil {
            body["error"] = err.Error()
        }
        _ = c.JSON(http.StatusServiceUnavailable, body)
    }
    return snap, ok
}

// GetState reports the sync loop's state, the snapshot generation and
// whether unseen bookings arrived since the operator last looked.
func (h *DashboardHandler) GetState(c echo.Context) error {
    state, err := h.Sync.State()
    body := echo.Map{
        "state":        state,
        "in_flight":    h.Sync.InFlight(),
        "new_bookings": h.Sync.NewBookings(),
    }
    if err != nil {
        body["error"] = err.Error()
    }
    if snap, ok := h.Sync.Snapshot(); ok {
        body["generation"] = snap.Generation
        body["fetched_at"] = snap.FetchedAt
    }
    return c.JSON(http.StatusOK, body)
}

// Refresh wakes the sync loop for an immediate refetch. The refetch is
// asynchronous; poll GetState for the new generation.
func (h *DashboardHandler) Refresh(c echo.Context) error {
    h.Sync.Wake()
    return c.JSON(http.StatusAccepted, echo.Map{"status": "refreshing"})
}

// AckNewBookings clears the new-bookings indicator.
func (h *DashboardHandler) AckNewBookings(c echo.Context) error {
    h.Sync.ClearNewBookings()
    return c.NoContent(http.StatusNoContent)
}

// GetRides lists rides filtered and ordered by query parameters:
// from, to, active, sort (departure|price|seats|bookings), order.
func (h *DashboardHandler) GetRides(c echo.Context) error {
    snap, ok := h.snapshot(c)
    if !ok {
        return nil
    }
    q := view.RideQuery{
        From:       c.QueryParam("from"),
        To:         c.QueryParam("to"),
        OnlyActive: c.QueryParam("active") == "true",
        SortBy:     view.RideSortKey(c.QueryParam("sort")),
        Order:      parseOrder(c.QueryParam("order")),
    }
    items := view.Rides(snap.Rides, q, time.Now())
    return c.JSON(http.StatusOK, echo.Map{"items": items, "generation": snap.Generation})
}

// GetCategories lists destinations enriched with per-category ride and
// revenue figures, filterable by from/to and sortable by
// name|rides|bookings|revenue.
func (h *DashboardHandler) GetCategories(c echo.Context) error {
    snap, ok := h.snapshot(c)
    if !ok {
        return nil
    }
    enriched := stats.ComputeCategoryStats(
        stats.DedupeCategories(snap.Categories),
        snap.Rides, snap.Bookings, time.Now(),
    )
    q := view.CategoryQuery{
        From:          c.QueryParam("from"),
        To:            c.QueryParam("to"),
        OnlyWithRides: c.QueryParam("with_rides") == "true",
        SortBy:        view.CategorySortKey(c.QueryParam("sort")),
        Order:         parseOrder(c.QueryParam("order")),
    }
    items := view.Categories(enriched, q)
    return c.JSON(http.StatusOK, echo.Map{"items": items, "generation": snap.Generation})
}

// GetCategoryRides lists one category's rides with the scoped filters:
// price and seat ranges (inclusive) and seat-status.
func (h *DashboardHandler) GetCategoryRides(c echo.Context) error {
    snap, ok := h.snapshot(c)
    if !ok {
        return nil
    }
    categoryID := c.Param("id")

    scoped := make([]model.Ride, 0)
    for i := range snap.Rides {
        if snap.Rides[i].Category.Matches(categoryID) {
            scoped = append(scoped, snap.Rides[i])
        }
    }

    q := view.ScopedRideQuery{
        RideQuery: view.RideQuery{
            From:       c.QueryParam("from"),
            To:         c.QueryParam("to"),
            OnlyActive: c.QueryParam("active") == "true",
            SortBy:     view.RideSortKey(c.QueryParam("sort")),
            Order:      parseOrder(c.QueryParam("order")),
        },
        MinPrice: floatParam(c, "min_price"),
        MaxPrice: floatParam(c, "max_price"),
        MinSeats: intParam(c, "min_seats"),
        MaxSeats: intParam(c, "max_seats"),
        Status:   model.SeatStatus(c.QueryParam("status")),
    }
    items := view.CategoryRides(scoped, q, time.Now())
    return c.JSON(http.StatusOK, echo.Map{"items": items, "generation": snap.Generation})
}

// GetSummary aggregates the agency's own rides into headline numbers
// for the dashboard's top bar.
func (h *DashboardHandler) GetSummary(c echo.Context) error {
    snap, ok := h.snapshot(c)
    if !ok {
        return nil
    }
    own := stats.FilterAgencyRides(snap.Rides, h.AgencyID)
    now := time.Now()
    active := 0
    var revenue float64
    for i := range own {
        if own[i].IsActive(now) {
            active++
        }
        revenue += float64(own[i].BookedSeats) * own[i].Price
    }
    return c.JSON(http.StatusOK, echo.Map{
        "ride_count":   len(own),
        "active_rides": active,
        "booked_seats": stats.TotalBookedSeats(own),
        "revenue":      revenue,
        "generation":   snap.Generation,
    })
}

func parseOrder(s string) view.Order {
    if s == string(view.Descending) {
        return view.Descending
    }
    return view.Ascending
}

func floatParam(c echo.Context, name string) *float64 {
    raw := c.QueryParam(name)
    if raw == "" {
        return nil
    }
    v, err := strconv.ParseFloat(raw, 64)
    if err != nil {
        return nil
    }
    return &v
}

func intParam(c echo.Context, name string) *int {
    raw := c.QueryParam(name)
    if raw == "" {
        return nil
    }
    v, err := strconv.Atoi(raw)
    if err != nil {
        return nil
    }
    return &v
}
