// Package stats derives per-category dashboard figures from the raw
// ride, category and booking collections. Figures are recomputed from
// scratch on every call: the source collections are replaced wholesale
// by each poll, so incremental patching would only invite drift.
package stats

import (
    "time"

    "github.com/ridelink/agency-console/internal/model"
)

// CategoryStats is a category enriched with the figures shown on the
// agency dashboard. It is derived, never persisted, and recomputed
// whenever rides or bookings change.
type CategoryStats struct {
    Category     model.Category `json:"category"`
    RideCount    int            `json:"rideCount"`
    BookingCount int            `json:"bookingCount"`
    TotalRevenue float64        `json:"totalRevenue"`
    ActiveRides  int            `json:"activeRides"`
    AvgRevenue   float64        `json:"avgRevenue"`
}

// DedupeCategories collapses repeated category ids to a single entry.
// The last occurrence wins; the entry keeps the position of the first.
// Categories without an id pass through untouched.
func DedupeCategories(categories []model.Category) []model.Category {
    out := make([]model.Category, 0, len(categories))
    index := make(map[string]int, len(categories))
    for _, cat := range categories {
        if cat.ID == "" {
            out = append(out, cat)
            continue
        }
        if at, seen := index[cat.ID]; seen {
            out[at] = cat
            continue
        }
        index[cat.ID] = len(out)
        out = append(out, cat)
    }
    return out
}

// ComputeCategoryStats joins categories, rides and bookings into one
// CategoryStats per distinct category. A booking counts toward a
// category only when its resolved ride id belongs to that category's
// ride set; unmatched bookings are never attributed elsewhere.
func ComputeCategoryStats(categories []model.Category, rides []model.Ride, bookings []model.Booking, now time.Time) []CategoryStats {
    categories = DedupeCategories(categories)

    out := make([]CategoryStats, 0, len(categories))
    for _, cat := range categories {
        cs := CategoryStats{Category: cat}

        rideIDs := make(map[string]struct{})
        for i := range rides {
            ride := &rides[i]
            if !ride.Category.Matches(cat.ID) {
                continue
            }
            cs.RideCount++
            cs.TotalRevenue += ride.Price
            if ride.IsActive(now) {
                cs.ActiveRides++
            }
            if ride.ID != "" {
                rideIDs[ride.ID] = struct{}{}
            }
        }

        for i := range bookings {
            if _, ok := rideIDs[bookings[i].Ride.ID]; ok {
                cs.BookingCount++
            }
        }

        // Zero rides means zero average, never a division by zero.
        if cs.RideCount > 0 {
            cs.AvgRevenue = cs.TotalRevenue / float64(cs.RideCount)
        }
        out = append(out, cs)
    }
    return out
}

// FilterAgencyRides keeps the rides owned by the given agency. It runs
// before any stats computation for an agency-scoped dashboard so global
// and agency totals never mix.
func FilterAgencyRides(rides []model.Ride, agencyID string) []model.Ride {
    out := make([]model.Ride, 0, len(rides))
    for i := range rides {
        if rides[i].Agency.Matches(agencyID) {
            out = append(out, rides[i])
        }
    }
    return out
}

// TotalBookedSeats sums booked seats across rides, feeding the
// dashboard summary's headline seat count.
func TotalBookedSeats(rides []model.Ride) int {
    total := 0
    for i := range rides {
        total += rides[i].BookedSeats
    }
    return total
}
