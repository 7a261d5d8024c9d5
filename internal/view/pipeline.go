// Package view narrows and orders rides and categories for display.
// All three pipelines share one contract: filter with a predicate set,
// then sort by a named key with a stable order, so equal elements keep
// their fetch order.
package view

import (
    "sort"
    "strings"
    "time"

    "github.com/ridelink/agency-console/internal/model"
    "github.com/ridelink/agency-console/internal/stats"
)

// Order is a sort direction.
type Order string

const (
    Ascending  Order = "asc"
    Descending Order = "desc"
)

// apply is the shared pipeline: keep what the predicate accepts, then
// stable-sort by less, reversed for descending order. The input slice is
// never mutated.
func apply[T any](items []T, keep func(*T) bool, less func(*T, *T) bool, order Order) []T {
    out := make([]T, 0, len(items))
    for i := range items {
        if keep == nil || keep(&items[i]) {
            out = append(out, items[i])
        }
    }
    if less != nil {
        sort.SliceStable(out, func(i, j int) bool {
            if order == Descending {
                return less(&out[j], &out[i])
            }
            return less(&out[i], &out[j])
        })
    }
    return out
}

// textMatch reports whether field contains term, case-insensitively. A
// blank term always matches.
func textMatch(field, term string) bool {
    if term == "" {
        return true
    }
    return strings.Contains(strings.ToLower(field), strings.ToLower(term))
}

// beforeTime compares departure timestamps; the zero time sorts first.
func beforeTime(a, b time.Time) bool { return a.Before(b) }

// RideSortKey names the orderable ride columns.
type RideSortKey string

const (
    RideByDeparture RideSortKey = "departure"
    RideByPrice     RideSortKey = "price"
    RideBySeats     RideSortKey = "seats"
    RideByBookings  RideSortKey = "bookings"
)

// RideQuery filters and orders a ride list. From and To are independent
// contains-matches: a ride passes only when every provided term matches
// its own field. OnlyActive keeps rides departing after now.
type RideQuery struct {
    From       string
    To         string
    OnlyActive bool
    SortBy     RideSortKey
    Order      Order
}

// Rides runs the query against the ride collection.
func Rides(rides []model.Ride, q RideQuery, now time.Time) []model.Ride {
    keep := func(r *model.Ride) bool {
        if !textMatch(r.From, q.From) || !textMatch(r.To, q.To) {
            return false
        }
        if q.OnlyActive && !r.IsActive(now) {
            return false
        }
        return true
    }
    return apply(rides, keep, rideLess(q.SortBy), q.Order)
}

// rideLess returns the comparator for a ride sort key, or nil when no
// key was given so the fetch order is preserved.
func rideLess(key RideSortKey) func(*model.Ride, *model.Ride) bool {
    switch key {
    case RideByDeparture:
        return func(a, b *model.Ride) bool { return beforeTime(a.Departure, b.Departure) }
    case RideByPrice:
        return func(a, b *model.Ride) bool { return a.Price < b.Price }
    case RideBySeats:
        return func(a, b *model.Ride) bool { return a.Seats < b.Seats }
    case RideByBookings:
        return func(a, b *model.Ride) bool { return a.BookedSeats < b.BookedSeats }
    default:
        return nil
    }
}

// CategorySortKey names the orderable category columns.
type CategorySortKey string

const (
    CategoryByName     CategorySortKey = "name"
    CategoryByRides    CategorySortKey = "rides"
    CategoryByBookings CategorySortKey = "bookings"
    CategoryByRevenue  CategorySortKey = "revenue"
)

// CategoryQuery filters and orders enriched categories. The name key
// sorts on the lower-cased "from to" concatenation.
type CategoryQuery struct {
    From          string
    To            string
    OnlyWithRides bool
    SortBy        CategorySortKey
    Order         Order
}

// Categories runs the query against computed category stats.
func Categories(cats []stats.CategoryStats, q CategoryQuery) []stats.CategoryStats {
    keep := func(cs *stats.CategoryStats) bool {
        if !textMatch(cs.Category.From, q.From) || !textMatch(cs.Category.To, q.To) {
            return false
        }
        if q.OnlyWithRides && cs.RideCount == 0 {
            return false
        }
        return true
    }
    return apply(cats, keep, categoryLess(q.SortBy), q.Order)
}

func categoryName(cs *stats.CategoryStats) string {
    return strings.ToLower(cs.Category.From + " " + cs.Category.To)
}

func categoryLess(key CategorySortKey) func(*stats.CategoryStats, *stats.CategoryStats) bool {
    switch key {
    case CategoryByName:
        return func(a, b *stats.CategoryStats) bool { return categoryName(a) < categoryName(b) }
    case CategoryByRides:
        return func(a, b *stats.CategoryStats) bool { return a.RideCount < b.RideCount }
    case CategoryByBookings:
        return func(a, b *stats.CategoryStats) bool { return a.BookingCount < b.BookingCount }
    case CategoryByRevenue:
        return func(a, b *stats.CategoryStats) bool { return a.TotalRevenue < b.TotalRevenue }
    default:
        return nil
    }
}

// ScopedRideQuery is the category-scoped ride filter. On top of the
// plain ride query it adds inclusive price and seat ranges, each ignored
// when nil, and an availability status filter, ignored when empty.
type ScopedRideQuery struct {
    RideQuery
    MinPrice *float64
    MaxPrice *float64
    MinSeats *int
    MaxSeats *int
    Status   model.SeatStatus
}

// CategoryRides runs the scoped query over the rides already narrowed to
// one category.
func CategoryRides(rides []model.Ride, q ScopedRideQuery, now time.Time) []model.Ride {
    keep := func(r *model.Ride) bool {
        if !textMatch(r.From, q.From) || !textMatch(r.To, q.To) {
            return false
        }
        if q.OnlyActive && !r.IsActive(now) {
            return false
        }
        if q.MinPrice != nil && r.Price < *q.MinPrice {
            return false
        }
        if q.MaxPrice != nil && r.Price > *q.MaxPrice {
            return false
        }
        if q.MinSeats != nil && r.Seats < *q.MinSeats {
            return false
        }
        if q.MaxSeats != nil && r.Seats > *q.MaxSeats {
            return false
        }
        if q.Status != "" && r.SeatStatus() != q.Status {
            return false
        }
        return true
    }
    return apply(rides, keep, rideLess(q.SortBy), q.Order)
}
