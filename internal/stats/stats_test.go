package stats

import (
	"math"
	"testing"
	"time"

	"github.com/ridelink/agency-console/internal/model"
)

var now = time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

func ride(id, catID string, price float64, departure time.Time) model.Ride {
	return model.Ride{
		ID:        id,
		Price:     price,
		Departure: departure,
		Category:  model.Ref[model.Category]{ID: catID},
	}
}

func booking(id, rideID string) model.Booking {
	return model.Booking{ID: id, Ride: model.Ref[model.Ride]{ID: rideID}}
}

func TestComputeCategoryStats(t *testing.T) {
	cats := []model.Category{{ID: "c1", From: "Douala", To: "Yaounde"}, {ID: "c2"}}
	rides := []model.Ride{
		ride("r1", "c1", 100, now.Add(2*time.Hour)),
		ride("r2", "c1", 50, now.Add(-2*time.Hour)),
		ride("r3", "c2", 75, now.Add(time.Hour)),
	}
	// r1 arrives as a populated sub-document on one booking.
	populated := model.Booking{ID: "b3", Ride: model.Ref[model.Ride]{ID: "r1", Doc: &rides[0]}}
	bookings := []model.Booking{
		booking("b1", "r1"),
		booking("b2", "r2"),
		populated,
		booking("b4", "r3"),
		booking("b5", "ghost"), // unmatched ride: counted nowhere
	}

	got := ComputeCategoryStats(cats, rides, bookings, now)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}

	c1 := got[0]
	if c1.RideCount != 2 || c1.BookingCount != 3 {
		t.Errorf("c1 counts = %d rides / %d bookings", c1.RideCount, c1.BookingCount)
	}
	if c1.TotalRevenue != 150 || c1.AvgRevenue != 75 {
		t.Errorf("c1 revenue = %v avg %v", c1.TotalRevenue, c1.AvgRevenue)
	}
	if c1.ActiveRides != 1 {
		t.Errorf("c1 active = %d", c1.ActiveRides)
	}

	c2 := got[1]
	if c2.RideCount != 1 || c2.BookingCount != 1 {
		t.Errorf("c2 counts = %d/%d", c2.RideCount, c2.BookingCount)
	}
}

func TestComputeCategoryStatsEmptyCategory(t *testing.T) {
	got := ComputeCategoryStats([]model.Category{{ID: "empty"}}, nil, []model.Booking{booking("b1", "r1")}, now)
	if len(got) != 1 {
		t.Fatalf("len = %d", len(got))
	}
	cs := got[0]
	if cs.AvgRevenue != 0 || math.IsNaN(cs.AvgRevenue) || math.IsInf(cs.AvgRevenue, 0) {
		t.Errorf("avgRevenue = %v, want exactly 0", cs.AvgRevenue)
	}
	if cs.BookingCount != 0 {
		t.Error("booking with no matching ride leaked into the category")
	}
}

func TestDedupeCategoriesLastWriteWins(t *testing.T) {
	in := []model.Category{
		{ID: "a", Description: "v1"},
		{ID: "b"},
		{ID: "a", Description: "v2"},
	}
	got := DedupeCategories(in)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID != "a" || got[0].Description != "v2" {
		t.Errorf("got[0] = %+v, want the second occurrence in the first slot", got[0])
	}
	if got[1].ID != "b" {
		t.Errorf("got[1] = %+v", got[1])
	}
}

func TestFilterAgencyRides(t *testing.T) {
	mine := model.Ride{ID: "r1", Agency: model.Ref[model.Agency]{ID: "ag1"}}
	populated := model.Ride{ID: "r2", Agency: model.Ref[model.Agency]{ID: "ag1", Doc: &model.Agency{ID: "ag1"}}}
	other := model.Ride{ID: "r3", Agency: model.Ref[model.Agency]{ID: "ag2"}}

	got := FilterAgencyRides([]model.Ride{mine, populated, other}, "ag1")
	if len(got) != 2 || got[0].ID != "r1" || got[1].ID != "r2" {
		t.Errorf("got %+v", got)
	}
}

func TestTotalBookedSeats(t *testing.T) {
	rides := []model.Ride{{BookedSeats: 3}, {BookedSeats: 0}, {BookedSeats: 7}}
	if got := TotalBookedSeats(rides); got != 10 {
		t.Errorf("TotalBookedSeats = %d", got)
	}
}
