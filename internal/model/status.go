package model

// SeatStatus is the availability label derived from a ride's seat
// counters. It is recomputed from the raw counters on every read and
// never stored.
type SeatStatus string

const (
    SeatsFull       SeatStatus = "full"
    SeatsNearlyFull SeatStatus = "nearly_full"
    SeatsAvailable  SeatStatus = "available"
)

// NearlyFullThreshold is the booked ratio at which a ride is flagged as
// nearly full. The boundary is inclusive: 8 of 10 seats is nearly full.
const NearlyFullThreshold = 0.8

// ClassifySeats maps raw seat counters to an availability label. A ride
// with no capacity cannot be booked and classifies as full, which also
// keeps the ratio away from a zero divisor.
func ClassifySeats(seats, booked int) SeatStatus {
    if seats <= 0 {
        return SeatsFull
    }
    if seats-booked <= 0 {
        return SeatsFull
    }
    if float64(booked)/float64(seats) >= NearlyFullThreshold {
        return SeatsNearlyFull
    }
    return SeatsAvailable
}

// SeatStatus classifies the ride's own counters.
func (r *Ride) SeatStatus() SeatStatus {
    return ClassifySeats(r.Seats, r.BookedSeats)
}
