package model

import "time"

// Ride is a scheduled or private trip published by an agency. The seat
// counters are the raw source for the availability status shown on every
// dashboard; the invariant booked_seats <= seats is owned by the server
// and only reflected here.
//
// Fields:
//  ID           – document id.
//  From, To     – origin and destination labels.
//  Departure    – scheduled departure time.
//  Arrival      – estimated arrival time.
//  Seats        – total capacity (>= 1 on well-formed documents).
//  BookedSeats  – seats currently booked (0..Seats).
//  Price        – per-seat price.
//  LicensePlate – vehicle plate.
//  Category     – destination category, id or populated document.
//  Agency       – owning agency, id or populated document.
//  IsPrivate    – private rides carry their own lifecycle status.
//  Status       – lifecycle status for private rides.
type Ride struct {
    ID           string        `json:"_id"`
    From         string        `json:"from"`
    To           string        `json:"to"`
    Departure    time.Time     `json:"departure_time"`
    Arrival      time.Time     `json:"estimatedArrivalTime"`
    Seats        int           `json:"seats"`
    BookedSeats  int           `json:"booked_seats"`
    Price        float64       `json:"price"`
    LicensePlate string        `json:"licensePlate"`
    Category     Ref[Category] `json:"categoryId"`
    Agency       Ref[Agency]   `json:"agencyId"`
    IsPrivate    bool          `json:"isPrivate"`
    Status       string        `json:"status,omitempty"`
}

// AvailableSeats returns the remaining capacity, never negative even on a
// malformed document.
func (r *Ride) AvailableSeats() int {
    free := r.Seats - r.BookedSeats
    if free < 0 {
        return 0
    }
    return free
}

// IsActive reports whether the ride departs after now.
func (r *Ride) IsActive(now time.Time) bool {
    return r.Departure.After(now)
}

// Agency is the operator owning rides and categories. Rides reference it
// by id or as a populated document.
type Agency struct {
    ID   string `json:"_id"`
    Name string `json:"name"`
}
