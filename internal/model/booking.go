package model

import "encoding/json"

// BookingStatus is the lifecycle state of a booking as the server reports
// it. Transitions happen server-side only; the console never flips a
// status locally.
type BookingStatus string

const (
    BookingPending   BookingStatus = "pending"
    BookingCheckedIn BookingStatus = "checked_in"
    BookingCompleted BookingStatus = "completed"
    BookingCancelled BookingStatus = "cancelled"
)

// CheckedIn reports whether the booking has already been consumed at the
// gate; a checked-in or completed booking must not be re-accepted.
func (s BookingStatus) CheckedIn() bool {
    return s == BookingCheckedIn || s == BookingCompleted
}

// Booking ties one passenger to one ride. The ride reference comes back
// from the API under either key: a bare "rideId", or a populated "ride"
// sub-document. UnmarshalJSON folds both into the single Ride field.
//
// Fields:
//  ID        – document id; the third field of the check-in credential.
//  Ride      – the booked ride, normalized from rideId/ride.
//  Passenger – the holder, id or populated user document.
//  Status    – lifecycle state.
type Booking struct {
    ID        string        `json:"_id"`
    Ride      Ref[Ride]     `json:"rideId"`
    Passenger Ref[User]     `json:"passenger"`
    Status    BookingStatus `json:"status"`
}

// bookingWire mirrors the raw document, keeping both ride keys so either
// shape can be observed before normalization.
type bookingWire struct {
    ID        string        `json:"_id"`
    RideID    Ref[Ride]     `json:"rideId"`
    Ride      Ref[Ride]     `json:"ride"`
    Passenger Ref[User]     `json:"passenger"`
    Status    BookingStatus `json:"status"`
}

// UnmarshalJSON prefers the populated "ride" document when present and
// falls back to the bare "rideId" key otherwise.
func (b *Booking) UnmarshalJSON(data []byte) error {
    var w bookingWire
    if err := json.Unmarshal(data, &w); err != nil {
        return err
    }
    ride := w.RideID
    if w.Ride.ID != "" {
        ride = w.Ride
    }
    *b = Booking{ID: w.ID, Ride: ride, Passenger: w.Passenger, Status: w.Status}
    return nil
}

// User is a passenger or staff account as embedded in bookings and
// check-in responses.
type User struct {
    ID    string `json:"_id"`
    Name  string `json:"name"`
    Email string `json:"email"`
}
