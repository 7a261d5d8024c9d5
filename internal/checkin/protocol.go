// Package checkin implements the boarding credential: a QR-encoded
// JSON triple binding one passenger to one booking on one ride. The
// rider side encodes, the gate side decodes and validates; both paths
// converge on the same remote check-in call, which stays the single
// authority on whether a booking is consumed.
package checkin

import (
    "encoding/json"
    "fmt"

    qrcode "github.com/skip2/go-qrcode"

    "github.com/ridelink/agency-console/internal/api"
    "github.com/ridelink/agency-console/internal/model"
)

// Fault codes for rejected credentials. A rejected credential is never
// retried: the payload itself is wrong, so retrying changes nothing.
const (
    FaultInvalidPayload  = "INVALID_PAYLOAD"
    FaultMissingFields   = "MISSING_FIELDS"
    FaultRideMismatch    = "RIDE_MISMATCH"
    FaultInvalidIDFormat = "INVALID_ID_FORMAT"
)

// ProtocolError reports why a scanned credential was rejected, before
// any network call was considered.
type ProtocolError struct {
    Code   string
    Detail string
}

func (e *ProtocolError) Error() string {
    if e.Detail != "" {
        return fmt.Sprintf("checkin: %s: %s", e.Code, e.Detail)
    }
    return "checkin: " + e.Code
}

// Credential is the wire form of the QR payload. BookingID is a pointer
// so an unresolved booking emits an explicit null rather than failing
// on the rider side; the gate is the final authority.
type Credential struct {
    RideID    string  `json:"rideId"`
    UserID    string  `json:"userId"`
    BookingID *string `json:"bookingId"`
}

// Encode builds the rider's credential for one ride. The booking id is
// resolved from the rider's own bookings: the entry on that ride whose
// passenger is the rider. Without such a binding the credential still
// emits, with a null booking id.
func Encode(rideID, userID string, ownBookings []model.Booking) Credential {
    cred := Credential{RideID: rideID, UserID: userID}
    for i := range ownBookings {
        b := &ownBookings[i]
        if b.Ride.Matches(rideID) && b.Passenger.Matches(userID) {
            id := b.ID
            cred.BookingID = &id
            break
        }
    }
    return cred
}

// Payload serializes the credential to the UTF-8 JSON text that goes
// into the QR symbol.
func (c Credential) Payload() ([]byte, error) {
    return json.Marshal(c)
}

// PNG renders the credential as a QR image, size pixels per side.
func (c Credential) PNG(size int) ([]byte, error) {
    payload, err := c.Payload()
    if err != nil {
        return nil, err
    }
    return qrcode.Encode(string(payload), qrcode.Medium, size)
}

// Decode validates a scanned payload against the ride currently open at
// the gate. Checks run in a fixed order and stop at the first failure:
// parse, field presence, ride match, id format. Only a fully valid
// credential may be submitted to the server.
func Decode(payload string, openRideID string) (api.CheckInRequest, error) {
    var cred Credential
    if err := json.Unmarshal([]byte(payload), &cred); err != nil {
        return api.CheckInRequest{}, &ProtocolError{Code: FaultInvalidPayload, Detail: err.Error()}
    }
    if cred.RideID == "" || cred.UserID == "" || cred.BookingID == nil || *cred.BookingID == "" {
        return api.CheckInRequest{}, &ProtocolError{Code: FaultMissingFields}
    }
    if cred.RideID != openRideID {
        return api.CheckInRequest{}, &ProtocolError{
            Code:   FaultRideMismatch,
            Detail: fmt.Sprintf("credential is for ride %s", cred.RideID),
        }
    }
    if !model.IsObjectID(cred.RideID) || !model.IsObjectID(cred.UserID) {
        return api.CheckInRequest{}, &ProtocolError{Code: FaultInvalidIDFormat}
    }
    return api.CheckInRequest{
        RideID:    cred.RideID,
        UserID:    cred.UserID,
        BookingID: *cred.BookingID,
    }, nil
}
