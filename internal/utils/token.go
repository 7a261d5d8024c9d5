package utils

import (
    "time"

    "github.com/golang-jwt/jwt/v5"
)

// StationToken is a short-lived HS256 token issued after a successful
// station unlock. It authorizes the scanner endpoints until its expiry;
// the staff member's own bearer token keeps authorizing the remote API.
type StationToken struct {
    Token string    // the serialized JWT
    Exp   time.Time // UTC expiration time
}

// NewStationToken signs a token for one unlocked station. Claims: sub
// (station id), role ("station"), ride (the ride open for scanning),
// exp and iat.
func NewStationToken(secret, stationID, rideID string, ttl time.Duration) (StationToken, error) {
    exp := time.Now().UTC().Add(ttl)
    claims := jwt.MapClaims{
        "sub":  stationID,
        "role": "station",
        "ride": rideID,
        "exp":  exp.Unix(),
        "iat":  time.Now().UTC().Unix(),
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString([]byte(secret))
    if err != nil {
        return StationToken{}, err
    }
    return StationToken{Token: signed, Exp: exp}, nil
}
