package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

func TestPINRoundTrip(t *testing.T) {
	hash, err := HashPIN("4217", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPIN: %v", err)
	}
	if !VerifyPIN(hash, "4217") {
		t.Error("correct PIN rejected")
	}
	if VerifyPIN(hash, "0000") {
		t.Error("wrong PIN accepted")
	}
	if VerifyPIN("not-a-hash", "4217") {
		t.Error("garbage hash accepted")
	}
}

func TestStationTokenClaims(t *testing.T) {
	st, err := NewStationToken("secret", "gate-1", "ride-9", time.Minute)
	if err != nil {
		t.Fatalf("NewStationToken: %v", err)
	}
	tok, err := jwt.Parse(st.Token, func(t *jwt.Token) (any, error) {
		return []byte("secret"), nil
	})
	if err != nil || !tok.Valid {
		t.Fatalf("parse: %v", err)
	}
	claims := tok.Claims.(jwt.MapClaims)
	if claims["sub"] != "gate-1" || claims["role"] != "station" || claims["ride"] != "ride-9" {
		t.Errorf("claims = %+v", claims)
	}
	if !st.Exp.After(time.Now()) {
		t.Error("expiry not in the future")
	}
}
