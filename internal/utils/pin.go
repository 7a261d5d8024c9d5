package utils // package utils provides helpers for station unlock and tokens

import "golang.org/x/crypto/bcrypt"

// HashPIN returns the bcrypt hash of a station unlock PIN using the
// given cost.
func HashPIN(pin string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pin), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPIN safely compares a bcrypt hash against an entered PIN.
func VerifyPIN(hash, pin string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)) == nil
}
