package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"math/big"
)

// NewOTPCode generates a numeric one-time code of the given number of
// digits using crypto/rand.  Leading zeros are allowed, so a 6-digit
// code is always exactly 6 characters.
func NewOTPCode(digits int) (string, error) {
	code := make([]byte, digits)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		code[i] = byte('0' + n.Int64())
	}
	return string(code), nil
}

// HashOTP returns the SHA-256 hash of an OTP code as a hex string.
// Codes are stored hashed for the same reason refresh tokens are.
func HashOTP(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
