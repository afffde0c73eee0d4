package utils

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

// GenerateOTP returns a 6-digit numeric code in [100000, 999999].
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// GenerateResetToken returns a 40-character random hex string.
func GenerateResetToken() (string, error) {
	buf := make([]byte, 20)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// SecureCompare reports whether the user-supplied value matches the stored
// one. The input is trimmed first; the comparison itself is constant-time.
func SecureCompare(supplied, stored string) bool {
	supplied = strings.TrimSpace(supplied)
	return subtle.ConstantTimeCompare([]byte(supplied), []byte(stored)) == 1
}
