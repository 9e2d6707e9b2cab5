package utils

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"math/big"
)

const (
	// MinPINLength is the shortest code the kiosk accepts. Codes may be
	// longer; four digits is the floor, not the fixed size.
	MinPINLength = 4

	// DefaultPINLength is what GeneratePIN produces for suggested codes.
	DefaultPINLength = 4
)

var (
	ErrPINTooShort   = errors.New("pin must be at least 4 digits")
	ErrPINNotNumeric = errors.New("pin must contain only digits")
)

// ValidatePIN checks a candidate kiosk code locally, before any store
// access. An empty string is not valid here; callers that treat "" as
// "remove the PIN" must branch before validating.
func ValidatePIN(code string) error {
	if len(code) < MinPINLength {
		return ErrPINTooShort
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return ErrPINNotNumeric
		}
	}
	return nil
}

// GeneratePIN returns a random numeric code of the default length.
func GeneratePIN() (string, error) {
	const digits = "0123456789"
	pin := make([]byte, DefaultPINLength)

	for i := range pin {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(digits))))
		if err != nil {
			return "", err
		}
		pin[i] = digits[num.Int64()]
	}

	return string(pin), nil
}

// GenerateSecureToken returns 32 random bytes hex-encoded, for one-shot
// values like OAuth state.
func GenerateSecureToken() (string, error) {
	token := make([]byte, 32)
	if _, err := rand.Read(token); err != nil {
		return "", err
	}
	return hex.EncodeToString(token), nil
}
