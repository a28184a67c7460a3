package domain

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

const (
	trackingDigits     = 10
	minTrackingLength  = 4
	maxTrackingLength  = 32
	DefaultTrackingPfx = "DU"
)

// ValidateTrackingNumber accepts 4-32 ASCII letters and digits.
func ValidateTrackingNumber(tn string) error {
	if tn == "" {
		return invalid("trackingNumber", "is required")
	}
	if len(tn) < minTrackingLength || len(tn) > maxTrackingLength {
		return invalid("trackingNumber", fmt.Sprintf("must be %d-%d characters", minTrackingLength, maxTrackingLength))
	}
	if !isAlphanumeric(tn) {
		return invalid("trackingNumber", "must contain only letters and digits")
	}
	return nil
}

// NewTrackingNumber issues prefix followed by ten random digits, e.g. DU1234567890.
func NewTrackingNumber(prefix string) (string, error) {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		prefix = DefaultTrackingPfx
	}
	if !isAlphanumeric(prefix) || len(prefix)+trackingDigits > maxTrackingLength {
		return "", fmt.Errorf("new tracking number: invalid prefix %q", prefix)
	}

	var b strings.Builder
	b.WriteString(prefix)
	ten := big.NewInt(10)
	for i := 0; i < trackingDigits; i++ {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("new tracking number: read random: %w", err)
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}

func isAlphanumeric(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
			return false
		}
	}
	return true
}
