package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeKVs(t *testing.T) {
	got := sanitizeKVs([]interface{}{
		"tracking_number", "DU1234567890",
		"recipient_email", "bo@example.com",
		"Authorization", "Bearer abc",
		"dangling",
	})

	assert.Equal(t, []interface{}{
		"tracking_number", "DU1234567890",
		"recipient_email", "[REDACTED]",
		"Authorization", "[REDACTED]",
		"dangling",
	}, got)
}
