package crypto

import (
	"github.com/google/uuid"
)

// NewRequestID returns a time-ordered UUID v7 string for request correlation.
func NewRequestID() string {
	return uuid.Must(uuid.NewV7()).String()
}
