package scout

import "github.com/google/uuid"

// NewID generates a globally unique, time-sortable UUIDv7 (RFC 9562).
// Used for note ids.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// NewRequestID generates a short request id for per-query tracing. Eight hex
// characters is enough to correlate log lines within one process lifetime.
func NewRequestID() string {
	return uuid.NewString()[:8]
}
