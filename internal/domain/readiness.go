package domain

import "time"

// DefaultReadyMarker is printed by redis-server once it accepts connections.
// Redis 7 appends " tcp" to the line; matching the common prefix covers both.
const DefaultReadyMarker = "Ready to accept connections"

// DefaultStartTimeout bounds how long Start waits for the marker.
const DefaultStartTimeout = 30 * time.Second

// ReadinessSpec describes how server readiness is detected.
type ReadinessSpec struct {
	Marker  string
	Timeout time.Duration
}
