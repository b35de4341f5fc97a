// Package events provides in-process event publication for corrscope.
package events

import (
	"time"
)

// EventType represents different event types
type EventType string

const (
	CorrelationSnapshotBuilt EventType = "CORRELATION_SNAPSHOT_BUILT"
	CorrelationRefreshFailed EventType = "CORRELATION_REFRESH_FAILED"
	SnapshotArchived         EventType = "SNAPSHOT_ARCHIVED"
	ErrorOccurred            EventType = "ERROR_OCCURRED"
)

// AllEventTypes lists every event type streamed to clients by default
var AllEventTypes = []EventType{
	CorrelationSnapshotBuilt,
	CorrelationRefreshFailed,
	SnapshotArchived,
	ErrorOccurred,
}

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
	Module    string                 `json:"module"`
}
