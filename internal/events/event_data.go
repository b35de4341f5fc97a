package events

import (
	"encoding/json"
)

// EventData is the interface that all typed event payloads implement
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// SnapshotBuiltData describes a newly published correlation snapshot
type SnapshotBuiltData struct {
	SnapshotID string  `json:"snapshot_id"`
	Companies  int     `json:"companies"`
	Pairs      int     `json:"pairs"`
	DurationMs int64   `json:"duration_ms"`
	Mean       float64 `json:"mean_correlation"`
}

// EventType returns the event type for SnapshotBuiltData
func (d *SnapshotBuiltData) EventType() EventType {
	return CorrelationSnapshotBuilt
}

// RefreshFailedData describes a failed re-initialization
type RefreshFailedData struct {
	Error           string `json:"error"`
	KeptSnapshotID  string `json:"kept_snapshot_id,omitempty"`
	DataUnavailable bool   `json:"data_unavailable"`
}

// EventType returns the event type for RefreshFailedData
func (d *RefreshFailedData) EventType() EventType {
	return CorrelationRefreshFailed
}

// SnapshotArchivedData describes an uploaded snapshot export
type SnapshotArchivedData struct {
	SnapshotID string `json:"snapshot_id"`
	Bucket     string `json:"bucket"`
	Key        string `json:"key"`
	Bytes      int    `json:"bytes"`
}

// EventType returns the event type for SnapshotArchivedData
func (d *SnapshotArchivedData) EventType() EventType {
	return SnapshotArchived
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}

// convertEventDataToMap converts typed EventData to the map carried by Event
func convertEventDataToMap(data EventData) map[string]interface{} {
	if data == nil {
		return nil
	}

	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil
	}

	var result map[string]interface{}
	if err := json.Unmarshal(jsonBytes, &result); err != nil {
		return nil
	}
	return result
}
