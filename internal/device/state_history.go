package device

import (
	"context"
	"time"
)

// State history source values.
const (
	StateHistorySourcePoll    = "poll"
	StateHistorySourceCommand = "command"
)

// StateHistoryEntry represents a single observed thermostat change.
//
// Each entry stores a full snapshot of the thermostat at the time the
// change was observed. This provides a local history even when the
// time-series database is disabled.
type StateHistoryEntry struct {
	// ID is the auto-incremented primary key for the history row.
	ID int64 `json:"id"`

	// DeviceID is the vendor device identifier.
	DeviceID string `json:"device_id"`

	// State is the thermostat snapshot at the time of the change.
	State Thermostat `json:"state"`

	// Source identifies how the change was recorded (poll, command).
	Source string `json:"source"`

	// CreatedAt is the timestamp of the change (UTC).
	CreatedAt time.Time `json:"created_at"`
}

// StateHistoryRepository stores and retrieves thermostat change history.
//
// Implementations must be thread-safe and use UTC timestamps.
type StateHistoryRepository interface {
	// RecordStateChange records an observed thermostat change.
	RecordStateChange(ctx context.Context, t *Thermostat, source string) error

	// GetHistory returns recent change history for the device, ordered
	// newest first. Implementations may clamp the limit.
	GetHistory(ctx context.Context, deviceID string, limit int) ([]StateHistoryEntry, error)

	// PruneHistory deletes entries older than the given duration and
	// returns the number of rows removed.
	PruneHistory(ctx context.Context, olderThan time.Duration) (int64, error)
}
