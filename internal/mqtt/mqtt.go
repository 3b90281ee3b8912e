// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/sweeney/hx711-sensor/internal/logic"
)

// Topic is the MQTT topic for settled load changes.
const Topic = "sensors/loadcell/hx711/events"

// TopicReadings is the MQTT topic for periodic readings.
const TopicReadings = "sensors/loadcell/hx711/readings"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "sensors/loadcell/hx711/system"

// ErrNotConnected is returned by PublishReading while the broker is away.
var ErrNotConnected = errors.New("mqtt: not connected")

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a load change event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishReading sends a periodic reading to the broker.
	PublishReading(reading Reading) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Reading is one offset-corrected sample taken by the report loop.
type Reading struct {
	Timestamp time.Time
	Value     int32
	Offset    int32
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	LoadCell LoadCellPayload `json:"loadcell"`
}

// LoadCellPayload contains the load change details.
type LoadCellPayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Value     int32  `json:"value"`
	Previous  int32  `json:"previous"`
}

// FormatPayload creates the JSON payload for a load change event.
func FormatPayload(event logic.Event) ([]byte, error) {
	payload := Payload{
		LoadCell: LoadCellPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     string(event.Type),
			Value:     event.Value,
			Previous:  event.Previous,
		},
	}
	return json.Marshal(payload)
}

// ReadingPayload represents the MQTT message payload for a reading.
type ReadingPayload struct {
	Reading ReadingPayloadInner `json:"reading"`
}

// ReadingPayloadInner contains the reading details.
type ReadingPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Value     int32  `json:"value"`
	Offset    int32  `json:"offset"`
}

// FormatReadingPayload creates the JSON payload for a reading.
func FormatReadingPayload(r Reading) ([]byte, error) {
	return json.Marshal(ReadingPayload{
		Reading: ReadingPayloadInner{
			Timestamp: r.Timestamp.UTC().Format(time.RFC3339Nano),
			Value:     r.Value,
			Offset:    r.Offset,
		},
	})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp,omitempty"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	inner := SystemPayloadInner{
		Event:  event.Event,
		Reason: event.Reason,
	}
	if !event.Timestamp.IsZero() {
		inner.Timestamp = event.Timestamp.UTC().Format(time.RFC3339)
	}
	return json.Marshal(SystemPayload{System: inner})
}
