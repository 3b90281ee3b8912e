// Package logic contains the pure decisions behind the load-cell daemon.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// EventType names a reportable change in the reading.
type EventType string

const (
	EventChanged EventType = "LOAD_CHANGED"
)

// Event represents a settled change to be published.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Value     int32 // new stable reading, offset-corrected counts
	Previous  int32 // stable reading before the change
}

// Input represents one offset-corrected reading taken by the report loop.
type Input struct {
	Value int32
	Time  time.Time
}

// EventCounts tracks what the detector has seen since startup.
type EventCounts struct {
	Readings int
	Changes  int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
	Stable    int32
}
