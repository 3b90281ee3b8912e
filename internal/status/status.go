// Package status provides a thread-safe status tracker for the hx711-sensor daemon.
// It is read by HTTP handlers and written by the report loop and the edge handler.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/hx711-sensor/internal/logic"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/mqtt from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	ReportMs    int64
	SettleMs    int64
	Threshold   int32
	HeartbeatMs int64
	Gain        int
	PinClock    int
	PinData     int
	Broker      string
	HTTPAddr    string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Tared         bool
	Offset        int32
	Last          int32
	Stable        int32
	Baselined     bool
	Counts        logic.EventCounts
	Edges         logic.EdgeCounts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// SetTare records the tare baseline.
func (t *Tracker) SetTare(offset int32) {
	t.mu.Lock()
	t.snap.Tared = true
	t.snap.Offset = offset
	t.mu.Unlock()
}

// Update sets the latest reading, the detector's stable value, baseline
// status and counts. Called from runLoop on every tick.
func (t *Tracker) Update(last, stable int32, baselined bool, counts logic.EventCounts) {
	t.mu.Lock()
	t.snap.Last = last
	t.snap.Stable = stable
	t.snap.Baselined = baselined
	t.snap.Counts = counts
	t.mu.Unlock()
}

// RecordEdge tallies one data-ready edge handler outcome.
func (t *Tracker) RecordEdge(a logic.Action, err error) {
	t.mu.Lock()
	t.snap.Edges.Record(a, err)
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
