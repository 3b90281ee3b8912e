package logic

import "time"

// Detector tracks the stable reading and detects settled changes.
type Detector struct {
	settle        time.Duration
	threshold     int32
	stable        int32
	pending       int32
	pendingSince  time.Time
	hasPending    bool
	baselined     bool
	startTime     time.Time
	eventCounts   EventCounts
	lastHeartbeat time.Time
}

// NewDetector creates a detector. A change is reported once the reading has
// moved more than threshold counts from the stable value and stayed within
// threshold of the new value for settle.
// The startTime is used for calculating uptime in heartbeat events.
func NewDetector(settle time.Duration, threshold int32, startTime time.Time) *Detector {
	if threshold < 0 {
		threshold = -threshold
	}
	return &Detector{
		settle:        settle,
		threshold:     threshold,
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// Process takes a new reading and returns any events that should be emitted.
// Events are only returned after baseline is established.
func (d *Detector) Process(input Input) []Event {
	d.eventCounts.Readings++

	if !d.baselined {
		if d.settled(input) {
			d.stable = d.pending
			d.baselined = true
			d.hasPending = false
		}
		return nil // No events until baseline established
	}

	if d.near(input.Value, d.stable) {
		// Back within the band, drop any pending change
		d.hasPending = false
		return nil
	}

	if !d.settled(input) {
		return nil
	}

	prev := d.stable
	d.stable = d.pending
	d.hasPending = false
	d.eventCounts.Changes++

	return []Event{{
		Timestamp: input.Time,
		Type:      EventChanged,
		Value:     d.stable,
		Previous:  prev,
	}}
}

// settled feeds input into the pending value and reports whether it has
// held for the settle duration.
func (d *Detector) settled(input Input) bool {
	if !d.hasPending || !d.near(input.Value, d.pending) {
		d.pending = input.Value
		d.pendingSince = input.Time
		d.hasPending = true
		return d.settle <= 0
	}
	return input.Time.Sub(d.pendingSince) >= d.settle
}

func (d *Detector) near(a, b int32) bool {
	diff := int64(a) - int64(b)
	if diff < 0 {
		diff = -diff
	}
	return diff <= int64(d.threshold)
}

// IsBaselined returns whether the detector has established a baseline.
func (d *Detector) IsBaselined() bool {
	return d.baselined
}

// Stable returns the current stable reading.
func (d *Detector) Stable() int32 {
	return d.stable
}

// EventCountsSnapshot returns a copy of the counters.
func (d *Detector) EventCountsSnapshot() EventCounts {
	return d.eventCounts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if not yet baselined, if the
// interval has not elapsed, or if interval is <= 0 (disabled).
func (d *Detector) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if !d.baselined {
		return nil
	}

	if now.Sub(d.lastHeartbeat) < interval {
		return nil
	}

	d.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(d.startTime),
		Counts:    d.eventCounts,
		Stable:    d.stable,
	}
}
