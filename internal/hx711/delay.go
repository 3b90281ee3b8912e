package hx711

import (
	"sync"
	"time"
)

// Timing paces the clock pulses and measures how long each clock-high
// phase lasted.
type Timing interface {
	Delay(d time.Duration)
	Now() time.Time
}

// BusyDelay spins on the monotonic clock. Pulse widths are a few
// microseconds, well below the resolution time.Sleep can honour.
type BusyDelay struct{}

// Delay spins until d has elapsed.
func (BusyDelay) Delay(d time.Duration) {
	start := time.Now()
	for time.Since(start) < d {
	}
}

// Now returns the wall clock.
func (BusyDelay) Now() time.Time {
	return time.Now()
}

// VirtualTiming is a simulated clock: Delay advances it by d and returns
// at once, and Now never moves on its own. A driver on VirtualTiming sees
// every clock-high phase last exactly ClockHigh.
//
// It is safe for concurrent use.
type VirtualTiming struct {
	mu  sync.Mutex
	now time.Time

	// OnDelay, if set, is called after every Delay with the requested
	// duration.
	OnDelay func(d time.Duration)
}

// Delay advances the clock by d.
func (v *VirtualTiming) Delay(d time.Duration) {
	v.mu.Lock()
	v.now = v.now.Add(d)
	hook := v.OnDelay
	v.mu.Unlock()

	if hook != nil {
		hook(d)
	}
}

// Now returns the simulated time.
func (v *VirtualTiming) Now() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.now
}
