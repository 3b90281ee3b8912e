package hx711

import (
	"sync"

	"github.com/sweeney/hx711-sensor/internal/logic"
)

// Shared is the one place a Driver lives once both an edge handler and a
// reporting loop need it. Every access runs under the locker, and an
// exchange started under it always completes before it is released.
type Shared struct {
	mu sync.Locker
	d  *Driver
}

// NewShared moves d into a cell guarded by mu. A nil mu gets a sync.Mutex.
// The caller must not touch d directly afterwards.
func NewShared(d *Driver, mu sync.Locker) *Shared {
	if mu == nil {
		mu = &sync.Mutex{}
	}
	return &Shared{mu: mu, d: d}
}

// With runs fn inside the critical section.
func (s *Shared) With(fn func(d *Driver)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.d)
}

// HandleEdge is the data-ready handler: if the converter is ready, read it.
// It returns the action taken and any read error. Its worst case is one
// full exchange.
func (s *Shared) HandleEdge() (logic.Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	action := logic.OnEdge(s.d.IsReady())
	if action != logic.ActionRead {
		return action, nil
	}
	return action, s.d.Read()
}

// Last returns the most recent offset-corrected reading.
func (s *Shared) Last() int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.Last()
}

// Offset returns the tare baseline.
func (s *Shared) Offset() int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.Offset()
}

// Tare re-zeroes the driver inside the critical section. The edge handler
// is held off for the whole wait.
func (s *Shared) Tare() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.Tare()
}
