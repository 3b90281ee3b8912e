package hx711_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/sweeney/hx711-sensor/internal/gpio"
	"github.com/sweeney/hx711-sensor/internal/hx711"
	"github.com/sweeney/hx711-sensor/internal/logic"
)

func newShared(t *testing.T, f *gpio.FakeHX711) *hx711.Shared {
	t.Helper()
	return hx711.NewShared(newDriver(t, f, hx711.Gain128), nil)
}

func TestHandleEdgeReadsWhenReady(t *testing.T) {
	f := gpio.NewFakeHX711(0x000001, 0x000005)
	d := newDriver(t, f, hx711.Gain128)
	if err := d.Tare(); err != nil {
		t.Fatalf("Tare: %v", err)
	}
	s := hx711.NewShared(d, nil)

	action, err := s.HandleEdge()
	if err != nil {
		t.Fatalf("HandleEdge: %v", err)
	}
	if action != logic.ActionRead {
		t.Errorf("expected READ, got %v", action)
	}
	if s.Last() != 4 {
		t.Errorf("Last: got %d, want 4", s.Last())
	}
	if s.Offset() != 1 {
		t.Errorf("Offset: got %d, want 1", s.Offset())
	}
}

func TestHandleEdgeIgnoresWhenNotReady(t *testing.T) {
	f := gpio.NewFakeHX711()
	s := newShared(t, f)

	action, err := s.HandleEdge()
	if err != nil {
		t.Fatalf("HandleEdge: %v", err)
	}
	if action != logic.ActionIgnore {
		t.Errorf("expected IGNORE, got %v", action)
	}
	if got := f.GainPulses(); len(got) != 0 {
		t.Errorf("expected no exchange, got %d", len(got))
	}
}

func TestHandleEdgeSequence(t *testing.T) {
	// One ready edge, then the edges an exchange produces on DOUT.
	f := gpio.NewFakeHX711(0x0000FF)
	s := newShared(t, f)

	var counts logic.EdgeCounts
	for i := 0; i < 5; i++ {
		counts.Record(s.HandleEdge())
	}

	if counts.Reads != 1 || counts.Ignored != 4 {
		t.Errorf("expected 1 read and 4 ignored, got %+v", counts)
	}
	if s.Last() != 0xFF {
		t.Errorf("Last: got %d, want 255", s.Last())
	}
}

func TestHandleEdgeError(t *testing.T) {
	f := gpio.NewFakeHX711(0x000001)
	s := newShared(t, f)
	f.ClockError = errors.New("line gone")

	action, err := s.HandleEdge()
	if err == nil {
		t.Fatal("expected error")
	}
	if action != logic.ActionRead {
		t.Errorf("expected READ attempted, got %v", action)
	}
	if s.Last() != 0 {
		t.Errorf("Last changed by failed read: %d", s.Last())
	}
}

func TestSharedTare(t *testing.T) {
	f := gpio.NewFakeHX711(0x000010, 0x000018)
	s := newShared(t, f)

	if err := s.Tare(); err != nil {
		t.Fatalf("Tare: %v", err)
	}
	if _, err := s.HandleEdge(); err != nil {
		t.Fatalf("HandleEdge: %v", err)
	}
	if s.Last() != 8 {
		t.Errorf("Last: got %d, want 8", s.Last())
	}
}

func TestSharedWith(t *testing.T) {
	f := gpio.NewFakeHX711(0x000003)
	s := newShared(t, f)

	var ready bool
	s.With(func(d *hx711.Driver) {
		ready = d.IsReady()
	})
	if !ready {
		t.Error("expected ready inside With")
	}
}

// countingLocker records how often the cell takes its lock.
type countingLocker struct {
	sync.Mutex
	locks int
}

func (c *countingLocker) Lock() {
	c.Mutex.Lock()
	c.locks++
}

func TestSharedUsesLocker(t *testing.T) {
	f := gpio.NewFakeHX711(0x000003)
	mu := &countingLocker{}
	s := hx711.NewShared(newDriver(t, f, hx711.Gain128), mu)

	s.HandleEdge()
	s.Last()
	s.Offset()

	if mu.locks != 3 {
		t.Errorf("expected 3 locks, got %d", mu.locks)
	}
}

func TestNoTornReadsUnderConcurrency(t *testing.T) {
	const (
		a = 0x0F0F0F
		b = 0x70F0F0
		n = 500
	)
	samples := make([]uint32, 0, n)
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			samples = append(samples, a)
		} else {
			samples = append(samples, b)
		}
	}
	f := gpio.NewFakeHX711(samples...)
	s := newShared(t, f)

	valid := map[int32]bool{0: true, hx711.Decode24(a): true, hx711.Decode24(b): true}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		// Edge handler context
		for f.Remaining() > 0 {
			if _, err := s.HandleEdge(); err != nil {
				t.Errorf("HandleEdge: %v", err)
				return
			}
		}
	}()

	// Main context
	for i := 0; i < 5*n; i++ {
		if v := s.Last(); !valid[v] {
			t.Fatalf("torn reading %#x", v)
		}
	}
	wg.Wait()

	if got := s.Last(); got != hx711.Decode24(b) {
		t.Errorf("final reading: got %#x, want %#x", got, hx711.Decode24(b))
	}
}
