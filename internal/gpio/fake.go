package gpio

import (
	"errors"
	"sync"

	"github.com/sweeney/hx711-sensor/internal/hx711"
)

// FakeHX711 is a test double that plays the converter's side of the wire.
// It serves scripted raw conversions bit by bit as the clock is pulsed.
//
// An exchange starts on the first rising clock edge while idle and ends the
// next time DOUT is read with the clock low, which is what the ready check
// after an exchange does.
type FakeHX711 struct {
	mu sync.Mutex

	// samples contains scripted raw 24-bit conversions.
	// Each exchange consumes the next one.
	samples []uint32
	index   int

	// repeat keeps serving the last sample once the script is exhausted.
	repeat bool

	// held forces DOUT high, as if no conversion had finished.
	held bool

	clock  int
	pulses int // rising edges in the open exchange
	word   uint32
	dout   int

	// exchanges holds the pulse count of every completed exchange.
	exchanges []int

	// ClockError, if set, will be returned by the clock line.
	ClockError error

	// DataError, if set, will be returned by the data line.
	DataError error

	// Closed tracks if Close was called
	Closed bool
}

// NewFakeHX711 creates a converter that will serve samples in order.
func NewFakeHX711(samples ...uint32) *FakeHX711 {
	return &FakeHX711{samples: samples, dout: 1}
}

// NewRepeatingFakeHX711 creates a converter that is always ready and serves
// the last of samples forever once the rest are consumed.
func NewRepeatingFakeHX711(samples ...uint32) *FakeHX711 {
	f := NewFakeHX711(samples...)
	f.repeat = true
	return f
}

// Push appends conversions to the script.
func (f *FakeHX711) Push(raw ...uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.samples = append(f.samples, raw...)
}

// SetHeld holds DOUT high (held=true) or releases it.
func (f *FakeHX711) SetHeld(held bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.held = held
}

// Remaining returns how many scripted conversions have not been read.
func (f *FakeHX711) Remaining() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.samples) - f.index
}

// GainPulses returns, for each completed exchange, the number of pulses
// sent after the 24 data bits.
func (f *FakeHX711) GainPulses() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeExchange()

	out := make([]int, len(f.exchanges))
	for i, n := range f.exchanges {
		out[i] = n - hx711.DataBits
	}
	return out
}

// Clock returns the PD_SCK side of the fake.
func (f *FakeHX711) Clock() hx711.OutputLine {
	return fakeClock{f}
}

// Data returns the DOUT side of the fake.
func (f *FakeHX711) Data() hx711.InputLine {
	return fakeData{f}
}

// Close marks the converter as closed.
func (f *FakeHX711) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// Reset rewinds the script and forgets completed exchanges.
func (f *FakeHX711) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.index = 0
	f.pulses = 0
	f.clock = 0
	f.dout = 1
	f.exchanges = nil
	f.Closed = false
}

// ready reports whether a conversion is waiting. Caller holds mu.
func (f *FakeHX711) ready() bool {
	if f.held || f.pulses > 0 {
		return false
	}
	return f.index < len(f.samples) || (f.repeat && len(f.samples) > 0)
}

// next pops the conversion to shift out. Caller holds mu.
func (f *FakeHX711) next() uint32 {
	if !f.ready() {
		// Not ready: DOUT stays high for the whole exchange.
		return 1<<hx711.DataBits - 1
	}
	if f.index < len(f.samples) {
		w := f.samples[f.index]
		f.index++
		return w
	}
	return f.samples[len(f.samples)-1]
}

// closeExchange records an open exchange once the clock is back low.
// Caller holds mu.
func (f *FakeHX711) closeExchange() {
	if f.pulses == 0 || f.clock != 0 {
		return
	}
	f.exchanges = append(f.exchanges, f.pulses)
	f.pulses = 0
	f.dout = 1
}

func (f *FakeHX711) setClock(v int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ClockError != nil {
		return f.ClockError
	}
	if f.Closed {
		return errors.New("fake hx711: closed")
	}

	if v != 0 && f.clock == 0 {
		if f.pulses == 0 {
			f.word = f.next()
		}
		f.pulses++
		if f.pulses <= hx711.DataBits {
			f.dout = int(f.word>>(hx711.DataBits-f.pulses)) & 1
		} else {
			f.dout = 1
		}
	}
	if v != 0 {
		f.clock = 1
	} else {
		f.clock = 0
	}
	return nil
}

func (f *FakeHX711) readData() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.DataError != nil {
		return 0, f.DataError
	}

	f.closeExchange()
	if f.pulses == 0 {
		if f.ready() {
			return 0, nil
		}
		return 1, nil
	}
	return f.dout, nil
}

type fakeClock struct{ f *FakeHX711 }

func (c fakeClock) SetValue(v int) error { return c.f.setClock(v) }

type fakeData struct{ f *FakeHX711 }

func (d fakeData) Value() (int, error) { return d.f.readData() }
