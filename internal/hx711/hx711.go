// Package hx711 drives an HX711 24-bit load-cell ADC over its two-wire
// bit-banged serial protocol.
//
// The driver owns one output line (PD_SCK, the clock) and one input line
// (DOUT, the data). A conversion is ready when DOUT is low. One exchange
// clocks out 24 data bits MSB first followed by 1 to 3 extra pulses that
// select the gain of the next conversion.
//
// Driver is not safe for concurrent use. Wrap it in a Shared cell before
// handing it to both an edge handler and a reporting loop.
package hx711

import (
	"errors"
	"fmt"
	"runtime"
	"time"
)

// OutputLine is a single writable GPIO line.
// *gpiocdev.Line satisfies it.
type OutputLine interface {
	SetValue(value int) error
}

// InputLine is a single readable GPIO line.
// *gpiocdev.Line satisfies it.
type InputLine interface {
	Value() (int, error)
}

// Timing bounds from the HX711 datasheet.
const (
	// ClockHigh is the PD_SCK high time per pulse (T3, min 0.2us).
	ClockHigh = 1 * time.Microsecond
	// ClockLow is the PD_SCK low time per pulse (T4, min 0.2us).
	ClockLow = 1 * time.Microsecond
	// MaxClockHigh is how long PD_SCK may stay high before the chip
	// enters power down and discards the conversion.
	MaxClockHigh = 60 * time.Microsecond
	// ReadyPoll is the interval between ready checks while taring.
	ReadyPoll = 100 * time.Microsecond
)

// DataBits is the width of one conversion on the wire.
const DataBits = 24

var (
	// ErrInvalidGain is returned by New for a gain other than 128, 64 or 32.
	ErrInvalidGain = errors.New("hx711: invalid gain")

	// ErrTornExchange is returned by Read when a clock-high phase outlasted
	// MaxClockHigh. The converter has powered down mid exchange and the bits
	// clocked so far are not one conversion.
	ErrTornExchange = errors.New("hx711: torn exchange")
)

// Gain is the amplifier setting, encoded on the wire as the number of
// pulses that follow the data bits.
type Gain int

const (
	Gain128 Gain = 128
	Gain64  Gain = 64
	Gain32  Gain = 32
)

// Pulses returns the number of clock pulses sent after the 24 data bits to
// select this gain for the next conversion.
func (g Gain) Pulses() (int, error) {
	switch g {
	case Gain128:
		return 1, nil
	case Gain64:
		return 2, nil
	case Gain32:
		return 3, nil
	}
	return 0, fmt.Errorf("%w: %d", ErrInvalidGain, int(g))
}

// Decode24 sign-extends a 24-bit two's complement sample.
// Bits above 23 are ignored.
func Decode24(raw uint32) int32 {
	raw &= 1<<DataBits - 1
	if raw&(1<<(DataBits-1)) != 0 {
		return int32(raw) - 1<<DataBits
	}
	return int32(raw)
}

// Driver is one HX711 and the lines it is wired to.
type Driver struct {
	clk    OutputLine
	dout   InputLine
	timing Timing
	gain   Gain
	pulses int

	offset int32
	last   int32
}

// New takes ownership of the clock and data lines. The clock is driven low
// so the converter stays powered up. A nil timing means BusyDelay.
func New(clk OutputLine, dout InputLine, timing Timing, gain Gain) (*Driver, error) {
	pulses, err := gain.Pulses()
	if err != nil {
		return nil, err
	}
	if timing == nil {
		timing = BusyDelay{}
	}
	if err := clk.SetValue(0); err != nil {
		return nil, fmt.Errorf("hx711: drive clock low: %w", err)
	}
	return &Driver{
		clk:    clk,
		dout:   dout,
		timing: timing,
		gain:   gain,
		pulses: pulses,
	}, nil
}

// Gain returns the configured gain.
func (d *Driver) Gain() Gain {
	return d.gain
}

// IsReady reports whether a conversion is waiting, i.e. DOUT is low.
// A failed line read counts as not ready.
func (d *Driver) IsReady() bool {
	v, err := d.dout.Value()
	return err == nil && v == 0
}

// Read clocks out one conversion and stores it, minus the offset, as the
// last value. The caller must check IsReady first; reading a converter that
// is not ready yields an undefined sample.
//
// On any error the last value is left untouched.
func (d *Driver) Read() error {
	raw, err := d.exchange()
	if err != nil {
		return err
	}
	d.last = Decode24(raw) - d.offset
	return nil
}

// Tare waits for the converter to become ready, takes a fresh reading and
// stores it as the zero offset. There is no timeout: a converter that never
// pulls DOUT low blocks Tare forever.
func (d *Driver) Tare() error {
	for !d.IsReady() {
		d.timing.Delay(ReadyPoll)
	}
	raw, err := d.exchange()
	if err != nil {
		return fmt.Errorf("tare: %w", err)
	}
	d.offset = Decode24(raw)
	d.last = 0
	return nil
}

// Offset returns the tare baseline in raw counts.
func (d *Driver) Offset() int32 {
	return d.offset
}

// Last returns the most recent offset-corrected reading.
func (d *Driver) Last() int32 {
	return d.last
}

// exchange runs 24 data pulses plus the gain pulses and returns the raw
// 24-bit field. All pulses are sent even after a failure so the converter
// is left at the end of its pulse train.
func (d *Driver) exchange() (uint32, error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	var (
		raw   uint32
		first error
	)
	for i := 0; i < DataBits+d.pulses; i++ {
		bit, err := d.pulse(i < DataBits)
		if err != nil && first == nil {
			first = err
		}
		if i < DataBits {
			raw = raw<<1 | uint32(bit)
		}
	}
	if first != nil {
		return 0, first
	}
	return raw, nil
}

// pulse drives one clock pulse, sampling DOUT while the clock is high when
// sample is set.
func (d *Driver) pulse(sample bool) (int, error) {
	start := d.timing.Now()
	if err := d.clk.SetValue(1); err != nil {
		return 0, fmt.Errorf("hx711: clock high: %w", err)
	}
	d.timing.Delay(ClockHigh)

	var (
		bit  int
		rerr error
	)
	if sample {
		v, err := d.dout.Value()
		if err != nil {
			rerr = fmt.Errorf("hx711: read data: %w", err)
		} else if v != 0 {
			bit = 1
		}
	}

	if err := d.clk.SetValue(0); err != nil {
		return 0, fmt.Errorf("hx711: clock low: %w", err)
	}
	if high := d.timing.Now().Sub(start); high > MaxClockHigh {
		return 0, fmt.Errorf("%w: clock high for %v", ErrTornExchange, high)
	}
	d.timing.Delay(ClockLow)
	return bit, rerr
}
