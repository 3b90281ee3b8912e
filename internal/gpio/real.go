//go:build linux && !tinygo

package gpio

import (
	"fmt"

	"github.com/sweeney/hx711-sensor/internal/hx711"
	"github.com/warthog618/go-gpiocdev"
)

// RealLines drives an HX711 on actual hardware using the Linux GPIO character device.
type RealLines struct {
	chip *gpiocdev.Chip
	clk  *gpiocdev.Line
	dout *gpiocdev.Line
}

// NewRealLines requests the clock line as an output driven low and the data
// line as an input. If onEdge is non-nil, falling edges on the data line
// (the converter signalling ready) are delivered to it from the gpiocdev
// event goroutine.
func NewRealLines(chipName string, pinClock, pinData int, onEdge func()) (*RealLines, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	// Clock starts low; high for more than 60us powers the converter down.
	clk, err := chip.RequestLine(pinClock, gpiocdev.AsOutput(0), gpiocdev.WithConsumer("hx711-sck"))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request clock pin %d: %w", pinClock, err)
	}

	opts := []gpiocdev.LineReqOption{
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithConsumer("hx711-dout"),
	}
	if onEdge != nil {
		opts = append(opts,
			gpiocdev.WithFallingEdge,
			gpiocdev.WithEventHandler(func(gpiocdev.LineEvent) { onEdge() }))
	}
	dout, err := chip.RequestLine(pinData, opts...)
	if err != nil {
		clk.Close()
		chip.Close()
		return nil, fmt.Errorf("request data pin %d: %w", pinData, err)
	}

	return &RealLines{
		chip: chip,
		clk:  clk,
		dout: dout,
	}, nil
}

// Clock returns the PD_SCK line.
func (r *RealLines) Clock() hx711.OutputLine {
	return r.clk
}

// Data returns the DOUT line.
func (r *RealLines) Data() hx711.InputLine {
	return r.dout
}

// Close powers the converter down and releases GPIO resources.
// The data line is closed first so no edge handler runs against a
// released clock.
func (r *RealLines) Close() error {
	var errs []error

	if r.dout != nil {
		if err := r.dout.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close data pin: %w", err))
		}
	}
	if r.clk != nil {
		if err := r.clk.SetValue(1); err != nil {
			errs = append(errs, fmt.Errorf("power down: %w", err))
		}
		if err := r.clk.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close clock pin: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
