//go:build !linux && !tinygo

package gpio

import (
	"errors"

	"github.com/sweeney/hx711-sensor/internal/hx711"
)

// RealLines is not available on non-Linux platforms.
type RealLines struct{}

// NewRealLines returns an error on non-Linux platforms.
func NewRealLines(chipName string, pinClock, pinData int, onEdge func()) (*RealLines, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Clock is not implemented on non-Linux platforms.
func (r *RealLines) Clock() hx711.OutputLine {
	return nil
}

// Data is not implemented on non-Linux platforms.
func (r *RealLines) Data() hx711.InputLine {
	return nil
}

// Close is not implemented on non-Linux platforms.
func (r *RealLines) Close() error {
	return nil
}
