// Package gpio provides the two HX711 lines with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation simulates the converter so everything above the
// lines can be tested without hardware.
package gpio

import "github.com/sweeney/hx711-sensor/internal/hx711"

// Lines hands out the clock and data lines of one converter.
type Lines interface {
	// Clock returns the PD_SCK output line.
	Clock() hx711.OutputLine

	// Data returns the DOUT input line.
	Data() hx711.InputLine

	// Close releases GPIO resources.
	Close() error
}

// Pin defaults (BCM numbering)
const (
	DefaultPinClock = 5 // PD_SCK
	DefaultPinData  = 6 // DOUT
)

// DefaultChip is the GPIO character device the lines live on.
const DefaultChip = "gpiochip0"
