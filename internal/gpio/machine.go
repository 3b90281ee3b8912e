//go:build tinygo

package gpio

import (
	"machine"
	"runtime/interrupt"

	"github.com/sweeney/hx711-sensor/internal/hx711"
)

// Pin adapts a machine.Pin to the hx711 line interfaces.
type Pin machine.Pin

// SetValue drives the pin high for any non-zero value.
func (p Pin) SetValue(value int) error {
	machine.Pin(p).Set(value != 0)
	return nil
}

// Value returns 1 when the pin reads high.
func (p Pin) Value() (int, error) {
	if machine.Pin(p).Get() {
		return 1, nil
	}
	return 0, nil
}

// MachineLines is an HX711 wired to microcontroller pins.
type MachineLines struct {
	clk  Pin
	dout Pin
}

// NewMachineLines configures clk as an output driven low and dout as an
// input. If onEdge is non-nil it runs in interrupt context on every falling
// edge of dout.
func NewMachineLines(clk, dout machine.Pin, onEdge func()) (*MachineLines, error) {
	clk.Configure(machine.PinConfig{Mode: machine.PinOutput})
	clk.Low()
	dout.Configure(machine.PinConfig{Mode: machine.PinInput})

	if onEdge != nil {
		if err := dout.SetInterrupt(machine.PinFalling, func(machine.Pin) { onEdge() }); err != nil {
			return nil, err
		}
	}
	return &MachineLines{clk: Pin(clk), dout: Pin(dout)}, nil
}

// Clock returns the PD_SCK pin.
func (m *MachineLines) Clock() hx711.OutputLine {
	return m.clk
}

// Data returns the DOUT pin.
func (m *MachineLines) Data() hx711.InputLine {
	return m.dout
}

// Close detaches the interrupt and powers the converter down.
func (m *MachineLines) Close() error {
	machine.Pin(m.dout).SetInterrupt(0, nil)
	machine.Pin(m.clk).High()
	return nil
}

// InterruptLocker is a sync.Locker that masks interrupts while held, so the
// pin interrupt handler and the main loop never touch the driver at once.
// It must not be locked recursively.
type InterruptLocker struct {
	state interrupt.State
}

// Lock disables interrupts.
func (l *InterruptLocker) Lock() {
	l.state = interrupt.Disable()
}

// Unlock restores the interrupt state saved by Lock.
func (l *InterruptLocker) Unlock() {
	interrupt.Restore(l.state)
}
