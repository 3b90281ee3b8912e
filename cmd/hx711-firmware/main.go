//go:build tinygo

// Command hx711-firmware is the microcontroller build: it tares the
// converter, reads it from the DOUT pin interrupt and prints the last
// reading over the serial console.
//
//	tinygo flash -target=esp32-coreboard-v2 ./cmd/hx711-firmware
package main

import (
	"machine"
	"sync/atomic"
	"time"

	"github.com/sweeney/hx711-sensor/internal/gpio"
	"github.com/sweeney/hx711-sensor/internal/hx711"
)

const (
	pinClock = machine.GPIO4
	pinData  = machine.GPIO16

	printInterval = 50 * time.Millisecond
)

func main() {
	var shared atomic.Pointer[hx711.Shared]

	lines, err := gpio.NewMachineLines(pinClock, pinData, func() {
		if s := shared.Load(); s != nil {
			s.HandleEdge()
		}
	})
	if err != nil {
		halt("init pins", err)
	}

	d, err := hx711.New(lines.Clock(), lines.Data(), hx711.BusyDelay{}, hx711.Gain128)
	if err != nil {
		halt("init hx711", err)
	}
	s := hx711.NewShared(d, &gpio.InterruptLocker{})

	if err := s.Tare(); err != nil {
		halt("tare", err)
	}
	println("Tare =", s.Offset())

	shared.Store(s)

	for {
		println("Last Reading =", s.Last())
		time.Sleep(printInterval)
	}
}

func halt(what string, err error) {
	for {
		println(what+":", err.Error())
		time.Sleep(time.Second)
	}
}
