package hw

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// OpenJumper returns a reader of the calibration jumper on the named pin.
// The input is pulled up; a fitted jumper pulls it low.
func OpenJumper(name string) (func() bool, error) {
	if name == "" {
		return nil, nil
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("pin %s not found", name)
	}
	return Jumper(p)
}

// Jumper configures p as a pulled-up input.
func Jumper(p gpio.PinIn) (func() bool, error) {
	if err := p.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("pin %s: %w", p, err)
	}
	return func() bool { return p.Read() == gpio.Low }, nil
}
