// Package mcp9808 reads a Microchip MCP9808 precision temperature sensor.
package mcp9808

import (
	"encoding/binary"
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// DefaultAddr is the address with A0..A2 tied low.
const DefaultAddr = 0x18

const (
	regConfig       = 0x01
	regTemperature  = 0x05
	regManufacturer = 0x06
	regDeviceID     = 0x07
	regResolution   = 0x08

	manufacturerID = 0x0054
	deviceID       = 0x04

	// 0.0625 °C
	resolutionMax = 0x03
)

// Dev is a handle to an initialized MCP9808.
type Dev struct {
	d i2c.Dev
}

// NewI2C opens the sensor at addr after checking its manufacturer and
// device ids. The sensor is woken up in continuous conversion mode at the
// finest resolution.
func NewI2C(b i2c.Bus, addr uint16) (*Dev, error) {
	d := &Dev{d: i2c.Dev{Bus: b, Addr: addr}}

	m, err := d.readReg16(regManufacturer)
	if err != nil {
		return nil, err
	}
	if m != manufacturerID {
		return nil, fmt.Errorf("mcp9808: unexpected manufacturer id 0x%04X", m)
	}
	id, err := d.readReg16(regDeviceID)
	if err != nil {
		return nil, err
	}
	if id>>8 != deviceID {
		return nil, fmt.Errorf("mcp9808: unexpected device id 0x%04X", id)
	}

	if err := d.d.Tx([]byte{regConfig, 0x00, 0x00}, nil); err != nil {
		return nil, fmt.Errorf("mcp9808: config: %w", err)
	}
	if err := d.d.Tx([]byte{regResolution, resolutionMax}, nil); err != nil {
		return nil, fmt.Errorf("mcp9808: resolution: %w", err)
	}
	return d, nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("MCP9808{%s}", &d.d)
}

// Sense reads the ambient temperature. Pressure and humidity are left
// untouched.
func (d *Dev) Sense(e *physic.Env) error {
	raw, err := d.readReg16(regTemperature)
	if err != nil {
		return err
	}
	e.Temperature = physic.ZeroCelsius + Decode(raw)
	return nil
}

// Halt is a noop.
func (d *Dev) Halt() error {
	return nil
}

// Decode converts the ambient temperature register to a Celsius offset.
// Bits 15..13 hold alert flags; bit 12 is the sign of a 13 bit two's
// complement value in 1/16 °C.
func Decode(raw uint16) physic.Temperature {
	v := int16(raw<<3) >> 3
	return physic.Temperature(v) * physic.Kelvin / 16
}

func (d *Dev) readReg16(reg byte) (uint16, error) {
	var b [2]byte
	if err := d.d.Tx([]byte{reg}, b[:]); err != nil {
		return 0, fmt.Errorf("mcp9808: read 0x%02X: %w", reg, err)
	}
	return binary.BigEndian.Uint16(b[:]), nil
}
