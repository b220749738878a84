// Package bmp3xx controls a Bosch BMP388 or BMP390 barometric sensor over
// I²C in forced mode.
//
// Datasheet: https://www.bosch-sensortec.com/products/environmental-sensors/pressure-sensors/bmp390/
package bmp3xx

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// Chip ids.
const (
	ChipIDBMP388 = 0x50
	ChipIDBMP390 = 0x60
)

const (
	regChipID  = 0x00
	regStatus  = 0x03
	regData    = 0x04
	regPwrCtrl = 0x1B
	regOSR     = 0x1C
	regConfig  = 0x1F
	regCalib   = 0x31
	regCmd     = 0x7E

	cmdSoftReset = 0xB6

	// press_en | temp_en | forced mode
	pwrForced = 0x13
	// pressure x8, temperature x1
	osrDefault = 0x03
	// IIR coefficient 3
	iirDefault = 0x04

	statusDrdyPress = 0x20
	statusDrdyTemp  = 0x40

	calibLen = 21
	dataLen  = 6

	pollTries = 20
	pollDelay = 5 * time.Millisecond
)

// ErrNotReady is returned when a forced conversion does not complete.
var ErrNotReady = errors.New("bmp3xx: conversion timeout")

// Dev is a handle to an initialized BMP388 or BMP390.
type Dev struct {
	d      i2c.Dev
	chipID byte
	cal    calibration
	sleep  func(time.Duration)
}

// NewI2C opens the device at addr, checks its chip id and loads the factory
// calibration.
func NewI2C(b i2c.Bus, addr uint16) (*Dev, error) {
	d := &Dev{d: i2c.Dev{Bus: b, Addr: addr}, sleep: time.Sleep}
	if err := d.init(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dev) String() string {
	if d.chipID == ChipIDBMP388 {
		return fmt.Sprintf("BMP388{%s}", &d.d)
	}
	return fmt.Sprintf("BMP390{%s}", &d.d)
}

// ChipID returns the identity code read at open.
func (d *Dev) ChipID() byte {
	return d.chipID
}

// Sense triggers one forced conversion and returns temperature and pressure.
// Humidity is left untouched.
func (d *Dev) Sense(e *physic.Env) error {
	if err := d.writeReg(regPwrCtrl, pwrForced); err != nil {
		return err
	}

	ready := false
	for i := 0; i < pollTries; i++ {
		d.sleep(pollDelay)
		var st [1]byte
		if err := d.d.Tx([]byte{regStatus}, st[:]); err != nil {
			return fmt.Errorf("bmp3xx: status: %w", err)
		}
		if st[0]&(statusDrdyPress|statusDrdyTemp) == statusDrdyPress|statusDrdyTemp {
			ready = true
			break
		}
	}
	if !ready {
		return ErrNotReady
	}

	var raw [dataLen]byte
	if err := d.d.Tx([]byte{regData}, raw[:]); err != nil {
		return fmt.Errorf("bmp3xx: data: %w", err)
	}
	up := uint32(raw[0]) | uint32(raw[1])<<8 | uint32(raw[2])<<16
	ut := uint32(raw[3]) | uint32(raw[4])<<8 | uint32(raw[5])<<16

	tLin := d.cal.temperature(ut)
	pa := d.cal.pressure(up, tLin)

	e.Temperature = physic.ZeroCelsius + physic.Temperature(tLin*float64(physic.Kelvin))
	e.Pressure = physic.Pressure(pa * float64(physic.Pascal))
	return nil
}

// Halt is a noop; the device returns to sleep after each forced conversion.
func (d *Dev) Halt() error {
	return nil
}

func (d *Dev) init() error {
	var id [1]byte
	if err := d.d.Tx([]byte{regChipID}, id[:]); err != nil {
		return fmt.Errorf("bmp3xx: chip id: %w", err)
	}
	if id[0] != ChipIDBMP388 && id[0] != ChipIDBMP390 {
		return fmt.Errorf("bmp3xx: unexpected chip id 0x%02X", id[0])
	}
	d.chipID = id[0]

	if err := d.writeReg(regCmd, cmdSoftReset); err != nil {
		return err
	}
	d.sleep(2 * time.Millisecond)

	var buf [calibLen]byte
	if err := d.d.Tx([]byte{regCalib}, buf[:]); err != nil {
		return fmt.Errorf("bmp3xx: calibration: %w", err)
	}
	d.cal = newCalibration(buf[:])

	if err := d.writeReg(regOSR, osrDefault); err != nil {
		return err
	}
	return d.writeReg(regConfig, iirDefault)
}

func (d *Dev) writeReg(reg, v byte) error {
	if err := d.d.Tx([]byte{reg, v}, nil); err != nil {
		return fmt.Errorf("bmp3xx: write 0x%02X: %w", reg, err)
	}
	return nil
}

// calibration holds the NVM trimming coefficients already scaled to floating
// point as described in the datasheet.
type calibration struct {
	t1, t2, t3 float64

	p1, p2, p3, p4, p5, p6, p7, p8, p9, p10, p11 float64
}

func newCalibration(b []byte) calibration {
	le := binary.LittleEndian
	return calibration{
		t1:  float64(le.Uint16(b[0:])) * (1 << 8),
		t2:  float64(le.Uint16(b[2:])) / (1 << 30),
		t3:  float64(int8(b[4])) / (1 << 48),
		p1:  (float64(int16(le.Uint16(b[5:]))) - (1 << 14)) / (1 << 20),
		p2:  (float64(int16(le.Uint16(b[7:]))) - (1 << 14)) / (1 << 29),
		p3:  float64(int8(b[9])) / (1 << 32),
		p4:  float64(int8(b[10])) / (1 << 37),
		p5:  float64(le.Uint16(b[11:])) * (1 << 3),
		p6:  float64(le.Uint16(b[13:])) / (1 << 6),
		p7:  float64(int8(b[15])) / (1 << 8),
		p8:  float64(int8(b[16])) / (1 << 15),
		p9:  float64(int16(le.Uint16(b[17:]))) / (1 << 48),
		p10: float64(int8(b[19])) / (1 << 48),
		p11: float64(int8(b[20])) / (1 << 65),
	}
}

// temperature returns the linearized temperature in °C.
func (c *calibration) temperature(ut uint32) float64 {
	pd1 := float64(ut) - c.t1
	pd2 := pd1 * c.t2
	return pd2 + pd1*pd1*c.t3
}

// pressure returns the compensated pressure in Pa.
func (c *calibration) pressure(up uint32, tLin float64) float64 {
	t2 := tLin * tLin
	t3 := t2 * tLin
	out1 := c.p5 + c.p6*tLin + c.p7*t2 + c.p8*t3

	p := float64(up)
	out2 := p * (c.p1 + c.p2*tLin + c.p3*t2 + c.p4*t3)

	p2 := p * p
	out3 := p2*(c.p9+c.p10*tLin) + p2*p*c.p11
	return out1 + out2 + out3
}
