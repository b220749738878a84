// Package rtc provides the logger's wall clock: a DS3231 real-time clock on
// I²C, or the host system clock.
package rtc

import (
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/i2c"
)

// Years accepted as a plausible clock. Anything else means the clock was
// never set or lost its backup supply.
const (
	MinYear = 2022
	MaxYear = 2031
)

// ErrTimeNotValid is returned when the clock cannot be trusted.
var ErrTimeNotValid = errors.New("rtc: time not valid")

// Clock is a settable wall clock.
type Clock interface {
	Now() (time.Time, error)
	Set(t time.Time) error
}

// Valid reports whether t falls in the accepted year range.
func Valid(t time.Time) bool {
	y := t.Year()
	return y >= MinYear && y <= MaxYear
}

// DefaultAddr is the fixed DS3231 address.
const DefaultAddr = 0x68

const (
	regTime   = 0x00
	regStatus = 0x0F

	statusOSF = 0x80
	hour12    = 0x40
	hourPM    = 0x20
	century   = 0x80
)

// DS3231 is a battery backed real-time clock holding local wall time.
type DS3231 struct {
	d i2c.Dev
}

var _ Clock = (*DS3231)(nil)

// NewDS3231 checks that a DS3231 answers at addr.
func NewDS3231(b i2c.Bus, addr uint16) (*DS3231, error) {
	c := &DS3231{d: i2c.Dev{Bus: b, Addr: addr}}
	if _, err := c.status(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *DS3231) String() string {
	return fmt.Sprintf("DS3231{%s}", &c.d)
}

// LostPower reports whether the oscillator stopped since the clock was last
// set.
func (c *DS3231) LostPower() (bool, error) {
	st, err := c.status()
	if err != nil {
		return false, err
	}
	return st&statusOSF != 0, nil
}

// Now reads the clock. The wall time is returned in UTC location without
// conversion. A stopped oscillator or an implausible year yields
// ErrTimeNotValid together with the time read.
func (c *DS3231) Now() (time.Time, error) {
	lost, err := c.LostPower()
	if err != nil {
		return time.Time{}, err
	}

	var r [7]byte
	if err := c.d.Tx([]byte{regTime}, r[:]); err != nil {
		return time.Time{}, fmt.Errorf("rtc: read: %w", err)
	}
	t := decode(r)
	if lost || !Valid(t) {
		return t, ErrTimeNotValid
	}
	return t, nil
}

// Set writes the wall fields of t and clears the oscillator stop flag.
func (c *DS3231) Set(t time.Time) error {
	if !Valid(t) {
		return fmt.Errorf("rtc: year %d: %w", t.Year(), ErrTimeNotValid)
	}
	r := encode(t)
	if err := c.d.Tx(append([]byte{regTime}, r[:]...), nil); err != nil {
		return fmt.Errorf("rtc: write: %w", err)
	}

	st, err := c.status()
	if err != nil {
		return err
	}
	if err := c.d.Tx([]byte{regStatus, st &^ statusOSF}, nil); err != nil {
		return fmt.Errorf("rtc: clear osf: %w", err)
	}
	return nil
}

func (c *DS3231) status() (byte, error) {
	var st [1]byte
	if err := c.d.Tx([]byte{regStatus}, st[:]); err != nil {
		return 0, fmt.Errorf("rtc: status: %w", err)
	}
	return st[0], nil
}

func decode(r [7]byte) time.Time {
	sec := fromBCD(r[0] & 0x7F)
	minute := fromBCD(r[1] & 0x7F)

	var hour int
	if r[2]&hour12 != 0 {
		hour = fromBCD(r[2]&0x1F) % 12
		if r[2]&hourPM != 0 {
			hour += 12
		}
	} else {
		hour = fromBCD(r[2] & 0x3F)
	}

	day := fromBCD(r[4] & 0x3F)
	month := fromBCD(r[5] & 0x1F)
	year := 2000 + fromBCD(r[6])
	if r[5]&century != 0 {
		year += 100
	}
	return time.Date(year, time.Month(month), day, hour, minute, sec, 0, time.UTC)
}

func encode(t time.Time) [7]byte {
	return [7]byte{
		toBCD(t.Second()),
		toBCD(t.Minute()),
		toBCD(t.Hour()),
		toBCD(int(t.Weekday()) + 1),
		toBCD(t.Day()),
		toBCD(int(t.Month())),
		toBCD(t.Year() % 100),
	}
}

func fromBCD(b byte) int {
	return int(b>>4)*10 + int(b&0x0F)
}

func toBCD(v int) byte {
	return byte(v/10)<<4 | byte(v%10)
}

// System is the host clock. Setting it is not supported; a host keeps time
// through its own services.
type System struct {
	Location *time.Location
}

var _ Clock = System{}

// Now returns the host time truncated to seconds.
func (s System) Now() (time.Time, error) {
	now := time.Now()
	if s.Location != nil {
		now = now.In(s.Location)
	}
	now = now.Truncate(time.Second)
	if !Valid(now) {
		return now, ErrTimeNotValid
	}
	return now, nil
}

// Set always fails.
func (System) Set(time.Time) error {
	return errors.ErrUnsupported
}

// Settable reports false: the host clock is kept by the operating system.
func (System) Settable() bool { return false }

// Settable reports whether c accepts Set. Clocks that do not say otherwise
// are settable.
func Settable(c Clock) bool {
	if s, ok := c.(interface{ Settable() bool }); ok {
		return s.Settable()
	}
	return true
}
