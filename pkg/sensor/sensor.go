// Package sensor identifies the I²C sensors plugged into the logger's slots,
// keeps their online/offline state and dispatches reads to the right driver.
package sensor

import (
	"fmt"

	"github.com/itohio/streamgauge/pkg/status"
	"periph.io/x/conn/v3/i2c"
)

// Bosch chip identity codes. BME280 and BMP390 share 0x60.
const (
	ChipIDBMP280       = 0x58
	ChipIDBME280BMP390 = 0x60
	ChipIDBMP388       = 0x50
)

// Chip identity registers, probed in this order. A BMP388 answers a read of
// 0xD0 with a byte that can collide with a valid id, so 0x00 goes first.
const (
	RegChipIDBMP3 = 0x00
	RegChipIDBMx2 = 0xD0
)

// Default slot addresses.
const (
	AddrBMX1 = 0x77
	AddrBMX2 = 0x76
	AddrMCP1 = 0x18
)

// Family selects how a slot is identified.
type Family int

const (
	FamilyBosch   Family = iota // BMP280, BME280, BMP388 or BMP390 by chip id
	FamilyMCP9808               // single variant
)

// Variant is the chip model occupying a slot.
type Variant int

const (
	VariantUnknown Variant = iota
	VariantBMP280
	VariantBME280
	VariantBMP388
	VariantBMP390
	VariantMCP9808
)

func (v Variant) String() string {
	switch v {
	case VariantBMP280:
		return "BMP280"
	case VariantBME280:
		return "BME280"
	case VariantBMP388:
		return "BMP388"
	case VariantBMP390:
		return "BMP390"
	case VariantMCP9808:
		return "MCP9808"
	}
	return "UNKNOWN"
}

// HasHumidity reports whether the variant measures relative humidity.
func (v Variant) HasHumidity() bool {
	return v == VariantBME280
}

// Reading is one set of values returned by a driver. Variants without a
// humidity channel report 0.
type Reading struct {
	Pressure    float32 // hPa
	Temperature float32 // °C
	Humidity    float32 // %RH
}

// Driver reads an opened sensor.
type Driver interface {
	Sense() (Reading, error)
}

// Opener performs the variant-specific driver handshake at addr.
type Opener func(bus i2c.Bus, addr uint16) (Driver, error)

// Logger is the diagnostic sink. *zap.SugaredLogger satisfies it.
type Logger interface {
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
}

// Slot is one physical sensor position.
type Slot struct {
	Name   string // e.g. "BMX1"
	Tag    string // suffix of the record keys, e.g. "1" for bp1/bt1/bh1
	Family Family
	Addr   uint16
	Bit    status.Bit

	ChipID  byte
	Variant Variant
	Present bool
	Driver  Driver
}

// NewBoschSlot returns an unidentified barometric slot.
func NewBoschSlot(name, tag string, addr uint16, bit status.Bit) *Slot {
	return &Slot{Name: name, Tag: tag, Family: FamilyBosch, Addr: addr, Bit: bit}
}

// NewMCP9808Slot returns a precision temperature slot.
func NewMCP9808Slot(name, tag string, addr uint16, bit status.Bit) *Slot {
	return &Slot{Name: name, Tag: tag, Family: FamilyMCP9808, Addr: addr, Bit: bit, Variant: VariantMCP9808}
}

// Sense reads the slot's driver. It fails when the slot is not present.
func (s *Slot) Sense() (Reading, error) {
	if !s.Present || s.Driver == nil {
		return Reading{}, fmt.Errorf("%s not present", s.Name)
	}
	return s.Driver.Sense()
}

func (s *Slot) String() string {
	return fmt.Sprintf("%s@0x%02X{%s present=%t}", s.Name, s.Addr, s.Variant, s.Present)
}
