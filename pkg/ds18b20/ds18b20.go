// Package ds18b20 reads a single Maxim DS18B20 probe on a 1-wire bus.
//
// The bus is expected to carry exactly one probe. It is located by a ROM
// search at startup and then addressed directly for every reading.
package ds18b20

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/itohio/streamgauge/pkg/qc"
	"periph.io/x/conn/v3/onewire"
)

// FamilyCode is the first ROM byte of a DS18B20.
const FamilyCode = 0x28

const (
	cmdConvert        = 0x44
	cmdReadScratchpad = 0xBE

	scratchpadLen = 9
)

// Conversion waits. A freshly plugged probe often needs the full 12 bit
// conversion time before its first reading is valid.
const (
	ShortConversion = 250 * time.Millisecond
	LongConversion  = 750 * time.Millisecond
	ScanRetryDelay  = 250 * time.Millisecond
)

var (
	ErrNotFound = errors.New("ds18b20: not found")
	ErrROMCRC   = errors.New("ds18b20: rom crc")
	ErrCRC      = errors.New("ds18b20: scratchpad crc")
	ErrRange    = errors.New("ds18b20: temperature out of range")
)

// Probe is a located DS18B20.
type Probe struct {
	dev   onewire.Dev
	sleep func(time.Duration)
}

// Find searches the bus once and validates the first device found.
func Find(bus onewire.Bus) (onewire.Address, error) {
	addrs, err := bus.Search(false)
	if err != nil {
		return 0, fmt.Errorf("ds18b20: search: %w", err)
	}
	if len(addrs) == 0 {
		return 0, ErrNotFound
	}

	addr := addrs[0]
	var rom [8]byte
	binary.LittleEndian.PutUint64(rom[:], uint64(addr))
	if !onewire.CheckCRC(rom[:]) {
		return 0, ErrROMCRC
	}
	if rom[0] != FamilyCode {
		return 0, fmt.Errorf("ds18b20: unknown family 0x%02X", rom[0])
	}
	return addr, nil
}

// Scan locates the probe, retrying the search once.
func Scan(bus onewire.Bus, sleep func(time.Duration)) (*Probe, error) {
	if sleep == nil {
		sleep = time.Sleep
	}
	addr, err := Find(bus)
	if err != nil {
		sleep(ScanRetryDelay)
		if addr, err = Find(bus); err != nil {
			return nil, err
		}
	}
	return &Probe{dev: onewire.Dev{Bus: bus, Addr: addr}, sleep: sleep}, nil
}

// Addr returns the probe's ROM address.
func (p *Probe) Addr() onewire.Address {
	return p.dev.Addr
}

func (p *Probe) String() string {
	var rom [8]byte
	binary.LittleEndian.PutUint64(rom[:], uint64(p.dev.Addr))
	return fmt.Sprintf("DS %02X:%02X:%02X:%02X:%02X:%02X:%02X:%02X",
		rom[0], rom[1], rom[2], rom[3], rom[4], rom[5], rom[6], rom[7])
}

// Temperature converts and reads the probe, waiting ShortConversion first and
// LongConversion on a second attempt when the first is not valid. The result
// is in °C.
func (p *Probe) Temperature() (float32, error) {
	t, err := p.Read(ShortConversion)
	if err == nil {
		return t, nil
	}
	return p.Read(LongConversion)
}

// Read performs one conversion waiting wait before reading the scratchpad.
// A reading outside the temperature envelope is returned together with
// ErrRange.
func (p *Probe) Read(wait time.Duration) (float32, error) {
	if err := p.dev.Tx([]byte{cmdConvert}, nil); err != nil {
		return 0, fmt.Errorf("ds18b20: convert: %w", err)
	}
	p.sleep(wait)

	var sp [scratchpadLen]byte
	if err := p.dev.Tx([]byte{cmdReadScratchpad}, sp[:]); err != nil {
		return 0, fmt.Errorf("ds18b20: scratchpad: %w", err)
	}
	if !onewire.CheckCRC(sp[:]) {
		return 0, ErrCRC
	}

	t := Decode(sp[:])
	if qc.Gate(qc.Temperature, t) != t {
		return t, ErrRange
	}
	return t, nil
}

// Decode converts scratchpad bytes to °C. Bits below the configured
// resolution are undefined and masked off.
func Decode(sp []byte) float32 {
	raw := int16(binary.LittleEndian.Uint16(sp[0:2]))
	switch sp[4] & 0x60 {
	case 0x00: // 9 bit
		raw &^= 7
	case 0x20: // 10 bit
		raw &^= 3
	case 0x40: // 11 bit
		raw &^= 1
	}
	return float32(raw) / 16
}
