// Package status holds the process-wide health bit-field reported in every
// observation record as "hth".
package status

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Bit is a single fault or condition flag.
type Bit uint32

const (
	PowerOn Bit = 0x1    // Set at power on, cleared after the first logged observation
	SD      Bit = 0x2    // Storage missing or a write failed
	RTC     Bit = 0x4    // Real-time clock missing or time not valid
	Display Bit = 0x8    // Display missing at boot
	N2S     Bit = 0x10   // Observations queued but not sent
	BMX1    Bit = 0x80   // Barometric sensor 1 missing
	BMX2    Bit = 0x100  // Barometric sensor 2 missing
	MCP1    Bit = 0x800  // Precision temperature sensor missing
	DS1     Bit = 0x2000 // One-wire temperature probe missing
)

// Startup is the set of bits that only describe boot settling. They are
// cleared once after the first observation has been persisted.
const Startup = PowerOn | Display | BMX1 | BMX2 | MCP1 | DS1

var names = []struct {
	bit  Bit
	name string
}{
	{PowerOn, "PWRON"},
	{SD, "SD"},
	{RTC, "RTC"},
	{Display, "OLED"},
	{N2S, "N2S"},
	{BMX1, "BMX1"},
	{BMX2, "BMX2"},
	{MCP1, "MCP1"},
	{DS1, "DS1"},
}

// Register is the shared status bit-field. The zero value has no bits set.
// Bits are updated atomically so readers outside the control loop (metrics,
// display) never observe a torn value.
type Register struct {
	bits atomic.Uint32
}

// New returns a register with the given bits already set.
func New(initial Bit) *Register {
	r := &Register{}
	r.bits.Store(uint32(initial))
	return r
}

// Set turns bits on.
func (r *Register) Set(b Bit) {
	r.bits.Or(uint32(b))
}

// Clear turns bits off.
func (r *Register) Clear(b Bit) {
	r.bits.And(^uint32(b))
}

// Assign sets the bits when on is true, clears them otherwise.
func (r *Register) Assign(b Bit, on bool) {
	if on {
		r.Set(b)
		return
	}
	r.Clear(b)
}

// Has reports whether every bit in b is set.
func (r *Register) Has(b Bit) bool {
	return Bit(r.bits.Load())&b == b
}

// Bits returns the current value.
func (r *Register) Bits() Bit {
	return Bit(r.bits.Load())
}

// String lists the names of the set bits, e.g. "PWRON|BMX2".
func (b Bit) String() string {
	if b == 0 {
		return "OK"
	}
	var parts []string
	rest := b
	for _, n := range names {
		if b&n.bit != 0 {
			parts = append(parts, n.name)
			rest &^= n.bit
		}
	}
	if rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%X", uint32(rest)))
	}
	return strings.Join(parts, "|")
}
