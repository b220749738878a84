package sensor

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

var (
	errNack  = errors.New("nack")
	errEmpty = errors.New("empty transaction")
)

// fakeBus answers register reads from a per-address register map. An address
// missing from the map does not acknowledge. Like the sysfs driver, an empty
// transaction never reaches a device.
type fakeBus struct {
	regs map[uint16]map[byte]byte
	txs  int
}

var _ i2c.Bus = (*fakeBus)(nil)

func newFakeBus() *fakeBus {
	return &fakeBus{regs: make(map[uint16]map[byte]byte)}
}

func (b *fakeBus) attach(addr uint16, regs map[byte]byte) {
	if regs == nil {
		regs = map[byte]byte{}
	}
	b.regs[addr] = regs
}

func (b *fakeBus) detach(addr uint16) {
	delete(b.regs, addr)
}

func (b *fakeBus) String() string { return "fake" }

func (b *fakeBus) SetSpeed(physic.Frequency) error { return nil }

func (b *fakeBus) Tx(addr uint16, w, r []byte) error {
	b.txs++
	if len(w) == 0 && len(r) == 0 {
		return errEmpty
	}
	regs, ok := b.regs[addr]
	if !ok {
		return errNack
	}
	if len(w) == 0 {
		clear(r)
		return nil
	}
	for i := range r {
		r[i] = regs[w[0]+byte(i)]
	}
	return nil
}

type fakeDriver struct {
	variant Variant
	reading Reading
	err     error
}

func (d *fakeDriver) Sense() (Reading, error) {
	return d.reading, d.err
}

// handshake records the order in which openers are attempted and fails for
// variants listed in reject.
type handshake struct {
	attempts []Variant
	reject   map[Variant]bool
}

func (h *handshake) openers() map[Variant]Opener {
	m := make(map[Variant]Opener)
	for _, v := range []Variant{VariantBMP280, VariantBME280, VariantBMP388, VariantBMP390, VariantMCP9808} {
		m[v] = func(bus i2c.Bus, addr uint16) (Driver, error) {
			h.attempts = append(h.attempts, v)
			if h.reject[v] {
				return nil, fmt.Errorf("%s: unexpected chip", v)
			}
			var b [1]byte
			if err := bus.Tx(addr, nil, b[:]); err != nil {
				return nil, err
			}
			return &fakeDriver{variant: v}, nil
		}
	}
	return m
}

func nopLogger() Logger {
	return zap.NewNop().Sugar()
}
