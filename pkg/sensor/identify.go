package sensor

import (
	"github.com/itohio/streamgauge/pkg/status"
	"periph.io/x/conn/v3/i2c"
)

// Identifier probes slots on one I²C bus and opens their drivers.
type Identifier struct {
	bus     i2c.Bus
	status  *status.Register
	log     Logger
	openers map[Variant]Opener
}

// NewIdentifier returns an identifier dispatching driver handshakes through
// openers.
func NewIdentifier(bus i2c.Bus, st *status.Register, log Logger, openers map[Variant]Opener) *Identifier {
	return &Identifier{
		bus:     bus,
		status:  st,
		log:     log,
		openers: openers,
	}
}

// Candidates returns the variants a chip id can belong to, in handshake order.
func Candidates(chipID byte) []Variant {
	switch chipID {
	case ChipIDBMP280:
		return []Variant{VariantBMP280}
	case ChipIDBME280BMP390:
		return []Variant{VariantBME280, VariantBMP390}
	case ChipIDBMP388:
		return []Variant{VariantBMP388}
	}
	return nil
}

// Identify returns the Bosch chip id found at addr, or 0 when nothing known
// answers. Bus errors are logged and treated as no match.
func (id *Identifier) Identify(addr uint16) byte {
	for _, reg := range []byte{RegChipIDBMP3, RegChipIDBMx2} {
		id.log.Infof("I2C:%02X Reg:%02X", addr, reg)

		var r [1]byte
		if err := id.bus.Tx(addr, []byte{reg}, r[:]); err != nil {
			id.log.Warnf("I2C:%02X Reg:%02X ERR:%v", addr, reg, err)
			continue
		}

		chip := r[0]
		switch chip {
		case ChipIDBMP280:
			id.log.Infof("CHIPID:%02X BMP280", chip)
			return chip
		case ChipIDBMP388:
			id.log.Infof("CHIPID:%02X BMP388", chip)
			return chip
		case ChipIDBME280BMP390:
			id.log.Infof("CHIPID:%02X BME/390", chip)
			return chip
		}
		id.log.Infof("CHIPID:%02X InValid", chip)
	}
	return 0
}

// Probe identifies a slot at startup and opens its driver. Bosch slots go
// through chip id identification; a shared id is resolved by trying each
// candidate's handshake in order.
func (id *Identifier) Probe(slot *Slot) bool {
	if slot.Family == FamilyMCP9808 {
		return id.Begin(slot, VariantMCP9808)
	}

	slot.ChipID = id.Identify(slot.Addr)
	candidates := Candidates(slot.ChipID)
	if len(candidates) == 0 {
		slot.Variant = VariantUnknown
		slot.Present = false
		slot.Driver = nil
		id.log.Infof("%s NF", slot.Name)
		return false
	}

	for _, v := range candidates {
		if id.Begin(slot, v) {
			return true
		}
	}
	id.log.Warnf("%s ERR", slot.Name)
	return false
}

// Begin opens the driver of variant v at the slot's address. On success the
// slot is marked present and its fault bit is cleared; on failure it is
// marked absent and the bit is set.
func (id *Identifier) Begin(slot *Slot, v Variant) bool {
	open, ok := id.openers[v]
	if !ok {
		id.log.Warnf("%s no driver for %s", slot.Name, v)
		id.markAbsent(slot)
		return false
	}

	drv, err := open(id.bus, slot.Addr)
	if err != nil {
		id.log.Warnf("%s %s ERR:%v", slot.Name, v, err)
		id.markAbsent(slot)
		return false
	}

	slot.Variant = v
	slot.Driver = drv
	slot.Present = true
	id.status.Clear(slot.Bit)
	id.log.Infof("%s %s OK", slot.Name, v)
	return true
}

// Ping reads one byte from addr and reports whether a device acknowledged.
// An empty transaction is not sent on the wire by the Linux I²C driver.
func (id *Identifier) Ping(addr uint16) bool {
	var b [1]byte
	return id.bus.Tx(addr, nil, b[:]) == nil
}

// Scan returns every address in [first, last] that acknowledges.
func (id *Identifier) Scan(first, last uint16) []uint16 {
	var found []uint16
	for addr := first; addr <= last; addr++ {
		if id.Ping(addr) {
			found = append(found, addr)
		}
	}
	return found
}

func (id *Identifier) markAbsent(slot *Slot) {
	slot.Present = false
	slot.Driver = nil
	id.status.Set(slot.Bit)
}
