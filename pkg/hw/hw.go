// Package hw opens the logger's hardware on a Linux board through periph:
// the I²C bus with the barometric, temperature, clock, display and ADC
// devices, the one-wire probe and the calibration jumper.
package hw

import (
	"errors"
	"fmt"
	"time"

	"github.com/itohio/streamgauge/pkg/config"
	"github.com/itohio/streamgauge/pkg/display"
	"github.com/itohio/streamgauge/pkg/ds18b20"
	"github.com/itohio/streamgauge/pkg/rtc"
	"github.com/itohio/streamgauge/pkg/sampler"
	"github.com/itohio/streamgauge/pkg/sensor"
	"github.com/itohio/streamgauge/pkg/station"
	"github.com/itohio/streamgauge/pkg/status"
	"github.com/itohio/streamgauge/pkg/storage"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/onewire"
	"periph.io/x/conn/v3/onewire/onewirereg"
	"periph.io/x/host/v3"
)

// Logger is the diagnostic sink. *zap.SugaredLogger satisfies it.
type Logger interface {
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
}

// Board is the opened hardware. Optional devices that failed to open are
// nil and their status bits are set.
type Board struct {
	I2C        i2c.BusCloser
	OneWire    onewire.BusCloser
	Identifier *sensor.Identifier
	Monitor    *sensor.Monitor
	Clock      rtc.Clock
	Distance   sampler.Channel
	Battery    sampler.Channel
	Probe      *ds18b20.Probe
	OLED       *display.OLED
	Jumper     func() bool
}

// Init initialises the periph host drivers.
func Init(log Logger) error {
	state, err := host.Init()
	if err != nil {
		return fmt.Errorf("failed to initialise host: %w", err)
	}
	for _, d := range state.Loaded {
		log.Infof("driver %s loaded", d)
	}
	for _, f := range state.Failed {
		log.Warnf("driver %s", f)
	}
	return nil
}

// OpenI2C opens the named I²C bus. An empty name selects the first one.
func OpenI2C(name string) (i2c.BusCloser, error) {
	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus %q: %w", name, err)
	}
	return bus, nil
}

// Slots returns the sensor slots in record order.
func Slots(bus config.BusConfig) []*sensor.Slot {
	return []*sensor.Slot{
		sensor.NewBoschSlot("BMX1", "1", bus.BMX1, status.BMX1),
		sensor.NewBoschSlot("BMX2", "2", bus.BMX2, status.BMX2),
		sensor.NewMCP9808Slot("MCP1", "1", bus.MCP1, status.MCP1),
	}
}

// Open initialises the host and opens every device named by cfg. Only a
// missing I²C bus or ADC is fatal.
func Open(cfg *config.Config, st *status.Register, log Logger) (*Board, error) {
	if err := Init(log); err != nil {
		return nil, err
	}
	bus, err := OpenI2C(cfg.Bus.I2C)
	if err != nil {
		return nil, err
	}

	b := &Board{I2C: bus}
	b.Identifier = sensor.NewIdentifier(bus, st, log, sensor.DefaultOpeners())
	b.Monitor = sensor.NewMonitor(b.Identifier, log, Slots(cfg.Bus)...)

	if b.Distance, b.Battery, err = OpenADC(bus, cfg, log); err != nil {
		bus.Close()
		return nil, err
	}

	b.Clock = openClock(bus, cfg.Bus.RTC, st, log)

	if oled, err := display.NewOLED(bus, cfg.Bus.OLED); err != nil {
		log.Warnf("OLED NF: %v", err)
		st.Set(status.Display)
	} else {
		b.OLED = oled
	}

	if ow, err := onewirereg.Open(cfg.Bus.OneWire); err != nil {
		log.Warnf("one-wire bus: %v", err)
	} else {
		b.OneWire = ow
		if probe, err := ds18b20.Scan(ow, time.Sleep); err != nil {
			log.Warnf("DS scan: %v", err)
		} else {
			log.Infof("%s", probe)
			b.Probe = probe
		}
	}

	if b.Jumper, err = OpenJumper(cfg.Bus.JumperPin); err != nil {
		log.Warnf("jumper: %v", err)
	}
	return b, nil
}

func openClock(bus i2c.Bus, addr uint16, st *status.Register, log Logger) rtc.Clock {
	c, err := rtc.NewDS3231(bus, addr)
	if err != nil {
		log.Warnf("RTC NF: %v, using system clock", err)
		st.Set(status.RTC)
		return rtc.System{Location: time.Local}
	}
	if lost, err := c.LostPower(); err == nil && lost {
		log.Warnf("RTC lost power")
	}
	return c
}

// Hardware returns the station's view of the board. Absent optional devices
// stay nil interfaces.
func (b *Board) Hardware(sink storage.Sink, console station.Console, rec station.Recorder) station.Hardware {
	hw := station.Hardware{
		Clock:    b.Clock,
		Distance: b.Distance,
		Battery:  b.Battery,
		Monitor:  b.Monitor,
		Sink:     sink,
		Console:  console,
		Recorder: rec,
		Jumper:   b.Jumper,
	}
	if b.Probe != nil {
		hw.Probe = b.Probe
	}
	if b.OLED != nil {
		hw.Display = b.OLED
	}
	return hw
}

// Close releases the buses and blanks the display.
func (b *Board) Close() error {
	var errs []error
	if b.OLED != nil {
		errs = append(errs, b.OLED.Halt())
	}
	if b.OneWire != nil {
		errs = append(errs, b.OneWire.Close())
	}
	if b.I2C != nil {
		errs = append(errs, b.I2C.Close())
	}
	return errors.Join(errs...)
}
