package sensor

import (
	"github.com/itohio/streamgauge/pkg/bmp3xx"
	"github.com/itohio/streamgauge/pkg/mcp9808"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/bmxx80"
)

// EnvSensor is implemented by periph style environmental devices.
type EnvSensor interface {
	Sense(e *physic.Env) error
}

// EnvDriver adapts an EnvSensor to Driver.
func EnvDriver(s EnvSensor) Driver {
	return envDriver{s}
}

type envDriver struct {
	s EnvSensor
}

func (d envDriver) Sense() (Reading, error) {
	var e physic.Env
	if err := d.s.Sense(&e); err != nil {
		return Reading{}, err
	}
	return FromEnv(e), nil
}

// FromEnv converts periph physical units to hPa, °C and %RH.
func FromEnv(e physic.Env) Reading {
	return Reading{
		Pressure:    float32(float64(e.Pressure) / float64(100*physic.Pascal)),
		Temperature: float32(float64(e.Temperature-physic.ZeroCelsius) / float64(physic.Kelvin)),
		Humidity:    float32(float64(e.Humidity) / float64(physic.PercentRH)),
	}
}

// DefaultOpeners maps every supported variant to its driver handshake.
func DefaultOpeners() map[Variant]Opener {
	return map[Variant]Opener{
		VariantBMP280:  openBMx280,
		VariantBME280:  openBMx280,
		VariantBMP388:  openBMP3xx,
		VariantBMP390:  openBMP3xx,
		VariantMCP9808: openMCP9808,
	}
}

func openBMx280(bus i2c.Bus, addr uint16) (Driver, error) {
	d, err := bmxx80.NewI2C(bus, addr, &bmxx80.DefaultOpts)
	if err != nil {
		return nil, err
	}
	return EnvDriver(d), nil
}

func openBMP3xx(bus i2c.Bus, addr uint16) (Driver, error) {
	d, err := bmp3xx.NewI2C(bus, addr)
	if err != nil {
		return nil, err
	}
	return EnvDriver(d), nil
}

func openMCP9808(bus i2c.Bus, addr uint16) (Driver, error) {
	d, err := mcp9808.NewI2C(bus, addr)
	if err != nil {
		return nil, err
	}
	return EnvDriver(d), nil
}
