package hw

import (
	"fmt"

	"github.com/itohio/streamgauge/pkg/config"
	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"
)

// SampleReader is one analog input.
type SampleReader interface {
	Read() (analog.Sample, error)
}

// Channel maps converter voltages onto the raw scale the station expects:
// 0 V reads 0 and VRef reads FullScale-1.
type Channel struct {
	Name      string
	In        SampleReader
	VRef      float32
	FullScale float32
	Log       Logger
}

// Get returns one raw reading. A failed conversion reads 0.
func (c *Channel) Get() uint16 {
	s, err := c.In.Read()
	if err != nil {
		c.Log.Warnf("%s read: %v", c.Name, err)
		return 0
	}
	return c.raw(s.V)
}

func (c *Channel) raw(v physic.ElectricPotential) uint16 {
	if c.VRef <= 0 || v <= 0 {
		return 0
	}
	r := float32(float64(v)/float64(physic.Volt)) / c.VRef * c.FullScale
	if r > c.FullScale-1 {
		r = c.FullScale - 1
	}
	return uint16(r)
}

var adcChannels = [...]ads1x15.Channel{
	ads1x15.Channel0,
	ads1x15.Channel1,
	ads1x15.Channel2,
	ads1x15.Channel3,
}

// OpenADC opens the ADS1115 and returns the distance and battery channels.
func OpenADC(bus i2c.Bus, cfg *config.Config, log Logger) (*Channel, *Channel, error) {
	opts := ads1x15.DefaultOpts
	opts.I2cAddress = cfg.Bus.ADC
	adc, err := ads1x15.NewADS1115(bus, &opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open ADC: %w", err)
	}

	vref := cfg.Battery.VRef
	full := physic.ElectricPotential(float64(vref) * float64(physic.Volt))
	open := func(name string, ch int) (*Channel, error) {
		if ch < 0 || ch >= len(adcChannels) {
			return nil, fmt.Errorf("%s: invalid ADC channel %d", name, ch)
		}
		pin, err := adc.PinForChannel(adcChannels[ch], full, 8*physic.Hertz, ads1x15.BestQuality)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return &Channel{Name: name, In: pin, VRef: vref, FullScale: cfg.Battery.FullScale, Log: log}, nil
	}

	distance, err := open("distance", cfg.Distance.Channel)
	if err != nil {
		return nil, nil, err
	}
	battery, err := open("battery", cfg.Battery.Channel)
	if err != nil {
		return nil, nil, err
	}
	return distance, battery, nil
}
