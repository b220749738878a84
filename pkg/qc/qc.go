// Package qc gates raw sensor values against static per-quantity envelopes.
package qc

import "github.com/chewxy/math32"

// Kind is a physical quantity with its own valid range.
type Kind int

const (
	Temperature Kind = iota // °C
	Pressure                // hPa
	Humidity                // %RH
	Distance                // mm
	Voltage                 // V
)

// Envelope is the accepted [Min, Max] range of a quantity and the value that
// replaces anything outside it.
type Envelope struct {
	Min float32
	Max float32
	Err float32
}

var envelopes = [...]Envelope{
	Temperature: {Min: -40.0, Max: 60.0, Err: -999.9},
	Pressure:    {Min: 300.0, Max: 1100.0, Err: -999.9},
	Humidity:    {Min: 0.0, Max: 100.0, Err: -999.9},
	Distance:    {Min: 0, Max: 10240, Err: -999},
	Voltage:     {Min: 0.0, Max: 6.0, Err: -999.9},
}

// EnvelopeOf returns the envelope for k.
func EnvelopeOf(k Kind) Envelope {
	return envelopes[k]
}

// Sentinel returns the error value of k.
func Sentinel(k Kind) float32 {
	return envelopes[k].Err
}

// Gate returns raw when it is a number inside the envelope of k and the
// envelope's error sentinel otherwise.
func Gate(k Kind, raw float32) float32 {
	e := envelopes[k]
	if math32.IsNaN(raw) || raw < e.Min || raw > e.Max {
		return e.Err
	}
	return raw
}

// String returns the short name of the quantity.
func (k Kind) String() string {
	switch k {
	case Temperature:
		return "temperature"
	case Pressure:
		return "pressure"
	case Humidity:
		return "humidity"
	case Distance:
		return "distance"
	case Voltage:
		return "voltage"
	}
	return "unknown"
}
