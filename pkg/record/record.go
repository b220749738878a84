// Package record defines one logger observation and its on-card text format.
//
// A record is a single brace-delimited line of "key":value pairs in a fixed
// order:
//
//	{"at":"2024-05-01T12:15:00","sg":512,"bp1":1013.2500,"bt1":22.50,"bh1":45.00,"bv":3.70,"hth":0}
//
// Keys of absent sensors are omitted entirely.
package record

import (
	"strconv"
	"time"
)

// TimeLayout is the timestamp format of the "at" field.
const TimeLayout = "2006-01-02T15:04:05"

// Decimal places per field family.
const (
	PressurePlaces = 4
	DefaultPlaces  = 2
)

// Field is one gated sensor value of the record.
type Field struct {
	Key    string
	Value  float32
	Places int
}

// Observation is the unit of output of one observation cycle.
type Observation struct {
	At       time.Time
	Distance int
	Fields   []Field
	Battery  float32
	Status   uint32
}

// Pressure returns a field rendered with four decimals.
func Pressure(key string, v float32) Field {
	return Field{Key: key, Value: v, Places: PressurePlaces}
}

// Value returns a field rendered with two decimals.
func Value(key string, v float32) Field {
	return Field{Key: key, Value: v, Places: DefaultPlaces}
}

// Lookup returns the value of the field with the given key.
func (o *Observation) Lookup(key string) (float32, bool) {
	for _, f := range o.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return 0, false
}

// AppendText appends the record line, without a trailing newline, to dst.
func (o *Observation) AppendText(dst []byte) []byte {
	dst = append(dst, `{"at":"`...)
	dst = o.At.AppendFormat(dst, TimeLayout)
	dst = append(dst, `","sg":`...)
	dst = strconv.AppendInt(dst, int64(o.Distance), 10)
	for _, f := range o.Fields {
		dst = append(dst, `,"`...)
		dst = append(dst, f.Key...)
		dst = append(dst, `":`...)
		dst = AppendFixed(dst, f.Value, f.Places)
	}
	dst = append(dst, `,"bv":`...)
	dst = AppendFixed(dst, o.Battery, DefaultPlaces)
	dst = append(dst, `,"hth":`...)
	dst = strconv.AppendUint(dst, uint64(o.Status), 10)
	return append(dst, '}')
}

// MarshalText implements encoding.TextMarshaler.
func (o Observation) MarshalText() ([]byte, error) {
	return o.AppendText(make([]byte, 0, 192)), nil
}

// String returns the record line.
func (o Observation) String() string {
	return string(o.AppendText(make([]byte, 0, 192)))
}
