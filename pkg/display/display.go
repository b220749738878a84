// Package display renders the four line station monitor shown while the
// calibration jumper is set.
package display

import (
	"fmt"
	"time"

	"github.com/itohio/streamgauge/pkg/record"
	"github.com/itohio/streamgauge/pkg/sensor"
	"github.com/itohio/streamgauge/pkg/status"
)

// LineWidth is the number of characters a monitor line keeps.
const LineWidth = 21

// Display shows a set of text lines, replacing what was shown before.
type Display interface {
	Show(lines []string) error
}

// Snapshot is what the station monitor reports.
type Snapshot struct {
	At      time.Time // zero when the clock is not valid
	BMX1    *sensor.Reading // nil when the slot is absent
	BMX2    *sensor.Reading
	Raw     uint16 // unscaled distance channel reading
	Battery float32
	Status  status.Bit
}

// Lines formats a snapshot:
//
//	2024-05-01T12:15:00
//	1013.25 22.50 45.00
//	BMX:NF
//	SG:512 3.70 0000
func Lines(s Snapshot) []string {
	return []string{
		clip(timestamp(s.At)),
		clip(barometric(s.BMX1)),
		clip(barometric(s.BMX2)),
		clip(fmt.Sprintf("SG:%3d %s %04X", s.Raw, record.FormatFixed(s.Battery, 2), uint32(s.Status))),
	}
}

func timestamp(t time.Time) string {
	if t.IsZero() {
		return "Time NV"
	}
	return t.Format(record.TimeLayout)
}

func barometric(r *sensor.Reading) string {
	if r == nil {
		return "BMX:NF"
	}
	return record.FormatFixed(r.Pressure, 2) + " " +
		record.FormatFixed(r.Temperature, 2) + " " +
		record.FormatFixed(r.Humidity, 2)
}

func clip(s string) string {
	if len(s) > LineWidth {
		return s[:LineWidth]
	}
	return s
}

// Printer is anything that prints a line, e.g. *console.Console.
type Printer interface {
	Println(line string)
}

// Text shows the lines on a line printer.
type Text struct {
	P Printer
}

var _ Display = Text{}

// Show prints every line.
func (t Text) Show(lines []string) error {
	for _, l := range lines {
		t.P.Println(l)
	}
	return nil
}

// Multi shows the same lines on several displays and returns the first
// error.
type Multi []Display

// Show implements Display.
func (m Multi) Show(lines []string) error {
	var first error
	for _, d := range m {
		if err := d.Show(lines); err != nil && first == nil {
			first = err
		}
	}
	return first
}
