package main

import (
	"fmt"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/itohio/streamgauge/pkg/record"
	"github.com/itohio/streamgauge/pkg/status"
)

// latestPanel shows the most recent record.
type latestPanel struct {
	field  string
	at     *widget.Label
	fields *widget.Label
	status *widget.Label
}

func newLatestPanel(field string) *latestPanel {
	return &latestPanel{
		field:  field,
		at:     widget.NewLabel("no record"),
		fields: widget.NewLabel(""),
		status: widget.NewLabel(""),
	}
}

func (p *latestPanel) object() fyne.CanvasObject {
	return container.NewVBox(
		widget.NewLabelWithStyle("Latest", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		p.at,
		widget.NewSeparator(),
		p.fields,
		widget.NewSeparator(),
		p.status,
	)
}

func (p *latestPanel) update(obs record.Observation) {
	p.at.SetText(obs.At.Format(record.TimeLayout))
	p.fields.SetText(FieldLines(obs, p.field))
	p.status.SetText(fmt.Sprintf("hth %04X\n%s", obs.Status, status.Bit(obs.Status)))
}

// FieldLines renders a record one field per line, marking the monitored
// field.
func FieldLines(obs record.Observation, monitored string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "sg  %d mm\n", obs.Distance)
	for _, f := range obs.Fields {
		mark := " "
		if f.Key == monitored {
			mark = "*"
		}
		fmt.Fprintf(&b, "%s%-4s %s\n", mark, f.Key, record.FormatFixed(f.Value, f.Places))
	}
	fmt.Fprintf(&b, "bv  %s V", record.FormatFixed(obs.Battery, record.DefaultPlaces))
	return b.String()
}
