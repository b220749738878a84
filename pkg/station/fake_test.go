package station

import (
	"context"
	"errors"
	"time"

	"github.com/itohio/streamgauge/pkg/record"
	"github.com/itohio/streamgauge/pkg/rtc"
	"github.com/itohio/streamgauge/pkg/sensor"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

type fakeClock struct {
	t   time.Time
	err error
	set []time.Time
}

func (c *fakeClock) Now() (time.Time, error) {
	if c.err != nil {
		return time.Time{}, c.err
	}
	return c.t, nil
}

func (c *fakeClock) Set(t time.Time) error {
	c.set = append(c.set, t)
	c.t = t
	c.err = nil
	return nil
}

// hostClock is a clock the console cannot set.
type hostClock struct {
	*fakeClock
}

func (hostClock) Settable() bool { return false }

type fakeConsole struct {
	lines []string
	setTo time.Time
	err   error
}

func (c *fakeConsole) Println(line string) {
	c.lines = append(c.lines, line)
}

func (c *fakeConsole) AwaitTimeSet(ctx context.Context, clock rtc.Clock) (time.Time, error) {
	if c.err != nil {
		return time.Time{}, c.err
	}
	return c.setTo, clock.Set(c.setTo)
}

type fakeSink struct {
	lines []string
	err   error
}

func (s *fakeSink) Append(at time.Time, line string) error {
	if s.err != nil {
		return s.err
	}
	s.lines = append(s.lines, line)
	return nil
}

type fakeProbe struct {
	t   float32
	err error
}

func (p *fakeProbe) Temperature() (float32, error) {
	return p.t, p.err
}

type fakeDriver struct {
	reading sensor.Reading
	err     error
}

func (d *fakeDriver) Sense() (sensor.Reading, error) {
	return d.reading, d.err
}

type fakeRecorder struct {
	observed []record.Observation
	skipped  int
	presence map[string]bool
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{presence: make(map[string]bool)}
}

func (r *fakeRecorder) Observe(o record.Observation) { r.observed = append(r.observed, o) }
func (r *fakeRecorder) Skipped() { r.skipped++ }
func (r *fakeRecorder) Presence(slot string, present bool) { r.presence[slot] = present }

type fakeDisplay struct {
	shown [][]string
}

func (d *fakeDisplay) Show(lines []string) error {
	d.shown = append(d.shown, lines)
	return nil
}

// chipBus acknowledges only the addresses listed in chips and answers chip id
// reads at register 0xD0 with the listed id.
type chipBus struct {
	chips map[uint16]byte
}

var _ i2c.Bus = (*chipBus)(nil)

func (b *chipBus) String() string { return "chips" }
func (b *chipBus) SetSpeed(physic.Frequency) error { return nil }

func (b *chipBus) Tx(addr uint16, w, r []byte) error {
	if len(w) == 0 && len(r) == 0 {
		return errors.New("empty transaction")
	}
	id, ok := b.chips[addr]
	if !ok {
		return errors.New("nack")
	}
	for i := range r {
		r[i] = 0
	}
	if len(w) == 1 && w[0] == sensor.RegChipIDBMx2 && len(r) == 1 {
		r[0] = id
	}
	return nil
}

func fixedOpeners(drivers map[sensor.Variant]sensor.Driver) map[sensor.Variant]sensor.Opener {
	m := make(map[sensor.Variant]sensor.Opener)
	for v, d := range drivers {
		m[v] = func(i2c.Bus, uint16) (sensor.Driver, error) { return d, nil }
	}
	return m
}

func constant(v uint16) func() uint16 {
	return func() uint16 { return v }
}

var errTimeNotValid = rtc.ErrTimeNotValid
