// Package station runs the logger: it probes the attached hardware at boot,
// recovers the clock through the console when needed, and then builds one
// observation per window until the process stops.
package station

import (
	"context"
	"errors"
	"time"

	"github.com/itohio/streamgauge/pkg/display"
	"github.com/itohio/streamgauge/pkg/record"
	"github.com/itohio/streamgauge/pkg/rtc"
	"github.com/itohio/streamgauge/pkg/sampler"
	"github.com/itohio/streamgauge/pkg/sensor"
	"github.com/itohio/streamgauge/pkg/status"
	"github.com/itohio/streamgauge/pkg/storage"
)

// clockPoll is how often a clock that cannot be set is re-read while waiting
// for it to become valid.
const clockPoll = time.Minute

// ErrRestartRequired is returned after the clock was set from the console.
// The process must be restarted to boot with a valid clock.
var ErrRestartRequired = errors.New("clock set, restart required")

// State is a process state.
type State int

const (
	StateBoot State = iota
	StateAwaitTime
	StateCalibration
	StateNormal
)

func (s State) String() string {
	switch s {
	case StateBoot:
		return "boot"
	case StateAwaitTime:
		return "await-time"
	case StateCalibration:
		return "calibration"
	case StateNormal:
		return "normal"
	}
	return "unknown"
}

// Logger is the diagnostic sink. *zap.SugaredLogger satisfies it.
type Logger interface {
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Errorf(template string, args ...interface{})
}

// Console is the operator console.
type Console interface {
	Println(line string)
	AwaitTimeSet(ctx context.Context, clock rtc.Clock) (time.Time, error)
}

// TemperatureProbe is a one-wire temperature probe.
type TemperatureProbe interface {
	Temperature() (float32, error)
}

// Recorder receives every observation outcome, e.g. *metrics.Metrics.
type Recorder interface {
	Observe(o record.Observation)
	Skipped()
	Presence(slot string, present bool)
}

// Options are the station's tunables.
type Options struct {
	Interval            time.Duration
	CalibrationTime     time.Duration
	CalibrationInterval time.Duration
	SampleCount         int
	SampleInterval      time.Duration
	Multiplier          int // applied to the raw distance median

	// Battery sense: raw × Divider × VRef / FullScale.
	BatteryDivider   float32
	BatteryVRef      float32
	BatteryFullScale float32
}

// Hardware holds the collaborators. Probe, Sink, Display, Recorder and
// Jumper may be nil.
type Hardware struct {
	Clock    rtc.Clock
	Distance sampler.Channel
	Battery  sampler.Channel
	Monitor  *sensor.Monitor // slots in record order: BMX1, BMX2, MCP1
	Probe    TemperatureProbe
	Sink     storage.Sink
	Console  Console
	Display  display.Display
	Recorder Recorder
	Jumper   func() bool // calibration jumper set
}

// Station is the single control loop of the logger.
type Station struct {
	opts    Options
	hw      Hardware
	status  *status.Register
	sampler *sampler.Sampler
	log     Logger

	firstObservationDone bool

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New returns a station. st is the shared status register; the caller sets
// status.PowerOn and any boot faults it detected while wiring the hardware.
func New(opts Options, hw Hardware, st *status.Register, log Logger) *Station {
	if opts.Interval <= 0 {
		opts.Interval = 15 * time.Minute
	}
	if opts.Multiplier <= 0 {
		opts.Multiplier = 1
	}
	return &Station{
		opts:    opts,
		hw:      hw,
		status:  st,
		sampler: sampler.New(opts.SampleCount, opts.SampleInterval),
		log:     log,
		now:     time.Now,
		sleep:   sleepContext,
	}
}

// Boot identifies every sensor slot, locates the one-wire probe and picks the
// next state.
func (s *Station) Boot() State {
	n := s.hw.Monitor.ProbeAll()
	s.log.Infof("%d of %d sensor slots present", n, len(s.hw.Monitor.Slots()))
	s.reportPresence()

	if s.hw.Probe == nil {
		s.log.Warnf("DS NF")
		s.status.Set(status.DS1)
	} else if t, err := s.hw.Probe.Temperature(); err != nil {
		s.log.Warnf("DS %s BAD: %v", record.FormatFixed(t, 2), err)
	} else {
		s.log.Infof("DS %s OK", record.FormatFixed(t, 2))
	}

	if _, err := s.hw.Clock.Now(); err != nil {
		s.log.Warnf("RTC: %v", err)
		s.status.Set(status.RTC)
		return StateAwaitTime
	}
	s.status.Clear(status.RTC)
	return s.clockReady()
}

// clockReady picks the state that follows a valid clock.
func (s *Station) clockReady() State {
	if s.hw.Jumper != nil && s.hw.Jumper() {
		return StateCalibration
	}
	return StateNormal
}

// Run boots the station and runs until ctx is done. It returns
// ErrRestartRequired when the clock had to be set from the console. A clock
// that cannot be set, such as the host clock, is waited for instead.
func (s *Station) Run(ctx context.Context) error {
	state := s.Boot()
	for {
		s.log.Infof("state %s", state)
		switch state {
		case StateAwaitTime:
			if !rtc.Settable(s.hw.Clock) {
				if err := s.awaitClock(ctx); err != nil {
					return ignoreCancel(err)
				}
				s.status.Clear(status.RTC)
				state = s.clockReady()
				continue
			}
			t, err := s.hw.Console.AwaitTimeSet(ctx, s.hw.Clock)
			if err != nil {
				return err
			}
			s.log.Infof("clock set to %s", t.Format(record.TimeLayout))
			return ErrRestartRequired
		case StateCalibration:
			if err := s.Calibrate(ctx); err != nil {
				return ignoreCancel(err)
			}
			state = StateNormal
		case StateNormal:
			return ignoreCancel(s.Loop(ctx))
		default:
			return errors.New("invalid state")
		}
	}
}

// awaitClock polls a clock that cannot be set from the console until the
// host brings it into the valid range.
func (s *Station) awaitClock(ctx context.Context) error {
	for {
		if _, err := s.hw.Clock.Now(); err == nil {
			s.log.Infof("clock valid")
			return nil
		}
		s.log.Warnf("RTC NV, waiting for the host clock")
		if err := s.sleep(ctx, clockPoll); err != nil {
			return err
		}
	}
}

// Calibrate shows the station monitor and builds unlogged observations while
// the jumper stays set, for at most CalibrationTime.
func (s *Station) Calibrate(ctx context.Context) error {
	deadline := s.now().Add(s.opts.CalibrationTime)
	for s.hw.Jumper != nil && s.hw.Jumper() && s.now().Before(deadline) {
		s.Recheck()
		s.StationMonitor()
		s.Observe(false)
		if err := s.sleep(ctx, s.opts.CalibrationInterval); err != nil {
			return err
		}
	}
	s.log.Infof("calibration done")
	return nil
}

// Loop is the normal operation: recheck sensors, observe, sleep until the
// next window boundary.
func (s *Station) Loop(ctx context.Context) error {
	for {
		s.Recheck()
		s.Observe(true)

		d := UntilNext(s.now(), s.opts.Interval)
		s.log.Infof("sleeping %s", d)
		if err := s.sleep(ctx, d); err != nil {
			return err
		}
	}
}

// Recheck reconciles the presence of every slot with the bus.
func (s *Station) Recheck() {
	events := s.hw.Monitor.RecheckAll()
	for name, ev := range events {
		s.log.Infof("%s %s", name, ev)
	}
	if len(events) > 0 {
		s.reportPresence()
	}
}

// FirstObservationDone reports whether the startup bits were already cleared.
func (s *Station) FirstObservationDone() bool {
	return s.firstObservationDone
}

func (s *Station) reportPresence() {
	if s.hw.Recorder == nil {
		return
	}
	for _, slot := range s.hw.Monitor.Slots() {
		s.hw.Recorder.Presence(slot.Name, slot.Present)
	}
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
