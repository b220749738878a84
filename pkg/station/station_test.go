package station

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chewxy/math32"
	"github.com/itohio/streamgauge/pkg/qc"
	"github.com/itohio/streamgauge/pkg/sampler"
	"github.com/itohio/streamgauge/pkg/sensor"
	"github.com/itohio/streamgauge/pkg/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var at = time.Date(2024, 5, 1, 12, 15, 0, 0, time.UTC)

type rig struct {
	clock    *fakeClock
	console  *fakeConsole
	sink     *fakeSink
	recorder *fakeRecorder
	status   *status.Register
	slots    []*sensor.Slot
	station  *Station
	slept    []time.Duration
}

func testOptions() Options {
	return Options{
		Interval:            15 * time.Minute,
		CalibrationTime:     time.Minute,
		CalibrationInterval: time.Second,
		SampleCount:         3,
		Multiplier:          1,
		BatteryDivider:      2,
		BatteryVRef:         3.7,
		BatteryFullScale:    2048,
	}
}

// newRig wires a station over pre-identified slots. bmx1 is present with the
// given driver, BMX2 and MCP1 are absent.
func newRig(t *testing.T, bmx1 sensor.Driver, probe TemperatureProbe) *rig {
	t.Helper()

	r := &rig{
		clock:    &fakeClock{t: at},
		console:  &fakeConsole{},
		sink:     &fakeSink{},
		recorder: newFakeRecorder(),
		status:   status.New(0),
	}

	s1 := sensor.NewBoschSlot("BMX1", "1", 0x77, status.BMX1)
	if bmx1 != nil {
		s1.Variant = sensor.VariantBME280
		s1.Present = true
		s1.Driver = bmx1
	}
	s2 := sensor.NewBoschSlot("BMX2", "2", 0x76, status.BMX2)
	m1 := sensor.NewMCP9808Slot("MCP1", "1", 0x18, status.MCP1)
	r.slots = []*sensor.Slot{s1, s2, m1}

	log := zap.NewNop().Sugar()
	bus := &chipBus{chips: map[uint16]byte{}}
	if bmx1 != nil {
		bus.chips[0x77] = sensor.ChipIDBME280BMP390
	}
	id := sensor.NewIdentifier(bus, r.status, log, fixedOpeners(map[sensor.Variant]sensor.Driver{
		sensor.VariantBME280: bmx1,
	}))

	hw := Hardware{
		Clock:    r.clock,
		Distance: sampler.ChannelFunc(constant(512)),
		Battery:  sampler.ChannelFunc(constant(1024)),
		Monitor:  sensor.NewMonitor(id, log, r.slots...),
		Sink:     r.sink,
		Console:  r.console,
		Recorder: r.recorder,
	}
	if probe != nil {
		hw.Probe = probe
	}

	r.station = New(testOptions(), hw, r.status, log)
	r.station.sampler.Sleep = func(time.Duration) {}
	r.station.now = func() time.Time { return r.clock.t }
	r.station.sleep = func(ctx context.Context, d time.Duration) error {
		r.slept = append(r.slept, d)
		r.clock.t = r.clock.t.Add(d)
		return ctx.Err()
	}
	return r
}

func TestObserve_Record(t *testing.T) {
	drv := &fakeDriver{reading: sensor.Reading{Pressure: 1013.25, Temperature: 22.5, Humidity: 45}}
	r := newRig(t, drv, nil)

	obs, ok := r.station.Observe(true)
	require.True(t, ok)

	want := `{"at":"2024-05-01T12:15:00","sg":512,"bp1":1013.2500,"bt1":22.50,"bh1":45.00,"bv":3.70,"hth":0}`
	assert.Equal(t, want, obs.String())
	assert.Equal(t, []string{want}, r.sink.lines)
	assert.Equal(t, []string{want}, r.console.lines)
	require.Len(t, r.recorder.observed, 1)
	assert.Equal(t, 512, r.recorder.observed[0].Distance)
}

func TestObserve_Multiplier(t *testing.T) {
	r := newRig(t, nil, nil)
	r.station.opts.Multiplier = 10

	obs, ok := r.station.Observe(false)
	require.True(t, ok)
	assert.Equal(t, 5120, obs.Distance)
	assert.Empty(t, r.sink.lines)
	assert.Len(t, r.console.lines, 1)
}

func TestObserve_DistanceOutOfRange(t *testing.T) {
	r := newRig(t, nil, nil)
	r.station.hw.Distance = sampler.ChannelFunc(constant(1100))
	r.station.opts.Multiplier = 10

	obs, ok := r.station.Observe(false)
	require.True(t, ok)
	assert.Equal(t, -999, obs.Distance)
}

func TestObserve_InvalidClock(t *testing.T) {
	r := newRig(t, &fakeDriver{}, nil)
	r.clock.err = errTimeNotValid

	_, ok := r.station.Observe(true)
	assert.False(t, ok)
	assert.Empty(t, r.sink.lines)
	assert.Empty(t, r.console.lines)
	assert.Equal(t, 1, r.recorder.skipped)
	assert.Empty(t, r.recorder.observed)
}

func TestObserve_Gating(t *testing.T) {
	tests := []struct {
		name    string
		reading sensor.Reading
		err     error
		key     string
		want    float32
	}{
		{"nan temperature", sensor.Reading{Pressure: 1000, Temperature: math32.NaN(), Humidity: 50}, nil, "bt1", qc.Sentinel(qc.Temperature)},
		{"nan temperature keeps pressure", sensor.Reading{Pressure: 1000, Temperature: math32.NaN(), Humidity: 50}, nil, "bp1", 1000},
		{"nan temperature keeps humidity", sensor.Reading{Pressure: 1000, Temperature: math32.NaN(), Humidity: 50}, nil, "bh1", 50},
		{"pressure too low", sensor.Reading{Pressure: 200, Temperature: 20, Humidity: 50}, nil, "bp1", qc.Sentinel(qc.Pressure)},
		{"humidity too high", sensor.Reading{Pressure: 1000, Temperature: 20, Humidity: 101}, nil, "bh1", qc.Sentinel(qc.Humidity)},
		{"read error", sensor.Reading{}, errors.New("bus"), "bp1", qc.Sentinel(qc.Pressure)},
		{"at upper limit", sensor.Reading{Pressure: 1100, Temperature: 60, Humidity: 100}, nil, "bt1", 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRig(t, &fakeDriver{reading: tt.reading, err: tt.err}, nil)

			obs, ok := r.station.Observe(false)
			require.True(t, ok)
			got, found := obs.Lookup(tt.key)
			require.True(t, found)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestObserve_NaNTemperatureLine(t *testing.T) {
	drv := &fakeDriver{reading: sensor.Reading{Pressure: 1013.25, Temperature: math32.NaN(), Humidity: 45}}
	r := newRig(t, drv, nil)

	obs, ok := r.station.Observe(false)
	require.True(t, ok)
	assert.Contains(t, obs.String(), `"bp1":1013.2500,"bt1":-999.90,"bh1":45.00`)
}

func TestObserve_Probe(t *testing.T) {
	tests := []struct {
		name  string
		probe *fakeProbe
		want  float32
	}{
		{"ok", &fakeProbe{t: 12.5}, 12.5},
		{"crc", &fakeProbe{err: errors.New("crc")}, qc.Sentinel(qc.Temperature)},
		{"power on value", &fakeProbe{t: 85}, qc.Sentinel(qc.Temperature)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRig(t, nil, tt.probe)

			obs, ok := r.station.Observe(false)
			require.True(t, ok)
			got, found := obs.Lookup("dt1")
			require.True(t, found)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestObserve_ReadErrorSetsFaultBit(t *testing.T) {
	drv := &fakeDriver{err: errors.New("tx")}
	r := newRig(t, drv, nil)

	obs, ok := r.station.Observe(false)
	require.True(t, ok)
	assert.NotZero(t, obs.Status&uint32(status.BMX1))
	assert.False(t, r.slots[0].Present)

	drv.err = nil
	drv.reading = sensor.Reading{Pressure: 1000, Temperature: 20, Humidity: 50}
	obs, ok = r.station.Observe(false)
	require.True(t, ok)
	_, found := obs.Lookup("bp1")
	assert.False(t, found, "offline until the next recheck")

	r.station.Recheck()
	assert.True(t, r.slots[0].Present)
	assert.False(t, r.status.Has(status.BMX1))

	obs, ok = r.station.Observe(false)
	require.True(t, ok)
	got, found := obs.Lookup("bp1")
	require.True(t, found)
	assert.Equal(t, float32(1000), got)
	assert.Zero(t, obs.Status&uint32(status.BMX1))
}

func TestObserve_ProbeErrorSetsFaultBit(t *testing.T) {
	probe := &fakeProbe{err: errors.New("crc")}
	r := newRig(t, nil, probe)

	obs, ok := r.station.Observe(false)
	require.True(t, ok)
	assert.NotZero(t, obs.Status&uint32(status.DS1))

	probe.err = nil
	probe.t = 12.5
	obs, ok = r.station.Observe(false)
	require.True(t, ok)
	assert.Zero(t, obs.Status&uint32(status.DS1))
}

func TestStationMonitor_ClockNotValid(t *testing.T) {
	r := newRig(t, nil, nil)
	disp := &fakeDisplay{}
	r.station.hw.Display = disp
	r.clock.err = errTimeNotValid

	r.station.StationMonitor()
	require.Len(t, disp.shown, 1)
	assert.Equal(t, "Time NV", disp.shown[0][0])
}

func TestObserve_StartupBitsClearOnce(t *testing.T) {
	r := newRig(t, &fakeDriver{reading: sensor.Reading{Pressure: 1000, Temperature: 20, Humidity: 50}}, nil)
	r.status.Set(status.PowerOn | status.DS1 | status.SD)

	first, ok := r.station.Observe(true)
	require.True(t, ok)
	assert.Equal(t, uint32(status.PowerOn|status.DS1|status.SD), first.Status)
	assert.True(t, r.station.FirstObservationDone())
	assert.Equal(t, status.SD, r.status.Bits())

	r.status.Set(status.DS1)
	second, ok := r.station.Observe(true)
	require.True(t, ok)
	assert.Equal(t, uint32(status.SD|status.DS1), second.Status)
	assert.True(t, r.status.Has(status.DS1))
}

func TestObserve_StartupBitsKeptWhenNotPersisted(t *testing.T) {
	r := newRig(t, nil, nil)
	r.status.Set(status.PowerOn)

	_, ok := r.station.Observe(false)
	require.True(t, ok)
	assert.True(t, r.status.Has(status.PowerOn))

	r.sink.err = errors.New("card removed")
	_, ok = r.station.Observe(true)
	require.True(t, ok)
	assert.True(t, r.status.Has(status.PowerOn))
	assert.False(t, r.station.FirstObservationDone())

	r.sink.err = nil
	_, ok = r.station.Observe(true)
	require.True(t, ok)
	assert.False(t, r.status.Has(status.PowerOn))
}

func TestBoot(t *testing.T) {
	tests := []struct {
		name     string
		clockErr error
		jumper   bool
		probe    TemperatureProbe
		want     State
		wantBits status.Bit
	}{
		{"normal", nil, false, &fakeProbe{t: 10}, StateNormal, status.MCP1},
		{"calibration", nil, true, &fakeProbe{t: 10}, StateCalibration, status.MCP1},
		{"no clock", errTimeNotValid, false, &fakeProbe{t: 10}, StateAwaitTime, status.MCP1 | status.RTC},
		{"no probe", nil, false, nil, StateNormal, status.MCP1 | status.DS1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			drv := &fakeDriver{}
			r := newRig(t, drv, tt.probe)
			r.slots[0].Present = false
			r.slots[0].Variant = sensor.VariantUnknown
			r.clock.err = tt.clockErr
			r.station.hw.Jumper = func() bool { return tt.jumper }

			assert.Equal(t, tt.want, r.station.Boot())
			assert.Equal(t, tt.wantBits, r.status.Bits())
			assert.True(t, r.slots[0].Present)
			assert.Equal(t, sensor.VariantBME280, r.slots[0].Variant)
			assert.False(t, r.slots[1].Present)
			assert.Equal(t, map[string]bool{"BMX1": true, "BMX2": false, "MCP1": false}, r.recorder.presence)
		})
	}
}

func TestRun_AwaitTime(t *testing.T) {
	r := newRig(t, nil, &fakeProbe{t: 10})
	r.clock.err = errTimeNotValid
	r.console.setTo = at

	err := r.station.Run(context.Background())
	assert.ErrorIs(t, err, ErrRestartRequired)
	assert.Equal(t, []time.Time{at}, r.clock.set)
	assert.Empty(t, r.sink.lines)
}

func TestRun_AwaitTimeCancelled(t *testing.T) {
	r := newRig(t, nil, &fakeProbe{t: 10})
	r.clock.err = errTimeNotValid
	r.console.err = context.Canceled

	assert.ErrorIs(t, r.station.Run(context.Background()), context.Canceled)
}

func TestRun_AwaitHostClock(t *testing.T) {
	r := newRig(t, nil, &fakeProbe{t: 10})
	r.clock.err = errTimeNotValid
	r.station.hw.Clock = hostClock{r.clock}

	var slept []time.Duration
	r.station.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		if len(slept) == 1 {
			r.clock.err = nil
			return nil
		}
		return context.Canceled
	}

	require.NoError(t, r.station.Run(context.Background()))
	assert.Equal(t, clockPoll, slept[0])
	assert.Empty(t, r.clock.set, "the host clock is never set")
	assert.False(t, r.status.Has(status.RTC))
	assert.Len(t, r.sink.lines, 1)
}

func TestRun_Normal(t *testing.T) {
	r := newRig(t, nil, &fakeProbe{t: 10})
	r.clock.t = time.Date(2024, 5, 1, 12, 10, 0, 0, time.UTC)

	ctx, cancel := context.WithCancel(context.Background())
	observations := 0
	r.station.sleep = func(ctx context.Context, d time.Duration) error {
		r.slept = append(r.slept, d)
		r.clock.t = r.clock.t.Add(d)
		observations++
		if observations == 3 {
			cancel()
		}
		return ctx.Err()
	}

	require.NoError(t, r.station.Run(ctx))
	assert.Len(t, r.sink.lines, 3)
	assert.Equal(t, []time.Duration{5 * time.Minute, 15 * time.Minute, 15 * time.Minute}, r.slept)
	assert.Contains(t, r.sink.lines[1], `"at":"2024-05-01T12:15:00"`)
	assert.Contains(t, r.sink.lines[2], `"at":"2024-05-01T12:30:00"`)
}

func TestCalibrate(t *testing.T) {
	t.Run("until jumper removed", func(t *testing.T) {
		r := newRig(t, nil, nil)
		disp := &fakeDisplay{}
		r.station.hw.Display = disp
		n := 0
		r.station.hw.Jumper = func() bool { n++; return n <= 2 }

		require.NoError(t, r.station.Calibrate(context.Background()))
		assert.Len(t, disp.shown, 2)
		assert.Len(t, r.console.lines, 2)
		assert.Empty(t, r.sink.lines)
	})

	t.Run("countdown expires", func(t *testing.T) {
		r := newRig(t, nil, nil)
		r.station.hw.Jumper = func() bool { return true }

		require.NoError(t, r.station.Calibrate(context.Background()))
		assert.Len(t, r.slept, 60)
		assert.Empty(t, r.sink.lines)
	})

	t.Run("cancelled", func(t *testing.T) {
		r := newRig(t, nil, nil)
		r.station.hw.Jumper = func() bool { return true }
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		assert.ErrorIs(t, r.station.Calibrate(ctx), context.Canceled)
	})
}

func TestRecheck(t *testing.T) {
	drv := &fakeDriver{}
	r := newRig(t, drv, nil)
	r.station.Recheck()
	assert.Empty(t, r.recorder.presence)

	bus := &chipBus{chips: map[uint16]byte{}}
	log := zap.NewNop().Sugar()
	id := sensor.NewIdentifier(bus, r.status, log, nil)
	r.station.hw.Monitor = sensor.NewMonitor(id, log, r.slots...)

	r.station.Recheck()
	assert.False(t, r.slots[0].Present)
	assert.True(t, r.status.Has(status.BMX1))
	assert.Equal(t, false, r.recorder.presence["BMX1"])
}
