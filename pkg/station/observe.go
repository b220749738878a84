package station

import (
	"github.com/chewxy/math32"
	"github.com/itohio/streamgauge/pkg/display"
	"github.com/itohio/streamgauge/pkg/qc"
	"github.com/itohio/streamgauge/pkg/record"
	"github.com/itohio/streamgauge/pkg/sampler"
	"github.com/itohio/streamgauge/pkg/sensor"
	"github.com/itohio/streamgauge/pkg/status"
)

// Observe builds one observation. It returns false, and persists nothing,
// when the clock is not valid. With logToSink the record is appended to the
// sink; either way it is written to the console.
//
// The first observation persisted after power on clears the startup status
// bits. The record carrying them is the one that triggers the clear.
func (s *Station) Observe(logToSink bool) (record.Observation, bool) {
	at, err := s.hw.Clock.Now()
	if err != nil {
		s.log.Warnf("OBS_Do: Time NV: %v", err)
		if s.hw.Recorder != nil {
			s.hw.Recorder.Skipped()
		}
		return record.Observation{}, false
	}

	raw := s.sampler.Median(s.hw.Distance)
	distance := qc.Gate(qc.Distance, float32(sampler.Scale(raw, s.opts.Multiplier)))

	obs := record.Observation{
		At:       at,
		Distance: int(distance),
		Fields:   s.fields(),
		Battery:  qc.Gate(qc.Voltage, s.batteryVolts()),
		Status:   uint32(s.status.Bits()),
	}
	line := obs.String()

	if logToSink {
		s.log.Infof("%s", at.Format(record.TimeLayout))
		if s.persist(obs, line) && !s.firstObservationDone {
			s.status.Clear(status.Startup)
			s.firstObservationDone = true
			s.log.Infof("startup status cleared")
		}
	}
	s.hw.Console.Println(line)

	if s.hw.Recorder != nil {
		s.hw.Recorder.Observe(obs)
	}
	return obs, true
}

func (s *Station) persist(obs record.Observation, line string) bool {
	if s.hw.Sink == nil {
		return false
	}
	if err := s.hw.Sink.Append(obs.At, line); err != nil {
		s.log.Errorf("failed to log observation: %v", err)
		return false
	}
	return true
}

// fields reads every present slot and the one-wire probe in record order.
// A failed read turns into NaN so the gate replaces it with the sentinel.
func (s *Station) fields() []record.Field {
	var fields []record.Field
	for _, slot := range s.hw.Monitor.Slots() {
		if !slot.Present {
			continue
		}
		r, err := slot.Sense()
		if err != nil {
			s.log.Warnf("%s read: %v", slot.Name, err)
			s.hw.Monitor.MarkFailed(slot)
			r = sensor.Reading{Pressure: math32.NaN(), Temperature: math32.NaN(), Humidity: math32.NaN()}
		}

		switch slot.Family {
		case sensor.FamilyBosch:
			fields = append(fields,
				record.Pressure("bp"+slot.Tag, qc.Gate(qc.Pressure, r.Pressure)),
				record.Value("bt"+slot.Tag, qc.Gate(qc.Temperature, r.Temperature)),
				record.Value("bh"+slot.Tag, qc.Gate(qc.Humidity, r.Humidity)),
			)
		case sensor.FamilyMCP9808:
			fields = append(fields, record.Value("mt"+slot.Tag, qc.Gate(qc.Temperature, r.Temperature)))
		}
	}

	if s.hw.Probe != nil {
		t, err := s.hw.Probe.Temperature()
		s.status.Assign(status.DS1, err != nil)
		if err != nil {
			s.log.Warnf("DS read: %v", err)
			t = math32.NaN()
		}
		fields = append(fields, record.Value("dt1", qc.Gate(qc.Temperature, t)))
	}
	return fields
}

func (s *Station) batteryVolts() float32 {
	return sampler.BatteryVolts(s.hw.Battery.Get(), s.opts.BatteryDivider, s.opts.BatteryVRef, s.opts.BatteryFullScale)
}

// StationMonitor shows live barometric readings, the raw distance channel,
// the battery and the status bits.
func (s *Station) StationMonitor() {
	snap := display.Snapshot{
		Raw:     s.hw.Distance.Get(),
		Battery: s.batteryVolts(),
		Status:  s.status.Bits(),
	}
	if at, err := s.hw.Clock.Now(); err == nil {
		snap.At = at
	}

	var bosch []*sensor.Reading
	for _, slot := range s.hw.Monitor.Slots() {
		if slot.Family != sensor.FamilyBosch {
			continue
		}
		var r *sensor.Reading
		if slot.Present {
			if v, err := slot.Sense(); err == nil {
				r = &v
			}
		}
		bosch = append(bosch, r)
	}
	if len(bosch) > 0 {
		snap.BMX1 = bosch[0]
	}
	if len(bosch) > 1 {
		snap.BMX2 = bosch[1]
	}

	lines := display.Lines(snap)
	if s.hw.Display == nil {
		for _, l := range lines {
			s.hw.Console.Println(l)
		}
		return
	}
	if err := s.hw.Display.Show(lines); err != nil {
		s.log.Warnf("display: %v", err)
	}
}
