// Package trend keeps a time-windowed history of the gauge distance with its
// rate of change and flags sustained rises.
package trend

import (
	"math"
	"sync"
	"time"

	"github.com/itohio/streamgauge/pkg/config"
	"github.com/itohio/streamgauge/pkg/qc"
	"github.com/itohio/streamgauge/pkg/record"
)

var _ Tracker = (*Trend)(nil)

// Point is one observation reduced to what the monitor plots.
type Point struct {
	At       time.Time
	Distance float64 // mm
	Value    float64 // Monitored field, NaN when missing or gated
}

// Rise is a run of consecutive rates above the rise threshold.
type Rise struct {
	StartIndex int // Point index where the rise starts
	EndIndex   int // Point index where the rise ends
	StartTime  time.Time
	EndTime    time.Time
	Peak       float64 // Highest rate in the run (mm/h)
}

// Duration is the time covered by the rise.
func (r Rise) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

// Tracker consumes records and exposes the windowed history.
type Tracker interface {
	Process(input <-chan record.Observation)
	Points() []Point
	Rates() []float64
	Rises() []Rise
	OnUpdate(func(points []Point, rates []float64, rises []Rise))
}

// Trend implements Tracker. Points are ordered oldest first and rates[i] is
// the rate of change from points[i] to points[i+1], so n points have n-1
// rates. Points older than the window, counted from the newest point, are
// dropped together with their rates.
type Trend struct {
	points []Point
	rates  []float64
	rises  []Rise
	mu     sync.RWMutex

	callbacks []func(points []Point, rates []float64, rises []Rise)
	cbMu      sync.RWMutex

	window   time.Duration
	field    string
	riseRate float64
	minRise  time.Duration

	shutdown bool
}

// New creates a trend over the monitor settings.
func New(cfg *config.MonitorConfig) *Trend {
	return &Trend{
		window:   time.Duration(cfg.WindowSeconds * float64(time.Second)),
		field:    cfg.Field,
		riseRate: cfg.RiseRate,
		minRise:  cfg.MinRise,
	}
}

// Process adds records from input until it closes. Callbacks stop once the
// input is closed.
func (t *Trend) Process(input <-chan record.Observation) {
	for obs := range input {
		t.Add(obs)
	}
	t.mu.Lock()
	t.shutdown = true
	t.mu.Unlock()
}

// ResetShutdown allows callbacks again before a new Process call.
func (t *Trend) ResetShutdown() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.shutdown = false
}

// PointOf reduces a record to a Point. Records whose distance is the error
// sentinel are not plottable.
func PointOf(obs record.Observation, field string) (Point, bool) {
	if float32(obs.Distance) == qc.Sentinel(qc.Distance) {
		return Point{}, false
	}
	p := Point{At: obs.At, Distance: float64(obs.Distance), Value: math.NaN()}
	if v, ok := obs.Lookup(field); ok && !isSentinel(v) {
		p.Value = float64(v)
	}
	return p, true
}

func isSentinel(v float32) bool {
	for _, k := range []qc.Kind{qc.Temperature, qc.Pressure, qc.Humidity, qc.Voltage} {
		if v == qc.Sentinel(k) {
			return true
		}
	}
	return false
}

// Add appends one record. Records that are not newer than the last point are
// ignored.
func (t *Trend) Add(obs record.Observation) {
	p, ok := PointOf(obs, t.field)
	if !ok {
		return
	}

	t.mu.Lock()
	if n := len(t.points); n > 0 && !p.At.After(t.points[n-1].At) {
		t.mu.Unlock()
		return
	}

	t.points = append(t.points, p)
	if n := len(t.points); n >= 2 {
		prev := t.points[n-2]
		dt := p.At.Sub(prev.At).Hours()
		t.rates = append(t.rates, (p.Distance-prev.Distance)/dt)
	}
	t.trim(p.At.Add(-t.window))
	t.rises = detectRises(t.points, t.rates, t.riseRate, t.minRise)

	notify := !t.shutdown
	t.mu.Unlock()

	if notify {
		t.notify()
	}
}

// trim drops points at or before cutoff together with their rates.
func (t *Trend) trim(cutoff time.Time) {
	cut := 0
	for cut < len(t.points)-1 && !t.points[cut].At.After(cutoff) {
		cut++
	}
	if cut == 0 {
		return
	}
	t.points = t.points[cut:]
	if cut <= len(t.rates) {
		t.rates = t.rates[cut:]
	} else {
		t.rates = t.rates[:0]
	}
}

// detectRises finds runs of rates strictly above threshold lasting at least
// minDuration.
func detectRises(points []Point, rates []float64, threshold float64, minDuration time.Duration) []Rise {
	var rises []Rise
	var cur *Rise
	for i, r := range rates {
		if r > threshold {
			if cur == nil {
				rises = append(rises, Rise{StartIndex: i, StartTime: points[i].At})
				cur = &rises[len(rises)-1]
			}
			cur.EndIndex = i + 1
			cur.EndTime = points[i+1].At
			cur.Peak = math.Max(cur.Peak, r)
			continue
		}
		cur = nil
	}

	valid := rises[:0]
	for _, r := range rises {
		if r.Duration() >= minDuration {
			valid = append(valid, r)
		}
	}
	return valid
}

// Points returns a copy of the points.
func (t *Trend) Points() []Point {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Point(nil), t.points...)
}

// Rates returns a copy of the rates of change in mm/h.
func (t *Trend) Rates() []float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]float64(nil), t.rates...)
}

// Rises returns a copy of the detected rises.
func (t *Trend) Rises() []Rise {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Rise(nil), t.rises...)
}

// OnUpdate registers a callback invoked with copies of the data after every
// accepted record. Callbacks should return quickly.
func (t *Trend) OnUpdate(callback func(points []Point, rates []float64, rises []Rise)) {
	t.cbMu.Lock()
	defer t.cbMu.Unlock()
	t.callbacks = append(t.callbacks, callback)
}

func (t *Trend) notify() {
	points, rates, rises := t.Points(), t.Rates(), t.Rises()

	t.cbMu.RLock()
	callbacks := append(([]func([]Point, []float64, []Rise))(nil), t.callbacks...)
	t.cbMu.RUnlock()

	for _, cb := range callbacks {
		if cb != nil {
			cb(points, rates, rises)
		}
	}
}
