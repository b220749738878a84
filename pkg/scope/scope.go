// Package scope is a Fyne widget plotting the gauge distance, its rate of
// change and detected rises.
package scope

import (
	"image/color"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
	"github.com/itohio/streamgauge/pkg/config"
	"github.com/itohio/streamgauge/pkg/trend"
)

// ScopeWidget is a custom Fyne widget that displays the distance trend.
type ScopeWidget struct {
	widget.BaseWidget

	cfg *config.MonitorConfig

	// Data (protected by mu)
	mu     sync.RWMutex
	points []trend.Point
	rates  []float64
	rises  []trend.Rise

	// Display buffers (reused for downsampling)
	displayPoints []trend.Point
	displayRates  []float64

	// Auto-scaling: distance on the left axis, rate on the right
	scale Scale

	maxDisplayPoints int
}

// Scale is the plotted range.
type Scale struct {
	DMin, DMax float64 // Distance (mm)
	RMin, RMax float64 // Rate (mm/h)
	XMin, XMax time.Time
}

// New creates a new ScopeWidget instance.
func New(cfg *config.MonitorConfig) *ScopeWidget {
	s := &ScopeWidget{
		cfg:              cfg,
		displayPoints:    make([]trend.Point, 0, 1000),
		displayRates:     make([]float64, 0, 1000),
		maxDisplayPoints: 1000,
	}
	s.scale = AutoScale(nil, nil, s.window(), time.Now())
	s.ExtendBaseWidget(s)
	s.Refresh()
	return s
}

func (s *ScopeWidget) window() time.Duration {
	return time.Duration(s.cfg.WindowSeconds * float64(time.Second))
}

// UpdateData replaces the plotted data. Call it through fyne.Do from trend
// callbacks.
func (s *ScopeWidget) UpdateData(points []trend.Point, rates []float64, rises []trend.Rise) {
	s.mu.Lock()

	s.displayPoints = trend.Downsample(s.displayPoints, points, s.maxDisplayPoints)
	s.displayRates = trend.Downsample(s.displayRates, rates, s.maxDisplayPoints)

	s.points = points
	s.rates = rates
	s.rises = rises
	s.scale = AutoScale(s.displayPoints, s.displayRates, s.window(), time.Now())

	s.mu.Unlock()

	s.Refresh()
}

// AutoScale computes the plotted ranges with a 10% margin. The time axis
// spans at least window.
func AutoScale(points []trend.Point, rates []float64, window time.Duration, now time.Time) Scale {
	if len(points) == 0 {
		return Scale{DMin: 0, DMax: 1, RMin: -1, RMax: 1, XMin: now.Add(-window), XMax: now}
	}

	var sc Scale
	sc.DMin, sc.DMax = points[0].Distance, points[0].Distance
	for _, p := range points {
		sc.DMin = min(sc.DMin, p.Distance)
		sc.DMax = max(sc.DMax, p.Distance)
	}
	sc.DMin, sc.DMax = margin(sc.DMin, sc.DMax)

	sc.RMin, sc.RMax = 0, 0
	for _, r := range rates {
		sc.RMin = min(sc.RMin, r)
		sc.RMax = max(sc.RMax, r)
	}
	sc.RMin, sc.RMax = margin(sc.RMin, sc.RMax)

	sc.XMin = points[0].At
	sc.XMax = points[len(points)-1].At
	if sc.XMax.Sub(sc.XMin) < window {
		sc.XMax = sc.XMin.Add(window)
	}
	return sc
}

func margin(lo, hi float64) (float64, float64) {
	r := hi - lo
	if r == 0 {
		r = 1
	}
	return lo - r*0.1, hi + r*0.1
}

// CreateRenderer creates the widget renderer.
func (s *ScopeWidget) CreateRenderer() fyne.WidgetRenderer {
	grid := canvas.NewRectangle(color.RGBA{R: 20, G: 20, B: 20, A: 255})
	return &scopeRenderer{
		scope:   s,
		grid:    grid,
		objects: []fyne.CanvasObject{grid},
	}
}
