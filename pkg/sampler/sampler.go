// Package sampler reduces a noisy analog channel to a robust point estimate.
package sampler

import (
	"slices"
	"time"
)

const (
	// DefaultCount is the number of readings taken per observation.
	DefaultCount = 60
	// DefaultInterval is the delay before each reading. 60 × 250ms keeps the
	// gauge busy for 15s per observation.
	DefaultInterval = 250 * time.Millisecond
)

// Channel is an analog input returning one raw ADC reading per call.
type Channel interface {
	Get() uint16
}

// ChannelFunc adapts a plain function to Channel.
type ChannelFunc func() uint16

// Get calls f.
func (f ChannelFunc) Get() uint16 { return f() }

// Sampler takes Count readings from a channel, Interval apart, and returns
// their median.
type Sampler struct {
	Count    int
	Interval time.Duration

	// Sleep is called before every reading; time.Sleep when nil.
	Sleep func(time.Duration)
}

// New creates a sampler. A non-positive count or a negative interval selects
// the default.
func New(count int, interval time.Duration) *Sampler {
	if count <= 0 {
		count = DefaultCount
	}
	if interval < 0 {
		interval = DefaultInterval
	}
	return &Sampler{
		Count:    count,
		Interval: interval,
	}
}

// Duration is the wall-clock time one Median call spends sampling.
func (s *Sampler) Duration() time.Duration {
	return time.Duration(s.Count) * s.Interval
}

// Median samples ch and returns the median reading in the channel's raw unit.
// The call cannot be interrupted once started.
func (s *Sampler) Median(ch Channel) uint16 {
	sleep := s.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	window := make([]uint16, s.Count)
	for i := range window {
		sleep(s.Interval)
		window[i] = ch.Get()
	}
	return Median(window)
}

// Median sorts window in place and returns the element at index
// (n+1)/2-1. For even n that is the lower of the two middle elements; the
// two are never averaged. Median of an empty window is 0.
func Median(window []uint16) uint16 {
	if len(window) == 0 {
		return 0
	}
	slices.Sort(window)
	return window[MedianIndex(len(window))]
}

// MedianIndex is the 0-based index Median selects for a window of n samples.
func MedianIndex(n int) int {
	return (n+1)/2 - 1
}
