package link

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/itohio/streamgauge/pkg/config"
	"github.com/itohio/streamgauge/pkg/qc"
	"github.com/itohio/streamgauge/pkg/record"
)

// Mock simulates a logger console for testing and development.
type Mock struct {
	cfg *config.MockConfig

	records   chan record.Observation
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool

	// Simulation state
	startTime time.Time
	offset    time.Duration // Applied by SetTime
	status    uint32
}

// Ensure Mock implements Device.
var _ Device = (*Mock)(nil)

// NewMock creates a new mocked console.
func NewMock(cfg *config.MockConfig) *Mock {
	if cfg == nil {
		cfg = &config.MockConfig{
			Level:      1500,
			Amplitude:  200,
			Period:     10 * time.Minute,
			NoiseLevel: 20,
			SampleRate: time.Second,
		}
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Mock{
		cfg:     cfg,
		records: make(chan record.Observation, DefaultBufferSize),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Connect starts generating records.
func (m *Mock) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return fmt.Errorf("already connected")
	}

	m.connected = true
	m.startTime = time.Now()

	go m.generate()

	return nil
}

// Close stops the mocked console.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return nil
	}

	m.cancel()
	m.connected = false
	close(m.records)

	return nil
}

// Records returns the channel of generated records.
func (m *Mock) Records() <-chan record.Observation {
	return m.records
}

// SetTime shifts the simulated clock so that now reads t.
func (m *Mock) SetTime(t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return fmt.Errorf("not connected")
	}
	m.offset = time.Until(t)
	return nil
}

// IsConnected returns whether the device is currently connected.
func (m *Mock) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

func (m *Mock) generate() {
	ticker := time.NewTicker(m.cfg.SampleRate)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case now := <-ticker.C:
			obs := m.record(now)
			select {
			case m.records <- obs:
			case <-m.ctx.Done():
				return
			default:
				// Channel full, skip
			}
		}
	}
}

// record builds the simulated observation at now.
func (m *Mock) record(now time.Time) record.Observation {
	m.mu.RLock()
	elapsed := now.Sub(m.startTime)
	at := now.Add(m.offset).Truncate(time.Second)
	st := m.status
	m.mu.RUnlock()

	distance := m.distance(elapsed)
	temp := float32(15 + 5*math.Sin(2*math.Pi*elapsed.Hours()/24))

	return record.Observation{
		At:       at,
		Distance: int(qc.Gate(qc.Distance, float32(distance))),
		Fields: []record.Field{
			record.Pressure("bp1", qc.Gate(qc.Pressure, 1013.25+float32(noise(elapsed, 0.5)))),
			record.Value("bt1", qc.Gate(qc.Temperature, temp)),
			record.Value("bh1", qc.Gate(qc.Humidity, 60+float32(noise(elapsed, 5)))),
		},
		Battery: 3.7,
		Status:  st,
	}
}

// distance is the slow wave around Level plus noise, in mm.
func (m *Mock) distance(elapsed time.Duration) float64 {
	d := m.cfg.Level
	if m.cfg.Period > 0 {
		d += m.cfg.Amplitude * math.Sin(2*math.Pi*elapsed.Seconds()/m.cfg.Period.Seconds())
	}
	d += noise(elapsed, m.cfg.NoiseLevel)
	if d < 0 {
		d = 0
	}
	return math.Round(d)
}

func noise(elapsed time.Duration, level float64) float64 {
	n := float64(elapsed.Nanoseconds())
	return (math.Sin(n*0.001) + math.Cos(n*0.0013)) * level * 0.5
}
