package link

import (
	"time"

	"github.com/itohio/streamgauge/pkg/record"
)

// Device defines the interface for logger consoles (real or mocked).
type Device interface {
	Connect() error
	Close() error
	Records() <-chan record.Observation
	SetTime(t time.Time) error
	IsConnected() bool
}

// Ensure Serial implements Device.
var _ Device = (*Serial)(nil)

// Ensure Mock implements Device.
var _ Device = (*Mock)(nil)
