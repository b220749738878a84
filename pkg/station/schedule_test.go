package station

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUntilNext(t *testing.T) {
	day := func(h, m, s, ns int) time.Time {
		return time.Date(2024, 5, 1, h, m, s, ns, time.UTC)
	}

	tests := []struct {
		name     string
		t        time.Time
		interval time.Duration
		want     time.Duration
	}{
		{"midnight", day(0, 0, 0, 0), 15 * time.Minute, 15 * time.Minute},
		{"on boundary", day(12, 15, 0, 0), 15 * time.Minute, 15 * time.Minute},
		{"mid window", day(12, 10, 0, 0), 15 * time.Minute, 5 * time.Minute},
		{"one second before", day(12, 14, 59, 0), 15 * time.Minute, time.Second},
		{"sub second", day(12, 14, 59, 250_000_000), 15 * time.Minute, 750 * time.Millisecond},
		{"crosses midnight", day(23, 50, 0, 0), 15 * time.Minute, 10 * time.Minute},
		{"hourly", day(7, 20, 30, 0), time.Hour, 39*time.Minute + 30*time.Second},
		{"odd interval", day(0, 0, 10, 0), 7 * time.Second, 4 * time.Second},
		{"below a second", day(1, 2, 3, 0), 100 * time.Millisecond, 100 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UntilNext(tt.t, tt.interval))
		})
	}
}

func TestSleepContext(t *testing.T) {
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "boot", StateBoot.String())
	assert.Equal(t, "await-time", StateAwaitTime.String())
	assert.Equal(t, "calibration", StateCalibration.String())
	assert.Equal(t, "normal", StateNormal.String())
	assert.Equal(t, "unknown", State(42).String())
}
