package station

import (
	"context"
	"time"
)

// UntilNext returns the time from t to the next wall-clock boundary of
// interval, counted from midnight. A t exactly on a boundary waits a full
// interval.
func UntilNext(t time.Time, interval time.Duration) time.Duration {
	if interval < time.Second {
		return interval
	}
	period := int64(interval / time.Second)
	sod := int64(t.Hour()*3600 + t.Minute()*60 + t.Second())
	wait := time.Duration(period-sod%period) * time.Second
	return wait - time.Duration(t.Nanosecond())
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
