package relay

import (
	"context"
	"time"
)

// Clock is the seam between retry logic and real time, so backoff schedules
// can be tested without timers.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d and reports whether it completed; false means the
	// context was canceled first.
	Sleep(ctx context.Context, d time.Duration) bool
}

type realClock struct{}

func NewRealClock() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) Sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
