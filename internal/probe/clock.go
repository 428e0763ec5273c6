// File: internal/probe/clock.go
// Brief: Injectable time source so polling is testable without real sleeps.

package probe

import (
	"context"
	"time"
)

// Clock abstracts the poller's two uses of time: reading the current instant
// and waiting between attempts. Sleep must return early with ctx.Err() when
// the context is cancelled; it is the sole suspension point in a polling loop.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

// RealClock returns the wall-clock implementation used outside tests.
func RealClock() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
