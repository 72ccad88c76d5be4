// Package waiter blocks the calling goroutine until a deadline.
//
// Sleeps are capped at 60 seconds so that NTP steps, DST transitions and
// system sleep (the monotonic clock pauses on macOS) cannot push the wake-up
// far past the deadline; after each wake-up the remaining time is measured
// again against the wall clock.
package waiter

import (
	"context"
	"fmt"
	"time"
)

const maxSleepCap = 60 * time.Second

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// RealClock is the wall clock.
var RealClock Clock = realClock{}

// Waiter suspends until a deadline.
type Waiter struct {
	clock Clock
	// Tick is called before every sleep with the time still remaining.
	Tick func(remaining time.Duration)
}

// New returns a Waiter using clock, or the wall clock when clock is nil.
func New(clock Clock) *Waiter {
	if clock == nil {
		clock = RealClock
	}
	return &Waiter{clock: clock}
}

// Remaining is the time left until deadline on the waiter's clock.
func (w *Waiter) Remaining(deadline time.Time) time.Duration {
	return deadline.Sub(w.clock.Now())
}

// Wait returns nil once the clock reads at or after deadline. There is no
// cancel path besides ctx, which callers tie to process termination.
func (w *Waiter) Wait(ctx context.Context, deadline time.Time) error {
	for {
		remaining := w.Remaining(deadline)
		if remaining <= 0 {
			return nil
		}
		if w.Tick != nil {
			w.Tick(remaining)
		}
		sleep := remaining
		if sleep > maxSleepCap {
			sleep = maxSleepCap
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.clock.After(sleep):
		}
	}
}

// FormatRemaining renders d as hh:mm:ss, rounded to the second.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	s := int64(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, s/60%60, s%60)
}
