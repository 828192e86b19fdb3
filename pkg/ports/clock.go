package ports

import "time"

// Clock is the monotonic time source used by all timing logic.
// Injecting it keeps phase durations and reaction times testable.
type Clock interface {
	Now() time.Time

	// Sleep blocks for the given duration. It is the suspension point for
	// every fixed-duration phase hold.
	Sleep(d time.Duration)

	// After returns a channel that delivers the current time once d has
	// elapsed. Used by bounded key waits.
	After(d time.Duration) <-chan time.Time
}

// SystemClock implements Clock over the runtime's monotonic clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time                         { return time.Now() }
func (SystemClock) Sleep(d time.Duration)                  { time.Sleep(d) }
func (SystemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
