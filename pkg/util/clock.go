package util

import "time"

type Clock interface {
	After(d time.Duration) <-chan time.Time
	Now() time.Time
}

type RealClock struct{}

func (RealClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
func (RealClock) Now() time.Time                         { return time.Now() }

// StepClock fires every After immediately and reports a fixed Now.
// Used to drive paced loops in tests without sleeping.
type StepClock struct {
	At time.Time
}

func (c StepClock) After(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- c.At
	return ch
}
func (c StepClock) Now() time.Time { return c.At }
