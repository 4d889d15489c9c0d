package flow

import (
	"math/rand"
	"time"
)

// EventClock stamps events. It starts at the generator's start time and
// only ever moves forward.
type EventClock struct {
	now     time.Time
	minStep int // milliseconds, inclusive
	maxStep int
}

func NewEventClock(start time.Time, minStepMs, maxStepMs int) *EventClock {
	return &EventClock{now: start, minStep: minStepMs, maxStep: maxStepMs}
}

func (c *EventClock) Now() time.Time { return c.now }

// Advance adds a uniform whole number of milliseconds in [minStep, maxStep].
func (c *EventClock) Advance(rng *rand.Rand) {
	ms := c.minStep
	if c.maxStep > c.minStep {
		ms += rng.Intn(c.maxStep - c.minStep + 1)
	}
	c.now = c.now.Add(time.Duration(ms) * time.Millisecond)
}
