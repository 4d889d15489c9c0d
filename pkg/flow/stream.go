package flow

import (
	"context"
	"fmt"
)

// Source produces events one at a time.
type Source interface {
	Next() Event
}

// Sink consumes emitted events in order.
type Sink interface {
	Write(Event) error
}

type SinkFunc func(Event) error

func (f SinkFunc) Write(ev Event) error { return f(ev) }

// MultiSink writes every event to each sink in turn, stopping at the first error.
func MultiSink(sinks ...Sink) Sink {
	return SinkFunc(func(ev Event) error {
		for _, s := range sinks {
			if err := s.Write(ev); err != nil {
				return err
			}
		}
		return nil
	})
}

// SliceSource replays a fixed event list and returns a zero Event once
// exhausted. Use with Copy and a count of Len().
type SliceSource struct {
	events []Event
	pos    int
}

func NewSliceSource(events []Event) *SliceSource { return &SliceSource{events: events} }

func (s *SliceSource) Len() int { return len(s.events) }

func (s *SliceSource) Next() Event {
	if s.pos >= len(s.events) {
		return Event{}
	}
	ev := s.events[s.pos]
	s.pos++
	return ev
}

// ctx is polled every ctxCheckEvery events; sinks may block on I/O.
const ctxCheckEvery = 1024

// Copy pulls count events from src into sink and returns how many were written.
func Copy(ctx context.Context, src Source, count int, sink Sink) (int, error) {
	for i := 0; i < count; i++ {
		if i%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return i, err
			}
		}
		ev := src.Next()
		if err := sink.Write(ev); err != nil {
			return i, fmt.Errorf("write event %d: %w", i, err)
		}
	}
	return count, nil
}
