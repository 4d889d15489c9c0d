package flow

import (
	"errors"
	"fmt"
	"io"
	"time"
)

// Validator re-checks the lifecycle invariants of an event stream:
//   - NEW ids are consecutive from 1
//   - CANCEL and REPLACE target an id that was issued and not cancelled
//   - timestamps never decrease
//   - CANCEL carries no terms, NEW and REPLACE do
type Validator struct {
	lastID    uint64
	live      map[uint64]struct{}
	cancelled map[uint64]struct{}
	lastTS    time.Time
	n         int
}

func NewValidator() *Validator {
	return &Validator{
		live:      make(map[uint64]struct{}),
		cancelled: make(map[uint64]struct{}),
	}
}

// Check applies ev and returns the first violation it causes. The
// validator state is left unchanged when an error is returned.
func (v *Validator) Check(ev Event) error {
	idx := v.n
	if v.n > 0 && ev.Timestamp.Before(v.lastTS) {
		return fmt.Errorf("event %d: %w (%s < %s)", idx, ErrClockRegression,
			ev.Timestamp.Format(TimestampLayout), v.lastTS.Format(TimestampLayout))
	}

	switch ev.Action {
	case ActionNew:
		if ev.Terms == nil {
			return fmt.Errorf("event %d: %w: NEW #%d without terms", idx, ErrMalformedEvent, ev.OrderID)
		}
		if ev.OrderID != v.lastID+1 {
			return fmt.Errorf("event %d: %w: got #%d, want #%d", idx, ErrIDOutOfSequence, ev.OrderID, v.lastID+1)
		}
		v.lastID = ev.OrderID
		v.live[ev.OrderID] = struct{}{}

	case ActionCancel, ActionReplace:
		if err := v.checkTarget(idx, ev); err != nil {
			return err
		}
		if ev.Action == ActionCancel {
			if ev.Terms != nil {
				return fmt.Errorf("event %d: %w: CANCEL #%d carries terms", idx, ErrMalformedEvent, ev.OrderID)
			}
			delete(v.live, ev.OrderID)
			v.cancelled[ev.OrderID] = struct{}{}
		} else if ev.Terms == nil {
			return fmt.Errorf("event %d: %w: REPLACE #%d without terms", idx, ErrMalformedEvent, ev.OrderID)
		}

	default:
		return fmt.Errorf("event %d: %w: action %s", idx, ErrMalformedEvent, ev.Action)
	}

	v.lastTS = ev.Timestamp
	v.n++
	return nil
}

func (v *Validator) checkTarget(idx int, ev Event) error {
	if _, ok := v.cancelled[ev.OrderID]; ok {
		return fmt.Errorf("event %d: %w: %s #%d", idx, ErrOrderCancelled, ev.Action, ev.OrderID)
	}
	if _, ok := v.live[ev.OrderID]; !ok {
		return fmt.Errorf("event %d: %w: %s #%d", idx, ErrUnknownOrder, ev.Action, ev.OrderID)
	}
	return nil
}

func (v *Validator) Events() int { return v.n }

// LiveOrders is the number of ids issued and not cancelled so far.
func (v *Validator) LiveOrders() int { return len(v.live) }

// Write lets a Validator sit in a sink chain.
func (v *Validator) Write(ev Event) error { return v.Check(ev) }

// ValidateCSV reads a whole CSV stream and validates it. The returned
// validator reports counts up to the first violation.
func ValidateCSV(r io.Reader, loc *time.Location) (*Validator, error) {
	cr, err := NewCSVReader(r, loc)
	if err != nil {
		return nil, err
	}
	v := NewValidator()
	for {
		ev, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return v, nil
		}
		if err != nil {
			return v, err
		}
		if err := v.Check(ev); err != nil {
			return v, err
		}
	}
}
