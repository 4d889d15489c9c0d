package storage

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/uhyunpark/orderflow/pkg/flow"
)

var ErrRunNotFound = errors.New("storage: run not found")

// RunRecord describes one finished generation run.
type RunRecord struct {
	ID        string     `json:"id"`
	Mode      string     `json:"mode"`
	Symbols   []string   `json:"symbols"`
	Seed      int64      `json:"seed"`
	Requested int        `json:"requested"`
	Stats     flow.Stats `json:"stats"`
	CreatedAt time.Time  `json:"createdAt"`
}

// NewRunID returns a fresh random run id.
func NewRunID() string { return uuid.NewString() }

// RunStore persists runs and their event streams. Implementations are
// safe for concurrent use.
type RunStore interface {
	SaveRun(rec RunRecord) error
	LoadRun(id string) (RunRecord, error)
	ListRuns() ([]RunRecord, error)
	AppendEvents(runID string, from uint64, events []flow.Event) error
	LoadEvents(runID string, offset, limit int) ([]flow.Event, error)
}

// RunSink buffers events and appends them to a RunStore in batches.
type RunSink struct {
	store RunStore
	runID string
	batch int
	buf   []flow.Event
	next  uint64
}

func NewRunSink(store RunStore, runID string, batchSize int) *RunSink {
	if batchSize < 1 {
		batchSize = 512
	}
	return &RunSink{store: store, runID: runID, batch: batchSize}
}

func (s *RunSink) Write(ev flow.Event) error {
	s.buf = append(s.buf, ev)
	if len(s.buf) >= s.batch {
		return s.Flush()
	}
	return nil
}

func (s *RunSink) Flush() error {
	if len(s.buf) == 0 {
		return nil
	}
	if err := s.store.AppendEvents(s.runID, s.next, s.buf); err != nil {
		return err
	}
	s.next += uint64(len(s.buf))
	s.buf = s.buf[:0]
	return nil
}

// Written counts events handed to the store so far.
func (s *RunSink) Written() uint64 { return s.next }
