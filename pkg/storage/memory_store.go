package storage

import (
	"fmt"
	"sort"
	"sync"

	"github.com/uhyunpark/orderflow/pkg/flow"
)

// InMemoryRunStore keeps runs in process memory. Used when no store path
// is configured, and in tests.
type InMemoryRunStore struct {
	mu     sync.Mutex
	runs   map[string]RunRecord
	events map[string][]flow.Event
}

func NewInMemoryRunStore() *InMemoryRunStore {
	return &InMemoryRunStore{
		runs:   make(map[string]RunRecord),
		events: make(map[string][]flow.Event),
	}
}

func (s *InMemoryRunStore) SaveRun(rec RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.Symbols = append([]string(nil), rec.Symbols...)
	s.runs[rec.ID] = rec
	return nil
}

func (s *InMemoryRunStore) LoadRun(id string) (RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.runs[id]
	if !ok {
		return RunRecord{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return rec, nil
}

func (s *InMemoryRunStore) ListRuns() ([]RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	runs := make([]RunRecord, 0, len(s.runs))
	for _, r := range s.runs {
		runs = append(runs, r)
	}
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].CreatedAt.After(runs[j].CreatedAt) })
	return runs, nil
}

func (s *InMemoryRunStore) AppendEvents(runID string, from uint64, events []flow.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	have := uint64(len(s.events[runID]))
	if from != have {
		return fmt.Errorf("append at %d, run %s has %d events", from, runID, have)
	}
	s.events[runID] = append(s.events[runID], events...)
	return nil
}

func (s *InMemoryRunStore) LoadEvents(runID string, offset, limit int) ([]flow.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.events[runID]
	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return nil, nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return append([]flow.Event(nil), all[offset:end]...), nil
}

var _ RunStore = (*InMemoryRunStore)(nil)
