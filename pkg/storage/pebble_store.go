package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/cockroachdb/pebble"

	"github.com/uhyunpark/orderflow/pkg/flow"
)

type PebbleStore struct {
	db *pebble.DB
}

func NewPebbleStore(path string) (*PebbleStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &PebbleStore{db: db}, nil
}
func (s *PebbleStore) Close() error { return s.db.Close() }

// SaveRun persists a run record, overwriting any record with the same id.
func (s *PebbleStore) SaveRun(rec RunRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}
	if err := s.db.Set(runKey(rec.ID), data, pebble.Sync); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

func (s *PebbleStore) LoadRun(id string) (RunRecord, error) {
	data, closer, err := s.db.Get(runKey(id))
	if errors.Is(err, pebble.ErrNotFound) {
		return RunRecord{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return RunRecord{}, fmt.Errorf("failed to get run: %w", err)
	}
	defer closer.Close()

	var rec RunRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return RunRecord{}, fmt.Errorf("failed to unmarshal run: %w", err)
	}
	return rec, nil
}

// ListRuns returns every run, newest first.
func (s *PebbleStore) ListRuns() ([]RunRecord, error) {
	prefix := runPrefix()
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var runs []RunRecord
	for iter.First(); iter.Valid(); iter.Next() {
		var rec RunRecord
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			continue // Skip invalid entries
		}
		runs = append(runs, rec)
	}
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].CreatedAt.After(runs[j].CreatedAt) })
	return runs, iter.Error()
}

// AppendEvents writes events under sequence numbers from, from+1, ... in
// one batch.
func (s *PebbleStore) AppendEvents(runID string, from uint64, events []flow.Event) error {
	batch := s.db.NewBatch()
	defer batch.Close()

	for i, ev := range events {
		val, err := encodeGob(ev)
		if err != nil {
			return fmt.Errorf("encode event %d: %w", from+uint64(i), err)
		}
		if err := batch.Set(eventKey(runID, from+uint64(i)), val, nil); err != nil {
			return err
		}
	}
	if err := batch.Commit(pebble.NoSync); err != nil {
		return fmt.Errorf("failed to append events: %w", err)
	}
	return nil
}

// LoadEvents returns up to limit events of a run starting at offset, in
// emission order. limit <= 0 means no limit.
func (s *PebbleStore) LoadEvents(runID string, offset, limit int) ([]flow.Event, error) {
	prefix := eventPrefix(runID)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: eventKey(runID, uint64(max(offset, 0))),
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var events []flow.Event
	for iter.First(); iter.Valid() && (limit <= 0 || len(events) < limit); iter.Next() {
		var ev flow.Event
		if err := decodeGob(iter.Value(), &ev); err != nil {
			return events, fmt.Errorf("decode event: %w", err)
		}
		events = append(events, ev)
	}
	return events, iter.Error()
}

var _ RunStore = (*PebbleStore)(nil)
