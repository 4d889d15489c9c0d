package runner

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/uhyunpark/orderflow/pkg/flow"
	"github.com/uhyunpark/orderflow/pkg/marketdata"
	"github.com/uhyunpark/orderflow/pkg/storage"
)

type Mode string

const (
	ModeRealistic  Mode = "realistic"
	ModeAggressive Mode = "aggressive"
	ModeWalk       Mode = "walk"
	ModeBars       Mode = "bars"
)

// ErrInvalidRequest wraps every error detected before the first event is
// written.
var ErrInvalidRequest = errors.New("invalid run request")

// BarVolumeDivisor sizes bar-derived orders as volume/100.
const BarVolumeDivisor = 100

type Request struct {
	RunID   string // empty assigns a fresh id
	Mode    Mode   // empty means ModeRealistic
	Symbols []string
	// Count bounds realistic and walk runs. Aggressive and bars runs
	// always emit their full, finite stream.
	Count int
	Seed  int64
	Start time.Time
	Bars  marketdata.BarSource
}

// Prepared is a validated request with its source built but not yet drained.
type Prepared struct {
	Request
	src   flow.Source
	count int
	gen   *flow.Generator
}

// Prepare validates req and builds its source. For bars mode every
// symbol is fetched up front, so a missing symbol aborts the run before
// any output exists.
func Prepare(ctx context.Context, req Request) (*Prepared, error) {
	if req.Mode == "" {
		req.Mode = ModeRealistic
	}
	if req.RunID == "" {
		req.RunID = storage.NewRunID()
	}
	if req.Start.IsZero() {
		req.Start = time.Now()
	}
	invalid := func(err error) error { return fmt.Errorf("%w: %w", ErrInvalidRequest, err) }

	if err := flow.ValidateSymbols(req.Symbols); err != nil {
		return nil, invalid(err)
	}
	if req.Count < 0 {
		return nil, invalid(fmt.Errorf("%w: %d", flow.ErrNegativeCount, req.Count))
	}
	rng := rand.New(rand.NewSource(req.Seed))

	p := &Prepared{Request: req, count: req.Count}
	switch req.Mode {
	case ModeRealistic:
		gen, err := flow.New(flow.Config{Symbols: req.Symbols, Start: req.Start}, rng)
		if err != nil {
			return nil, invalid(err)
		}
		p.src, p.gen = gen, gen

	case ModeAggressive:
		events, err := flow.AggressiveCross(req.Symbols, req.Start)
		if err != nil {
			return nil, invalid(err)
		}
		src := flow.NewSliceSource(events)
		p.src, p.count = src, src.Len()

	case ModeWalk:
		if len(req.Symbols) != 1 {
			return nil, invalid(fmt.Errorf("walk mode takes exactly one symbol, got %d", len(req.Symbols)))
		}
		cfg := marketdata.DefaultWalkConfig(req.Symbols[0])
		cfg.Start = req.Start
		walk, err := marketdata.NewRandomWalk(cfg, rng)
		if err != nil {
			return nil, invalid(err)
		}
		p.src = walk

	case ModeBars:
		if req.Bars == nil {
			return nil, invalid(errors.New("bars mode needs a bar source"))
		}
		events, err := barEvents(ctx, req.Bars, req.Symbols)
		if err != nil {
			return nil, invalid(err)
		}
		src := flow.NewSliceSource(events)
		p.src, p.count = src, src.Len()

	default:
		return nil, invalid(fmt.Errorf("unknown mode %q", req.Mode))
	}
	return p, nil
}

// barEvents merges every symbol's bar orders into one time-ordered
// stream and renumbers ids from 1 in emission order.
func barEvents(ctx context.Context, src marketdata.BarSource, symbols []string) ([]flow.Event, error) {
	var all []flow.Event
	for _, sym := range symbols {
		bars, err := src.Bars(ctx, sym)
		if err != nil {
			return nil, err
		}
		all = append(all, marketdata.BarsToEvents(sym, bars, BarVolumeDivisor, 1)...)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Timestamp.Before(all[j].Timestamp) })
	for i := range all {
		all[i].OrderID = uint64(i + 1)
	}
	return all, nil
}

// Count is the number of events Run will emit.
func (p *Prepared) Count() int { return p.count }

// Run drains the source into sink. When store is non-nil the events and
// a RunRecord are persisted under p.RunID.
func (p *Prepared) Run(ctx context.Context, sink flow.Sink, store storage.RunStore, logger *zap.SugaredLogger) (storage.RunRecord, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	rec := storage.RunRecord{
		ID:        p.RunID,
		Mode:      string(p.Mode),
		Symbols:   p.Symbols,
		Seed:      p.Seed,
		Requested: p.count,
		CreatedAt: time.Now().UTC(),
	}

	var runSink *storage.RunSink
	if store != nil {
		runSink = storage.NewRunSink(store, p.RunID, 0)
		sink = flow.MultiSink(sink, runSink)
	}

	logger.Infow("run_started",
		"run_id", p.RunID,
		"mode", p.Mode,
		"symbols", p.Symbols,
		"count", p.count,
		"seed", p.Seed)

	n, err := flow.Copy(ctx, p.src, p.count, sink)
	if err == nil && runSink != nil {
		err = runSink.Flush()
	}

	if p.gen != nil {
		rec.Stats = p.gen.Stats()
	} else {
		// only the generator emits CANCEL, so every other event is a live NEW
		rec.Stats = flow.Stats{Events: n, News: n, LiveOrders: n}
	}
	if err != nil {
		logger.Warnw("run_failed", "run_id", p.RunID, "events", n, "err", err)
		return rec, err
	}

	if store != nil {
		if err := store.SaveRun(rec); err != nil {
			return rec, fmt.Errorf("save run %s: %w", p.RunID, err)
		}
	}
	logger.Infow("run_finished",
		"run_id", p.RunID,
		"events", rec.Stats.Events,
		"live_orders", rec.Stats.LiveOrders,
		"digest", rec.Stats.Digest)
	return rec, nil
}

// Execute is Prepare followed by Run.
func Execute(ctx context.Context, req Request, sink flow.Sink, store storage.RunStore, logger *zap.SugaredLogger) (storage.RunRecord, error) {
	p, err := Prepare(ctx, req)
	if err != nil {
		return storage.RunRecord{}, err
	}
	return p.Run(ctx, sink, store, logger)
}
