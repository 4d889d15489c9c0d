package flow

import (
	"context"
	"encoding/hex"
	"fmt"
	"hash"
	"math/rand"
	"strings"
	"time"

	"golang.org/x/crypto/sha3"
)

// Policy tunes action selection. Each step draws one uniform roll r:
//
//	live < MinLive or r < NewBelow   -> NEW
//	r < CancelBelow and live > 0     -> CANCEL
//	live > 0                         -> REPLACE
//	otherwise                        -> NEW
//
// With an empty registry only NEW is reachable.
type Policy struct {
	MinLive     int
	NewBelow    float64
	CancelBelow float64
	LimitProb   float64 // share of NEW orders that are LIMIT
	MinQty      int64
	MaxQty      int64
	DriftEvery  int // drift the acting symbol when index%DriftEvery == 0
	MinStepMs   int
	MaxStepMs   int
}

func DefaultPolicy() Policy {
	return Policy{
		MinLive:     10,
		NewBelow:    0.6,
		CancelBelow: 0.9,
		LimitProb:   0.8,
		MinQty:      10,
		MaxQty:      1000,
		DriftEvery:  100,
		MinStepMs:   1,
		MaxStepMs:   10,
	}
}

func (p Policy) validate() error {
	switch {
	case p.MinLive < 0:
		return fmt.Errorf("%w: MinLive %d", ErrInvalidPolicy, p.MinLive)
	case p.NewBelow < 0 || p.NewBelow > 1 || p.CancelBelow < 0 || p.CancelBelow > 1:
		return fmt.Errorf("%w: thresholds %.2f/%.2f", ErrInvalidPolicy, p.NewBelow, p.CancelBelow)
	case p.LimitProb < 0 || p.LimitProb > 1:
		return fmt.Errorf("%w: LimitProb %.2f", ErrInvalidPolicy, p.LimitProb)
	case p.MinQty < 1 || p.MaxQty < p.MinQty:
		return fmt.Errorf("%w: quantity range [%d, %d]", ErrInvalidPolicy, p.MinQty, p.MaxQty)
	case p.DriftEvery < 1:
		return fmt.Errorf("%w: DriftEvery %d", ErrInvalidPolicy, p.DriftEvery)
	case p.MinStepMs < 0 || p.MaxStepMs < p.MinStepMs:
		return fmt.Errorf("%w: clock step [%d, %d]", ErrInvalidPolicy, p.MinStepMs, p.MaxStepMs)
	}
	return nil
}

type Config struct {
	Symbols []string
	// Start stamps the first event. Zero means time.Now().
	Start time.Time
	// Policy zero value means DefaultPolicy().
	Policy Policy
}

// Generator produces a live-order NEW/CANCEL/REPLACE stream.
//
// A Generator owns its registry, price model, clock and rng. It must not
// be used from more than one goroutine at a time; independent generators
// share nothing and can run in parallel.
type Generator struct {
	symbols []string
	policy  Policy
	rng     *rand.Rand

	live   *Registry
	prices *PriceModel
	clock  *EventClock

	lastID uint64
	index  int
	stats  Stats
	digest hash.Hash
}

// Stats are cumulative over the generator's lifetime.
type Stats struct {
	Events     int    `json:"events"`
	News       int    `json:"news"`
	Cancels    int    `json:"cancels"`
	Replaces   int    `json:"replaces"`
	LiveOrders int    `json:"liveOrders"`
	Digest     string `json:"digest"`
}

// New validates cfg and seeds the price model. rng nil means a
// wall-clock seeded source.
func New(cfg Config, rng *rand.Rand) (*Generator, error) {
	if err := ValidateSymbols(cfg.Symbols); err != nil {
		return nil, err
	}
	policy := cfg.Policy
	if policy == (Policy{}) {
		policy = DefaultPolicy()
	}
	if err := policy.validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	start := cfg.Start
	if start.IsZero() {
		start = time.Now()
	}

	symbols := append([]string(nil), cfg.Symbols...)
	return &Generator{
		symbols: symbols,
		policy:  policy,
		rng:     rng,
		live:    NewRegistry(),
		prices:  NewPriceModel(symbols, rng),
		clock:   NewEventClock(start, policy.MinStepMs, policy.MaxStepMs),
		digest:  sha3.New256(),
	}, nil
}

// ValidateSymbols rejects empty, blank or duplicated symbol sets.
func ValidateSymbols(symbols []string) error {
	if len(symbols) == 0 {
		return ErrNoSymbols
	}
	seen := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		if strings.TrimSpace(s) == "" {
			return ErrEmptySymbol
		}
		if _, ok := seen[s]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateSymbol, s)
		}
		seen[s] = struct{}{}
	}
	return nil
}

// Next emits one event. It never fails: CANCEL and REPLACE fall back to
// NEW when no order is live.
func (g *Generator) Next() Event {
	symbol := g.symbols[g.rng.Intn(len(g.symbols))]

	var ev Event
	switch g.chooseAction() {
	case ActionCancel:
		id, sym, _ := g.live.Pick(g.rng)
		g.live.Remove(id)
		ev = Event{Action: ActionCancel, OrderID: id, Symbol: sym}
		g.stats.Cancels++

	case ActionReplace:
		id, sym, _ := g.live.Pick(g.rng)
		terms := g.terms(sym, Limit)
		ev = Event{Action: ActionReplace, OrderID: id, Symbol: sym, Terms: &terms}
		g.stats.Replaces++

	default:
		typ := Market
		if g.rng.Float64() < g.policy.LimitProb {
			typ = Limit
		}
		terms := g.terms(symbol, typ)
		g.lastID++
		g.live.Add(g.lastID, symbol)
		ev = Event{Action: ActionNew, OrderID: g.lastID, Symbol: symbol, Terms: &terms}
		g.stats.News++
	}

	if g.index%g.policy.DriftEvery == 0 {
		g.prices.Drift(ev.Symbol, g.rng)
	}

	ev.Timestamp = g.clock.Now()
	g.clock.Advance(g.rng)

	g.index++
	g.stats.Events++
	g.stats.LiveOrders = g.live.Len()
	for _, f := range Record(ev) {
		g.digest.Write([]byte(f))
		g.digest.Write([]byte{','})
	}
	g.digest.Write([]byte{'\n'})
	return ev
}

func (g *Generator) chooseAction() Action {
	n := g.live.Len()
	r := g.rng.Float64()
	switch {
	case n < g.policy.MinLive || r < g.policy.NewBelow:
		return ActionNew
	case r < g.policy.CancelBelow && n > 0:
		return ActionCancel
	case n > 0:
		return ActionReplace
	}
	return ActionNew
}

func (g *Generator) terms(symbol string, typ OrderType) Terms {
	side := Buy
	if g.rng.Intn(2) == 1 {
		side = Sell
	}
	t := Terms{Side: side, Type: typ}
	if typ == Limit {
		t.Price = g.prices.Quote(symbol, side, g.rng)
	}
	t.Quantity = g.policy.MinQty + g.rng.Int63n(g.policy.MaxQty-g.policy.MinQty+1)
	return t
}

// Run streams exactly count events into sink and returns the cumulative
// stats. A sink error or a cancelled ctx stops the run early.
func (g *Generator) Run(ctx context.Context, count int, sink Sink) (Stats, error) {
	if count < 0 {
		return g.Stats(), fmt.Errorf("%w: %d", ErrNegativeCount, count)
	}
	_, err := Copy(ctx, g, count, sink)
	return g.Stats(), err
}

func (g *Generator) Stats() Stats {
	s := g.stats
	s.Digest = hex.EncodeToString(g.digest.Sum(nil))
	return s
}

// LiveIDs returns the ids currently live, ascending.
func (g *Generator) LiveIDs() []uint64 { return g.live.IDs() }

func (g *Generator) Symbols() []string { return append([]string(nil), g.symbols...) }
