package marketdata

import (
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"github.com/uhyunpark/orderflow/pkg/flow"
)

// WalkConfig bounds the random-walk price model.
type WalkConfig struct {
	Symbol    string
	Start     time.Time
	StartMid  float64
	Floor     float64
	Ceiling   float64
	MaxStep   float64 // per-event mid move, uniform in [-MaxStep, MaxStep]
	MinSpread float64
	MaxSpread float64
	LimitProb float64
	Lots      []int64
	MinGapMs  int
	MaxGapMs  int
}

func DefaultWalkConfig(symbol string) WalkConfig {
	return WalkConfig{
		Symbol:    symbol,
		StartMid:  150.00,
		Floor:     100.0,
		Ceiling:   200.0,
		MaxStep:   0.10,
		MinSpread: 0.01,
		MaxSpread: 0.10,
		LimitProb: 0.8,
		Lots:      []int64{100, 200, 500, 1000, 2000, 5000},
		MinGapMs:  1,
		MaxGapMs:  100,
	}
}

// RandomWalk emits NEW orders around a mid that wanders inside
// [Floor, Ceiling]. Unlike flow.Generator it keeps no live set and never
// cancels. Not safe for concurrent use.
type RandomWalk struct {
	cfg    WalkConfig
	rng    *rand.Rand
	mid    float64
	now    time.Time
	lastID uint64
}

func NewRandomWalk(cfg WalkConfig, rng *rand.Rand) (*RandomWalk, error) {
	if err := flow.ValidateSymbols([]string{cfg.Symbol}); err != nil {
		return nil, err
	}
	if len(cfg.Lots) == 0 {
		cfg.Lots = DefaultWalkConfig(cfg.Symbol).Lots
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if cfg.Start.IsZero() {
		cfg.Start = time.Now()
	}
	return &RandomWalk{cfg: cfg, rng: rng, mid: cfg.StartMid, now: cfg.Start}, nil
}

func (w *RandomWalk) Mid() float64 { return w.mid }

func (w *RandomWalk) Next() flow.Event {
	w.mid += w.uniform(-w.cfg.MaxStep, w.cfg.MaxStep)
	w.mid = max(w.cfg.Floor, min(w.cfg.Ceiling, w.mid))

	typ := flow.Market
	if w.rng.Float64() < w.cfg.LimitProb {
		typ = flow.Limit
	}
	side := flow.Buy
	if w.rng.Float64() >= 0.5 {
		side = flow.Sell
	}

	terms := flow.Terms{Side: side, Type: typ}
	if typ == flow.Limit {
		spread := w.uniform(w.cfg.MinSpread, w.cfg.MaxSpread)
		p := w.mid + spread
		if side == flow.Buy {
			p = w.mid - spread
		}
		terms.Price = decimal.NewFromFloat(p).Round(2)
	}
	terms.Quantity = w.cfg.Lots[w.rng.Intn(len(w.cfg.Lots))]

	w.lastID++
	gap := w.cfg.MinGapMs
	if w.cfg.MaxGapMs > w.cfg.MinGapMs {
		gap += w.rng.Intn(w.cfg.MaxGapMs - w.cfg.MinGapMs + 1)
	}
	w.now = w.now.Add(time.Duration(gap) * time.Millisecond)

	return flow.Event{
		Timestamp: w.now,
		Action:    flow.ActionNew,
		OrderID:   w.lastID,
		Symbol:    w.cfg.Symbol,
		Terms:     &terms,
	}
}

func (w *RandomWalk) uniform(lo, hi float64) float64 {
	return lo + w.rng.Float64()*(hi-lo)
}
