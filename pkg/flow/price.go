package flow

import (
	"math/rand"

	"github.com/shopspring/decimal"
)

const (
	seedMidMin = 100.0
	seedMidMax = 500.0

	spreadMin = 0.01
	spreadMax = 2.0

	driftMax = 0.5
)

// PriceModel holds one mid price per symbol. Mids follow an unbounded
// random walk; nothing clamps them here.
type PriceModel struct {
	mid map[string]float64
}

// NewPriceModel seeds every symbol's mid uniformly in [100, 500), in
// symbol order so the seed sequence depends only on the rng.
func NewPriceModel(symbols []string, rng *rand.Rand) *PriceModel {
	m := &PriceModel{mid: make(map[string]float64, len(symbols))}
	for _, s := range symbols {
		m.mid[s] = uniform(rng, seedMidMin, seedMidMax)
	}
	return m
}

func (m *PriceModel) Mid(symbol string) float64 { return m.mid[symbol] }

// Drift moves symbol's mid by a uniform step in [-0.5, 0.5].
func (m *PriceModel) Drift(symbol string, rng *rand.Rand) {
	m.mid[symbol] += uniform(rng, -driftMax, driftMax)
}

// Quote returns a limit price offset from the mid by a uniform spread in
// [0.01, 2.0]: below mid for BUY, above for SELL, rounded to cents.
func (m *PriceModel) Quote(symbol string, side Side, rng *rand.Rand) decimal.Decimal {
	spread := uniform(rng, spreadMin, spreadMax)
	p := m.mid[symbol]
	if side == Buy {
		p -= spread
	} else {
		p += spread
	}
	return decimal.NewFromFloat(p).Round(2)
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}
