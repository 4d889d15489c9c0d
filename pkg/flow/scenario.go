package flow

import (
	"time"

	"github.com/shopspring/decimal"
)

var crossMid = decimal.NewFromInt(150)

// AggressiveCross builds a deterministic stream that is guaranteed to
// trade: per symbol, five resting levels on each side of 150.00, then a
// BUY and a SELL that each sweep three levels.
func AggressiveCross(symbols []string, start time.Time) ([]Event, error) {
	if err := ValidateSymbols(symbols); err != nil {
		return nil, err
	}

	tick := decimal.New(1, -2)
	now := start
	var id uint64
	var events []Event

	emit := func(symbol string, side Side, price decimal.Decimal, qty int64, step time.Duration) {
		id++
		events = append(events, Event{
			Timestamp: now,
			Action:    ActionNew,
			OrderID:   id,
			Symbol:    symbol,
			Terms:     &Terms{Side: side, Price: price, Quantity: qty, Type: Limit},
		})
		now = now.Add(step)
	}

	for _, sym := range symbols {
		for i := int64(1); i <= 5; i++ {
			offset := tick.Mul(decimal.NewFromInt(i))
			emit(sym, Buy, crossMid.Sub(offset), 100*i, time.Millisecond)
			emit(sym, Sell, crossMid.Add(offset), 100*i, time.Millisecond)
		}
		sweep := tick.Mul(decimal.NewFromInt(3))
		emit(sym, Buy, crossMid.Add(sweep), 250, 10*time.Millisecond)
		emit(sym, Sell, crossMid.Sub(sweep), 250, 10*time.Millisecond)
	}
	return events, nil
}
