package marketdata

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/uhyunpark/orderflow/pkg/flow"
)

// ErrNoData means the source has no bars for the symbol (bad symbol,
// market closed, empty file).
var ErrNoData = errors.New("marketdata: no data")

// Bar is one OHLCV bucket.
type Bar struct {
	Time   time.Time
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume int64
}

// BarSource returns a finite, time-ordered bar sequence for a symbol.
type BarSource interface {
	Bars(ctx context.Context, symbol string) ([]Bar, error)
}

// CSVSource reads <Dir>/<SYMBOL>.csv with the columns
// time,open,high,low,close,volume where time is unix milliseconds.
type CSVSource struct {
	Dir string
}

func (s CSVSource) Bars(ctx context.Context, symbol string) ([]Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := filepath.Join(s.Dir, symbol+".csv")
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoData, symbol)
		}
		return nil, err
	}
	defer f.Close()

	bars, err := ReadBars(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoData, symbol)
	}
	return bars, nil
}

// ReadBars parses bar rows after a header line.
func ReadBars(r io.Reader) ([]Bar, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 6
	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}

	var bars []Bar
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return bars, nil
		}
		if err != nil {
			return nil, err
		}
		b, err := parseBar(rec)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		bars = append(bars, b)
	}
}

func parseBar(rec []string) (Bar, error) {
	ms, err := strconv.ParseInt(rec[0], 10, 64)
	if err != nil {
		return Bar{}, fmt.Errorf("time %q: %w", rec[0], err)
	}
	var px [4]decimal.Decimal
	for i := range px {
		if px[i], err = decimal.NewFromString(rec[i+1]); err != nil {
			return Bar{}, fmt.Errorf("price %q: %w", rec[i+1], err)
		}
	}
	vol, err := strconv.ParseInt(rec[5], 10, 64)
	if err != nil {
		return Bar{}, fmt.Errorf("volume %q: %w", rec[5], err)
	}
	return Bar{
		Time:   time.UnixMilli(ms),
		Open:   px[0],
		High:   px[1],
		Low:    px[2],
		Close:  px[3],
		Volume: vol,
	}, nil
}

// BarsToEvents turns every bar into a NEW BUY LIMIT at the low and a NEW
// SELL LIMIT at the high, both sized volume/divisor (at least 1) and
// stamped with the bar time. Ids run from firstID.
func BarsToEvents(symbol string, bars []Bar, divisor int64, firstID uint64) []flow.Event {
	if divisor < 1 {
		divisor = 1
	}
	events := make([]flow.Event, 0, 2*len(bars))
	id := firstID
	for _, b := range bars {
		qty := b.Volume / divisor
		if qty < 1 {
			qty = 1
		}
		for _, leg := range []struct {
			side  flow.Side
			price decimal.Decimal
		}{{flow.Buy, b.Low}, {flow.Sell, b.High}} {
			events = append(events, flow.Event{
				Timestamp: b.Time,
				Action:    flow.ActionNew,
				OrderID:   id,
				Symbol:    symbol,
				Terms:     &flow.Terms{Side: leg.side, Price: leg.price.Round(2), Quantity: qty, Type: flow.Limit},
			})
			id++
		}
	}
	return events
}
