package flow

import (
	"bytes"
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2024, 3, 1, 9, 30, 0, 0, time.Local)

func newTestGenerator(t *testing.T, seed int64, symbols ...string) *Generator {
	t.Helper()
	g, err := New(Config{Symbols: symbols, Start: testStart}, rand.New(rand.NewSource(seed)))
	require.NoError(t, err)
	return g
}

func collect(g *Generator, n int) []Event {
	out := make([]Event, n)
	for i := range out {
		out[i] = g.Next()
	}
	return out
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	bad := DefaultPolicy()
	bad.MaxQty = 1

	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{"no symbols", Config{}, ErrNoSymbols},
		{"blank symbol", Config{Symbols: []string{"AAPL", " "}}, ErrEmptySymbol},
		{"duplicate symbol", Config{Symbols: []string{"AAPL", "AAPL"}}, ErrDuplicateSymbol},
		{"bad quantity range", Config{Symbols: []string{"AAPL"}, Policy: bad}, ErrInvalidPolicy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg, rand.New(rand.NewSource(1)))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("New() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestGenerator_SingleSymbolScenario(t *testing.T) {
	g := newTestGenerator(t, 42, "AAPL")

	events := collect(g, 20)

	first := events[0]
	require.Equal(t, ActionNew, first.Action)
	require.Equal(t, "AAPL", first.Symbol)
	require.Equal(t, uint64(1), first.OrderID)
	require.True(t, first.Timestamp.Equal(testStart), "first event must carry the start time")

	stats := g.Stats()
	require.Equal(t, 20, stats.Events)
	require.LessOrEqual(t, stats.LiveOrders, stats.News)
	// fewer than 10 live orders exist for the first 10 steps, so all of them are NEW
	for i := 0; i < 10; i++ {
		require.Equal(t, ActionNew, events[i].Action, "event %d", i)
	}
}

func TestGenerator_CountZeroIsHeaderOnly(t *testing.T) {
	g := newTestGenerator(t, 1, "AAPL")
	var buf bytes.Buffer
	w := NewCSVWriter(&buf)

	stats, err := g.Run(context.Background(), 0, w)
	require.NoError(t, err)
	require.NoError(t, w.Flush())

	require.Equal(t, 0, stats.Events)
	require.Equal(t, strings.Join(Header, ",")+"\n", buf.String())
}

func TestGenerator_CountExact(t *testing.T) {
	for _, n := range []int{1, 9, 10, 11, 250, 2000} {
		g := newTestGenerator(t, int64(n), "AAPL", "MSFT")
		var buf bytes.Buffer
		w := NewCSVWriter(&buf)

		_, err := g.Run(context.Background(), n, w)
		require.NoError(t, err)
		require.NoError(t, w.Flush())

		lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
		require.Len(t, lines, n+1, "count %d", n)
		require.Equal(t, n, w.Rows())
	}
}

func TestGenerator_EmptyRegistryFallsBackToNew(t *testing.T) {
	tests := []struct {
		name     string
		policy   Policy
		whenLive Action // expected whenever at least one order is live
	}{
		{
			name:     "cancel branch forced",
			policy:   Policy{MinLive: 0, NewBelow: 0, CancelBelow: 1, LimitProb: 1, MinQty: 10, MaxQty: 1000, DriftEvery: 100, MinStepMs: 1, MaxStepMs: 10},
			whenLive: ActionCancel,
		},
		{
			name:     "replace branch forced",
			policy:   Policy{MinLive: 0, NewBelow: 0, CancelBelow: 0, LimitProb: 1, MinQty: 10, MaxQty: 1000, DriftEvery: 100, MinStepMs: 1, MaxStepMs: 10},
			whenLive: ActionReplace,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := New(Config{Symbols: []string{"AAPL"}, Start: testStart, Policy: tt.policy}, rand.New(rand.NewSource(3)))
			require.NoError(t, err)

			v := NewValidator()
			for i := 0; i < 200; i++ {
				liveBefore := g.live.Len()
				ev := g.Next()
				require.NoError(t, v.Check(ev))
				if liveBefore == 0 {
					require.Equal(t, ActionNew, ev.Action, "event %d with empty registry", i)
				} else {
					require.Equal(t, tt.whenLive, ev.Action, "event %d with %d live", i, liveBefore)
				}
			}
		})
	}
}

func TestGenerator_DeterministicForSeed(t *testing.T) {
	a := newTestGenerator(t, 7, "AAPL", "MSFT", "GOOGL")
	b := newTestGenerator(t, 7, "AAPL", "MSFT", "GOOGL")
	c := newTestGenerator(t, 8, "AAPL", "MSFT", "GOOGL")

	ea, eb := collect(a, 1000), collect(b, 1000)
	collect(c, 1000)

	for i := range ea {
		if strings.Join(Record(ea[i]), ",") != strings.Join(Record(eb[i]), ",") {
			t.Fatalf("event %d differs:\n%v\n%v", i, Record(ea[i]), Record(eb[i]))
		}
	}
	require.Equal(t, a.Stats().Digest, b.Stats().Digest)
	require.NotEqual(t, a.Stats().Digest, c.Stats().Digest)
}

func TestGenerator_ClockMonotonicWithBoundedSteps(t *testing.T) {
	g := newTestGenerator(t, 11, "AAPL")
	events := collect(g, 3000)

	for i := 1; i < len(events); i++ {
		step := events[i].Timestamp.Sub(events[i-1].Timestamp)
		if step < time.Millisecond || step > 10*time.Millisecond {
			t.Fatalf("step %d = %v, want within [1ms, 10ms]", i, step)
		}
	}
}

func TestGenerator_NewIDsConsecutiveFromOne(t *testing.T) {
	g := newTestGenerator(t, 5, "AAPL", "MSFT")
	var want uint64 = 1
	for _, ev := range collect(g, 5000) {
		if ev.Action != ActionNew {
			continue
		}
		if ev.OrderID != want {
			t.Fatalf("NEW id = %d, want %d", ev.OrderID, want)
		}
		want++
	}
}

func TestGenerator_LiveSetMatchesStream(t *testing.T) {
	g := newTestGenerator(t, 99, "AAPL", "MSFT", "GOOGL")
	live := map[uint64]bool{}
	for _, ev := range collect(g, 4000) {
		switch ev.Action {
		case ActionNew:
			live[ev.OrderID] = true
		case ActionCancel:
			delete(live, ev.OrderID)
		}
	}

	ids := g.LiveIDs()
	require.Len(t, ids, len(live))
	for _, id := range ids {
		require.True(t, live[id], "id %d live in registry but cancelled in stream", id)
	}
	require.Equal(t, len(live), g.Stats().LiveOrders)

	s := g.Stats()
	require.Equal(t, s.Events, s.News+s.Cancels+s.Replaces)
	require.Equal(t, s.LiveOrders, s.News-s.Cancels)
}

func TestGenerator_EventShapes(t *testing.T) {
	g := newTestGenerator(t, 2024, "AAPL", "MSFT")
	symbolOf := map[uint64]string{}

	seen := map[Action]int{}
	for i := 0; i < 5000; i++ {
		mids := map[string]float64{"AAPL": g.prices.Mid("AAPL"), "MSFT": g.prices.Mid("MSFT")}
		ev := g.Next()
		seen[ev.Action]++

		switch ev.Action {
		case ActionNew:
			symbolOf[ev.OrderID] = ev.Symbol
		case ActionCancel:
			require.Nil(t, ev.Terms, "CANCEL carries no terms")
			require.Equal(t, symbolOf[ev.OrderID], ev.Symbol)
			continue
		case ActionReplace:
			require.Equal(t, Limit, ev.Terms.Type, "REPLACE is always LIMIT")
			require.Equal(t, symbolOf[ev.OrderID], ev.Symbol)
		}

		terms := ev.Terms
		require.NotNil(t, terms)
		require.GreaterOrEqual(t, terms.Quantity, int64(10))
		require.LessOrEqual(t, terms.Quantity, int64(1000))

		if terms.Type == Market {
			require.True(t, terms.Price.IsZero(), "MARKET price must be 0")
			continue
		}
		require.True(t, terms.Price.Equal(terms.Price.Round(2)), "price %s not in cents", terms.Price)

		mid := decimal.NewFromFloat(mids[ev.Symbol])
		offset, _ := terms.Price.Sub(mid).Abs().Float64()
		if offset < 0.004 || offset > 2.006 {
			t.Fatalf("event %d: price %s is %.4f from mid %s", i, terms.Price, offset, mid)
		}
		if terms.Side == Buy {
			require.True(t, terms.Price.LessThan(mid), "BUY must price below mid")
		} else {
			require.True(t, terms.Price.GreaterThan(mid), "SELL must price above mid")
		}
	}

	require.Positive(t, seen[ActionNew])
	require.Positive(t, seen[ActionCancel])
	require.Positive(t, seen[ActionReplace])
}

func TestGenerator_DriftOnlyEveryHundredEvents(t *testing.T) {
	g := newTestGenerator(t, 17, "AAPL")
	prev := g.prices.Mid("AAPL")

	for i := 0; i < 1000; i++ {
		g.Next()
		mid := g.prices.Mid("AAPL")
		if i%100 == 0 {
			if d := mid - prev; d < -0.5 || d > 0.5 {
				t.Fatalf("event %d: drift %.4f outside [-0.5, 0.5]", i, d)
			}
		} else if mid != prev {
			t.Fatalf("event %d: mid moved from %.4f to %.4f off the drift schedule", i, prev, mid)
		}
		prev = mid
	}
}

func TestGenerator_RunErrors(t *testing.T) {
	t.Run("negative count", func(t *testing.T) {
		g := newTestGenerator(t, 1, "AAPL")
		_, err := g.Run(context.Background(), -1, SinkFunc(func(Event) error { return nil }))
		require.ErrorIs(t, err, ErrNegativeCount)
	})

	t.Run("sink failure stops the run", func(t *testing.T) {
		g := newTestGenerator(t, 1, "AAPL")
		boom := errors.New("disk full")
		written := 0
		stats, err := g.Run(context.Background(), 100, SinkFunc(func(Event) error {
			if written == 5 {
				return boom
			}
			written++
			return nil
		}))
		require.ErrorIs(t, err, boom)
		require.Equal(t, 5, written)
		require.Equal(t, 6, stats.Events)
	})

	t.Run("cancelled context", func(t *testing.T) {
		g := newTestGenerator(t, 1, "AAPL")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := g.Run(ctx, 10, SinkFunc(func(Event) error { return nil }))
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestGenerator_TenThousandEventsStayReferentiallyValid(t *testing.T) {
	g := newTestGenerator(t, 123456, "AAPL", "MSFT", "GOOGL")
	v := NewValidator()

	stats, err := g.Run(context.Background(), 10000, v)
	require.NoError(t, err)
	require.Equal(t, 10000, v.Events())
	require.Equal(t, stats.LiveOrders, v.LiveOrders())
}
