package feed

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/uhyunpark/orderflow/pkg/flow"
	"github.com/uhyunpark/orderflow/pkg/util"
)

func newGenerator(t *testing.T) *flow.Generator {
	t.Helper()
	g, err := flow.New(flow.Config{Symbols: []string{"BTC-USD", "ETH-USD"}}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	return g
}

func TestFeeder_StreamsValidEventsUntilStopped(t *testing.T) {
	g := newGenerator(t)
	v := flow.NewValidator()
	reached := make(chan struct{})
	seen := 0

	sink := flow.SinkFunc(func(ev flow.Event) error {
		if err := v.Check(ev); err != nil {
			return err
		}
		seen++
		if seen == 500 {
			close(reached)
		}
		return nil
	})

	cfg := Config{BatchSize: 25, Interval: time.Second, StatsEvery: 5}
	f := Start(context.Background(), g, sink, cfg, util.StepClock{At: time.Now()}, nil)

	select {
	case <-reached:
	case <-time.After(5 * time.Second):
		t.Fatal("feeder did not deliver 500 events")
	}

	total := f.Stop()
	require.NoError(t, f.Err())
	require.GreaterOrEqual(t, total, int64(500))
	require.Equal(t, int(total), v.Events())
	require.Equal(t, g.Stats().Events, v.Events())
}

func TestFeeder_StopsOnSinkError(t *testing.T) {
	boom := errors.New("client gone")
	n := 0
	sink := flow.SinkFunc(func(flow.Event) error {
		if n == 30 {
			return boom
		}
		n++
		return nil
	})

	f := Start(context.Background(), newGenerator(t), sink, Config{BatchSize: 7, Interval: time.Second}, util.StepClock{}, nil)

	select {
	case <-f.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("feeder kept running after sink error")
	}
	require.ErrorIs(t, f.Err(), boom)
	require.Equal(t, int64(30), f.Total())
}

func TestFeeder_ParentContextCancels(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := Start(ctx, newGenerator(t), flow.SinkFunc(func(flow.Event) error { return nil }),
		DefaultConfig(), util.StepClock{}, nil)
	cancel()

	select {
	case <-f.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("feeder ignored parent cancellation")
	}
}

func TestConfigForMode(t *testing.T) {
	require.Equal(t, HighLoadConfig(), ConfigForMode("high"))
	require.Equal(t, DefaultConfig(), ConfigForMode("default"))
	require.Equal(t, DefaultConfig(), ConfigForMode("bogus"))
}
