package feed

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/uhyunpark/orderflow/pkg/flow"
	"github.com/uhyunpark/orderflow/pkg/util"
)

// Config controls the live emission rate.
type Config struct {
	BatchSize int           // events per tick
	Interval  time.Duration // time between ticks
	// StatsEvery logs throughput every N ticks; 0 disables.
	StatsEvery int
}

// DefaultConfig is ~100 events/sec.
func DefaultConfig() Config {
	return Config{
		BatchSize:  10,
		Interval:   100 * time.Millisecond,
		StatsEvery: 100,
	}
}

// HighLoadConfig is ~15k events/sec.
func HighLoadConfig() Config {
	return Config{
		BatchSize:  150,
		Interval:   10 * time.Millisecond,
		StatsEvery: 1000,
	}
}

// ConfigForMode maps a mode name to a preset; unknown names get DefaultConfig.
func ConfigForMode(mode string) Config {
	if mode == "high" {
		return HighLoadConfig()
	}
	return DefaultConfig()
}

// Feeder drives a flow.Source into a sink on a fixed cadence. The feeder
// goroutine is the only caller of the source for its lifetime.
type Feeder struct {
	cancel context.CancelFunc
	done   chan struct{}
	total  atomic.Int64
	err    atomic.Value
}

// Start launches the feeder. It stops when ctx is done, Stop is called,
// or the sink returns an error.
func Start(ctx context.Context, src flow.Source, sink flow.Sink, cfg Config, clock util.Clock, logger *zap.SugaredLogger) *Feeder {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	if clock == nil {
		clock = util.RealClock{}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	feedCtx, cancel := context.WithCancel(ctx)
	f := &Feeder{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(f.done)
		startTime := clock.Now()
		ticks := 0

		logger.Infow("feed_started",
			"batch_size", cfg.BatchSize,
			"interval", cfg.Interval)

		for {
			select {
			case <-feedCtx.Done():
				elapsed := clock.Now().Sub(startTime)
				logger.Infow("feed_stopped",
					"events", f.total.Load(),
					"elapsed", elapsed.Round(time.Millisecond))
				return

			case <-clock.After(cfg.Interval):
				n, err := flow.Copy(feedCtx, src, cfg.BatchSize, sink)
				f.total.Add(int64(n))
				if err != nil {
					if feedCtx.Err() == nil {
						f.err.Store(err)
						logger.Warnw("feed_sink_failed", "err", err, "events", f.total.Load())
						cancel()
					}
					continue
				}

				ticks++
				if cfg.StatsEvery > 0 && ticks%cfg.StatsEvery == 0 {
					elapsed := clock.Now().Sub(startTime).Seconds()
					if elapsed <= 0 {
						elapsed = 1
					}
					logger.Infow("feed_stats",
						"events", f.total.Load(),
						"rate_per_sec", float64(f.total.Load())/elapsed)
				}
			}
		}
	}()

	return f
}

// Stop cancels the feeder and waits for its goroutine to exit. It
// returns the number of events delivered.
func (f *Feeder) Stop() int64 {
	f.cancel()
	<-f.done
	return f.total.Load()
}

// Done is closed once the feeder goroutine has exited.
func (f *Feeder) Done() <-chan struct{} { return f.done }

func (f *Feeder) Total() int64 { return f.total.Load() }

// Err returns the sink error that stopped the feeder, if any.
func (f *Feeder) Err() error {
	if err, ok := f.err.Load().(error); ok {
		return err
	}
	return nil
}
