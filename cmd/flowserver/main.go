package main

import (
	"context"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/uhyunpark/orderflow/params"
	"github.com/uhyunpark/orderflow/pkg/api"
	"github.com/uhyunpark/orderflow/pkg/feed"
	"github.com/uhyunpark/orderflow/pkg/flow"
	"github.com/uhyunpark/orderflow/pkg/storage"
	"github.com/uhyunpark/orderflow/pkg/util"
)

func main() {
	// Load config from .env file and environment variables
	cfg := params.LoadFromEnv("") // "" means load from .env in current directory

	// Setup logging (write to both console and file)
	logger, err := util.NewLoggerWithFile(cfg.LogFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", cfg.LogFile)

	// ---- Run store ----
	var store storage.RunStore
	if cfg.Store.Path != "" {
		ps, err := storage.NewPebbleStore(cfg.Store.Path)
		if err != nil {
			sugar.Fatalw("store_open_failed", "path", cfg.Store.Path, "err", err)
		}
		defer ps.Close()
		store = ps
		sugar.Infow("store_opened", "backend", "pebble", "path", cfg.Store.Path)
	} else {
		store = storage.NewInMemoryRunStore()
		sugar.Info("store_opened - in-memory, runs are lost on exit")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- API Server ----
	apiServer := api.NewServer(store, api.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         sugar,
	})

	// ---- Live Feed (optional) ----
	// Enable with: ENABLE_FEED=true FEED_MODE=default|high
	if cfg.Server.EnableFeed {
		seed := params.SeedOrNow(cfg.Generator.Seed)
		gen, err := flow.New(flow.Config{Symbols: cfg.Generator.Symbols, Start: time.Now()}, rand.New(rand.NewSource(seed)))
		if err != nil {
			sugar.Fatalw("feed_config_invalid", "err", err)
		}
		feedCfg := feed.ConfigForMode(cfg.Server.FeedMode)
		sugar.Infow("feed_enabled",
			"mode", cfg.Server.FeedMode,
			"symbols", cfg.Generator.Symbols,
			"seed", seed,
			"batch_size", feedCfg.BatchSize,
			"interval", feedCfg.Interval)

		feeder := feed.Start(ctx, gen, apiServer.EventSink(), feedCfg, util.RealClock{}, sugar)
		defer feeder.Stop()
	} else {
		sugar.Info("feed_disabled - websocket clients receive no live events")
	}

	if err := apiServer.Start(ctx, cfg.Server.Addr); err != nil {
		sugar.Errorw("api_server_failed", "err", err)
		return
	}
	sugar.Info("api_server_stopped")
}
