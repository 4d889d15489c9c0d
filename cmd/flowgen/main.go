package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/uhyunpark/orderflow/params"
	"github.com/uhyunpark/orderflow/pkg/flow"
	"github.com/uhyunpark/orderflow/pkg/marketdata"
	"github.com/uhyunpark/orderflow/pkg/runner"
	"github.com/uhyunpark/orderflow/pkg/storage"
	"github.com/uhyunpark/orderflow/pkg/util"
)

type options struct {
	request   runner.Request
	barsDir   string
	output    string
	storePath string
}

func main() {
	// Flags default to FLOW_* from the environment / .env
	cfg := params.LoadFromEnv("")

	symbols := flag.String("symbols", strings.Join(cfg.Generator.Symbols, ","), "comma separated symbol list")
	count := flag.Int("count", cfg.Generator.Count, "number of events to generate")
	seed := flag.Int64("seed", cfg.Generator.Seed, "random seed (0 seeds from the wall clock)")
	output := flag.String("output", cfg.Generator.Output, `output CSV path ("-" for stdout)`)
	mode := flag.String("mode", cfg.Generator.Mode, "realistic|aggressive|walk|bars")
	barsDir := flag.String("bars-dir", cfg.Generator.BarsDir, "directory of <SYMBOL>.csv bar files (bars mode)")
	storePath := flag.String("store", cfg.Store.Path, "pebble directory to persist the run (empty disables)")
	flag.Parse()

	logger, err := util.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := options{
		request: runner.Request{
			Mode:    runner.Mode(*mode),
			Symbols: params.SplitSymbols(*symbols),
			Count:   *count,
			Seed:    params.SeedOrNow(*seed),
		},
		barsDir:   *barsDir,
		output:    *output,
		storePath: *storePath,
	}
	if err := run(ctx, opts, logger.Sugar()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, sugar *zap.SugaredLogger) error {
	req := opts.request
	if req.Mode == runner.ModeBars {
		req.Bars = marketdata.CSVSource{Dir: opts.barsDir}
	}

	// Everything is validated before the output file exists
	prepared, err := runner.Prepare(ctx, req)
	if err != nil {
		return err
	}

	var store storage.RunStore
	if opts.storePath != "" {
		ps, err := storage.NewPebbleStore(opts.storePath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer ps.Close()
		store = ps
	}

	var out io.Writer = os.Stdout
	if opts.output != "-" {
		f, err := os.Create(opts.output)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	bw := bufio.NewWriter(out)
	w := flow.NewCSVWriter(bw)
	rec, err := prepared.Run(ctx, w, store, sugar)
	if err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}

	// Keep stdout clean when it carries the CSV
	report := os.Stdout
	if opts.output == "-" {
		report = os.Stderr
	}
	fmt.Fprintf(report, "Wrote %d events to %s\n", rec.Stats.Events, opts.output)
	fmt.Fprintf(report, "Live orders at end: %d\n", rec.Stats.LiveOrders)
	return nil
}
