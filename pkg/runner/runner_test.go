package runner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/uhyunpark/orderflow/pkg/flow"
	"github.com/uhyunpark/orderflow/pkg/marketdata"
	"github.com/uhyunpark/orderflow/pkg/storage"
)

var start = time.Date(2024, 3, 1, 9, 30, 0, 0, time.Local)

func TestPrepare_RejectsInvalidRequests(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		wantErr error
	}{
		{"no symbols", Request{Count: 5}, flow.ErrNoSymbols},
		{"negative count", Request{Symbols: []string{"AAPL"}, Count: -1}, flow.ErrNegativeCount},
		{"unknown mode", Request{Mode: "chaos", Symbols: []string{"AAPL"}}, ErrInvalidRequest},
		{"walk with two symbols", Request{Mode: ModeWalk, Symbols: []string{"AAPL", "MSFT"}}, ErrInvalidRequest},
		{"bars without source", Request{Mode: ModeBars, Symbols: []string{"AAPL"}}, ErrInvalidRequest},
		{"bars with missing symbol", Request{Mode: ModeBars, Symbols: []string{"AAPL"}, Bars: marketdata.CSVSource{Dir: "/nonexistent"}}, marketdata.ErrNoData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Prepare(context.Background(), tt.req)
			require.ErrorIs(t, err, tt.wantErr)
			require.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
}

func TestExecute_Modes(t *testing.T) {
	dir := t.TempDir()
	bars := "time,open,high,low,close,volume\n1709285400000,1,2,0.5,1.5,1000\n1709285460000,1,2,0.5,1.5,1000\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "AAPL.csv"), []byte(bars), 0o644))
	// MSFT's bar falls between AAPL's two, exercising the merge
	require.NoError(t, os.WriteFile(filepath.Join(dir, "MSFT.csv"),
		[]byte("time,open,high,low,close,volume\n1709285430000,3,4,2.5,3.5,500\n"), 0o644))

	tests := []struct {
		name       string
		req        Request
		wantEvents int
	}{
		{"realistic", Request{Symbols: []string{"AAPL", "MSFT"}, Count: 750, Seed: 3}, 750},
		{"realistic empty", Request{Symbols: []string{"AAPL"}, Count: 0, Seed: 3}, 0},
		{"aggressive", Request{Mode: ModeAggressive, Symbols: []string{"AAPL", "MSFT"}}, 24},
		{"walk", Request{Mode: ModeWalk, Symbols: []string{"AAPL"}, Count: 300, Seed: 9}, 300},
		{"bars", Request{Mode: ModeBars, Symbols: []string{"AAPL", "MSFT"}, Bars: marketdata.CSVSource{Dir: dir}}, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.Start = start
			store := storage.NewInMemoryRunStore()
			var buf bytes.Buffer
			w := flow.NewCSVWriter(&buf)

			rec, err := Execute(context.Background(), tt.req, w, store, nil)
			require.NoError(t, err)
			require.NoError(t, w.Flush())
			require.Equal(t, tt.wantEvents, rec.Stats.Events)

			v, err := flow.ValidateCSV(&buf, time.Local)
			require.NoError(t, err)
			require.Equal(t, tt.wantEvents, v.Events())
			require.Equal(t, rec.Stats.LiveOrders, v.LiveOrders())

			saved, err := store.LoadRun(rec.ID)
			require.NoError(t, err)
			require.Equal(t, rec.Stats, saved.Stats)

			stored, err := store.LoadEvents(rec.ID, 0, 0)
			require.NoError(t, err)
			require.Len(t, stored, tt.wantEvents)
		})
	}
}

func TestExecute_SameSeedSameDigest(t *testing.T) {
	run := func() string {
		rec, err := Execute(context.Background(),
			Request{Symbols: []string{"AAPL"}, Count: 500, Seed: 77, Start: start},
			flow.SinkFunc(func(flow.Event) error { return nil }), nil, nil)
		require.NoError(t, err)
		return rec.Stats.Digest
	}
	require.Equal(t, run(), run())
}

func TestExecute_SinkFailureSkipsRunRecord(t *testing.T) {
	store := storage.NewInMemoryRunStore()
	boom := errors.New("broken pipe")
	rec, err := Execute(context.Background(),
		Request{Symbols: []string{"AAPL"}, Count: 100, Seed: 1, Start: start},
		flow.SinkFunc(func(flow.Event) error { return boom }), store, nil)

	require.ErrorIs(t, err, boom)
	_, err = store.LoadRun(rec.ID)
	require.ErrorIs(t, err, storage.ErrRunNotFound)
}
