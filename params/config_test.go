package params

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSplitSymbols(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"single", "AAPL", []string{"AAPL"}},
		{"multiple", "AAPL,MSFT,GOOGL", []string{"AAPL", "MSFT", "GOOGL"}},
		{"blanks trimmed", " AAPL , MSFT ,", []string{"AAPL", "MSFT"}},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitSymbols(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("SplitSymbols(%q) = %v, want %v", tt.in, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("SplitSymbols(%q)[%d] = %q, want %q", tt.in, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("FLOW_SYMBOLS", "BTC,ETH")
	t.Setenv("FLOW_COUNT", "42")
	t.Setenv("FLOW_SEED", "7")
	t.Setenv("FLOW_MODE", "walk")
	t.Setenv("ENABLE_FEED", "true")

	cfg := LoadFromEnv(filepath.Join(t.TempDir(), "missing.env"))

	if len(cfg.Generator.Symbols) != 2 || cfg.Generator.Symbols[1] != "ETH" {
		t.Errorf("symbols = %v, want [BTC ETH]", cfg.Generator.Symbols)
	}
	if cfg.Generator.Count != 42 {
		t.Errorf("count = %d, want 42", cfg.Generator.Count)
	}
	if cfg.Generator.Seed != 7 {
		t.Errorf("seed = %d, want 7", cfg.Generator.Seed)
	}
	if cfg.Generator.Mode != "walk" {
		t.Errorf("mode = %s, want walk", cfg.Generator.Mode)
	}
	if !cfg.Server.EnableFeed {
		t.Error("expected feed enabled")
	}
}

func TestLoadFromEnv_DotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("FLOW_COUNT=250\nSTORE_PATH=/tmp/runs\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	os.Unsetenv("FLOW_COUNT")
	os.Unsetenv("STORE_PATH")
	t.Cleanup(func() {
		os.Unsetenv("FLOW_COUNT")
		os.Unsetenv("STORE_PATH")
	})

	cfg := LoadFromEnv(path)

	if cfg.Generator.Count != 250 {
		t.Errorf("count = %d, want 250", cfg.Generator.Count)
	}
	if cfg.Store.Path != "/tmp/runs" {
		t.Errorf("store path = %q, want /tmp/runs", cfg.Store.Path)
	}
	// untouched keys keep defaults
	if cfg.Generator.Mode != "realistic" {
		t.Errorf("mode = %q, want realistic", cfg.Generator.Mode)
	}
}
