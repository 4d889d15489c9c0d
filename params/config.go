package params

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Generator struct {
	Symbols []string
	Count   int
	Seed    int64
	// Mode selects the event source:
	//   realistic  - live-order NEW/CANCEL/REPLACE flow (default)
	//   aggressive - deterministic book-crossing scenario
	//   walk       - clamped random walk, NEW events only
	//   bars       - OHLCV bars from BarsDir converted to buy@low / sell@high
	Mode    string
	Output  string
	BarsDir string
}

type Store struct {
	// Path of the pebble directory. Empty disables run persistence.
	Path string
}

type Server struct {
	Addr           string
	AllowedOrigins []string
	EnableFeed     bool
	FeedMode       string // default|high
}

type Config struct {
	Generator Generator
	Store     Store
	Server    Server
	LogFile   string
}

func Default() Config {
	return Config{
		Generator: Generator{
			Symbols: []string{"AAPL", "MSFT", "GOOGL"},
			Count:   1000,
			Seed:    0, // 0 means seed from the wall clock
			Mode:    "realistic",
			Output:  "sample_orders.csv",
			BarsDir: "data/bars",
		},
		Server: Server{
			Addr:           ":8080",
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:3001"},
			FeedMode:       "default",
		},
		LogFile: "data/flow.log",
	}
}

// LoadFromEnv loads configuration from .env file (if exists) and environment variables
// Priority: ENV > .env file > defaults
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	if syms := os.Getenv("FLOW_SYMBOLS"); syms != "" {
		cfg.Generator.Symbols = SplitSymbols(syms)
	}
	if count := os.Getenv("FLOW_COUNT"); count != "" {
		if n, err := strconv.Atoi(count); err == nil {
			cfg.Generator.Count = n
		}
	}
	if seed := os.Getenv("FLOW_SEED"); seed != "" {
		if n, err := strconv.ParseInt(seed, 10, 64); err == nil {
			cfg.Generator.Seed = n
		}
	}
	cfg.Generator.Mode = getEnv("FLOW_MODE", cfg.Generator.Mode)
	cfg.Generator.Output = getEnv("FLOW_OUTPUT", cfg.Generator.Output)
	cfg.Generator.BarsDir = getEnv("FLOW_BARS_DIR", cfg.Generator.BarsDir)

	cfg.Store.Path = getEnv("STORE_PATH", cfg.Store.Path)

	cfg.Server.Addr = getEnv("API_ADDR", cfg.Server.Addr)
	if origins := os.Getenv("API_ALLOWED_ORIGINS"); origins != "" {
		cfg.Server.AllowedOrigins = SplitSymbols(origins)
	}
	if feed := os.Getenv("ENABLE_FEED"); feed != "" {
		cfg.Server.EnableFeed = feed == "true"
	}
	cfg.Server.FeedMode = getEnv("FEED_MODE", cfg.Server.FeedMode)

	cfg.LogFile = getEnv("LOG_FILE", cfg.LogFile)

	return cfg
}

// SplitSymbols splits a comma-separated list, trimming blanks and dropping empty entries.
func SplitSymbols(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SeedOrNow returns seed, or the wall clock in nanoseconds when seed is 0.
func SeedOrNow(seed int64) int64 {
	if seed != 0 {
		return seed
	}
	return time.Now().UnixNano()
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
