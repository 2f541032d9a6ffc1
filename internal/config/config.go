package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Server struct {
	Port              string `json:"port"`
	RequestTimeoutSec int    `json:"request_timeout_sec"` // 0 = no timeout
}

type AlphaVantage struct {
	APIKey                string `json:"api_key"`
	Endpoint              string `json:"endpoint"`
	MaxRequestsPerMinute  int    `json:"max_requests_per_minute"`
	MinRequestIntervalSec int    `json:"min_request_interval_sec"`
	Burst                 int    `json:"burst"`
	CacheTTLSeconds       int    `json:"cache_ttl_sec"`
	CacheMaxItems         int    `json:"cache_max_items"`
}

type Feed struct {
	BatchSize    int      `json:"batch_size"`
	BatchDelayMs int      `json:"batch_delay_ms"`
	Symbols      []string `json:"symbols"`
}

type Log struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // text, json
}

type Config struct {
	Server       Server       `json:"server"`
	AlphaVantage AlphaVantage `json:"alphavantage"`
	Feed         Feed         `json:"feed"`
	Log          Log          `json:"log"`
}

// DefaultSymbols is the watch list shown when no symbols are requested.
var DefaultSymbols = []string{
	"AAPL", "MSFT", "GOOGL", "AMZN", "META", "TSLA", "NVDA", "JPM",
	"NFLX", "INTC", "AMD", "PYPL", "ADBE", "CSCO", "CRM", "CMCSA",
	"PEP", "AVGO", "COST", "TMUS", "QCOM", "TXN", "SBUX", "AMGN",
	"GOOG", "INTU", "CHTR", "ISRG", "MDLZ", "BKNG", "ADP", "GILD",
}

func Default() Config {
	return Config{
		Server: Server{Port: "8080"},
		AlphaVantage: AlphaVantage{
			Endpoint:      "https://www.alphavantage.co",
			CacheMaxItems: 1000,
		},
		Feed: Feed{
			BatchSize:    5,
			BatchDelayMs: 1000,
			Symbols:      append([]string(nil), DefaultSymbols...),
		},
		Log: Log{Level: "info", Format: "text"},
	}
}

// Load reads JSON config from path. If path is empty, config.json in the
// working directory is used when present; a missing file yields defaults.
// A .env file, when present, is loaded into the environment first, and
// environment variables override select fields.
func Load(path string) (Config, error) {
	cfg := Default()
	_ = godotenv.Load()

	if path == "" {
		if _, err := os.Stat("config.json"); err == nil {
			path = "config.json"
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := json.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects settings the feed cannot run with.
func (c Config) Validate() error {
	if c.Feed.BatchSize <= 0 {
		return fmt.Errorf("feed.batch_size must be positive, got %d", c.Feed.BatchSize)
	}
	if c.Feed.BatchDelayMs < 0 {
		return fmt.Errorf("feed.batch_delay_ms must not be negative, got %d", c.Feed.BatchDelayMs)
	}
	if c.AlphaVantage.Endpoint == "" {
		return errors.New("alphavantage.endpoint is empty")
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" { cfg.Server.Port = v }
	envInt("REQUEST_TIMEOUT_SEC", 0, &cfg.Server.RequestTimeoutSec)

	if v := os.Getenv("ALPHAVANTAGE_API_KEY"); v != "" { cfg.AlphaVantage.APIKey = v }
	if v := os.Getenv("ALPHAVANTAGE_ENDPOINT"); v != "" { cfg.AlphaVantage.Endpoint = strings.TrimRight(v, "/") }
	envInt("ALPHAVANTAGE_MAX_RPM", 0, &cfg.AlphaVantage.MaxRequestsPerMinute)
	envInt("ALPHAVANTAGE_BURST", 1, &cfg.AlphaVantage.Burst)
	envInt("ALPHAVANTAGE_MIN_INTERVAL_SEC", 0, &cfg.AlphaVantage.MinRequestIntervalSec)
	envInt("ALPHAVANTAGE_CACHE_TTL_SEC", 0, &cfg.AlphaVantage.CacheTTLSeconds)
	envInt("ALPHAVANTAGE_CACHE_MAX_ITEMS", 1, &cfg.AlphaVantage.CacheMaxItems)

	envInt("FEED_BATCH_SIZE", 1, &cfg.Feed.BatchSize)
	envInt("FEED_BATCH_DELAY_MS", 0, &cfg.Feed.BatchDelayMs)
	if v := os.Getenv("SYMBOLS"); v != "" { cfg.Feed.Symbols = SplitSymbols(v) }

	if v := os.Getenv("LOG_LEVEL"); v != "" { cfg.Log.Level = strings.ToLower(v) }
	if v := os.Getenv("LOG_FORMAT"); v != "" { cfg.Log.Format = strings.ToLower(v) }
}

// envInt stores the integer value of key into dst when it parses and is >= floor.
func envInt(key string, floor int, dst *int) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	var x int
	if _, err := fmt.Sscanf(v, "%d", &x); err != nil {
		return
	}
	if x >= floor {
		*dst = x
	}
}

// SplitSymbols parses a comma-separated symbol list, trimming blanks and
// upper-casing tickers.
func SplitSymbols(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" { out = append(out, p) }
	}
	return out
}
