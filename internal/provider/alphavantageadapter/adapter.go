package alphavantageadapter

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"quotefeed/internal/provider"
	"quotefeed/internal/provider/alphavantage"
)

// GlobalQuoter is the subset of *alphavantage.Client the adapter needs.
type GlobalQuoter interface {
	GlobalQuote(ctx context.Context, symbol string, opts ...alphavantage.ClientOption) (alphavantage.GlobalQuote, error)
}

type Config struct {
	Name string // display name, default: AlphaVantage
}

// Adapter exposes the Alpha Vantage GLOBAL_QUOTE endpoint as a provider.Provider.
type Adapter struct {
	cfg    Config
	client GlobalQuoter
}

func New(cfg Config, client GlobalQuoter) *Adapter {
	if cfg.Name == "" {
		cfg.Name = "AlphaVantage"
	}
	return &Adapter{cfg: cfg, client: client}
}

func (a *Adapter) Name() string { return a.cfg.Name }

// Fetch returns the quote for symbol. Client errors are passed through
// unchanged so callers can classify them with errors.As / errors.Is.
func (a *Adapter) Fetch(ctx context.Context, symbol string) (provider.Quote, error) {
	raw, err := a.client.GlobalQuote(ctx, symbol)
	if err != nil {
		return provider.Quote{}, err
	}
	return toQuote(symbol, raw)
}

func toQuote(requested string, raw alphavantage.GlobalQuote) (provider.Quote, error) {
	price, err := parseFloat(raw.Price)
	if err != nil {
		return provider.Quote{}, fmt.Errorf("parsing price: %w", err)
	}
	if price <= 0 {
		return provider.Quote{}, fmt.Errorf("parsing price: %w: %v", errNotPositive, price)
	}
	change, err := parseFloat(raw.Change)
	if err != nil {
		return provider.Quote{}, fmt.Errorf("parsing change: %w", err)
	}
	changePercent, err := parseFloat(strings.TrimSuffix(strings.TrimSpace(raw.ChangePercent), "%"))
	if err != nil {
		return provider.Quote{}, fmt.Errorf("parsing change percent: %w", err)
	}

	symbol := strings.TrimSpace(raw.Symbol)
	if symbol == "" {
		symbol = requested
	}
	return provider.Quote{
		Symbol:        symbol,
		Price:         price,
		Change:        change,
		ChangePercent: changePercent,
		LastUpdated:   strings.TrimSpace(raw.LatestTradingDay),
	}, nil
}

var (
	errNonFinite   = errors.New("non-finite number")
	errNotPositive = errors.New("price must be positive")
)

// parseFloat parses a decimal field. NaN and infinities parse fine with
// strconv but are never valid quote values.
func parseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q", errNonFinite, s)
	}
	return v, nil
}
