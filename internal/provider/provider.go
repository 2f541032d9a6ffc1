package provider

import "context"

// Quote is a single ticker's price snapshot as served to the dashboard.
type Quote struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
	LastUpdated   string  `json:"lastUpdated"` // YYYY-MM-DD
}

// Provider fetches one symbol's quote from a remote source.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, symbol string) (Quote, error)
}
