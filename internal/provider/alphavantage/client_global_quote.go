package alphavantage

import (
	"context"
	"net/url"
)

// GlobalQuote is the raw "Global Quote" object. Alpha Vantage sends every
// field as a string, including the numeric ones.
type GlobalQuote struct {
	Symbol           string `json:"01. symbol"`
	Open             string `json:"02. open"`
	High             string `json:"03. high"`
	Low              string `json:"04. low"`
	Price            string `json:"05. price"`
	Volume           string `json:"06. volume"`
	LatestTradingDay string `json:"07. latest trading day"`
	PreviousClose    string `json:"08. previous close"`
	Change           string `json:"09. change"`
	ChangePercent    string `json:"10. change percent"`
}

// GlobalQuote retrieves the latest quote for a symbol.
//
// A rate-limit notice yields *RateLimitError, an explicit error message yields
// *APIError and an empty payload yields ErrNoQuote, checked in that order.
func (c *Client) GlobalQuote(ctx context.Context, symbol string, opts ...ClientOption) (GlobalQuote, error) {
	var res struct {
		GlobalQuote *GlobalQuote `json:"Global Quote"`
	}
	if err := c.query(ctx, "GLOBAL_QUOTE", url.Values{"symbol": {symbol}}, &res, opts...); err != nil {
		return GlobalQuote{}, err
	}
	// unknown symbols come back as {"Global Quote": {}}
	if res.GlobalQuote == nil || *res.GlobalQuote == (GlobalQuote{}) {
		return GlobalQuote{}, ErrNoQuote
	}
	return *res.GlobalQuote, nil
}
