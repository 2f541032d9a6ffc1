// Package app assembles the quote feed from configuration.
package app

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"quotefeed/internal/config"
	"quotefeed/internal/feed"
	"quotefeed/internal/httpx"
	"quotefeed/internal/provider"
	"quotefeed/internal/provider/alphavantage"
	"quotefeed/internal/provider/alphavantageadapter"
	"quotefeed/internal/provider/cache"
	"quotefeed/internal/provider/ratelimit"
)

// NewProvider builds the Alpha Vantage provider wrapped in the configured
// rate limiter and cache.
func NewProvider(cfg config.Config, log logrus.FieldLogger) (provider.Provider, error) {
	av := cfg.AlphaVantage
	if av.APIKey == "" {
		log.Warn("ALPHAVANTAGE_API_KEY not set; every quote will be a fallback quote")
	}

	hc := httpx.New(time.Duration(cfg.Server.RequestTimeoutSec) * time.Second)
	client, err := alphavantage.NewClient(av.APIKey,
		alphavantage.WithBaseURL(av.Endpoint),
		alphavantage.WithHTTPClient(hc),
	)
	if err != nil {
		return nil, fmt.Errorf("alphavantage client: %w", err)
	}

	var p provider.Provider = alphavantageadapter.New(alphavantageadapter.Config{}, client)
	// Prefer token bucket with burst if RPM is set, otherwise use min-interval
	if av.MaxRequestsPerMinute > 0 {
		p = &ratelimit.TokenBucketProvider{P: p, TB: ratelimit.PerMinute(av.MaxRequestsPerMinute, av.Burst)}
	} else if av.MinRequestIntervalSec > 0 {
		p = &ratelimit.MinInterval{P: p, Interval: time.Duration(av.MinRequestIntervalSec) * time.Second}
	}
	if av.CacheTTLSeconds > 0 {
		p = &cache.Provider{P: p, TTL: time.Duration(av.CacheTTLSeconds) * time.Second, MaxItems: av.CacheMaxItems}
	}
	return p, nil
}

// NewFeed builds the feed over NewProvider.
func NewFeed(cfg config.Config, log logrus.FieldLogger, opts ...feed.Option) (*feed.Feed, error) {
	p, err := NewProvider(cfg, log)
	if err != nil {
		return nil, err
	}
	base := []feed.Option{
		feed.WithLogger(log),
		feed.WithBatchSize(cfg.Feed.BatchSize),
		feed.WithBatchDelay(time.Duration(cfg.Feed.BatchDelayMs) * time.Millisecond),
	}
	return feed.New(p, append(base, opts...)...), nil
}
