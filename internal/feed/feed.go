// Package feed fetches stock quotes from a provider and always returns
// something displayable: any quote that cannot be fetched is replaced by a
// synthesized one from the fallback generator.
package feed

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"quotefeed/internal/fallback"
	"quotefeed/internal/provider"
	"quotefeed/internal/provider/alphavantage"
)

//go:generate mockgen -package=feed_test -destination=mock_provider_test.go -source=../provider/provider.go Provider

const (
	// DefaultBatchSize is the number of symbols fetched concurrently.
	DefaultBatchSize = 5
	// DefaultBatchDelay is the pause between consecutive batches.
	DefaultBatchDelay = 1000 * time.Millisecond
)

// Reason says why a quote was synthesized instead of fetched.
type Reason string

const (
	ReasonRateLimited   Reason = "rate_limited"
	ReasonRemoteError   Reason = "remote_error"
	ReasonEmptyPayload  Reason = "empty_payload"
	ReasonTransport     Reason = "transport"
	ReasonOrchestration Reason = "orchestration"
)

// FallbackHook observes every synthesized quote. It may be called from
// several goroutines at once.
type FallbackHook func(symbol string, reason Reason, err error)

// Feed is the quote fetcher and batch orchestrator.
type Feed struct {
	provider   provider.Provider
	fallback   *fallback.Generator
	log        logrus.FieldLogger
	hook       FallbackHook
	batchSize  int
	batchDelay time.Duration
	wait       func(ctx context.Context, d time.Duration) error
}

type Option func(*Feed)

func WithLogger(log logrus.FieldLogger) Option {
	return func(f *Feed) { f.log = log }
}

func WithFallback(g *fallback.Generator) Option {
	return func(f *Feed) { f.fallback = g }
}

func WithFallbackHook(hook FallbackHook) Option {
	return func(f *Feed) { f.hook = hook }
}

// WithBatchSize sets the batch size; values <= 0 keep the default.
func WithBatchSize(n int) Option {
	return func(f *Feed) {
		if n > 0 {
			f.batchSize = n
		}
	}
}

// WithBatchDelay sets the pause between batches; negative values keep the default.
func WithBatchDelay(d time.Duration) Option {
	return func(f *Feed) {
		if d >= 0 {
			f.batchDelay = d
		}
	}
}

// WithWait replaces the function used to pause between batches.
func WithWait(wait func(ctx context.Context, d time.Duration) error) Option {
	return func(f *Feed) { f.wait = wait }
}

func New(p provider.Provider, opts ...Option) *Feed {
	f := &Feed{
		provider:   p,
		log:        logrus.StandardLogger(),
		batchSize:  DefaultBatchSize,
		batchDelay: DefaultBatchDelay,
		wait:       sleep,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.fallback == nil {
		f.fallback = fallback.New()
	}
	return f
}

// FetchOne returns the quote for symbol. It never fails: rate limits, remote
// errors, empty payloads and transport or parse failures all yield a
// synthesized quote carrying the requested symbol. No retry is attempted.
func (f *Feed) FetchOne(ctx context.Context, symbol string) provider.Quote {
	log := f.log.WithField("symbol", symbol)
	log.Debug("fetching quote")

	q, err := f.provider.Fetch(ctx, symbol)
	if err == nil {
		return q
	}
	reason := classify(err)
	log.WithFields(logrus.Fields{"reason": reason, "provider": f.provider.Name()}).
		WithError(err).
		Warn("using fallback quote")
	return f.synthesize(symbol, reason, err)
}

func (f *Feed) synthesize(symbol string, reason Reason, err error) provider.Quote {
	if f.hook != nil {
		f.hook(symbol, reason, err)
	}
	return f.fallback.Quote(symbol)
}

func classify(err error) Reason {
	var rl *alphavantage.RateLimitError
	var apiErr *alphavantage.APIError
	switch {
	case errors.As(err, &rl):
		return ReasonRateLimited
	case errors.As(err, &apiErr), errors.Is(err, alphavantage.ErrUnauthorized):
		return ReasonRemoteError
	case errors.Is(err, alphavantage.ErrNoQuote):
		return ReasonEmptyPayload
	default:
		return ReasonTransport
	}
}

// sleep pauses for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
