// Package fallback synthesizes placeholder quotes for symbols whose real
// quote could not be obtained, so the dashboard always has something to show.
package fallback

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"quotefeed/internal/provider"
)

// Bounds of the uniform distributions used for synthesized fields.
// Lower bounds are inclusive, upper bounds exclusive.
const (
	PriceMin = 100.0
	PriceMax = 150.0

	ChangeMin = -5.0
	ChangeMax = 5.0

	ChangePercentMin = -2.5
	ChangePercentMax = 2.5
)

// Generator produces fallback quotes. It is safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rnd *rand.Rand
	now func() time.Time
}

type Option func(*Generator)

// WithRand sets the random source, e.g. a seeded PCG for reproducible output.
func WithRand(src rand.Source) Option {
	return func(g *Generator) { g.rnd = rand.New(src) }
}

// WithClock sets the clock used for LastUpdated.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

func New(opts ...Option) *Generator {
	g := &Generator{
		rnd: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Quote returns a synthesized quote for symbol dated today (UTC).
func (g *Generator) Quote(symbol string) provider.Quote {
	g.mu.Lock()
	defer g.mu.Unlock()
	return provider.Quote{
		Symbol:        symbol,
		Price:         g.uniform(PriceMin, PriceMax),
		Change:        g.uniform(ChangeMin, ChangeMax),
		ChangePercent: g.uniform(ChangePercentMin, ChangePercentMax),
		LastUpdated:   g.now().UTC().Format(time.DateOnly),
	}
}

// Quotes returns one synthesized quote per symbol, in order.
func (g *Generator) Quotes(symbols []string) []provider.Quote {
	out := make([]provider.Quote, 0, len(symbols))
	for _, s := range symbols {
		out = append(out, g.Quote(s))
	}
	return out
}

// uniform draws from [lo, hi). lo + f*(hi-lo) can round up to hi for f close
// to 1, so the result is clamped below hi.
func (g *Generator) uniform(lo, hi float64) float64 {
	v := lo + g.rnd.Float64()*(hi-lo)
	if v >= hi {
		v = math.Nextafter(hi, lo)
	}
	return v
}
