package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/marstr/collection/v2"
	"golang.org/x/sync/singleflight"

	"quotefeed/internal/provider"
)

// DefaultMaxItems bounds the cache when MaxItems is not set.
const DefaultMaxItems = 10000

// entry stores a cached quote with expiry.
type entry struct {
	expiresAt time.Time
	quote     provider.Quote
}

// Provider caches successful quotes per symbol for a TTL. The least recently
// used symbol is evicted once MaxItems is exceeded. Concurrent misses for the
// same symbol share a single upstream call. Errors are never cached.
type Provider struct {
	P        provider.Provider
	TTL      time.Duration
	MaxItems int

	once  sync.Once
	mu    sync.Mutex
	items *collection.LRUCache[string, entry]
	sf    singleflight.Group
	now   func() time.Time
}

func (c *Provider) Name() string { return c.P.Name() }

func (c *Provider) init() {
	c.once.Do(func() {
		capacity := c.MaxItems
		if capacity <= 0 {
			capacity = DefaultMaxItems
		}
		c.items = collection.NewLRUCache[string, entry](uint(capacity))
		if c.now == nil {
			c.now = time.Now
		}
	})
}

// Fetch returns the cached quote for symbol if still valid, otherwise asks the
// underlying provider.
func (c *Provider) Fetch(ctx context.Context, symbol string) (provider.Quote, error) {
	if c.TTL <= 0 {
		return c.P.Fetch(ctx, symbol)
	}
	c.init()

	if q, ok := c.lookup(symbol); ok {
		return q, nil
	}

	// The shared call outlives any single caller: it runs detached from the
	// caller's cancellation and each caller stops waiting on its own ctx.
	ch := c.sf.DoChan(symbol, func() (v any, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("fetching %s: panic: %v", symbol, r)
			}
		}()
		// another caller may have filled it while we queued
		if q, ok := c.lookup(symbol); ok {
			return q, nil
		}
		q, err := c.P.Fetch(context.WithoutCancel(ctx), symbol)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.items.Put(symbol, entry{expiresAt: c.now().Add(c.TTL), quote: q})
		c.mu.Unlock()
		return q, nil
	})

	select {
	case <-ctx.Done():
		return provider.Quote{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return provider.Quote{}, res.Err
		}
		return res.Val.(provider.Quote), nil
	}
}

func (c *Provider) lookup(symbol string) (provider.Quote, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.items.Get(symbol)
	if !ok || !c.now().Before(e.expiresAt) {
		return provider.Quote{}, false
	}
	return e.quote, true
}
