package ratelimit

import (
	"context"
	"sync"
	"time"

	"quotefeed/internal/provider"
)

// MinInterval wraps a provider and enforces a minimum time between call starts.
// Concurrent callers queue behind each other, or return early if their
// context is canceled.
type MinInterval struct {
	P        provider.Provider
	Interval time.Duration

	mu   sync.Mutex
	next time.Time
}

func (m *MinInterval) Name() string { return m.P.Name() }

func (m *MinInterval) Fetch(ctx context.Context, symbol string) (provider.Quote, error) {
	if m.Interval > 0 {
		// reserve the next slot, then wait for it
		m.mu.Lock()
		now := time.Now()
		slot := m.next
		if slot.Before(now) {
			slot = now
		}
		m.next = slot.Add(m.Interval)
		m.mu.Unlock()

		if wait := time.Until(slot); wait > 0 {
			t := time.NewTimer(wait)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return provider.Quote{}, ctx.Err()
			case <-t.C:
			}
		}
	}
	return m.P.Fetch(ctx, symbol)
}
