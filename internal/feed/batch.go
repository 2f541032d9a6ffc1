package feed

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"quotefeed/internal/provider"
)

// FetchMany fetches quotes for symbols in batches of the configured size.
// Symbols within a batch are fetched concurrently; batches run one after the
// other with the configured delay between them. Results keep input order.
//
// A fetch that panics is dropped, so the result may be shorter than the
// input. If the orchestration itself fails, partial results are discarded and
// one synthesized quote per input symbol is returned instead.
func (f *Feed) FetchMany(ctx context.Context, symbols []string) (quotes []provider.Quote) {
	if len(symbols) == 0 {
		return []provider.Quote{}
	}

	defer func() {
		if r := recover(); r != nil {
			quotes = f.fallbackAll(symbols, fmt.Errorf("panic: %v", r))
		}
	}()

	out, err := f.fetchBatches(ctx, symbols)
	if err != nil {
		return f.fallbackAll(symbols, err)
	}
	return out
}

func (f *Feed) fetchBatches(ctx context.Context, symbols []string) ([]provider.Quote, error) {
	batches := chunkStrings(symbols, f.batchSize)
	out := make([]provider.Quote, 0, len(symbols))
	for i, batch := range batches {
		f.log.WithFields(logrus.Fields{"batch": i + 1, "of": len(batches), "symbols": batch}).Debug("processing batch")
		out = append(out, f.fetchBatch(ctx, batch)...)

		if i+1 < len(batches) {
			f.log.WithField("delay", f.batchDelay).Debug("waiting before next batch")
			if err := f.wait(ctx, f.batchDelay); err != nil {
				return nil, fmt.Errorf("waiting before batch %d: %w", i+2, err)
			}
		}
	}
	f.log.WithField("count", len(out)).Debug("fetched all batches")
	return out, nil
}

// fetchBatch runs FetchOne for every symbol concurrently and waits for all of
// them. Each goroutine writes only its own slot.
func (f *Feed) fetchBatch(ctx context.Context, batch []string) []provider.Quote {
	results := make([]provider.Quote, len(batch))
	settled := make([]bool, len(batch))

	var wg sync.WaitGroup
	for i, symbol := range batch {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					f.log.WithField("symbol", symbol).Errorf("quote fetch panicked: %v", r)
				}
			}()
			results[i] = f.FetchOne(ctx, symbol)
			settled[i] = true
		}()
	}
	wg.Wait()

	out := make([]provider.Quote, 0, len(batch))
	for i, ok := range settled {
		if ok {
			out = append(out, results[i])
		}
	}
	return out
}

func (f *Feed) fallbackAll(symbols []string, err error) []provider.Quote {
	f.log.WithError(err).WithField("count", len(symbols)).Error("fetching quotes failed, using fallback quotes for all symbols")
	if f.hook != nil {
		for _, s := range symbols {
			f.hook(s, ReasonOrchestration, err)
		}
	}
	return f.fallback.Quotes(symbols)
}

func chunkStrings(in []string, size int) [][]string {
	if len(in) == 0 {
		return nil
	}
	if size <= 0 {
		return [][]string{in}
	}
	out := make([][]string, 0, (len(in)+size-1)/size)
	for i := 0; i < len(in); i += size {
		j := i + size
		if j > len(in) {
			j = len(in)
		}
		out = append(out, in[i:j])
	}
	return out
}
