package selection

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nicebigrose/stock-analysis-system/internal/contracts"
)

// DefaultConcurrency is the fan-out width when the caller passes <= 0
const DefaultConcurrency = 5

// Failure records why a symbol produced no row
type Failure struct {
	Symbol string `json:"symbol"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

// IsDataUnavailable reports a missing-data skip rather than a real failure
func (f Failure) IsDataUnavailable() bool {
	return errors.Is(f.Err, contracts.ErrDataUnavailable)
}

// unitFunc analyses one symbol under its own deadline
type unitFunc func(ctx context.Context, symbol string) error

// fanOut runs fn for every symbol with at most concurrency in flight.
// Unit errors go to onFail and never cancel the batch. Returns the
// parent context's error if it was cancelled.
func fanOut(ctx context.Context, symbols []string, concurrency int, timeout time.Duration, fn unitFunc, onFail func(symbol string, err error)) error {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var mu sync.Mutex
	for _, symbol := range symbols {
		symbol := symbol
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return nil
			}

			uctx := gctx
			if timeout > 0 {
				var cancel context.CancelFunc
				uctx, cancel = context.WithTimeout(gctx, timeout)
				defer cancel()
			}

			if err := fn(uctx, symbol); err != nil {
				mu.Lock()
				onFail(symbol, err)
				mu.Unlock()
			}
			return nil // non-fatal
		})
	}

	_ = g.Wait()
	return ctx.Err()
}
