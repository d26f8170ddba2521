package marketdata

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nicebigrose/stock-analysis-system/pkg/logger"
)

// DefaultUpdateDays is the price history window refreshed by default
const DefaultUpdateDays = 365

// UpdateResult is the outcome for one symbol
type UpdateResult struct {
	Symbol string `json:"symbol"`
	Bars   int    `json:"bars,omitempty"`
	Error  error  `json:"-"`
}

// UpdateReport summarises a batch refresh
type UpdateReport struct {
	Kind      string         `json:"kind"`
	Total     int            `json:"total"`
	Succeeded int            `json:"succeeded"`
	Results   []UpdateResult `json:"results"`
	Duration  time.Duration  `json:"duration"`
}

// Summary reads "N of M succeeded"
func (r *UpdateReport) Summary() string {
	return fmt.Sprintf("%s: %d of %d succeeded", r.Kind, r.Succeeded, r.Total)
}

// Failed returns the symbols that did not refresh
func (r *UpdateReport) Failed() []UpdateResult {
	var out []UpdateResult
	for _, res := range r.Results {
		if res.Error != nil {
			out = append(out, res)
		}
	}
	return out
}

// Updater refreshes cached and stored market data for a symbol list
// ⭐ SSOT: 시세/재무 일괄 갱신은 여기서만
type Updater struct {
	service *Service
	workers int
	logger  *logger.Logger
	now     func() time.Time
}

// NewUpdater creates an updater. workers < 1 means 1.
func NewUpdater(service *Service, workers int, log *logger.Logger) *Updater {
	if workers < 1 {
		workers = 1
	}
	return &Updater{
		service: service,
		workers: workers,
		logger:  log.WithComponent("updater"),
		now:     time.Now,
	}
}

// UpdatePrices refetches the last `days` of history for every symbol
func (u *Updater) UpdatePrices(ctx context.Context, symbols []string, days int) *UpdateReport {
	if days <= 0 {
		days = DefaultUpdateDays
	}
	to := u.now()
	from := to.AddDate(0, 0, -days)

	return u.run(ctx, "prices", symbols, func(ctx context.Context, symbol string) (int, error) {
		return u.service.refreshHistory(ctx, symbol, from, to)
	})
}

// UpdateFundamentals refetches ratios and profiles for every symbol
func (u *Updater) UpdateFundamentals(ctx context.Context, symbols []string) *UpdateReport {
	return u.run(ctx, "fundamentals", symbols, func(ctx context.Context, symbol string) (int, error) {
		return 0, u.service.refreshRatios(ctx, symbol)
	})
}

type refreshFunc func(ctx context.Context, symbol string) (int, error)

func (u *Updater) run(ctx context.Context, kind string, symbols []string, fn refreshFunc) *UpdateReport {
	start := time.Now()

	u.logger.WithFields(map[string]interface{}{
		"kind":    kind,
		"symbols": len(symbols),
		"workers": u.workers,
	}).Info("Starting update")

	resultCh := make(chan UpdateResult, len(symbols))
	symbolCh := make(chan string, len(symbols))

	var wg sync.WaitGroup
	for i := 0; i < u.workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			u.worker(ctx, workerID, symbolCh, resultCh, fn)
		}(i)
	}

	for _, s := range symbols {
		symbolCh <- s
	}
	close(symbolCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	report := &UpdateReport{
		Kind:    kind,
		Total:   len(symbols),
		Results: make([]UpdateResult, 0, len(symbols)),
	}
	for res := range resultCh {
		report.Results = append(report.Results, res)
		if res.Error == nil {
			report.Succeeded++
		}
	}
	report.Duration = time.Since(start)

	u.logger.WithFields(map[string]interface{}{
		"kind":    kind,
		"success": report.Succeeded,
		"failed":  report.Total - report.Succeeded,
		"total":   report.Total,
	}).Info("Update completed")

	return report
}

func (u *Updater) worker(ctx context.Context, workerID int, symbolCh <-chan string, resultCh chan<- UpdateResult, fn refreshFunc) {
	for symbol := range symbolCh {
		if err := ctx.Err(); err != nil {
			resultCh <- UpdateResult{Symbol: symbol, Error: err}
			continue
		}

		n, err := fn(ctx, symbol)
		if err != nil {
			u.logger.WithError(err).WithFields(map[string]interface{}{
				"worker": workerID,
				"symbol": symbol,
			}).Warn("Failed to update")
			resultCh <- UpdateResult{Symbol: symbol, Error: err}
			continue
		}

		u.logger.WithFields(map[string]interface{}{
			"worker": workerID,
			"symbol": symbol,
			"count":  n,
		}).Debug("Updated")
		resultCh <- UpdateResult{Symbol: symbol, Bars: n}
	}
}
