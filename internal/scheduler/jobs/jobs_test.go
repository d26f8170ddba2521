package jobs

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicebigrose/stock-analysis-system/internal/contracts"
	"github.com/nicebigrose/stock-analysis-system/internal/marketdata"
	"github.com/nicebigrose/stock-analysis-system/internal/portfolio"
	"github.com/nicebigrose/stock-analysis-system/internal/rebalance"
	"github.com/nicebigrose/stock-analysis-system/internal/scheduler"
	"github.com/nicebigrose/stock-analysis-system/internal/strategyconfig"
	"github.com/nicebigrose/stock-analysis-system/pkg/logger"
)

type staticWatchlist []string

func (w staticWatchlist) Watchlist() []string { return w }

// upstream knows FPT only
type upstream struct{}

func (upstream) History(_ context.Context, symbol string, _, _ time.Time) (contracts.PriceSeries, error) {
	if symbol != "FPT" {
		return nil, fmt.Errorf("%w: %s", contracts.ErrDataUnavailable, symbol)
	}
	return contracts.PriceSeries{{Date: time.Now(), Close: 1000}}, nil
}

func (upstream) Latest(_ context.Context, symbol string) (*contracts.LatestPrice, error) {
	if symbol != "FPT" {
		return nil, contracts.ErrDataUnavailable
	}
	return &contracts.LatestPrice{Symbol: symbol, Close: 1000}, nil
}

func (upstream) Ratios(_ context.Context, symbol string) (*contracts.RatioSnapshot, error) {
	if symbol != "FPT" {
		return nil, contracts.ErrDataUnavailable
	}
	return &contracts.RatioSnapshot{Symbol: symbol, ROE: contracts.Float(20)}, nil
}

func (upstream) Profile(_ context.Context, symbol string) (*contracts.CompanyProfile, error) {
	return nil, contracts.ErrDataUnavailable
}

func newUpdater() (*marketdata.Service, *marketdata.Updater) {
	svc := marketdata.NewService(upstream{}, upstream{}, 0, logger.Nop())
	return svc, marketdata.NewUpdater(svc, 2, logger.Nop())
}

func TestSchedulesParse(t *testing.T) {
	svc, u := newUpdater()
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

	all := []scheduler.Job{
		NewDailyPricesJob(u, staticWatchlist{"FPT"}, 30, logger.Nop()),
		NewWeeklyFundamentalsJob(u, staticWatchlist{"FPT"}, logger.Nop()),
		NewPortfolioReviewJob(nil, nil, nil, strategyconfig.PortfolioPolicy{}, logger.Nop()),
		NewCacheCleanupJob(svc, logger.Nop()),
	}

	s := scheduler.New(logger.Nop())
	for _, job := range all {
		_, err := parser.Parse(job.Schedule())
		require.NoError(t, err, job.Name())
		require.NoError(t, s.AddJob(job))
	}
	assert.Equal(t, []string{"cache_cleanup", "daily_prices", "portfolio_review", "weekly_fundamentals"}, s.GetAllJobs())
}

func TestDailyPricesJob(t *testing.T) {
	_, u := newUpdater()
	ctx := context.Background()

	job := NewDailyPricesJob(u, staticWatchlist{"FPT", "ZZZ"}, 30, logger.Nop())
	assert.NoError(t, job.Run(ctx), "partial success is success")

	job = NewDailyPricesJob(u, staticWatchlist{"ZZZ"}, 30, logger.Nop())
	err := job.Run(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0 of 1 succeeded")

	job = NewDailyPricesJob(u, staticWatchlist{}, 30, logger.Nop())
	assert.NoError(t, job.Run(ctx), "empty watchlist is a no-op")
}

func TestWeeklyFundamentalsJob(t *testing.T) {
	_, u := newUpdater()
	job := NewWeeklyFundamentalsJob(u, staticWatchlist{"FPT"}, logger.Nop())
	assert.NoError(t, job.Run(context.Background()))
}

func TestCacheCleanupJob(t *testing.T) {
	svc, _ := newUpdater()
	ctx := context.Background()
	_, err := svc.Ratios(ctx, "FPT")
	require.NoError(t, err)
	require.Equal(t, 1, svc.Stats()["ratios"])

	require.NoError(t, NewCacheCleanupJob(svc, logger.Nop()).Run(ctx))
	assert.Equal(t, 0, svc.Stats()["ratios"])
}

func TestPortfolioReviewJob(t *testing.T) {
	ctx := context.Background()
	store := portfolio.NewFileStore(filepath.Join(t.TempDir(), "portfolio.json"))

	ledger, err := portfolio.Open(ctx, store, strategyconfig.Default().Fees, logger.Nop())
	require.NoError(t, err)
	_, err = ledger.Deposit(ctx, decimal.NewFromInt(1_000_000))
	require.NoError(t, err)
	_, err = ledger.Buy(ctx, "FPT", 300, decimal.NewFromInt(1000))
	require.NoError(t, err)

	valuer := portfolio.NewValuer(upstream{}, upstream{}, 0.05, logger.Nop())
	job := NewPortfolioReviewJob(store, valuer, rebalance.NewAdvisor(logger.Nop()), strategyconfig.Default().Portfolio, logger.Nop())
	assert.Nil(t, job.Last())

	require.NoError(t, job.Run(ctx))

	last := job.Last()
	require.NotNil(t, last)
	assert.True(t, last.Valuation.TotalValue.Equal(decimal.NewFromInt(999_550)), "total %s", last.Valuation.TotalValue)

	require.Len(t, last.Suggestions, 1)
	assert.Equal(t, rebalance.TypeReducePosition, last.Suggestions[0].Type)
	assert.Equal(t, "FPT", last.Suggestions[0].Symbol)
}
