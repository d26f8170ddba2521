// Package jobs holds the scheduled jobs: price and fundamental refresh,
// the daily portfolio review and cache maintenance.
package jobs

import (
	"context"
	"fmt"

	"github.com/nicebigrose/stock-analysis-system/internal/marketdata"
	"github.com/nicebigrose/stock-analysis-system/pkg/logger"
)

// Watchlist supplies the symbols a job works on.
// *strategyconfig.Holder implements it.
type Watchlist interface {
	Watchlist() []string
}

// checkReport fails a job only when every symbol failed
func checkReport(report *marketdata.UpdateReport) error {
	if report.Total > 0 && report.Succeeded == 0 {
		return fmt.Errorf("%s", report.Summary())
	}
	return nil
}

// DailyPricesJob refreshes recent price history after the close
// ⭐ SSOT: 일별 시세 갱신 스케줄은 이 Job에서만
type DailyPricesJob struct {
	updater   *marketdata.Updater
	watchlist Watchlist
	days      int
	logger    *logger.Logger
}

// NewDailyPricesJob creates a new daily prices job
func NewDailyPricesJob(u *marketdata.Updater, wl Watchlist, days int, log *logger.Logger) *DailyPricesJob {
	return &DailyPricesJob{
		updater:   u,
		watchlist: wl,
		days:      days,
		logger:    log,
	}
}

// Name returns the job name
func (j *DailyPricesJob) Name() string {
	return "daily_prices"
}

// Schedule returns the cron schedule (weekdays 15:30, after the close)
func (j *DailyPricesJob) Schedule() string {
	return "0 30 15 * * MON-FRI"
}

// Run executes the price refresh
func (j *DailyPricesJob) Run(ctx context.Context) error {
	symbols := j.watchlist.Watchlist()
	j.logger.WithField("symbols", len(symbols)).Info("Starting scheduled price update")

	report := j.updater.UpdatePrices(ctx, symbols, j.days)
	j.logger.Info(report.Summary())
	return checkReport(report)
}

// WeeklyFundamentalsJob refreshes ratio snapshots and profiles
type WeeklyFundamentalsJob struct {
	updater   *marketdata.Updater
	watchlist Watchlist
	logger    *logger.Logger
}

// NewWeeklyFundamentalsJob creates a new fundamentals job
func NewWeeklyFundamentalsJob(u *marketdata.Updater, wl Watchlist, log *logger.Logger) *WeeklyFundamentalsJob {
	return &WeeklyFundamentalsJob{
		updater:   u,
		watchlist: wl,
		logger:    log,
	}
}

// Name returns the job name
func (j *WeeklyFundamentalsJob) Name() string {
	return "weekly_fundamentals"
}

// Schedule returns the cron schedule (Saturday 09:00)
func (j *WeeklyFundamentalsJob) Schedule() string {
	return "0 0 9 * * SAT"
}

// Run executes the fundamentals refresh
func (j *WeeklyFundamentalsJob) Run(ctx context.Context) error {
	symbols := j.watchlist.Watchlist()
	j.logger.WithField("symbols", len(symbols)).Info("Starting scheduled fundamentals update")

	report := j.updater.UpdateFundamentals(ctx, symbols)
	j.logger.Info(report.Summary())
	return checkReport(report)
}
