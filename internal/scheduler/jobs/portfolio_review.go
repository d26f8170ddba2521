package jobs

import (
	"context"
	"fmt"
	"sync"

	"github.com/nicebigrose/stock-analysis-system/internal/portfolio"
	"github.com/nicebigrose/stock-analysis-system/internal/rebalance"
	"github.com/nicebigrose/stock-analysis-system/internal/strategyconfig"
	"github.com/nicebigrose/stock-analysis-system/pkg/logger"
)

// ReviewResult is what the last review saw
type ReviewResult struct {
	Valuation   *portfolio.Valuation
	Suggestions []rebalance.Suggestion
}

// PortfolioReviewJob marks the ledger to market and logs rebalancing
// suggestions. The ledger is reloaded from its store each run so changes
// made by other processes are picked up.
type PortfolioReviewJob struct {
	store   portfolio.Store
	valuer  *portfolio.Valuer
	advisor *rebalance.Advisor
	policy  strategyconfig.PortfolioPolicy
	logger  *logger.Logger

	mu   sync.Mutex
	last *ReviewResult
}

// NewPortfolioReviewJob creates a new portfolio review job
func NewPortfolioReviewJob(store portfolio.Store, valuer *portfolio.Valuer, advisor *rebalance.Advisor, policy strategyconfig.PortfolioPolicy, log *logger.Logger) *PortfolioReviewJob {
	return &PortfolioReviewJob{
		store:   store,
		valuer:  valuer,
		advisor: advisor,
		policy:  policy,
		logger:  log,
	}
}

// Name returns the job name
func (j *PortfolioReviewJob) Name() string {
	return "portfolio_review"
}

// Schedule returns the cron schedule (weekdays 16:00)
func (j *PortfolioReviewJob) Schedule() string {
	return "0 0 16 * * MON-FRI"
}

// Run executes the review
func (j *PortfolioReviewJob) Run(ctx context.Context) error {
	state, err := j.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}

	val, err := j.valuer.CurrentValue(ctx, state)
	if err != nil {
		return fmt.Errorf("value ledger: %w", err)
	}

	suggestions := j.advisor.Suggest(val, j.policy)

	j.logger.WithFields(map[string]interface{}{
		"total_value": val.TotalValue.StringFixed(0),
		"cash_pct":    val.CashPercent,
		"positions":   len(val.Positions),
		"suggestions": len(suggestions),
	}).Info("Portfolio review completed")

	for _, s := range suggestions {
		j.logger.WithFields(map[string]interface{}{
			"type":   s.Type,
			"symbol": s.Symbol,
		}).Warn(s.Message)
	}

	j.mu.Lock()
	j.last = &ReviewResult{Valuation: val, Suggestions: suggestions}
	j.mu.Unlock()
	return nil
}

// Last returns the most recent review, nil before the first run
func (j *PortfolioReviewJob) Last() *ReviewResult {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.last
}
