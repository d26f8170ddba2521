// Package rebalance turns a marked-to-market ledger into rebalancing
// suggestions.
package rebalance

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/nicebigrose/stock-analysis-system/internal/portfolio"
	"github.com/nicebigrose/stock-analysis-system/internal/strategyconfig"
	"github.com/nicebigrose/stock-analysis-system/pkg/logger"
)

// Type is a suggestion kind
type Type string

const (
	TypeIncreaseCash     Type = "INCREASE_CASH"
	TypeReducePosition   Type = "REDUCE_POSITION"
	TypeTakeProfit       Type = "TAKE_PROFIT"
	TypeStopLoss         Type = "STOP_LOSS"
	TypeTooManyPositions Type = "TOO_MANY_POSITIONS"
)

// Suggestion is one advisory line. Amount is set for REDUCE_POSITION only.
type Suggestion struct {
	Type          Type            `json:"type"`
	Symbol        string          `json:"symbol,omitempty"`
	Message       string          `json:"message"`
	Action        string          `json:"action"`
	ExcessPercent float64         `json:"excess_percent,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
}

// Advisor evaluates a valuation against a policy
type Advisor struct {
	logger *logger.Logger
}

// NewAdvisor creates an advisor
func NewAdvisor(log *logger.Logger) *Advisor {
	return &Advisor{logger: log.WithComponent("rebalance")}
}

// Suggest evaluates every rule independently. An unset (zero) policy uses
// the defaults (cash 10%, position 20%, +30% / -15%). MinCashReserve 0
// turns the cash rule off.
func (a *Advisor) Suggest(val *portfolio.Valuation, policy strategyconfig.PortfolioPolicy) []Suggestion {
	out := []Suggestion{}
	if val == nil || !val.TotalValue.IsPositive() {
		return out
	}
	policy = withDefaults(policy)

	minCash := policy.MinCashReserve * 100
	maxWeight := policy.MaxPositionSize * 100

	if val.CashPercent < minCash {
		out = append(out, Suggestion{
			Type:    TypeIncreaseCash,
			Message: fmt.Sprintf("Cash is only %.1f%%, keep at least %.0f%%", val.CashPercent, minCash),
			Action:  "Trim some positions",
			Amount:  decimal.Zero,
		})
	}

	if policy.MaxPositions > 0 && len(val.Positions) > policy.MaxPositions {
		out = append(out, Suggestion{
			Type:    TypeTooManyPositions,
			Message: fmt.Sprintf("%d positions held, limit is %d", len(val.Positions), policy.MaxPositions),
			Action:  "Consolidate into the strongest holdings",
			Amount:  decimal.Zero,
		})
	}

	for _, p := range val.Positions {
		if p.Weight > maxWeight {
			over := p.Weight - maxWeight
			amount := val.TotalValue.Mul(decimal.NewFromFloat(over / 100)).Round(0)
			out = append(out, Suggestion{
				Type:          TypeReducePosition,
				Symbol:        p.Symbol,
				Message:       fmt.Sprintf("%s is %.1f%% of the portfolio, above the %.0f%% cap", p.Symbol, p.Weight, maxWeight),
				Action:        fmt.Sprintf("Reduce by about %.1f%% (%s)", over, amount.StringFixed(0)),
				ExcessPercent: over,
				Amount:        amount,
			})
		}

		// valued at cost, so no pnl signal
		if p.PriceUnavailable {
			continue
		}
		switch {
		case p.PnLPercent > policy.TakeProfitPct:
			out = append(out, Suggestion{
				Type:    TypeTakeProfit,
				Symbol:  p.Symbol,
				Message: fmt.Sprintf("%s is up %.1f%%", p.Symbol, p.PnLPercent),
				Action:  "Consider taking partial profit",
				Amount:  decimal.Zero,
			})
		case p.PnLPercent < policy.StopLossPct:
			out = append(out, Suggestion{
				Type:    TypeStopLoss,
				Symbol:  p.Symbol,
				Message: fmt.Sprintf("%s is down %.1f%%", p.Symbol, p.PnLPercent),
				Action:  "Consider cutting the loss if fundamentals weaken",
				Amount:  decimal.Zero,
			})
		}
	}

	if len(out) > 0 {
		a.logger.WithField("suggestions", len(out)).Debug("rebalance suggestions generated")
	}
	return out
}

func withDefaults(p strategyconfig.PortfolioPolicy) strategyconfig.PortfolioPolicy {
	def := strategyconfig.Default().Portfolio
	if p == (strategyconfig.PortfolioPolicy{}) {
		return def
	}
	// fields Validate rejects; MinCashReserve 0 is a valid setting
	if p.MaxPositionSize <= 0 {
		p.MaxPositionSize = def.MaxPositionSize
	}
	if p.TakeProfitPct <= 0 {
		p.TakeProfitPct = def.TakeProfitPct
	}
	if p.StopLossPct >= 0 {
		p.StopLossPct = def.StopLossPct
	}
	return p
}
