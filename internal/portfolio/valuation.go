package portfolio

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nicebigrose/stock-analysis-system/internal/contracts"
	"github.com/nicebigrose/stock-analysis-system/internal/risk"
	"github.com/nicebigrose/stock-analysis-system/pkg/logger"
)

// DefaultRiskLookback is the price history used for risk metrics
const DefaultRiskLookback = 365 * 24 * time.Hour

var hundred = decimal.NewFromInt(100)

// Snapshotter is anything that can hand out a ledger state copy
type Snapshotter interface {
	Snapshot() *State
}

// PositionValue is one position marked to market.
// When PriceUnavailable is set the position is valued at cost basis.
type PositionValue struct {
	Symbol           string          `json:"symbol"`
	Shares           int64           `json:"shares"`
	AvgCost          decimal.Decimal `json:"avg_cost"`
	CurrentPrice     decimal.Decimal `json:"current_price"`
	Value            decimal.Decimal `json:"value"`
	Cost             decimal.Decimal `json:"cost"`
	PnL              decimal.Decimal `json:"pnl"`
	PnLPercent       float64         `json:"pnl_percent"`
	Weight           float64         `json:"weight"` // % of total value
	PriceUnavailable bool            `json:"price_unavailable,omitempty"`
}

// Valuation is the ledger marked to market
type Valuation struct {
	AsOf           time.Time       `json:"as_of"`
	TotalValue     decimal.Decimal `json:"total_value"`
	Cash           decimal.Decimal `json:"cash"`
	PositionsValue decimal.Decimal `json:"positions_value"`
	CashPercent    float64         `json:"cash_percent"`
	Positions      []PositionValue `json:"positions"`
}

// Performance compares current value with money deposited.
// TotalPnL and RealizedPnL+UnrealizedPnL are derived independently: buy
// fees reduce TotalPnL but not UnrealizedPnL, which is measured from the
// fee-free average cost.
type Performance struct {
	TotalDeposits   decimal.Decimal `json:"total_deposits"`
	CurrentValue    decimal.Decimal `json:"current_value"`
	TotalPnL        decimal.Decimal `json:"total_pnl"`
	TotalPnLPercent float64         `json:"total_pnl_percent"`
	RealizedPnL     decimal.Decimal `json:"realized_pnl"`
	UnrealizedPnL   decimal.Decimal `json:"unrealized_pnl"`
}

// RiskReport is the held symbols' pooled return risk
type RiskReport struct {
	Symbols []string     `json:"symbols"`
	Metrics risk.Metrics `json:"metrics"`
	Rating  risk.Rating  `json:"rating"`
}

// Valuer marks ledgers to market
type Valuer struct {
	latest  contracts.LatestPriceProvider
	history contracts.PriceProvider
	engine  *risk.Engine
	now     func() time.Time
	logger  *logger.Logger
}

// NewValuer creates a valuer. history may be nil when RiskMetrics is unused.
func NewValuer(latest contracts.LatestPriceProvider, history contracts.PriceProvider, riskFreeRate float64, log *logger.Logger) *Valuer {
	return &Valuer{
		latest:  latest,
		history: history,
		engine:  risk.NewEngine(riskFreeRate),
		now:     time.Now,
		logger:  log.WithComponent("valuer"),
	}
}

// CurrentValue is cash plus every position at its latest close
func (v *Valuer) CurrentValue(ctx context.Context, ledger Snapshotter) (*Valuation, error) {
	return v.value(ctx, ledger.Snapshot())
}

func (v *Valuer) value(ctx context.Context, state *State) (*Valuation, error) {
	val := &Valuation{
		AsOf:           v.now(),
		Cash:           state.Cash,
		PositionsValue: decimal.Zero,
		Positions:      make([]PositionValue, 0, len(state.Positions)),
	}

	for _, p := range state.Positions {
		pv := PositionValue{
			Symbol:  p.Symbol,
			Shares:  p.Shares,
			AvgCost: p.AvgCost,
			Cost:    p.CostBasis(),
		}

		latest, err := v.latest.Latest(ctx, p.Symbol)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if err != nil || latest == nil || latest.Close <= 0 {
			v.logger.WithFields(map[string]interface{}{
				"symbol": p.Symbol,
				"error":  fmt.Sprint(err),
			}).Warn("latest price unavailable, valuing at cost")
			pv.PriceUnavailable = true
			pv.CurrentPrice = p.AvgCost
			pv.Value = pv.Cost
			pv.PnL = decimal.Zero
		} else {
			pv.CurrentPrice = decimal.NewFromFloat(latest.Close)
			pv.Value = pv.CurrentPrice.Mul(decimal.NewFromInt(p.Shares))
			pv.PnL = pv.Value.Sub(pv.Cost)
			if p.AvgCost.IsPositive() {
				pv.PnLPercent = pv.CurrentPrice.Sub(p.AvgCost).Div(p.AvgCost).Mul(hundred).InexactFloat64()
			}
		}

		val.PositionsValue = val.PositionsValue.Add(pv.Value)
		val.Positions = append(val.Positions, pv)
	}

	val.TotalValue = val.Cash.Add(val.PositionsValue)
	if val.TotalValue.IsPositive() {
		for i := range val.Positions {
			val.Positions[i].Weight = percentOf(val.Positions[i].Value, val.TotalValue)
		}
		val.CashPercent = percentOf(val.Cash, val.TotalValue)
	}
	return val, nil
}

// Performance reports deposits against current value
func (v *Valuer) Performance(ctx context.Context, ledger Snapshotter) (*Performance, error) {
	state := ledger.Snapshot()
	val, err := v.value(ctx, state)
	if err != nil {
		return nil, err
	}

	perf := &Performance{
		TotalDeposits: decimal.Zero,
		CurrentValue:  val.TotalValue,
		RealizedPnL:   decimal.Zero,
		UnrealizedPnL: decimal.Zero,
	}
	for _, tx := range state.History {
		switch tx.Type {
		case TxDeposit:
			perf.TotalDeposits = perf.TotalDeposits.Add(tx.Amount)
		case TxSell:
			if tx.PnL != nil {
				perf.RealizedPnL = perf.RealizedPnL.Add(*tx.PnL)
			}
		}
	}
	for _, p := range val.Positions {
		perf.UnrealizedPnL = perf.UnrealizedPnL.Add(p.PnL)
	}

	perf.TotalPnL = perf.CurrentValue.Sub(perf.TotalDeposits)
	if perf.TotalDeposits.IsPositive() {
		perf.TotalPnLPercent = percentOf(perf.TotalPnL, perf.TotalDeposits)
	}
	return perf, nil
}

// RiskMetrics pools the daily returns of every held symbol over lookback
// and grades them. ErrDataUnavailable when nothing is held or no history
// comes back.
func (v *Valuer) RiskMetrics(ctx context.Context, ledger Snapshotter, lookback time.Duration) (*RiskReport, error) {
	if v.history == nil {
		return nil, fmt.Errorf("%w: no price history provider", contracts.ErrDataUnavailable)
	}
	if lookback <= 0 {
		lookback = DefaultRiskLookback
	}

	state := ledger.Snapshot()
	if len(state.Positions) == 0 {
		return nil, fmt.Errorf("%w: no open positions", contracts.ErrDataUnavailable)
	}

	to := v.now()
	from := to.Add(-lookback)

	report := &RiskReport{Symbols: []string{}}
	var returns []float64
	for _, p := range state.Positions {
		series, err := v.history.History(ctx, p.Symbol, from, to)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			v.logger.WithError(err).WithField("symbol", p.Symbol).Warn("history unavailable, excluded from risk")
			continue
		}
		r := risk.Returns(series.Closes())
		if len(r) == 0 {
			continue
		}
		returns = append(returns, r...)
		report.Symbols = append(report.Symbols, p.Symbol)
	}

	metrics, ok := v.engine.Compute(returns, nil)
	if !ok {
		return nil, fmt.Errorf("%w: no return history for held symbols", contracts.ErrDataUnavailable)
	}
	report.Metrics = metrics
	report.Rating = risk.Rate(metrics)
	return report, nil
}

func percentOf(part, total decimal.Decimal) float64 {
	return part.Div(total).Mul(hundred).InexactFloat64()
}
