// Package risk computes return-based risk metrics and an A-F
// risk-adjusted grade.
package risk

import (
	"encoding/json"
	"math"
)

// DefaultConfidence is the VaR/CVaR confidence level
const DefaultConfidence = 0.95

// Metrics summarises a daily return series.
// Percent fields are in percent (5 = 5%). MaxDrawdown, VaR and CVaR are
// negative for losses.
type Metrics struct {
	Observations     int      `json:"observations"`
	TotalReturn      float64  `json:"total_return"`
	AnnualizedReturn float64  `json:"annualized_return"`
	Volatility       float64  `json:"volatility"`
	Sharpe           float64  `json:"sharpe_ratio"`
	Sortino          float64  `json:"sortino_ratio"` // +Inf when no downside
	MaxDrawdown      float64  `json:"max_drawdown"`
	VaR95            float64  `json:"var_95"`
	CVaR95           float64  `json:"cvar_95"`
	Calmar           float64  `json:"calmar_ratio"` // +Inf when no drawdown
	Beta             *float64 `json:"beta,omitempty"`
	Alpha            *float64 `json:"alpha,omitempty"`
}

// MarshalJSON writes infinite ratios as null
func (m Metrics) MarshalJSON() ([]byte, error) {
	type alias Metrics
	return json.Marshal(struct {
		alias
		Sortino *float64 `json:"sortino_ratio"`
		Calmar  *float64 `json:"calmar_ratio"`
	}{
		alias:   alias(m),
		Sortino: finite(m.Sortino),
		Calmar:  finite(m.Calmar),
	})
}

func finite(v float64) *float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}

// Engine computes metrics against a fixed annual risk-free rate
type Engine struct {
	RiskFreeRate float64
}

// NewEngine creates a risk engine. rf <= 0 defaults to 5%.
func NewEngine(riskFreeRate float64) *Engine {
	if riskFreeRate <= 0 {
		riskFreeRate = 0.05
	}
	return &Engine{RiskFreeRate: riskFreeRate}
}

// Compute derives every metric from daily returns. market is optional;
// when given, Beta and Alpha are filled. Returns false when returns is empty.
func (e *Engine) Compute(returns, market []float64) (Metrics, bool) {
	if len(returns) == 0 {
		return Metrics{}, false
	}

	annual := Mean(returns) * TradingDays
	m := Metrics{
		Observations:     len(returns),
		TotalReturn:      (growth(returns) - 1) * 100,
		AnnualizedReturn: annual * 100,
		Volatility:       Volatility(returns) * 100,
		Sharpe:           e.Sharpe(returns),
		Sortino:          e.Sortino(returns),
		MaxDrawdown:      MaxDrawdown(returns),
		VaR95:            VaR(returns, DefaultConfidence),
		CVaR95:           CVaR(returns, DefaultConfidence),
	}

	if dd := math.Abs(m.MaxDrawdown); dd == 0 {
		m.Calmar = math.Inf(1)
	} else {
		m.Calmar = annual * 100 / dd
	}

	if len(market) > 0 {
		beta := Beta(returns, market)
		alpha := e.Alpha(returns, market)
		m.Beta = &beta
		m.Alpha = &alpha
	}
	return m, true
}

// Volatility is the annualised standard deviation (fraction)
func Volatility(returns []float64) float64 {
	return StdDev(returns) * math.Sqrt(TradingDays)
}

// Sharpe is mean(excess)/std(excess) annualised. 0 when flat.
func (e *Engine) Sharpe(returns []float64) float64 {
	excess := e.excess(returns)
	sd := StdDev(excess)
	if len(excess) == 0 || sd == 0 {
		return 0
	}
	return Mean(excess) / sd * math.Sqrt(TradingDays)
}

// Sortino divides by the deviation of negative excess returns only.
// +Inf when no excess return is negative.
func (e *Engine) Sortino(returns []float64) float64 {
	excess := e.excess(returns)
	var downside []float64
	for _, r := range excess {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	if len(downside) == 0 {
		return math.Inf(1)
	}
	sd := StdDev(downside)
	if sd == 0 {
		return 0
	}
	return Mean(excess) / sd * math.Sqrt(TradingDays)
}

// Alpha is the annualised return above the CAPM expectation
func (e *Engine) Alpha(returns, market []float64) float64 {
	beta := Beta(returns, market)
	stock := Mean(returns) * TradingDays
	mkt := Mean(market) * TradingDays
	return stock - (e.RiskFreeRate + beta*(mkt-e.RiskFreeRate))
}

func (e *Engine) excess(returns []float64) []float64 {
	daily := e.RiskFreeRate / TradingDays
	out := make([]float64, len(returns))
	for i, r := range returns {
		out[i] = r - daily
	}
	return out
}

// MaxDrawdown is the deepest fall of the compounded path from its running
// peak, in percent (<= 0). The path starts at 1 before the first return.
func MaxDrawdown(returns []float64) float64 {
	cum, peak, worst := 1.0, 1.0, 0.0
	for _, r := range returns {
		cum *= 1 + r
		if cum > peak {
			peak = cum
		}
		if dd := (cum - peak) / peak; dd < worst {
			worst = dd
		}
	}
	return worst * 100
}

// VaR is the historical (1-confidence) percentile of returns, in percent
func VaR(returns []float64, confidence float64) float64 {
	return Percentile(returns, (1-confidence)*100) * 100
}

// CVaR is the mean of returns at or below the VaR cutoff, in percent
func CVaR(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	cutoff := Percentile(returns, (1-confidence)*100)
	var tail []float64
	for _, r := range returns {
		if r <= cutoff {
			tail = append(tail, r)
		}
	}
	return Mean(tail) * 100
}

// Beta is cov(stock, market)/var(market) over the common prefix. 0 when
// the market is flat.
func Beta(returns, market []float64) float64 {
	n := len(returns)
	if len(market) < n {
		n = len(market)
	}
	if n == 0 {
		return 0
	}
	variance := StdDev(market[:n])
	variance *= variance
	if variance == 0 {
		return 0
	}
	return Covariance(returns[:n], market[:n]) / variance
}

func growth(returns []float64) float64 {
	g := 1.0
	for _, r := range returns {
		g *= 1 + r
	}
	return g
}
