package fundamental

import (
	"fmt"
	"math"
	"sort"

	"github.com/nicebigrose/stock-analysis-system/internal/contracts"
)

// defaultFairPE is used when neither an industry P/E nor a growth rate is given
const defaultFairPE = 15

// Valuator prices a stock with several textbook models
type Valuator struct {
	RiskFreeRate float64
	MarketReturn float64
}

// NewValuator creates a valuator. Defaults: rf 5%, market return 12%.
func NewValuator(riskFreeRate, marketReturn float64) *Valuator {
	if riskFreeRate <= 0 {
		riskFreeRate = 0.05
	}
	if marketReturn <= 0 {
		marketReturn = 0.12
	}
	return &Valuator{RiskFreeRate: riskFreeRate, MarketReturn: marketReturn}
}

// DCFResult is an enterprise value built from projected free cash flows
type DCFResult struct {
	EnterpriseValue float64 `json:"enterprise_value"`
	PVFCF           float64 `json:"pv_fcf"`
	TerminalValue   float64 `json:"terminal_value"`
	PVTerminal      float64 `json:"pv_terminal"`
}

// DCF discounts projected free cash flows plus a Gordon terminal value
func (v *Valuator) DCF(cashFlows []float64, discountRate, terminalGrowth float64) (*DCFResult, error) {
	if len(cashFlows) == 0 {
		return nil, fmt.Errorf("%w: no cash flow projections", contracts.ErrComputation)
	}
	if discountRate <= terminalGrowth {
		return nil, fmt.Errorf("%w: discount rate %.4f must exceed terminal growth %.4f",
			contracts.ErrComputation, discountRate, terminalGrowth)
	}

	var res DCFResult
	for i, fcf := range cashFlows {
		res.PVFCF += fcf / math.Pow(1+discountRate, float64(i+1))
	}

	last := cashFlows[len(cashFlows)-1]
	res.TerminalValue = last * (1 + terminalGrowth) / (discountRate - terminalGrowth)
	res.PVTerminal = res.TerminalValue / math.Pow(1+discountRate, float64(len(cashFlows)))
	res.EnterpriseValue = res.PVFCF + res.PVTerminal
	return &res, nil
}

// MethodResult is a per-share fair value from one multiple
type MethodResult struct {
	Method       string  `json:"method"`
	FairValue    float64 `json:"fair_value"`
	FairMultiple float64 `json:"fair_multiple"`
	Base         float64 `json:"base"` // EPS or BVPS
}

// PE values eps at a fair P/E: industryPE if given, else growth*100
// (PEG = 1), else 15
func (v *Valuator) PE(eps float64, industryPE, growth *float64) MethodResult {
	fairPE := float64(defaultFairPE)
	switch {
	case industryPE != nil:
		fairPE = *industryPE
	case growth != nil && *growth != 0:
		fairPE = *growth * 100
	}
	return MethodResult{Method: "pe", FairValue: eps * fairPE, FairMultiple: fairPE, Base: eps}
}

// PB values book value at fair P/B = roe / requiredReturn (roe as a fraction)
func (v *Valuator) PB(bvps, roe, requiredReturn float64) (MethodResult, error) {
	if requiredReturn <= 0 {
		return MethodResult{}, fmt.Errorf("%w: required return must be positive", contracts.ErrComputation)
	}
	fairPB := roe / requiredReturn
	return MethodResult{Method: "pb", FairValue: bvps * fairPB, FairMultiple: fairPB, Base: bvps}, nil
}

// DDM is the Gordon growth model D1/(r-g). Fails when r <= g.
func (v *Valuator) DDM(dividend, growth, requiredReturn float64) (float64, error) {
	if requiredReturn <= growth {
		return 0, fmt.Errorf("%w: required return %.4f must exceed growth %.4f",
			contracts.ErrComputation, requiredReturn, growth)
	}
	return dividend * (1 + growth) / (requiredReturn - growth), nil
}

// Valuation summarises every model that could run
type Valuation struct {
	Methods      []MethodResult `json:"methods"`
	AverageValue float64        `json:"average_fair_value"`
	MedianValue  float64        `json:"median_fair_value"`
	CurrentPrice float64        `json:"current_price,omitempty"`
	Upside       *float64       `json:"upside_percent,omitempty"`
}

// Comprehensive runs the P/E method (needs EPS) and the P/B method
// (needs BVPS and ROE) and averages them. Returns nil when neither can run.
// currentPrice <= 0 leaves Upside absent.
func (v *Valuator) Comprehensive(ratios *contracts.RatioSnapshot, growth, currentPrice float64) *Valuation {
	if ratios == nil {
		return nil
	}

	var methods []MethodResult
	if ratios.EPS != nil && *ratios.EPS != 0 {
		methods = append(methods, v.PE(*ratios.EPS, nil, &growth))
	}
	if ratios.BVPS != nil && ratios.ROE != nil && *ratios.BVPS != 0 && *ratios.ROE != 0 {
		if pb, err := v.PB(*ratios.BVPS, *ratios.ROE/100, v.MarketReturn); err == nil {
			methods = append(methods, pb)
		}
	}
	if len(methods) == 0 {
		return nil
	}

	values := make([]float64, len(methods))
	var sum float64
	for i, m := range methods {
		values[i] = m.FairValue
		sum += m.FairValue
	}

	val := &Valuation{
		Methods:      methods,
		AverageValue: sum / float64(len(values)),
		MedianValue:  median(values),
		CurrentPrice: currentPrice,
	}
	if currentPrice > 0 {
		up := (val.AverageValue - currentPrice) / currentPrice * 100
		val.Upside = &up
	}
	return val
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
