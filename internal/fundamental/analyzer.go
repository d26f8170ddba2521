package fundamental

import (
	"fmt"
	"time"

	"github.com/nicebigrose/stock-analysis-system/internal/contracts"
	"github.com/nicebigrose/stock-analysis-system/internal/strategyconfig"
	"github.com/nicebigrose/stock-analysis-system/pkg/logger"
)

// Intrinsic is the PEG=1 fair value estimate
type Intrinsic struct {
	Value      float64 `json:"intrinsic_value"`
	CurrentEPS float64 `json:"current_eps"`
	FairPE     float64 `json:"fair_pe"`
	CurrentPE  float64 `json:"current_pe"`
}

// IntrinsicValue is EPS x (growth*100). Absent without both EPS and P/E.
func IntrinsicValue(ratios *contracts.RatioSnapshot, growth float64) *Intrinsic {
	if ratios == nil || ratios.EPS == nil || ratios.PE == nil {
		return nil
	}
	fairPE := growth * 100
	return &Intrinsic{
		Value:      *ratios.EPS * fairPE,
		CurrentEPS: *ratios.EPS,
		FairPE:     fairPE,
		CurrentPE:  *ratios.PE,
	}
}

// Analysis is the full fundamental view of one symbol
type Analysis struct {
	Symbol         string                    `json:"symbol"`
	Ratios         *contracts.RatioSnapshot  `json:"ratios"`
	Profile        *contracts.CompanyProfile `json:"profile"`
	Score          contracts.ScoreResult     `json:"scoring"`
	Criteria       contracts.CriteriaCheck   `json:"criteria"`
	Intrinsic      *Intrinsic                `json:"valuation,omitempty"`
	Valuation      *Valuation                `json:"valuation_models,omitempty"`
	Recommendation contracts.Recommendation  `json:"recommendation"`
	// Stale is set when the reporting period is too old (warning only)
	Stale bool `json:"stale,omitempty"`
}

// Analyzer bundles scoring, criteria, valuation and recommendation
// ⭐ SSOT: 펀더멘털 분석 진입점
type Analyzer struct {
	scorer   *Scorer
	valuator *Valuator
	criteria strategyconfig.Criteria
	growth   float64
	stale    int
	now      func() time.Time
	logger   *logger.Logger
}

// NewAnalyzer creates an analyzer from the strategy
func NewAnalyzer(cfg strategyconfig.Config, log *logger.Logger) *Analyzer {
	return &Analyzer{
		scorer:   NewScorer(),
		valuator: NewValuator(cfg.Portfolio.RiskFreeRate, 0),
		criteria: cfg.Criteria,
		growth:   cfg.Screening.GrowthRate,
		stale:    cfg.Screening.StaleYears,
		now:      time.Now,
		logger:   log.WithComponent("fundamental"),
	}
}

// Scorer exposes the underlying scorer
func (a *Analyzer) Scorer() *Scorer {
	return a.scorer
}

// Valuator exposes the underlying valuator
func (a *Analyzer) Valuator() *Valuator {
	return a.valuator
}

// Analyze runs the full fundamental pipeline. A nil profile is replaced
// by the symbol fallback. Stale data is flagged, never rejected.
func (a *Analyzer) Analyze(ratios *contracts.RatioSnapshot, profile *contracts.CompanyProfile) (*Analysis, error) {
	if ratios == nil {
		return nil, fmt.Errorf("%w: no ratios", contracts.ErrDataUnavailable)
	}
	if profile == nil {
		profile = contracts.FallbackProfile(ratios.Symbol)
	}

	score := a.scorer.Score(ratios)
	check := CheckCriteria(ratios, a.criteria)

	analysis := &Analysis{
		Symbol:         ratios.Symbol,
		Ratios:         ratios,
		Profile:        profile,
		Score:          score,
		Criteria:       check,
		Intrinsic:      IntrinsicValue(ratios, a.growth),
		Valuation:      a.valuator.Comprehensive(ratios, a.growth, 0),
		Recommendation: Recommend(score, check),
	}

	if a.stale > 0 && ratios.IsStale(a.now(), a.stale) {
		analysis.Stale = true
		a.logger.WithFields(map[string]interface{}{
			"symbol": ratios.Symbol,
			"year":   ratios.Year,
		}).WithError(contracts.ErrStaleData).Warn("Reporting period is old, using it anyway")
	}

	a.logger.WithFields(map[string]interface{}{
		"symbol":     ratios.Symbol,
		"score":      score.Score,
		"max_score":  score.MaxScore,
		"percentage": score.Percentage,
		"rating":     score.Rating,
		"action":     analysis.Recommendation.Action,
	}).Debug("Fundamental analysis complete")

	return analysis, nil
}

// ValueAt re-runs the valuation models against a live price
func (a *Analyzer) ValueAt(ratios *contracts.RatioSnapshot, price float64) *Valuation {
	return a.valuator.Comprehensive(ratios, a.growth, price)
}
