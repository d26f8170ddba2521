package technical

import (
	"fmt"
	"math"

	"github.com/nicebigrose/stock-analysis-system/internal/contracts"
	"github.com/nicebigrose/stock-analysis-system/internal/indicators"
	"github.com/nicebigrose/stock-analysis-system/internal/strategyconfig"
	"github.com/nicebigrose/stock-analysis-system/pkg/logger"
)

// Analysis is the full technical view of one symbol
type Analysis struct {
	Symbol       string                      `json:"symbol"`
	Snapshot     contracts.IndicatorSnapshot `json:"snapshot"`
	Trend        Trend                       `json:"trend"`
	Patterns     []string                    `json:"patterns"`
	Signal       contracts.SignalResult      `json:"signal"`
	Levels       Levels                      `json:"support_resistance"`
	Alerts       []Alert                     `json:"alerts"`
	PriceVsMA50  float64                     `json:"price_vs_ma50"`  // %
	PriceVsMA200 float64                     `json:"price_vs_ma200"` // %
}

// Analyzer runs indicator computation and every technical rule
// ⭐ SSOT: 기술적 분석 진입점
type Analyzer struct {
	params strategyconfig.TechnicalParams
	alerts strategyconfig.AlertThresholds
	logger *logger.Logger
}

// NewAnalyzer creates an analyzer from the strategy
func NewAnalyzer(cfg strategyconfig.Config, log *logger.Logger) *Analyzer {
	return &Analyzer{
		params: cfg.Technical,
		alerts: cfg.Alerts,
		logger: log.WithComponent("technical"),
	}
}

// Params returns the indicator parameters in use
func (a *Analyzer) Params() strategyconfig.TechnicalParams {
	return a.params
}

// Analyze computes indicators for series and scores the latest bar.
// Fails with contracts.ErrDataUnavailable on an empty series and
// contracts.ErrComputation when it is shorter than the longest window.
func (a *Analyzer) Analyze(symbol string, series contracts.PriceSeries) (*Analysis, error) {
	if len(series) == 0 {
		return nil, fmt.Errorf("%s: %w: empty price series", symbol, contracts.ErrDataUnavailable)
	}

	frame, err := indicators.Compute(series, a.params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", symbol, err)
	}

	latest := frame.Latest()
	levels := SupportResistance(series, a.params.LevelWindow)

	res := &Analysis{
		Symbol:       symbol,
		Snapshot:     latest,
		Trend:        ClassifyTrend(frame, a.params),
		Patterns:     DetectPatterns(latest, frame.Previous(), a.params),
		Signal:       GenerateSignal(latest, series.Volumes(), a.params),
		Levels:       levels,
		Alerts:       Alerts(series, latest, levels, a.params.VolumeWindow, a.alerts),
		PriceVsMA50:  pctFrom(latest.Close, latest.SMAOf(a.params.MediumMA)),
		PriceVsMA200: pctFrom(latest.Close, latest.SMAOf(a.params.LongMA)),
	}

	a.logger.WithFields(map[string]interface{}{
		"symbol":   symbol,
		"bars":     len(series),
		"rsi":      latest.RSI,
		"macd":     latest.MACD,
		"signal":   res.Signal.Signal,
		"score":    res.Signal.Score,
		"patterns": len(res.Patterns),
	}).Debug("Technical analysis complete")

	return res, nil
}

func pctFrom(v, base float64) float64 {
	if base == 0 || math.IsNaN(base) {
		return 0
	}
	return (v - base) / base * 100
}
