// Package technical turns indicator snapshots into signals, trends,
// patterns and support/resistance levels.
package technical

import (
	"github.com/nicebigrose/stock-analysis-system/internal/contracts"
	"github.com/nicebigrose/stock-analysis-system/internal/indicators"
	"github.com/nicebigrose/stock-analysis-system/internal/strategyconfig"
)

// Fixed RSI bands used for scoring. Pattern detection uses the
// configured oversold/overbought levels instead.
const (
	rsiOversold    = 30
	rsiAttractive  = 40
	rsiHigh        = 60
	rsiOverbought  = 70
	strongBuyScore = 3
	buyScore       = 1
)

// GenerateSignal scores the latest bar. Each rule contributes at most once.
// volumes is the raw volume column; its trailing mean confirms volume
// spikes but never changes the score. NaN inputs contribute nothing.
func GenerateSignal(s contracts.IndicatorSnapshot, volumes []float64, p strategyconfig.TechnicalParams) contracts.SignalResult {
	score := 0
	reasons := []string{}

	// RSI
	switch {
	case s.RSI < rsiOversold:
		score += 2
		reasons = append(reasons, "RSI oversold (<30)")
	case s.RSI < rsiAttractive:
		score++
		reasons = append(reasons, "RSI attractive (<40)")
	case s.RSI > rsiOverbought:
		score -= 2
		reasons = append(reasons, "RSI overbought (>70)")
	case s.RSI > rsiHigh:
		score--
		reasons = append(reasons, "RSI high (>60)")
	}

	// MACD
	switch {
	case s.MACD > s.MACDSignal && s.MACDHist > 0:
		score++
		reasons = append(reasons, "MACD bullish")
	case s.MACD < s.MACDSignal:
		score--
		reasons = append(reasons, "MACD bearish")
	}

	// Price vs moving averages
	ma50, ma200 := s.SMAOf(p.MediumMA), s.SMAOf(p.LongMA)
	switch {
	case s.Close > ma50 && ma50 > ma200:
		score += 2
		reasons = append(reasons, "Price above MA50 and MA200")
	case s.Close < ma50 && ma50 < ma200:
		score -= 2
		reasons = append(reasons, "Price below MA50 and MA200")
	}

	// Bollinger
	switch {
	case s.Close < s.BBLower:
		score++
		reasons = append(reasons, "Price near lower BB")
	case s.Close > s.BBUpper:
		score--
		reasons = append(reasons, "Price near upper BB")
	}

	// Volume: reason only
	if len(volumes) > 0 {
		avg := indicators.TrailingMean(volumes, p.VolumeWindow)
		if s.Volume > avg*p.VolumeSpike {
			reasons = append(reasons, "High volume confirmation")
		}
	}

	return contracts.SignalResult{
		Signal:  SignalFor(score),
		Score:   score,
		Reasons: reasons,
	}
}

// SignalFor buckets a signal score
func SignalFor(score int) contracts.Signal {
	switch {
	case score >= strongBuyScore:
		return contracts.SignalStrongBuy
	case score >= buyScore:
		return contracts.SignalBuy
	case score <= -strongBuyScore:
		return contracts.SignalStrongSell
	case score <= -buyScore:
		return contracts.SignalSell
	default:
		return contracts.SignalHold
	}
}
