package technical

import (
	"github.com/nicebigrose/stock-analysis-system/internal/contracts"
	"github.com/nicebigrose/stock-analysis-system/internal/strategyconfig"
)

// Pattern names
const (
	PatternGoldenCross   = "Golden Cross (Bullish)"
	PatternDeathCross    = "Death Cross (Bearish)"
	PatternRSIOversold   = "RSI Oversold (Potential Buy)"
	PatternRSIOverbought = "RSI Overbought (Potential Sell)"
	PatternMACDBullish   = "MACD Bullish Crossover"
	PatternMACDBearish   = "MACD Bearish Crossover"
	PatternBBUpper       = "BB Upper Breakout (Overbought)"
	PatternBBLower       = "BB Lower Breakout (Oversold)"
)

// DetectPatterns compares the latest bar to the previous one.
// Informational only; patterns never change the signal score.
func DetectPatterns(latest, prev contracts.IndicatorSnapshot, p strategyconfig.TechnicalParams) []string {
	patterns := []string{}

	maL, maP := latest.SMAOf(p.MediumMA), prev.SMAOf(p.MediumMA)
	longL, longP := latest.SMAOf(p.LongMA), prev.SMAOf(p.LongMA)

	if maL > longL && maP <= longP {
		patterns = append(patterns, PatternGoldenCross)
	}
	if maL < longL && maP >= longP {
		patterns = append(patterns, PatternDeathCross)
	}

	if latest.RSI < p.RSIOversold {
		patterns = append(patterns, PatternRSIOversold)
	}
	if latest.RSI > p.RSIOverbought {
		patterns = append(patterns, PatternRSIOverbought)
	}

	if latest.MACD > latest.MACDSignal && prev.MACD <= prev.MACDSignal {
		patterns = append(patterns, PatternMACDBullish)
	}
	if latest.MACD < latest.MACDSignal && prev.MACD >= prev.MACDSignal {
		patterns = append(patterns, PatternMACDBearish)
	}

	if latest.Close > latest.BBUpper {
		patterns = append(patterns, PatternBBUpper)
	}
	if latest.Close < latest.BBLower {
		patterns = append(patterns, PatternBBLower)
	}

	return patterns
}
