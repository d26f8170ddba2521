package technical

import (
	"math"

	"github.com/nicebigrose/stock-analysis-system/internal/indicators"
	"github.com/nicebigrose/stock-analysis-system/internal/strategyconfig"
)

// Direction is a trend direction
type Direction string

const (
	Uptrend   Direction = "Uptrend"
	Downtrend Direction = "Downtrend"
	Sideways  Direction = "Sideways"
)

// Strength is the medium-MA slope class
type Strength string

const (
	StrengthStrong Strength = "Strong"
	StrengthWeak   Strength = "Weak"
)

const (
	slopeLookback  = 20
	strongSlopeMin = 0.5
)

// Trend classifies the latest close against the medium and long MAs
type Trend struct {
	LongTerm   Direction `json:"long_term"`
	MediumTerm Direction `json:"medium_term"`
	Strength   Strength  `json:"strength"`
	Slope      float64   `json:"slope"`
}

func direction(close, ma float64) Direction {
	switch {
	case close > ma:
		return Uptrend
	case close < ma:
		return Downtrend
	default:
		return Sideways
	}
}

// ClassifyTrend compares the latest close to SMA(long) and SMA(medium).
// Strength is Strong when |(SMA(medium)[last] - SMA(medium)[last-19]) / 20| > 0.5.
func ClassifyTrend(f *indicators.Frame, p strategyconfig.TechnicalParams) Trend {
	last := f.Len() - 1
	latest := f.Latest()

	t := Trend{
		LongTerm:   direction(latest.Close, latest.SMAOf(p.LongMA)),
		MediumTerm: direction(latest.Close, latest.SMAOf(p.MediumMA)),
		Strength:   StrengthWeak,
	}

	col := f.SMA[p.MediumMA]
	if past := last - (slopeLookback - 1); col != nil && past >= 0 {
		t.Slope = (col[last] - col[past]) / slopeLookback
		if math.Abs(t.Slope) > strongSlopeMin {
			t.Strength = StrengthStrong
		}
	}
	return t
}
