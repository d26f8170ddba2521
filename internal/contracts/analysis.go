package contracts

import (
	"math"
	"time"
)

// Rating is the fundamental rating bucket
type Rating string

const (
	RatingExcellent    Rating = "EXCELLENT"
	RatingGood         Rating = "GOOD"
	RatingAverage      Rating = "AVERAGE"
	RatingBelowAverage Rating = "BELOW AVERAGE"
	RatingPoor         Rating = "POOR"
)

// Ordinal maps a rating to 1..5. Unknown ratings are neutral (3).
func (r Rating) Ordinal() int {
	switch r {
	case RatingExcellent:
		return 5
	case RatingGood:
		return 4
	case RatingAverage:
		return 3
	case RatingBelowAverage:
		return 2
	case RatingPoor:
		return 1
	default:
		return 3
	}
}

// Signal is the technical signal bucket
type Signal string

const (
	SignalStrongBuy  Signal = "STRONG BUY"
	SignalBuy        Signal = "BUY"
	SignalHold       Signal = "HOLD"
	SignalSell       Signal = "SELL"
	SignalStrongSell Signal = "STRONG SELL"
)

// Ordinal maps a signal to 1..5. Unknown signals are neutral (3).
func (s Signal) Ordinal() int {
	switch s {
	case SignalStrongBuy:
		return 5
	case SignalBuy:
		return 4
	case SignalHold:
		return 3
	case SignalSell:
		return 2
	case SignalStrongSell:
		return 1
	default:
		return 3
	}
}

// IsBuy reports BUY or STRONG BUY
func (s Signal) IsBuy() bool {
	return s == SignalBuy || s == SignalStrongBuy
}

// Action is a recommended action (fundamental or combined)
type Action string

const (
	ActionStrongBuy Action = "STRONG BUY"
	ActionBuy       Action = "BUY"
	ActionHold      Action = "HOLD"
	ActionAvoid     Action = "AVOID"
	ActionSell      Action = "SELL"
)

// IsBuy reports BUY or STRONG BUY
func (a Action) IsBuy() bool {
	return a == ActionBuy || a == ActionStrongBuy
}

// ScoreResult is the Ratio Scorer output.
// 0 <= Score <= MaxScore; Percentage = Score/MaxScore*100 (0 when MaxScore is 0)
type ScoreResult struct {
	Score      float64  `json:"score"`
	MaxScore   float64  `json:"max_score"`
	Percentage float64  `json:"percentage"`
	Rating     Rating   `json:"rating"`
	Reasons    []string `json:"reasons"`
}

// CriteriaCheck is the pass/fail evaluation against screening minimums
type CriteriaCheck struct {
	MeetsCriteria bool     `json:"meets_criteria"`
	Passed        []string `json:"passed"`
	Failed        []string `json:"failed"`
	Notes         []string `json:"notes,omitempty"` // informational, never fail
}

// Recommendation is the fundamental-only action
type Recommendation struct {
	Action     Action  `json:"action"`
	Note       string  `json:"note"`
	Confidence float64 `json:"confidence"`
}

// SignalResult is the Signal Generator output
type SignalResult struct {
	Signal  Signal   `json:"signal"`
	Score   int      `json:"score"`
	Reasons []string `json:"reasons"`
}

// CombinedResult merges fundamental and technical views.
// CombinedScore = FundamentalScore*0.6 + TechnicalScore*0.4
type CombinedResult struct {
	FundamentalScore int      `json:"fundamental_score"`
	TechnicalScore   int      `json:"technical_score"`
	CombinedScore    float64  `json:"combined_score"`
	FinalRating      Action   `json:"final_rating"`
	HasConflict      bool     `json:"has_conflict"`
	Strengths        []string `json:"strengths"`
	Weaknesses       []string `json:"weaknesses"`
	Note             string   `json:"note"`
	Action           string   `json:"action"`
}

// IndicatorSnapshot holds latest-bar indicator values.
// Values a window cannot produce yet are NaN.
type IndicatorSnapshot struct {
	Date   time.Time `json:"date"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`

	SMA map[int]float64 `json:"sma"`
	EMA map[int]float64 `json:"ema"`

	RSI        float64 `json:"rsi"`
	MACD       float64 `json:"macd"`
	MACDSignal float64 `json:"macd_signal"`
	MACDHist   float64 `json:"macd_hist"`

	BBUpper  float64 `json:"bb_upper"`
	BBMiddle float64 `json:"bb_middle"`
	BBLower  float64 `json:"bb_lower"`
	BBWidth  float64 `json:"bb_width"`

	StochK float64 `json:"stoch_k"`
	StochD float64 `json:"stoch_d"`
	ATR    float64 `json:"atr"`
	OBV    float64 `json:"obv"`
}

// SMAOf returns the SMA for a window, NaN if absent
func (s IndicatorSnapshot) SMAOf(window int) float64 {
	if v, ok := s.SMA[window]; ok {
		return v
	}
	return math.NaN()
}

// Valid reports whether the values needed for signal scoring exist
func (s IndicatorSnapshot) Valid(mediumMA, longMA int) bool {
	for _, v := range []float64{
		s.Close, s.RSI, s.MACD, s.MACDSignal, s.BBUpper, s.BBLower,
		s.SMAOf(mediumMA), s.SMAOf(longMA),
	} {
		if math.IsNaN(v) {
			return false
		}
	}
	return true
}
