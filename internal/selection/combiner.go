package selection

import (
	"math"

	"github.com/nicebigrose/stock-analysis-system/internal/contracts"
	"github.com/nicebigrose/stock-analysis-system/internal/strategyconfig"
)

// Final rating thresholds on the combined score (1..5)
const (
	strongBuyMin = 4.5
	buyMin       = 3.8
	holdMin      = 3.2
	avoidMin     = 2.5
	conflictGap  = 2
)

// Notes attached to every combined result
const (
	NoteFundamentalsAhead = "Good fundamentals but weak technicals, wait for a better entry"
	NoteTechnicalsAhead   = "Good technicals but weak fundamentals, beware of a price trap"
	NoteAgreement         = "Fundamentals and technicals agree"
)

// DefaultWeights is the 60/40 fundamental/technical split
var DefaultWeights = strategyconfig.CombinerWeights{Fundamental: 0.6, Technical: 0.4}

// Combine merges a fundamental rating and a technical signal into one rating.
// Unknown enum values count as neutral (3). Zero weights fall back to 60/40.
func Combine(rating contracts.Rating, signal contracts.Signal, w strategyconfig.CombinerWeights) contracts.CombinedResult {
	if w.Fundamental == 0 && w.Technical == 0 {
		w = DefaultWeights
	}

	f := rating.Ordinal()
	t := signal.Ordinal()
	// rounded so tier boundaries are not lost to float error
	score := math.Round((float64(f)*w.Fundamental+float64(t)*w.Technical)*1e6) / 1e6

	res := contracts.CombinedResult{
		FundamentalScore: f,
		TechnicalScore:   t,
		CombinedScore:    score,
		Strengths:        []string{},
		Weaknesses:       []string{},
	}

	switch {
	case score >= strongBuyMin:
		res.FinalRating = contracts.ActionStrongBuy
		res.Action = "Strong buy - fundamentals and technicals both good"
	case score >= buyMin:
		res.FinalRating = contracts.ActionBuy
		res.Action = "Buy - overall positive"
	case score >= holdMin:
		res.FinalRating = contracts.ActionHold
		res.Action = "Hold/watch - wait for a clearer signal"
	case score >= avoidMin:
		res.FinalRating = contracts.ActionAvoid
		res.Action = "Avoid - not attractive yet"
	default:
		res.FinalRating = contracts.ActionSell
		res.Action = "Sell - fundamentals and technicals both weak"
	}

	switch {
	case f >= 4:
		res.Strengths = append(res.Strengths, "Strong fundamentals")
	case f <= 2:
		res.Weaknesses = append(res.Weaknesses, "Weak fundamentals")
	}
	switch {
	case t >= 4:
		res.Strengths = append(res.Strengths, "Positive technicals")
	case t <= 2:
		res.Weaknesses = append(res.Weaknesses, "Negative technicals")
	}

	diff := f - t
	res.HasConflict = diff >= conflictGap || diff <= -conflictGap
	switch {
	case res.HasConflict && f > t:
		res.Note = NoteFundamentalsAhead
	case res.HasConflict:
		res.Note = NoteTechnicalsAhead
	default:
		res.Note = NoteAgreement
	}

	return res
}
