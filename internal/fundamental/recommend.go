package fundamental

import "github.com/nicebigrose/stock-analysis-system/internal/contracts"

// Recommend derives the fundamental-only action.
// STRONG BUY is checked first, then BUY; the rest branch on rating alone,
// so GOOD or EXCELLENT without meeting the criteria falls through to SELL.
func Recommend(score contracts.ScoreResult, check contracts.CriteriaCheck) contracts.Recommendation {
	rec := contracts.Recommendation{Confidence: score.Percentage}

	switch {
	case score.Rating == contracts.RatingExcellent && check.MeetsCriteria:
		rec.Action = contracts.ActionStrongBuy
		rec.Note = "Excellent fundamentals, meets every criterion"
	case (score.Rating == contracts.RatingExcellent || score.Rating == contracts.RatingGood) && check.MeetsCriteria:
		rec.Action = contracts.ActionBuy
		rec.Note = "Good fundamentals, worth buying"
	case score.Rating == contracts.RatingAverage:
		rec.Action = contracts.ActionHold
		rec.Note = "Average fundamentals, keep watching"
	case score.Rating == contracts.RatingBelowAverage:
		rec.Action = contracts.ActionAvoid
		rec.Note = "Weak fundamentals, avoid"
	default:
		rec.Action = contracts.ActionSell
		rec.Note = "Poor fundamentals, sell if held"
	}

	return rec
}
