// Package fundamental scores financial ratios, checks screening criteria
// and derives a fundamental-only recommendation.
package fundamental

import (
	"fmt"

	"github.com/nicebigrose/stock-analysis-system/internal/contracts"
)

// bucket is one ratio's contribution to the score.
// eval returns the points earned and a reason ("" = no reason).
type bucket struct {
	name  string
	max   float64
	value func(r *contracts.RatioSnapshot) *float64
	eval  func(v float64) (float64, string)
}

// ⭐ SSOT: 버킷 순서 = reason 순서 (정렬하지 않음)
var buckets = []bucket{
	{
		name:  "ROE",
		max:   10,
		value: func(r *contracts.RatioSnapshot) *float64 { return r.ROE },
		eval: func(roe float64) (float64, string) {
			switch {
			case roe >= 20:
				return 10, fmt.Sprintf("Excellent ROE: %.1f%%", roe)
			case roe >= 15:
				return 7, fmt.Sprintf("Good ROE: %.1f%%", roe)
			case roe >= 10:
				return 4, fmt.Sprintf("Average ROE: %.1f%%", roe)
			default:
				return 0, fmt.Sprintf("Low ROE: %.1f%%", roe)
			}
		},
	},
	{
		name:  "P/E",
		max:   10,
		value: func(r *contracts.RatioSnapshot) *float64 { return r.PE },
		eval: func(pe float64) (float64, string) {
			switch {
			case pe >= 8 && pe <= 15:
				return 10, fmt.Sprintf("Attractive P/E: %.1fx", pe)
			case pe > 15 && pe <= 20:
				return 6, fmt.Sprintf("Fair P/E: %.1fx", pe)
			case pe >= 5 && pe < 8:
				return 5, fmt.Sprintf("Low P/E (value trap?): %.1fx", pe)
			case pe > 25:
				return 0, fmt.Sprintf("High P/E: %.1fx", pe)
			default:
				// 20 < pe <= 25, or pe < 5 (including negative earnings)
				return 3, fmt.Sprintf("Unremarkable P/E: %.1fx", pe)
			}
		},
	},
	{
		name:  "P/B",
		max:   8,
		value: func(r *contracts.RatioSnapshot) *float64 { return r.PB },
		eval: func(pb float64) (float64, string) {
			switch {
			case pb < 1.5:
				return 8, fmt.Sprintf("Very good P/B: %.2fx", pb)
			case pb < 2.5:
				return 5, fmt.Sprintf("Fair P/B: %.2fx", pb)
			case pb < 4:
				return 2, fmt.Sprintf("High P/B: %.2fx", pb)
			default:
				return 0, fmt.Sprintf("Very high P/B: %.2fx", pb)
			}
		},
	},
	{
		name:  "D/E",
		max:   10,
		value: func(r *contracts.RatioSnapshot) *float64 { return r.DebtToEquity },
		eval: func(de float64) (float64, string) {
			switch {
			case de < 0.5:
				return 10, fmt.Sprintf("Very low debt: %.2fx", de)
			case de < 1:
				return 7, fmt.Sprintf("Low debt: %.2fx", de)
			case de < 2:
				return 4, fmt.Sprintf("Moderate debt: %.2fx", de)
			default:
				return 1, fmt.Sprintf("High debt: %.2fx", de)
			}
		},
	},
	{
		name:  "ROA",
		max:   7,
		value: func(r *contracts.RatioSnapshot) *float64 { return r.ROA },
		eval: func(roa float64) (float64, string) {
			switch {
			case roa >= 10:
				return 7, fmt.Sprintf("Good ROA: %.1f%%", roa)
			case roa >= 5:
				return 4, fmt.Sprintf("Average ROA: %.1f%%", roa)
			default:
				return 1, fmt.Sprintf("Low ROA: %.1f%%", roa)
			}
		},
	},
	{
		name:  "Net margin",
		max:   8,
		value: func(r *contracts.RatioSnapshot) *float64 { return r.NetMargin },
		eval: func(m float64) (float64, string) {
			switch {
			case m >= 15:
				return 8, fmt.Sprintf("High net margin: %.1f%%", m)
			case m >= 10:
				return 5, fmt.Sprintf("Good net margin: %.1f%%", m)
			case m >= 5:
				return 2, fmt.Sprintf("Thin net margin: %.1f%%", m)
			default:
				return 0, fmt.Sprintf("Very thin net margin: %.1f%%", m)
			}
		},
	},
	{
		name:  "Current ratio",
		max:   7,
		value: func(r *contracts.RatioSnapshot) *float64 { return r.CurrentRatio },
		eval: func(cr float64) (float64, string) {
			switch {
			case cr >= 1.5 && cr <= 3:
				return 7, fmt.Sprintf("Healthy liquidity: %.2f", cr)
			case cr >= 1 && cr < 1.5:
				return 4, fmt.Sprintf("Adequate liquidity: %.2f", cr)
			case cr < 1:
				return 0, fmt.Sprintf("Weak liquidity: %.2f", cr)
			default:
				return 3, fmt.Sprintf("Excess liquidity: %.2f", cr)
			}
		},
	},
}

// MaxPossibleScore is the maxScore when every ratio is present
func MaxPossibleScore() float64 {
	var total float64
	for _, b := range buckets {
		total += b.max
	}
	return total
}

// Scorer maps a ratio snapshot to a point score and rating
type Scorer struct{}

// NewScorer creates a scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// Score evaluates every present ratio. Absent ratios add nothing to
// either score or maxScore.
func (s *Scorer) Score(ratios *contracts.RatioSnapshot) contracts.ScoreResult {
	result := contracts.ScoreResult{
		Reasons: []string{},
	}
	if ratios == nil {
		result.Rating = RatingFor(0)
		return result
	}

	for _, b := range buckets {
		v := b.value(ratios)
		if v == nil {
			continue
		}
		points, reason := b.eval(*v)
		result.Score += points
		result.MaxScore += b.max
		if reason != "" {
			result.Reasons = append(result.Reasons, reason)
		}
	}

	if result.MaxScore > 0 {
		result.Percentage = result.Score / result.MaxScore * 100
	}
	result.Rating = RatingFor(result.Percentage)
	return result
}

// RatingFor buckets a percentage into a rating
func RatingFor(percentage float64) contracts.Rating {
	switch {
	case percentage >= 80:
		return contracts.RatingExcellent
	case percentage >= 65:
		return contracts.RatingGood
	case percentage >= 50:
		return contracts.RatingAverage
	case percentage >= 35:
		return contracts.RatingBelowAverage
	default:
		return contracts.RatingPoor
	}
}
