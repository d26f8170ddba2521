package risk

import "math"

// Grade is the risk-adjusted letter grade
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// maxRatingScore = sharpe 30 + return 30 + drawdown 20 + volatility 20
const maxRatingScore = 100

// Rating is the point breakdown behind a grade
type Rating struct {
	Grade      Grade   `json:"grade"`
	Score      int     `json:"score"`
	MaxScore   int     `json:"max_score"`
	Percentage float64 `json:"percentage"`
}

// Rate grades metrics on Sharpe, annualised return, drawdown depth and
// volatility
func Rate(m Metrics) Rating {
	score := 0

	switch {
	case m.Sharpe >= 2:
		score += 30
	case m.Sharpe >= 1:
		score += 20
	case m.Sharpe >= 0.5:
		score += 10
	}

	switch {
	case m.AnnualizedReturn >= 25:
		score += 30
	case m.AnnualizedReturn >= 15:
		score += 20
	case m.AnnualizedReturn >= 10:
		score += 10
	case m.AnnualizedReturn >= 5:
		score += 5
	}

	dd := math.Abs(m.MaxDrawdown)
	switch {
	case dd <= 10:
		score += 20
	case dd <= 15:
		score += 15
	case dd <= 20:
		score += 10
	case dd <= 30:
		score += 5
	}

	switch {
	case m.Volatility <= 15:
		score += 20
	case m.Volatility <= 20:
		score += 15
	case m.Volatility <= 25:
		score += 10
	case m.Volatility <= 30:
		score += 5
	}

	pct := float64(score) / maxRatingScore * 100
	return Rating{Grade: GradeFor(pct), Score: score, MaxScore: maxRatingScore, Percentage: pct}
}

// GradeFor buckets a percentage into A-F
func GradeFor(pct float64) Grade {
	switch {
	case pct >= 85:
		return GradeA
	case pct >= 70:
		return GradeB
	case pct >= 55:
		return GradeC
	case pct >= 40:
		return GradeD
	default:
		return GradeF
	}
}
