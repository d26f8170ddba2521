package selection

import (
	"math"
	"sort"

	"github.com/nicebigrose/stock-analysis-system/internal/strategyconfig"
)

// DefaultTopN is how many picks TopPicks returns when n <= 0
const DefaultTopN = 10

// DefaultFilter mirrors the built-in strategy filter
var DefaultFilter = strategyconfig.Default().Screening.Filter

// SortRows orders rows by combined score, highest first; ties by symbol
func SortRows(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score > rows[j].Score
		}
		return rows[i].Symbol < rows[j].Symbol
	})
}

// FilterByCriteria keeps rows with score >= MinScore, ROE >= MinROE,
// P/E <= MaxPE and RSI within [RSIMin, RSIMax].
// Rows missing ROE or P/E do not pass.
func FilterByCriteria(rows []Row, f strategyconfig.Filter) []Row {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if r.Score < f.MinScore {
			continue
		}
		if r.ROE == nil || *r.ROE < f.MinROE {
			continue
		}
		if r.PE == nil || *r.PE > f.MaxPE {
			continue
		}
		if r.RSI < f.RSIMin || r.RSI > f.RSIMax {
			continue
		}
		out = append(out, r)
	}
	return out
}

// TopPicks returns the first n BUY or STRONG BUY rows, in input order
func TopPicks(rows []Row, n int) []Row {
	if n <= 0 {
		n = DefaultTopN
	}
	out := make([]Row, 0, min(n, len(rows)))
	for _, r := range rows {
		if !r.Rating.IsBuy() {
			continue
		}
		out = append(out, r)
		if len(out) == n {
			break
		}
	}
	return out
}

func round(v float64, places int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
