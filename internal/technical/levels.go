package technical

import "github.com/nicebigrose/stock-analysis-system/internal/contracts"

// maxLevels is how many recent levels are kept per side
const maxLevels = 3

// Levels are the most recent support and resistance prices, oldest first
type Levels struct {
	Supports    []float64 `json:"supports"`
	Resistances []float64 `json:"resistances"`
}

// LastSupport returns the most recent support
func (l Levels) LastSupport() (float64, bool) {
	if len(l.Supports) == 0 {
		return 0, false
	}
	return l.Supports[len(l.Supports)-1], true
}

// LastResistance returns the most recent resistance
func (l Levels) LastResistance() (float64, bool) {
	if len(l.Resistances) == 0 {
		return 0, false
	}
	return l.Resistances[len(l.Resistances)-1], true
}

// SupportResistance marks a bar as support when its low is the minimum of
// a centred window, and as resistance when its high is the maximum.
// The window around bar i spans [i-window/2, i+(window-1)/2]; bars whose
// window runs off either end are not evaluated.
func SupportResistance(series contracts.PriceSeries, window int) Levels {
	levels := Levels{Supports: []float64{}, Resistances: []float64{}}
	if window <= 0 {
		return levels
	}

	before, after := window/2, (window-1)/2
	for i := before; i+after < len(series); i++ {
		lo, hi := series[i-before].Low, series[i-before].High
		for j := i - before + 1; j <= i+after; j++ {
			if series[j].Low < lo {
				lo = series[j].Low
			}
			if series[j].High > hi {
				hi = series[j].High
			}
		}
		if series[i].Low == lo {
			levels.Supports = append(levels.Supports, lo)
		}
		if series[i].High == hi {
			levels.Resistances = append(levels.Resistances, hi)
		}
	}

	levels.Supports = tail(levels.Supports, maxLevels)
	levels.Resistances = tail(levels.Resistances, maxLevels)
	return levels
}

func tail(v []float64, n int) []float64 {
	if len(v) > n {
		return v[len(v)-n:]
	}
	return v
}
