package fundamental

import (
	"fmt"

	"github.com/nicebigrose/stock-analysis-system/internal/contracts"
	"github.com/nicebigrose/stock-analysis-system/internal/strategyconfig"
)

// minChecks is how many criteria must run before a stock can qualify
const minChecks = 2

// CheckCriteria evaluates the screening minimums.
// Only present ratios are checked; a stock meets the criteria when
// nothing failed and at least two checks passed.
// Market cap and revenue growth are reported as notes only.
func CheckCriteria(ratios *contracts.RatioSnapshot, c strategyconfig.Criteria) contracts.CriteriaCheck {
	check := contracts.CriteriaCheck{
		Passed: []string{},
		Failed: []string{},
	}
	if ratios == nil {
		return check
	}

	if ratios.ROE != nil {
		roe := *ratios.ROE
		if roe >= c.MinROE {
			check.Passed = append(check.Passed, fmt.Sprintf("ROE %.1f%% >= %g%%", roe, c.MinROE))
		} else {
			check.Failed = append(check.Failed, fmt.Sprintf("ROE %.1f%% < %g%%", roe, c.MinROE))
		}
	}

	if ratios.PE != nil {
		pe := *ratios.PE
		if pe > 0 && pe <= c.MaxPE {
			check.Passed = append(check.Passed, fmt.Sprintf("P/E %.1f <= %g", pe, c.MaxPE))
		} else if pe <= 0 {
			check.Failed = append(check.Failed, fmt.Sprintf("P/E %.1f is not positive", pe))
		} else {
			check.Failed = append(check.Failed, fmt.Sprintf("P/E %.1f > %g", pe, c.MaxPE))
		}
	}

	if ratios.DebtToEquity != nil {
		de := *ratios.DebtToEquity
		if de <= c.MaxDebtToEquity {
			check.Passed = append(check.Passed, fmt.Sprintf("D/E %.2f <= %g", de, c.MaxDebtToEquity))
		} else {
			check.Failed = append(check.Failed, fmt.Sprintf("D/E %.2f > %g", de, c.MaxDebtToEquity))
		}
	}

	if ratios.MarketCap != nil && c.MinMarketCap > 0 && *ratios.MarketCap < c.MinMarketCap {
		check.Notes = append(check.Notes, fmt.Sprintf("Market cap %.0f below %g", *ratios.MarketCap, c.MinMarketCap))
	}
	if ratios.RevenueGrowth != nil && *ratios.RevenueGrowth < c.MinRevenueGrowth {
		check.Notes = append(check.Notes, fmt.Sprintf("Revenue growth %.1f%% below %g%%", *ratios.RevenueGrowth, c.MinRevenueGrowth))
	}

	check.MeetsCriteria = len(check.Failed) == 0 && len(check.Passed) >= minChecks
	return check
}
