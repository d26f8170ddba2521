package contracts

import "time"

// Bar is one daily OHLCV candle
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// PriceSeries is an ascending-by-date sequence of bars.
// An empty series means "no data", not an error.
type PriceSeries []Bar

// Closes returns the close column
func (s PriceSeries) Closes() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.Close
	}
	return out
}

// Highs returns the high column
func (s PriceSeries) Highs() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.High
	}
	return out
}

// Lows returns the low column
func (s PriceSeries) Lows() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.Low
	}
	return out
}

// Volumes returns the volume column as floats
func (s PriceSeries) Volumes() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = float64(b.Volume)
	}
	return out
}

// Last returns the most recent bar
func (s PriceSeries) Last() (Bar, bool) {
	if len(s) == 0 {
		return Bar{}, false
	}
	return s[len(s)-1], true
}

// LatestPrice is the most recent close with day change
type LatestPrice struct {
	Symbol        string    `json:"symbol"`
	Date          time.Time `json:"date"`
	Close         float64   `json:"close"`
	Volume        int64     `json:"volume"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"change_percent"`
}

// RatioSnapshot holds financial ratios for one symbol and reporting period.
// ⭐ SSOT: nil = 값 없음 (0과 구분)
type RatioSnapshot struct {
	Symbol  string `json:"symbol"`
	Year    int    `json:"year,omitempty"`
	Quarter int    `json:"quarter,omitempty"`

	ROE           *float64 `json:"roe,omitempty"` // %
	ROA           *float64 `json:"roa,omitempty"` // %
	PE            *float64 `json:"pe,omitempty"`
	PB            *float64 `json:"pb,omitempty"`
	DebtToEquity  *float64 `json:"debt_to_equity,omitempty"`
	NetMargin     *float64 `json:"net_margin,omitempty"`   // %
	GrossMargin   *float64 `json:"gross_margin,omitempty"` // %
	CurrentRatio  *float64 `json:"current_ratio,omitempty"`
	EPS           *float64 `json:"eps,omitempty"`
	BVPS          *float64 `json:"bvps,omitempty"`
	MarketCap     *float64 `json:"market_cap,omitempty"`
	RevenueGrowth *float64 `json:"revenue_growth,omitempty"` // %
	DividendYield *float64 `json:"dividend_yield,omitempty"` // %

	FetchedAt time.Time `json:"fetched_at"`
}

// Float returns a pointer to v, for building snapshots
func Float(v float64) *float64 {
	return &v
}

// Count returns how many ratios are present
func (r *RatioSnapshot) Count() int {
	n := 0
	for _, v := range []*float64{
		r.ROE, r.ROA, r.PE, r.PB, r.DebtToEquity, r.NetMargin, r.GrossMargin,
		r.CurrentRatio, r.EPS, r.BVPS, r.MarketCap, r.RevenueGrowth, r.DividendYield,
	} {
		if v != nil {
			n++
		}
	}
	return n
}

// IsStale reports whether the reporting year is more than maxAgeYears old
func (r *RatioSnapshot) IsStale(now time.Time, maxAgeYears int) bool {
	if r.Year == 0 {
		return false
	}
	return now.Year()-r.Year > maxAgeYears
}

// CompanyProfile is descriptive company metadata
type CompanyProfile struct {
	Symbol      string `json:"symbol"`
	CompanyName string `json:"company_name"`
	Industry    string `json:"industry,omitempty"`
	Exchange    string `json:"exchange,omitempty"`
	Fallback    bool   `json:"fallback,omitempty"`
}

// FallbackProfile is used when the profile lookup fails
func FallbackProfile(symbol string) *CompanyProfile {
	return &CompanyProfile{Symbol: symbol, CompanyName: symbol, Fallback: true}
}
