package strategyconfig

// Config is the screening strategy: criteria, indicator parameters,
// weights, fees, portfolio policy and the watchlist.
// ⭐ SSOT: 전략 파라미터는 이 구조체에서만 정의
type Config struct {
	Criteria  Criteria        `yaml:"criteria" json:"criteria"`
	Technical TechnicalParams `yaml:"technical" json:"technical"`
	Combiner  CombinerWeights `yaml:"combiner" json:"combiner"`
	Fees      Fees            `yaml:"fees" json:"fees"`
	Portfolio PortfolioPolicy `yaml:"portfolio" json:"portfolio"`
	Alerts    AlertThresholds `yaml:"alerts" json:"alerts"`
	Screening Screening       `yaml:"screening" json:"screening"`
	Watchlist []string        `yaml:"watchlist" json:"watchlist"`
}

// Criteria are the fundamental screening minimums
type Criteria struct {
	MinROE          float64 `yaml:"min_roe" json:"min_roe"`                       // %
	MaxPE           float64 `yaml:"max_pe" json:"max_pe"`                         // x
	MaxDebtToEquity float64 `yaml:"max_debt_to_equity" json:"max_debt_to_equity"` // x
	// Informational only, reported as notes
	MinMarketCap     float64 `yaml:"min_market_cap" json:"min_market_cap"`
	MinRevenueGrowth float64 `yaml:"min_revenue_growth" json:"min_revenue_growth"` // %
}

// TechnicalParams are the indicator windows and thresholds
type TechnicalParams struct {
	MAPeriods     []int   `yaml:"ma_periods" json:"ma_periods"`
	MediumMA      int     `yaml:"medium_ma" json:"medium_ma"`
	LongMA        int     `yaml:"long_ma" json:"long_ma"`
	RSIPeriod     int     `yaml:"rsi_period" json:"rsi_period"`
	RSIOversold   float64 `yaml:"rsi_oversold" json:"rsi_oversold"`
	RSIOverbought float64 `yaml:"rsi_overbought" json:"rsi_overbought"`
	MACDFast      int     `yaml:"macd_fast" json:"macd_fast"`
	MACDSlow      int     `yaml:"macd_slow" json:"macd_slow"`
	MACDSignal    int     `yaml:"macd_signal" json:"macd_signal"`
	BBPeriod      int     `yaml:"bb_period" json:"bb_period"`
	BBStd         float64 `yaml:"bb_std" json:"bb_std"`
	StochPeriod   int     `yaml:"stoch_period" json:"stoch_period"`
	StochSmooth   int     `yaml:"stoch_smooth" json:"stoch_smooth"`
	ATRPeriod     int     `yaml:"atr_period" json:"atr_period"`
	VolumeWindow  int     `yaml:"volume_window" json:"volume_window"`
	VolumeSpike   float64 `yaml:"volume_spike" json:"volume_spike"`
	LevelWindow   int     `yaml:"level_window" json:"level_window"` // support/resistance
}

// CombinerWeights weight the fundamental and technical ordinals
type CombinerWeights struct {
	Fundamental float64 `yaml:"fundamental" json:"fundamental"`
	Technical   float64 `yaml:"technical" json:"technical"`
}

// Fees are proportional transaction fees
type Fees struct {
	BuyRate  float64 `yaml:"buy_rate" json:"buy_rate"`
	SellRate float64 `yaml:"sell_rate" json:"sell_rate"`
}

// PortfolioPolicy drives the rebalance advisor
type PortfolioPolicy struct {
	MaxPositions    int     `yaml:"max_positions" json:"max_positions"`
	MaxPositionSize float64 `yaml:"max_position_size" json:"max_position_size"` // fraction
	MinCashReserve  float64 `yaml:"min_cash_reserve" json:"min_cash_reserve"`   // fraction, 0 = no cash rule
	TakeProfitPct   float64 `yaml:"take_profit_pct" json:"take_profit_pct"`
	StopLossPct     float64 `yaml:"stop_loss_pct" json:"stop_loss_pct"`
	RiskFreeRate    float64 `yaml:"risk_free_rate" json:"risk_free_rate"`
}

// AlertThresholds flag unusual bars in scans
type AlertThresholds struct {
	PriceChange float64 `yaml:"price_change" json:"price_change"` // fraction
	VolumeSpike float64 `yaml:"volume_spike" json:"volume_spike"` // x average
	RSILow      float64 `yaml:"rsi_low" json:"rsi_low"`
	RSIHigh     float64 `yaml:"rsi_high" json:"rsi_high"`
	NearLevel   float64 `yaml:"near_level" json:"near_level"` // fraction
}

// Screening holds batch defaults
type Screening struct {
	Workers     int     `yaml:"workers" json:"workers"`
	HistoryDays int     `yaml:"history_days" json:"history_days"`
	StaleYears  int     `yaml:"stale_years" json:"stale_years"`
	GrowthRate  float64 `yaml:"growth_rate" json:"growth_rate"`
	TopN        int     `yaml:"top_n" json:"top_n"`
	Filter      Filter  `yaml:"filter" json:"filter"`
}

// Filter is the post-screen row filter
type Filter struct {
	MinScore float64 `yaml:"min_score" json:"min_score"`
	MinROE   float64 `yaml:"min_roe" json:"min_roe"`
	MaxPE    float64 `yaml:"max_pe" json:"max_pe"`
	RSIMin   float64 `yaml:"rsi_min" json:"rsi_min"`
	RSIMax   float64 `yaml:"rsi_max" json:"rsi_max"`
}

// DefaultWatchlist is the VN30-based starting watchlist
var DefaultWatchlist = []string{
	"VNM", "VCB", "VHM", "VIC", "GAS", "HPG", "TCB", "MSN",
	"BID", "VPB", "CTG", "MWG", "PLX", "VRE", "HDB",
	"SSI", "MBB", "FPT", "STB", "POW", "ACB", "VJC",
	"GVR", "PDR", "SAB", "VCI", "TPB", "REE",
}

// Default returns the built-in strategy
func Default() *Config {
	return &Config{
		Criteria: Criteria{
			MinROE:           15,
			MaxPE:            20,
			MaxDebtToEquity:  2,
			MinMarketCap:     5000,
			MinRevenueGrowth: 10,
		},
		Technical: TechnicalParams{
			MAPeriods:     []int{20, 50, 200},
			MediumMA:      50,
			LongMA:        200,
			RSIPeriod:     14,
			RSIOversold:   30,
			RSIOverbought: 70,
			MACDFast:      12,
			MACDSlow:      26,
			MACDSignal:    9,
			BBPeriod:      20,
			BBStd:         2,
			StochPeriod:   14,
			StochSmooth:   3,
			ATRPeriod:     14,
			VolumeWindow:  20,
			VolumeSpike:   1.5,
			LevelWindow:   20,
		},
		Combiner: CombinerWeights{Fundamental: 0.6, Technical: 0.4},
		Fees:     Fees{BuyRate: 0.0015, SellRate: 0.001},
		Portfolio: PortfolioPolicy{
			MaxPositions:    8,
			MaxPositionSize: 0.20,
			MinCashReserve:  0.10,
			TakeProfitPct:   30,
			StopLossPct:     -15,
			RiskFreeRate:    0.05,
		},
		Alerts: AlertThresholds{
			PriceChange: 0.05,
			VolumeSpike: 2.0,
			RSILow:      25,
			RSIHigh:     75,
			NearLevel:   0.02,
		},
		Screening: Screening{
			Workers:     5,
			HistoryDays: 365,
			StaleYears:  3,
			GrowthRate:  0.10,
			TopN:        10,
			Filter: Filter{
				MinScore: 3.5,
				MinROE:   15,
				MaxPE:    20,
				RSIMin:   30,
				RSIMax:   70,
			},
		},
		Watchlist: append([]string(nil), DefaultWatchlist...),
	}
}

// LongestWindow is the minimum number of bars a full analysis needs
func (t TechnicalParams) LongestWindow() int {
	longest := t.MACDSlow + t.MACDSignal
	for _, w := range append([]int{t.LongMA, t.MediumMA, t.BBPeriod, t.RSIPeriod + 1}, t.MAPeriods...) {
		if w > longest {
			longest = w
		}
	}
	return longest
}
