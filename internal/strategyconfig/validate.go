package strategyconfig

import (
	"fmt"
	"math"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks all required constraints
func Validate(cfg *Config) error {
	// === Criteria ===
	if cfg.Criteria.MaxPE <= 0 {
		return ValidationError{"criteria.max_pe", "must be > 0"}
	}
	if cfg.Criteria.MaxDebtToEquity < 0 {
		return ValidationError{"criteria.max_debt_to_equity", "must be >= 0"}
	}

	// === Technical ===
	t := cfg.Technical
	for _, p := range []struct {
		field string
		value int
	}{
		{"technical.medium_ma", t.MediumMA},
		{"technical.long_ma", t.LongMA},
		{"technical.rsi_period", t.RSIPeriod},
		{"technical.macd_fast", t.MACDFast},
		{"technical.macd_slow", t.MACDSlow},
		{"technical.macd_signal", t.MACDSignal},
		{"technical.bb_period", t.BBPeriod},
		{"technical.stoch_period", t.StochPeriod},
		{"technical.stoch_smooth", t.StochSmooth},
		{"technical.atr_period", t.ATRPeriod},
		{"technical.volume_window", t.VolumeWindow},
		{"technical.level_window", t.LevelWindow},
	} {
		if p.value < 1 {
			return ValidationError{p.field, "must be >= 1"}
		}
	}
	if t.MACDFast >= t.MACDSlow {
		return ValidationError{"technical.macd_fast", "must be < macd_slow"}
	}
	if t.MediumMA >= t.LongMA {
		return ValidationError{"technical.medium_ma", "must be < long_ma"}
	}
	if !containsInt(t.MAPeriods, t.MediumMA) || !containsInt(t.MAPeriods, t.LongMA) {
		return ValidationError{"technical.ma_periods", "must include medium_ma and long_ma"}
	}
	if t.RSIOversold <= 0 || t.RSIOverbought >= 100 || t.RSIOversold >= t.RSIOverbought {
		return ValidationError{"technical.rsi_oversold", "need 0 < oversold < overbought < 100"}
	}
	if t.BBStd <= 0 {
		return ValidationError{"technical.bb_std", "must be > 0"}
	}

	// === Combiner: 가중치 합 = 1 ===
	if cfg.Combiner.Fundamental < 0 || cfg.Combiner.Technical < 0 {
		return ValidationError{"combiner", "weights must be >= 0"}
	}
	if math.Abs(cfg.Combiner.Fundamental+cfg.Combiner.Technical-1) > 1e-9 {
		return ValidationError{"combiner", fmt.Sprintf("weights must sum to 1, got %.4f",
			cfg.Combiner.Fundamental+cfg.Combiner.Technical)}
	}

	// === Fees ===
	if cfg.Fees.BuyRate < 0 || cfg.Fees.BuyRate >= 1 {
		return ValidationError{"fees.buy_rate", "must be in [0, 1)"}
	}
	if cfg.Fees.SellRate < 0 || cfg.Fees.SellRate >= 1 {
		return ValidationError{"fees.sell_rate", "must be in [0, 1)"}
	}

	// === Portfolio ===
	p := cfg.Portfolio
	if p.MaxPositionSize <= 0 || p.MaxPositionSize > 1 {
		return ValidationError{"portfolio.max_position_size", "must be in (0, 1]"}
	}
	if p.MinCashReserve < 0 || p.MinCashReserve >= 1 {
		return ValidationError{"portfolio.min_cash_reserve", "must be in [0, 1)"}
	}
	if p.MaxPositions < 1 {
		return ValidationError{"portfolio.max_positions", "must be >= 1"}
	}
	if p.StopLossPct >= 0 {
		return ValidationError{"portfolio.stop_loss_pct", "must be negative"}
	}
	if p.TakeProfitPct <= 0 {
		return ValidationError{"portfolio.take_profit_pct", "must be positive"}
	}

	// === Screening ===
	if cfg.Screening.Workers < 1 {
		return ValidationError{"screening.workers", "must be >= 1"}
	}
	if cfg.Screening.HistoryDays < t.LongestWindow() {
		return ValidationError{"screening.history_days",
			fmt.Sprintf("must cover the longest indicator window (%d)", t.LongestWindow())}
	}
	if cfg.Screening.Filter.RSIMin > cfg.Screening.Filter.RSIMax {
		return ValidationError{"screening.filter.rsi_min", "must be <= rsi_max"}
	}

	// === Watchlist ===
	seen := make(map[string]bool, len(cfg.Watchlist))
	for _, s := range cfg.Watchlist {
		if s == "" {
			return ValidationError{"watchlist", "empty symbol"}
		}
		if seen[s] {
			return ValidationError{"watchlist", "duplicate symbol " + s}
		}
		seen[s] = true
	}

	return nil
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}
