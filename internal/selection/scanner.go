package selection

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/nicebigrose/stock-analysis-system/internal/contracts"
	"github.com/nicebigrose/stock-analysis-system/internal/strategyconfig"
	"github.com/nicebigrose/stock-analysis-system/internal/technical"
	"github.com/nicebigrose/stock-analysis-system/pkg/logger"
)

// Scan defaults
const (
	DefaultOversold    = 30
	DefaultOverbought  = 70
	DefaultNearSupport = 0.02
)

// ScanResult is the technical-only summary of one symbol
type ScanResult struct {
	Symbol      string              `json:"symbol"`
	Close       float64             `json:"close"`
	Signal      contracts.Signal    `json:"signal"`
	SignalScore int                 `json:"signal_score"`
	RSI         float64             `json:"rsi"`
	MACD        float64             `json:"macd"`
	Trend       technical.Direction `json:"trend"`
	Patterns    []string            `json:"patterns"`
	Support     *float64            `json:"support"`
	Resistance  *float64            `json:"resistance"`
	Alerts      []technical.Alert   `json:"alerts"`
}

// ScanReport is the outcome of a technical scan
type ScanReport struct {
	Results   []ScanResult `json:"results"`
	Failures  []Failure    `json:"failures"`
	Total     int          `json:"total"`
	Succeeded int          `json:"succeeded"`
}

// Summary is the "N of M succeeded" line
func (r *ScanReport) Summary() string {
	return fmt.Sprintf("%d of %d succeeded", r.Succeeded, r.Total)
}

// Scanner runs the technical analysis alone across many symbols
type Scanner struct {
	prices      contracts.PriceProvider
	technical   *technical.Analyzer
	historyDays int
	timeout     time.Duration
	now         func() time.Time
	logger      *logger.Logger
}

// NewScanner creates a scanner
func NewScanner(prices contracts.PriceProvider, cfg strategyconfig.Config, timeout time.Duration, log *logger.Logger) *Scanner {
	days := cfg.Screening.HistoryDays
	if days <= 0 {
		days = 365
	}
	return &Scanner{
		prices:      prices,
		technical:   technical.NewAnalyzer(cfg, log),
		historyDays: days,
		timeout:     timeout,
		now:         time.Now,
		logger:      log.WithComponent("scanner"),
	}
}

// ScanAll scans every symbol and sorts results by signal score descending
func (s *Scanner) ScanAll(ctx context.Context, symbols []string, concurrency int) (*ScanReport, error) {
	report := &ScanReport{
		Results:  []ScanResult{},
		Failures: []Failure{},
		Total:    len(symbols),
	}

	var mu sync.Mutex
	err := fanOut(ctx, symbols, concurrency, s.timeout,
		func(ctx context.Context, symbol string) error {
			res, err := s.ScanSymbol(ctx, symbol)
			if err != nil {
				return err
			}
			mu.Lock()
			report.Results = append(report.Results, *res)
			mu.Unlock()
			return nil
		},
		func(symbol string, err error) {
			s.logger.WithField("symbol", symbol).WithError(err).Warn("Scan skipped symbol")
			report.Failures = append(report.Failures, Failure{Symbol: symbol, Reason: err.Error(), Err: err})
		},
	)

	sort.SliceStable(report.Results, func(i, j int) bool {
		if report.Results[i].SignalScore != report.Results[j].SignalScore {
			return report.Results[i].SignalScore > report.Results[j].SignalScore
		}
		return report.Results[i].Symbol < report.Results[j].Symbol
	})
	sort.Slice(report.Failures, func(i, j int) bool {
		return report.Failures[i].Symbol < report.Failures[j].Symbol
	})
	report.Succeeded = len(report.Results)

	s.logger.WithFields(map[string]interface{}{
		"total":   report.Total,
		"success": report.Succeeded,
		"failed":  len(report.Failures),
	}).Info("Technical scan completed")

	if err != nil {
		return report, fmt.Errorf("scan interrupted after %s: %w", report.Summary(), err)
	}
	return report, nil
}

// ScanSymbol fetches one year of prices and summarises the analysis
func (s *Scanner) ScanSymbol(ctx context.Context, symbol string) (*ScanResult, error) {
	to := s.now()
	series, err := s.prices.History(ctx, symbol, to.AddDate(0, 0, -s.historyDays), to)
	if err != nil {
		return nil, fmt.Errorf("%s: prices: %w", symbol, err)
	}

	ta, err := s.technical.Analyze(symbol, series)
	if err != nil {
		return nil, err
	}

	res := &ScanResult{
		Symbol:      symbol,
		Close:       ta.Snapshot.Close,
		Signal:      ta.Signal.Signal,
		SignalScore: ta.Signal.Score,
		RSI:         ta.Snapshot.RSI,
		MACD:        ta.Snapshot.MACD,
		Trend:       ta.Trend.MediumTerm,
		Patterns:    ta.Patterns,
		Alerts:      ta.Alerts,
	}
	if v, ok := ta.Levels.LastSupport(); ok {
		res.Support = &v
	}
	if v, ok := ta.Levels.LastResistance(); ok {
		res.Resistance = &v
	}
	return res, nil
}

// BuySignals keeps BUY and STRONG BUY results
func BuySignals(results []ScanResult) []ScanResult {
	return filterScan(results, func(r ScanResult) bool { return r.Signal.IsBuy() })
}

// Oversold keeps RSI below threshold, lowest RSI first
func Oversold(results []ScanResult, threshold float64) []ScanResult {
	out := filterScan(results, func(r ScanResult) bool { return r.RSI < threshold })
	sort.SliceStable(out, func(i, j int) bool { return out[i].RSI < out[j].RSI })
	return out
}

// Overbought keeps RSI above threshold, highest RSI first
func Overbought(results []ScanResult, threshold float64) []ScanResult {
	out := filterScan(results, func(r ScanResult) bool { return r.RSI > threshold })
	sort.SliceStable(out, func(i, j int) bool { return out[i].RSI > out[j].RSI })
	return out
}

// NearSupport keeps closes within threshold (fraction) of the last support
func NearSupport(results []ScanResult, threshold float64) []ScanResult {
	return filterScan(results, func(r ScanResult) bool {
		if r.Support == nil || r.Close == 0 {
			return false
		}
		return math.Abs(r.Close-*r.Support)/r.Close < threshold
	})
}

// Breakouts keeps closes above the last resistance
func Breakouts(results []ScanResult) []ScanResult {
	return filterScan(results, func(r ScanResult) bool {
		return r.Resistance != nil && r.Close > *r.Resistance
	})
}

func filterScan(results []ScanResult, keep func(ScanResult) bool) []ScanResult {
	out := make([]ScanResult, 0, len(results))
	for _, r := range results {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// ScanKinds maps each scan filter to its default threshold
var ScanKinds = map[string]float64{
	"buy":        0,
	"oversold":   DefaultOversold,
	"overbought": DefaultOverbought,
	"support":    DefaultNearSupport,
	"breakout":   0,
}

// ApplyScan filters results by kind. threshold <= 0 uses the kind's
// default; an unknown kind returns results unchanged.
func ApplyScan(kind string, results []ScanResult, threshold float64) []ScanResult {
	if threshold <= 0 {
		threshold = ScanKinds[kind]
	}
	switch kind {
	case "buy":
		return BuySignals(results)
	case "oversold":
		return Oversold(results, threshold)
	case "overbought":
		return Overbought(results, threshold)
	case "support":
		return NearSupport(results, threshold)
	case "breakout":
		return Breakouts(results)
	default:
		return results
	}
}
