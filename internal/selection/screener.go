package selection

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nicebigrose/stock-analysis-system/internal/contracts"
	"github.com/nicebigrose/stock-analysis-system/internal/fundamental"
	"github.com/nicebigrose/stock-analysis-system/internal/strategyconfig"
	"github.com/nicebigrose/stock-analysis-system/internal/technical"
	"github.com/nicebigrose/stock-analysis-system/pkg/logger"
)

// Row is one line of the ranked screening table
type Row struct {
	Symbol      string           `json:"symbol"`
	CompanyName string           `json:"company_name,omitempty"`
	Rating      contracts.Action `json:"rating"`
	Score       float64          `json:"score"`
	FRating     contracts.Rating `json:"f_rating"`
	FScore      float64          `json:"f_score"`
	TSignal     contracts.Signal `json:"t_signal"`
	TScore      int              `json:"t_score"`
	Price       float64          `json:"price"`
	RSI         float64          `json:"rsi"`
	ROE         *float64         `json:"roe"`
	PE          *float64         `json:"pe"`
	DE          *float64         `json:"de"`
	Trend       string           `json:"trend"`
	Note        string           `json:"note"`
	Stale       bool             `json:"stale,omitempty"`

	Combined contracts.CombinedResult `json:"combined"`
}

// Result is the full analysis of one symbol
type Result struct {
	Symbol      string                   `json:"symbol"`
	Fundamental *fundamental.Analysis    `json:"fundamental"`
	Technical   *technical.Analysis      `json:"technical"`
	Combined    contracts.CombinedResult `json:"combined"`
	Valuation   *fundamental.Valuation   `json:"valuation,omitempty"`
	Row         Row                      `json:"row"`
}

// Report is the outcome of a screening batch
type Report struct {
	Rows      []Row         `json:"rows"`
	Failures  []Failure     `json:"failures"`
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// Summary is the "N of M succeeded" line
func (r *Report) Summary() string {
	return fmt.Sprintf("%d of %d succeeded", r.Succeeded, r.Total)
}

// Event is delivered to a progress callback as each symbol completes.
// Exactly one of Row or Failure is set.
type Event struct {
	Row       *Row     `json:"row,omitempty"`
	Failure   *Failure `json:"failure,omitempty"`
	Completed int      `json:"completed"`
	Total     int      `json:"total"`
}

// ProgressFunc receives completion events. Calls are serialised.
type ProgressFunc func(Event)

// Screener fans per-symbol analysis out across a watchlist
// ⭐ SSOT: 종목 스크리닝 오케스트레이션은 여기서만
type Screener struct {
	data        contracts.MarketData
	fundamental *fundamental.Analyzer
	technical   *technical.Analyzer
	weights     strategyconfig.CombinerWeights
	historyDays int
	timeout     time.Duration
	now         func() time.Time
	logger      *logger.Logger
}

// NewScreener creates a screener. timeout bounds each symbol's fetches.
func NewScreener(data contracts.MarketData, cfg strategyconfig.Config, timeout time.Duration, log *logger.Logger) *Screener {
	days := cfg.Screening.HistoryDays
	if days <= 0 {
		days = 365
	}
	return &Screener{
		data:        data,
		fundamental: fundamental.NewAnalyzer(cfg, log),
		technical:   technical.NewAnalyzer(cfg, log),
		weights:     cfg.Combiner,
		historyDays: days,
		timeout:     timeout,
		now:         time.Now,
		logger:      log.WithComponent("screener"),
	}
}

// ScreenAll analyses every symbol with bounded concurrency and returns
// the rows sorted by combined score (descending, symbol as tie-break).
// A symbol's failure is recorded and never aborts the batch.
func (s *Screener) ScreenAll(ctx context.Context, symbols []string, concurrency int, progress ProgressFunc) (*Report, error) {
	report := &Report{
		Rows:      []Row{},
		Failures:  []Failure{},
		Total:     len(symbols),
		StartedAt: s.now(),
	}

	s.logger.WithFields(map[string]interface{}{
		"symbols":     len(symbols),
		"concurrency": concurrency,
	}).Info("Starting screening")

	var mu sync.Mutex
	completed := 0
	emit := func(ev Event) {
		completed++
		ev.Completed, ev.Total = completed, len(symbols)
		if progress != nil {
			progress(ev)
		}
	}

	err := fanOut(ctx, symbols, concurrency, s.timeout,
		func(ctx context.Context, symbol string) error {
			res, err := s.ScreenSymbol(ctx, symbol)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			report.Rows = append(report.Rows, res.Row)
			emit(Event{Row: &res.Row})
			return nil
		},
		func(symbol string, err error) {
			f := Failure{Symbol: symbol, Reason: err.Error(), Err: err}
			if f.IsDataUnavailable() {
				s.logger.WithField("symbol", symbol).WithError(err).Warn("Skipping symbol, no data")
			} else {
				s.logger.WithField("symbol", symbol).WithError(err).Error("Failed to screen symbol")
			}
			mu.Lock()
			defer mu.Unlock()
			report.Failures = append(report.Failures, f)
			emit(Event{Failure: &f})
		},
	)

	SortRows(report.Rows)
	sort.Slice(report.Failures, func(i, j int) bool {
		return report.Failures[i].Symbol < report.Failures[j].Symbol
	})
	report.Succeeded = len(report.Rows)
	report.Duration = time.Since(report.StartedAt)

	s.logger.WithFields(map[string]interface{}{
		"total":    report.Total,
		"success":  report.Succeeded,
		"failed":   len(report.Failures),
		"duration": report.Duration.String(),
	}).Info("Screening completed")

	if err != nil {
		return report, fmt.Errorf("screening interrupted after %s: %w", report.Summary(), err)
	}
	return report, nil
}

// ScreenSymbol runs the full fundamental + technical + combined analysis
// for one symbol. Missing ratios or prices fail with ErrDataUnavailable.
func (s *Screener) ScreenSymbol(ctx context.Context, symbol string) (*Result, error) {
	ratios, err := s.data.Ratios(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("%s: fundamentals: %w", symbol, err)
	}
	if ratios == nil {
		return nil, fmt.Errorf("%s: fundamentals: %w", symbol, contracts.ErrDataUnavailable)
	}

	profile, err := s.data.Profile(ctx, symbol)
	if err != nil {
		profile = contracts.FallbackProfile(symbol)
	}

	fa, err := s.fundamental.Analyze(ratios, profile)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", symbol, err)
	}

	to := s.now()
	from := to.AddDate(0, 0, -s.historyDays)
	series, err := s.data.History(ctx, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("%s: prices: %w", symbol, err)
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("%s: prices: %w", symbol, contracts.ErrDataUnavailable)
	}

	ta, err := s.technical.Analyze(symbol, series)
	if err != nil {
		return nil, err
	}

	combined := Combine(fa.Score.Rating, ta.Signal.Signal, s.weights)

	res := &Result{
		Symbol:      symbol,
		Fundamental: fa,
		Technical:   ta,
		Combined:    combined,
		Valuation:   s.fundamental.ValueAt(ratios, ta.Snapshot.Close),
		Row:         buildRow(symbol, fa, ta, combined),
	}

	s.logger.WithFields(map[string]interface{}{
		"symbol":   symbol,
		"f_rating": fa.Score.Rating,
		"t_signal": ta.Signal.Signal,
		"combined": combined.FinalRating,
	}).Debug("Screened symbol")

	return res, nil
}

func buildRow(symbol string, fa *fundamental.Analysis, ta *technical.Analysis, c contracts.CombinedResult) Row {
	row := Row{
		Symbol:   symbol,
		Rating:   c.FinalRating,
		Score:    round(c.CombinedScore, 2),
		FRating:  fa.Score.Rating,
		FScore:   fa.Score.Percentage,
		TSignal:  ta.Signal.Signal,
		TScore:   ta.Signal.Score,
		Price:    ta.Snapshot.Close,
		RSI:      round(ta.Snapshot.RSI, 1),
		ROE:      fa.Ratios.ROE,
		PE:       fa.Ratios.PE,
		DE:       fa.Ratios.DebtToEquity,
		Trend:    string(ta.Trend.MediumTerm),
		Note:     c.Note,
		Stale:    fa.Stale,
		Combined: c,
	}
	if fa.Profile != nil && !fa.Profile.Fallback {
		row.CompanyName = fa.Profile.CompanyName
	}
	return row
}
