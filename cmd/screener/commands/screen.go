package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nicebigrose/stock-analysis-system/internal/selection"
	"github.com/nicebigrose/stock-analysis-system/internal/strategyconfig"
)

var (
	screenTop     int
	screenFilter  bool
	screenWorkers int
	screenSymbols []string

	scanThreshold float64
)

// screenCmd represents the screen command
var screenCmd = &cobra.Command{
	Use:   "screen",
	Short: "Screen the watchlist on fundamentals and technicals",
	Long: `Analyses every watchlist symbol, combines the fundamental rating
with the technical signal and prints the ranked table.

A symbol that fails is reported and never aborts the batch.

Example:
  go run ./cmd/screener screen
  go run ./cmd/screener screen --top 5 --filter
  go run ./cmd/screener screen --symbols FPT,VNM`,
	RunE: runScreen,
}

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan [buy|oversold|overbought|support|breakout]",
	Short: "Technical-only scan of the watchlist",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runScan,
}

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze SYMBOL",
	Short: "Full analysis of one symbol",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	rootCmd.AddCommand(screenCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(analyzeCmd)

	for _, c := range []*cobra.Command{screenCmd, scanCmd} {
		c.Flags().IntVar(&screenWorkers, "workers", 0, "concurrent symbols (default: strategy)")
		c.Flags().StringSliceVar(&screenSymbols, "symbols", nil, "symbols instead of the watchlist")
	}
	screenCmd.Flags().IntVar(&screenTop, "top", 0, "only print the first N rows")
	screenCmd.Flags().BoolVar(&screenFilter, "filter", false, "apply the strategy row filter")
	scanCmd.Flags().Float64Var(&scanThreshold, "threshold", 0, "scan threshold (default per kind)")
}

// symbolsOrWatchlist normalises --symbols, falling back to the watchlist
func symbolsOrWatchlist(holder *strategyconfig.Holder) []string {
	if len(screenSymbols) == 0 {
		return holder.Watchlist()
	}
	var out []string
	for _, s := range screenSymbols {
		if s = strategyconfig.NormalizeSymbol(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func runScreen(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	symbols := symbolsOrWatchlist(a.holder)
	if len(symbols) == 0 {
		PrintWarning("Watchlist is empty")
		return nil
	}

	var progress selection.ProgressFunc
	if !jsonOutput {
		PrintHeader(fmt.Sprintf("Screening %d symbols", len(symbols)))
		progress = func(e selection.Event) {
			if e.Failure != nil {
				fmt.Printf("[Screen] %s failed: %s [%d/%d]\n", e.Failure.Symbol, e.Failure.Reason, e.Completed, e.Total)
			}
		}
	}

	report, err := a.screener.ScreenAll(ctx, symbols, a.workers(screenWorkers), progress)
	if err != nil {
		return fmt.Errorf("screen: %w", err)
	}

	cfg := a.holder.Config()
	rows := report.Rows
	if screenFilter {
		rows = selection.FilterByCriteria(rows, cfg.Screening.Filter)
	}
	if screenTop > 0 && screenTop < len(rows) {
		rows = rows[:screenTop]
	}

	if jsonOutput {
		return PrintJSON(map[string]interface{}{
			"summary":   report.Summary(),
			"rows":      rows,
			"top_picks": selection.TopPicks(report.Rows, cfg.Screening.TopN),
			"failures":  report.Failures,
		})
	}

	printRows(rows)

	if picks := selection.TopPicks(report.Rows, cfg.Screening.TopN); len(picks) > 0 {
		fmt.Println()
		PrintInfo("Top picks")
		for i, p := range picks {
			fmt.Printf("   %d. %s %s (%.2f) %s\n", i+1, p.Symbol, p.Rating, p.Score, p.Note)
		}
	}

	fmt.Println()
	PrintSuccess(fmt.Sprintf("%s in %s", report.Summary(), report.Duration.Round(time.Millisecond)))
	return nil
}

func printRows(rows []selection.Row) {
	widths := []int{6, 11, 5, 13, 11, 10, 6, 6, 6, 5, 9}
	PrintTableHeader([]string{"SYMBOL", "RATING", "SCORE", "F_RATING", "T_SIGNAL", "PRICE", "RSI", "ROE", "P/E", "D/E", "TREND"}, widths)
	for _, r := range rows {
		PrintTableRow([]string{
			r.Symbol,
			string(r.Rating),
			formatFloat(r.Score, 2),
			string(r.FRating),
			string(r.TSignal),
			formatFloat(r.Price, 0),
			formatFloat(r.RSI, 1),
			formatOptional(r.ROE, 1),
			formatOptional(r.PE, 1),
			formatOptional(r.DE, 2),
			r.Trend,
		}, widths)
	}
}

func runScan(cmd *cobra.Command, args []string) error {
	kind := ""
	if len(args) == 1 {
		kind = strings.ToLower(args[0])
		if _, ok := selection.ScanKinds[kind]; !ok {
			return fmt.Errorf("unknown scan kind %q", kind)
		}
	}

	ctx, cancel := commandContext()
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.scanner.ScanAll(ctx, symbolsOrWatchlist(a.holder), a.workers(screenWorkers))
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}

	results := report.Results
	if kind != "" {
		results = selection.ApplyScan(kind, results, scanThreshold)
	}

	if jsonOutput {
		return PrintJSON(map[string]interface{}{
			"summary":  report.Summary(),
			"kind":     kind,
			"results":  results,
			"failures": report.Failures,
		})
	}

	title := "Technical scan"
	if kind != "" {
		title += ": " + kind
	}
	PrintHeader(title)

	widths := []int{6, 11, 6, 10, 6, 9, 10, 10}
	PrintTableHeader([]string{"SYMBOL", "SIGNAL", "SCORE", "CLOSE", "RSI", "TREND", "SUPPORT", "RESIST"}, widths)
	for _, r := range results {
		PrintTableRow([]string{
			r.Symbol,
			string(r.Signal),
			strconv.Itoa(r.SignalScore),
			formatFloat(r.Close, 0),
			formatFloat(r.RSI, 1),
			string(r.Trend),
			formatOptional(r.Support, 0),
			formatOptional(r.Resistance, 0),
		}, widths)
	}
	for _, f := range report.Failures {
		PrintError(fmt.Sprintf("%s: %s", f.Symbol, f.Reason))
	}

	fmt.Println()
	PrintSuccess(fmt.Sprintf("%s, %d matched", report.Summary(), len(results)))
	return nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	symbol := strategyconfig.NormalizeSymbol(args[0])

	ctx, cancel := commandContext()
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.screener.ScreenSymbol(ctx, symbol)
	if err != nil {
		return fmt.Errorf("analyze %s: %w", symbol, err)
	}

	if jsonOutput {
		return PrintJSON(res)
	}

	name := symbol
	if fa := res.Fundamental; fa != nil && fa.Profile != nil {
		name = fmt.Sprintf("%s (%s)", fa.Profile.CompanyName, symbol)
	}
	PrintHeader(name)

	if fa := res.Fundamental; fa != nil {
		fmt.Println("Fundamental")
		PrintKeyValue("Rating", fmt.Sprintf("%s (%.0f/%.0f, %.1f%%)", fa.Score.Rating, fa.Score.Score, fa.Score.MaxScore, fa.Score.Percentage), 14)
		PrintKeyValue("Criteria met", strconv.FormatBool(fa.Criteria.MeetsCriteria), 14)
		PrintKeyValue("Action", fmt.Sprintf("%s (%s)", fa.Recommendation.Action, fa.Recommendation.Note), 14)
		if fa.Stale {
			PrintKeyValue("Warning", "ratios are stale", 14)
		}
		PrintList(fa.Score.Reasons)
		PrintList(fa.Criteria.Failed)
		fmt.Println()
	}

	if ta := res.Technical; ta != nil {
		fmt.Println("Technical")
		PrintKeyValue("Signal", fmt.Sprintf("%s (%+d)", ta.Signal.Signal, ta.Signal.Score), 14)
		PrintKeyValue("Close", formatFloat(ta.Snapshot.Close, 0), 14)
		PrintKeyValue("RSI", formatFloat(ta.Snapshot.RSI, 1), 14)
		PrintKeyValue("Trend", fmt.Sprintf("%s / %s", ta.Trend.LongTerm, ta.Trend.MediumTerm), 14)
		PrintList(ta.Signal.Reasons)
		PrintList(ta.Patterns)
		fmt.Println()
	}

	c := res.Combined
	fmt.Println("Combined")
	PrintKeyValue("Final rating", fmt.Sprintf("%s (%.2f)", c.FinalRating, c.CombinedScore), 14)
	PrintKeyValue("Action", c.Action, 14)
	if c.HasConflict {
		PrintKeyValue("Conflict", c.Note, 14)
	}
	PrintList(c.Strengths)
	PrintList(c.Weaknesses)

	if v := res.Valuation; v != nil {
		fmt.Println()
		fmt.Println("Valuation")
		PrintKeyValue("Average fair", formatFloat(v.AverageValue, 0), 14)
		if v.Upside != nil {
			PrintKeyValue("Upside", formatPercent(*v.Upside), 14)
		}
	}
	return nil
}
