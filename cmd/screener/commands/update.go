package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nicebigrose/stock-analysis-system/internal/marketdata"
)

var updateDays int

// updateCmd represents the update command
var updateCmd = &cobra.Command{
	Use:   "update [prices|fundamentals]",
	Short: "Refresh cached market data for the watchlist",
	Long: `Refetches prices or fundamentals for every watchlist symbol,
bypassing the caches and writing every tier.

Example:
  go run ./cmd/screener update prices --days 365
  go run ./cmd/screener update fundamentals`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"prices", "fundamentals"},
	RunE:      runUpdate,
}

func init() {
	rootCmd.AddCommand(updateCmd)

	updateCmd.Flags().IntVar(&updateDays, "days", marketdata.DefaultUpdateDays, "days of price history")
	updateCmd.Flags().StringSliceVar(&screenSymbols, "symbols", nil, "symbols instead of the watchlist")
}

func runUpdate(cmd *cobra.Command, args []string) error {
	kind := args[0]
	if kind != "prices" && kind != "fundamentals" {
		return fmt.Errorf("unknown update kind %q", kind)
	}

	ctx, cancel := commandContext()
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	symbols := symbolsOrWatchlist(a.holder)

	var report *marketdata.UpdateReport
	if kind == "prices" {
		report = a.updater.UpdatePrices(ctx, symbols, updateDays)
	} else {
		report = a.updater.UpdateFundamentals(ctx, symbols)
	}

	if jsonOutput {
		return PrintJSON(report)
	}

	PrintHeader("Update " + kind)
	for _, r := range report.Results {
		if r.Error != nil {
			PrintError(fmt.Sprintf("%s: %v", r.Symbol, r.Error))
			continue
		}
		if kind == "prices" {
			PrintSuccess(fmt.Sprintf("%s: %d bars", r.Symbol, r.Bars))
		} else {
			PrintSuccess(r.Symbol)
		}
	}

	PrintSeparator()
	fmt.Printf("%s in %s\n", report.Summary(), report.Duration)
	if report.Succeeded == 0 && report.Total > 0 {
		return fmt.Errorf("update failed: %s", report.Summary())
	}
	return nil
}
