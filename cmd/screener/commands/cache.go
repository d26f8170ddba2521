package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nicebigrose/stock-analysis-system/internal/strategyconfig"
)

// cacheCmd represents the cache command
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the market data caches",
}

var (
	cacheClearCmd = &cobra.Command{
		Use:   "clear [SYMBOL]",
		Short: "Clear every cached entry, or one symbol's",
		Long: `Drops memory and Redis entries. Rows stored in Postgres are kept.

Example:
  go run ./cmd/screener cache clear
  go run ./cmd/screener cache clear FPT`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCacheClear,
	}
)

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var removed int
	if len(args) == 1 {
		symbol := strategyconfig.NormalizeSymbol(args[0])
		removed, err = a.market.Invalidate(ctx, symbol)
	} else {
		removed, err = a.market.Clear(ctx)
	}
	if err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}

	PrintSuccess(fmt.Sprintf("Removed %d cache entries", removed))
	return nil
}
