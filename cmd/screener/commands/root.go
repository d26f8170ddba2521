package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	strategyFile string
	verbose      bool
	jsonOutput   bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "screener",
	Short: "Equity screener and simulated portfolio ledger",
	Long: `Stock Analysis System CLI

Scores a watchlist on fundamental ratios and technical indicators,
combines both into one rating, and tracks a simulated portfolio.

Usage:
  go run ./cmd/screener [command]

Examples:
  go run ./cmd/screener screen --top 10
  go run ./cmd/screener analyze FPT
  go run ./cmd/screener portfolio show
  go run ./cmd/screener api`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&strategyFile, "strategy", "", "strategy YAML file (default: STRATEGY_FILE)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print JSON instead of tables")
}
