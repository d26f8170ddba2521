package config_test

import (
	"fmt"

	"github.com/nicebigrose/stock-analysis-system/pkg/config"
)

// Example demonstrates how to use the config package
func Example() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		return
	}

	fmt.Printf("Ledger file: %s\n", cfg.LedgerFile)
	fmt.Printf("Workers: %d\n", cfg.Workers)
	fmt.Printf("Quotes API: %s\n", cfg.Quotes.BaseURL)
}
