package httputil_test

import (
	"context"
	"fmt"
	"time"

	"github.com/nicebigrose/stock-analysis-system/pkg/config"
	"github.com/nicebigrose/stock-analysis-system/pkg/httputil"
	"github.com/nicebigrose/stock-analysis-system/pkg/logger"
)

// Example_getJSON fetches a chart payload with retries and an outbound rate limit
func Example_getJSON() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("config: %v\n", err)
		return
	}

	client := httputil.New(cfg, logger.Nop()).
		WithRetry(5, 2*time.Second).
		WithRateLimit(2, 1)

	var payload map[string]interface{}
	url := cfg.Quotes.BaseURL + "/v8/finance/chart/FPT.VN?range=1mo&interval=1d"
	if err := client.GetJSON(context.Background(), url, &payload); err != nil {
		fmt.Printf("request failed: %v\n", err)
		return
	}
	fmt.Println("fetched", len(payload), "keys")
}
