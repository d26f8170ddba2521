package quotes

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicebigrose/stock-analysis-system/internal/contracts"
	"github.com/nicebigrose/stock-analysis-system/pkg/config"
	"github.com/nicebigrose/stock-analysis-system/pkg/httputil"
	"github.com/nicebigrose/stock-analysis-system/pkg/logger"
)

// one null bar, one out of order
const chartFixture = `{
  "chart": {
    "result": [{
      "meta": {"symbol": "FPT.VN", "currency": "VND"},
      "timestamp": [1704153600, 1704326400, 1704240000, 1704412800],
      "indicators": {
        "quote": [{
          "open":   [100, 104, 101, null],
          "high":   [102, 106, 103, null],
          "low":    [99, 103, null, null],
          "close":  [101, 105, 102, null],
          "volume": [1000, 3000, 2000, null]
        }]
      }
    }],
    "error": null
  }
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.Config{HTTP: config.HTTPConfig{Timeout: 2 * time.Second}}
	hc := httputil.New(cfg, logger.Nop()).DisableRetry()
	return NewClient(hc, config.QuotesConfig{BaseURL: srv.URL + "/", SymbolSuffix: ".VN"}, logger.Nop())
}

func TestHistory(t *testing.T) {
	var gotPath string
	var gotQuery map[string][]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chartFixture))
	})

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC)
	series, err := c.History(context.Background(), "fpt", from, to)
	require.NoError(t, err)

	assert.Equal(t, "/v8/finance/chart/FPT.VN", gotPath)
	assert.Equal(t, "1d", gotQuery["interval"][0])
	assert.Equal(t, "1704067200", gotQuery["period1"][0])

	require.Len(t, series, 3, "null bar dropped")
	assert.Equal(t, []float64{101, 102, 105}, series.Closes(), "ascending")
	assert.Equal(t, 102.0, series[1].Low, "missing low falls back to close")
	assert.Equal(t, int64(2000), series[1].Volume)
	assert.Equal(t, 2, series[0].Date.Day())
	assert.Equal(t, 4, series[2].Date.Day())
}

func TestHistory_Errors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		unavailable bool
		empty       bool
	}{
		{"not found", http.StatusNotFound, `{}`, true, false},
		{"chart error", http.StatusOK, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`, true, false},
		{"no result", http.StatusOK, `{"chart":{"result":[],"error":null}}`, false, true},
		{"server error", http.StatusInternalServerError, `oops`, false, false},
		{"bad json", http.StatusOK, `{"chart":`, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			series, err := c.History(context.Background(), "XYZ", time.Now().AddDate(0, -1, 0), time.Now())
			if tt.empty {
				require.NoError(t, err)
				assert.Empty(t, series)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.unavailable, errors.Is(err, contracts.ErrDataUnavailable))
		})
	}
}

func TestLatest(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(chartFixture))
	})

	lp, err := c.Latest(context.Background(), "FPT")
	require.NoError(t, err)
	assert.Equal(t, "FPT", lp.Symbol)
	assert.Equal(t, 105.0, lp.Close)
	assert.InDelta(t, 3.0, lp.Change, 1e-9)
	assert.InDelta(t, 3.0/102*100, lp.ChangePercent, 1e-9)
	assert.Equal(t, int64(3000), lp.Volume)
}

func TestLatestFrom_Empty(t *testing.T) {
	_, err := LatestFrom("X", nil)
	assert.ErrorIs(t, err, contracts.ErrDataUnavailable)

	lp, err := LatestFrom("X", contracts.PriceSeries{{Close: 10}})
	require.NoError(t, err)
	assert.Equal(t, 0.0, lp.Change)
}

func TestTicker(t *testing.T) {
	c := NewClient(nil, config.QuotesConfig{SymbolSuffix: ".VN"}, logger.Nop())
	assert.Equal(t, "VNM.VN", c.Ticker(" vnm "))
	assert.Equal(t, "AAPL.US", c.Ticker("AAPL.US"))
	assert.Equal(t, "^VNINDEX", c.Ticker("^VNINDEX"))

	bare := NewClient(nil, config.QuotesConfig{}, logger.Nop())
	assert.Equal(t, "VNM", bare.Ticker("VNM"))
}
