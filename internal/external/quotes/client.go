// Package quotes fetches daily OHLCV history from a chart JSON API
// (/v8/finance/chart/{symbol}).
package quotes

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/nicebigrose/stock-analysis-system/internal/contracts"
	"github.com/nicebigrose/stock-analysis-system/pkg/config"
	"github.com/nicebigrose/stock-analysis-system/pkg/httputil"
	"github.com/nicebigrose/stock-analysis-system/pkg/logger"
)

// latestWindow is how far back Latest looks for two trading days
const latestWindow = 14 * 24 * time.Hour

// Client handles communication with the chart API
// ⭐ SSOT: 시세 API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	suffix     string
	now        func() time.Time
}

// NewClient creates a chart API client
func NewClient(httpClient *httputil.Client, cfg config.QuotesConfig, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log.WithComponent("quotes"),
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		suffix:     cfg.SymbolSuffix,
		now:        time.Now,
	}
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Symbol   string `json:"symbol"`
		Currency string `json:"currency"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []chartOHLCV `json:"quote"`
	} `json:"indicators"`
}

type chartOHLCV struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// Ticker maps a watchlist symbol to the API ticker. Symbols that already
// carry an exchange suffix or index caret are left alone.
func (c *Client) Ticker(symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if c.suffix == "" || strings.ContainsAny(symbol, ".^") {
		return symbol
	}
	return symbol + c.suffix
}

// History returns daily bars in [from, to], ascending. An unknown symbol
// is ErrDataUnavailable; a known symbol with no bars is an empty series.
func (c *Client) History(ctx context.Context, symbol string, from, to time.Time) (contracts.PriceSeries, error) {
	ticker := c.Ticker(symbol)
	params := url.Values{}
	params.Set("period1", fmt.Sprint(from.Unix()))
	params.Set("period2", fmt.Sprint(to.Unix()))
	params.Set("interval", "1d")
	fullURL := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(ticker), params.Encode())

	var resp chartResponse
	if err := c.httpClient.GetJSON(ctx, fullURL, &resp); err != nil {
		var se *httputil.StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s not found", contracts.ErrDataUnavailable, ticker)
		}
		return nil, fmt.Errorf("chart %s: %w", ticker, err)
	}

	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("%w: chart %s: %s", contracts.ErrDataUnavailable, ticker, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return contracts.PriceSeries{}, nil
	}

	series := parseBars(resp.Chart.Result[0])
	c.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"bars":   len(series),
	}).Debug("chart fetched")
	return series, nil
}

// Latest returns the last close with change against the previous close
func (c *Client) Latest(ctx context.Context, symbol string) (*contracts.LatestPrice, error) {
	to := c.now()
	series, err := c.History(ctx, symbol, to.Add(-latestWindow), to)
	if err != nil {
		return nil, err
	}
	return LatestFrom(symbol, series)
}

// LatestFrom derives the latest price from a series
func LatestFrom(symbol string, series contracts.PriceSeries) (*contracts.LatestPrice, error) {
	last, ok := series.Last()
	if !ok {
		return nil, fmt.Errorf("%w: no bars for %s", contracts.ErrDataUnavailable, symbol)
	}

	lp := &contracts.LatestPrice{
		Symbol: symbol,
		Date:   last.Date,
		Close:  last.Close,
		Volume: last.Volume,
	}
	if len(series) >= 2 {
		prev := series[len(series)-2].Close
		lp.Change = last.Close - prev
		if prev != 0 {
			lp.ChangePercent = lp.Change / prev * 100
		}
	}
	return lp, nil
}

// parseBars drops bars without a close and sorts ascending.
// Missing open/high/low fall back to the close.
func parseBars(result chartResult) contracts.PriceSeries {
	series := contracts.PriceSeries{}
	if len(result.Indicators.Quote) == 0 {
		return series
	}
	q := result.Indicators.Quote[0]

	for i, ts := range result.Timestamp {
		if i >= len(q.Close) || q.Close[i] == nil {
			continue
		}
		cl := *q.Close[i]
		bar := contracts.Bar{
			Date:  time.Unix(ts, 0).UTC(),
			Open:  at(q.Open, i, cl),
			High:  at(q.High, i, cl),
			Low:   at(q.Low, i, cl),
			Close: cl,
		}
		if i < len(q.Volume) && q.Volume[i] != nil {
			bar.Volume = *q.Volume[i]
		}
		series = append(series, bar)
	}

	sort.Slice(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })
	return series
}

func at(values []*float64, i int, fallback float64) float64 {
	if i < len(values) && values[i] != nil {
		return *values[i]
	}
	return fallback
}
