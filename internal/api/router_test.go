package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicebigrose/stock-analysis-system/internal/api/handlers"
	"github.com/nicebigrose/stock-analysis-system/internal/contracts"
	"github.com/nicebigrose/stock-analysis-system/internal/portfolio"
	"github.com/nicebigrose/stock-analysis-system/internal/rebalance"
	"github.com/nicebigrose/stock-analysis-system/internal/selection"
	"github.com/nicebigrose/stock-analysis-system/internal/strategyconfig"
	"github.com/nicebigrose/stock-analysis-system/pkg/logger"
)

// market knows AAA only
type market struct{}

func uptrend() contracts.PriceSeries {
	day := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := make(contracts.PriceSeries, 260)
	for i := range s {
		c := 100 + float64(i)
		s[i] = contracts.Bar{Date: day.AddDate(0, 0, i), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1000}
	}
	return s
}

func (market) History(_ context.Context, symbol string, _, _ time.Time) (contracts.PriceSeries, error) {
	if symbol != "AAA" {
		return contracts.PriceSeries{}, nil
	}
	return uptrend(), nil
}

func (market) Latest(_ context.Context, symbol string) (*contracts.LatestPrice, error) {
	if symbol != "AAA" {
		return nil, fmt.Errorf("%w: %s", contracts.ErrDataUnavailable, symbol)
	}
	return &contracts.LatestPrice{Symbol: symbol, Close: 1200}, nil
}

func (market) Ratios(_ context.Context, symbol string) (*contracts.RatioSnapshot, error) {
	if symbol != "AAA" {
		return nil, fmt.Errorf("%w: %s", contracts.ErrDataUnavailable, symbol)
	}
	return &contracts.RatioSnapshot{
		Symbol: symbol, ROE: contracts.Float(25), PE: contracts.Float(12), PB: contracts.Float(1.2),
		DebtToEquity: contracts.Float(0.3), ROA: contracts.Float(12), NetMargin: contracts.Float(18),
		CurrentRatio: contracts.Float(2),
	}, nil
}

func (market) Profile(_ context.Context, symbol string) (*contracts.CompanyProfile, error) {
	return contracts.FallbackProfile(symbol), nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg := strategyconfig.Default()
	cfg.Watchlist = []string{"AAA", "ZZZ"}
	holder := strategyconfig.NewHolder(cfg, "")
	log := logger.Nop()

	screener := selection.NewScreener(market{}, *cfg, time.Second, log)
	scanner := selection.NewScanner(market{}, *cfg, time.Second, log)

	store := portfolio.NewFileStore(filepath.Join(t.TempDir(), "portfolio.json"))
	ledger, err := portfolio.Open(context.Background(), store, cfg.Fees, log)
	require.NoError(t, err)
	valuer := portfolio.NewValuer(market{}, market{}, 0.05, log)

	screening := handlers.NewScreeningHandler(screener, scanner, holder, 2, log)
	return NewRouter(Handlers{
		Screening: screening,
		Portfolio: handlers.NewPortfolioHandler(ledger, valuer, rebalance.NewAdvisor(log), cfg.Portfolio, log),
		Stream:    handlers.NewStreamHandler(screening, log),
	}, log)
}

func do(t *testing.T, h http.Handler, method, path, body string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec.Code, out
}

func TestHealth(t *testing.T) {
	code, body := do(t, newTestRouter(t), "GET", "/health", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestScreenEndpoints(t *testing.T) {
	r := newTestRouter(t)

	code, body := do(t, r, "GET", "/api/screen", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "1 of 2 succeeded", body["summary"])
	rows := body["rows"].([]interface{})
	require.Len(t, rows, 1)
	assert.Equal(t, "AAA", rows[0].(map[string]interface{})["symbol"])
	assert.Len(t, body["failures"], 1)

	code, body = do(t, r, "GET", "/api/screen?symbols=zzz", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "0 of 1 succeeded", body["summary"])

	code, body = do(t, r, "GET", "/api/analyze/aaa", "")
	require.Equal(t, http.StatusOK, code)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "AAA", data["symbol"])

	code, _ = do(t, r, "GET", "/api/analyze/ZZZ", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestScanEndpoint(t *testing.T) {
	r := newTestRouter(t)

	tests := []struct {
		query string
		code  int
	}{
		{"", http.StatusOK},
		{"?kind=buy", http.StatusOK},
		{"?kind=oversold&threshold=40", http.StatusOK},
		{"?kind=sideways", http.StatusBadRequest},
		{"?kind=oversold&threshold=abc", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			code, _ := do(t, r, "GET", "/api/scan"+tt.query, "")
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestWatchlistEndpoints(t *testing.T) {
	r := newTestRouter(t)

	code, body := do(t, r, "POST", "/api/watchlist", `{"symbols":["fpt","AAA"]}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []interface{}{"FPT"}, body["added"])

	code, body = do(t, r, "GET", "/api/watchlist", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []interface{}{"AAA", "ZZZ", "FPT"}, body["data"])

	code, _ = do(t, r, "DELETE", "/api/watchlist/zzz", "")
	assert.Equal(t, http.StatusOK, code)

	code, _ = do(t, r, "DELETE", "/api/watchlist/zzz", "")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = do(t, r, "POST", "/api/watchlist", `{}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestPortfolioEndpoints(t *testing.T) {
	r := newTestRouter(t)

	tests := []struct {
		name string
		path string
		body string
		code int
	}{
		{"bad body", "/api/portfolio/deposit", `{`, http.StatusBadRequest},
		{"negative deposit", "/api/portfolio/deposit", `{"amount": -5}`, http.StatusBadRequest},
		{"deposit", "/api/portfolio/deposit", `{"amount": 1000000}`, http.StatusOK},
		{"insufficient funds", "/api/portfolio/buy", `{"symbol":"AAA","shares":1000,"price":1000}`, http.StatusConflict},
		{"sell without position", "/api/portfolio/sell", `{"symbol":"AAA","shares":1,"price":1000}`, http.StatusNotFound},
		{"buy", "/api/portfolio/buy", `{"symbol":"aaa","shares":300,"price":"1000"}`, http.StatusOK},
		{"oversell", "/api/portfolio/sell", `{"symbol":"AAA","shares":301,"price":1000}`, http.StatusConflict},
		{"zero shares", "/api/portfolio/buy", `{"symbol":"AAA","shares":0,"price":1000}`, http.StatusBadRequest},
		{"sell", "/api/portfolio/sell", `{"symbol":"AAA","shares":100,"price":1100}`, http.StatusOK},
	}
	for _, tt := range tests {
		code, body := do(t, r, "POST", tt.path, tt.body)
		assert.Equal(t, tt.code, code, "%s: %v", tt.name, body)
	}

	code, body := do(t, r, "GET", "/api/portfolio", "")
	require.Equal(t, http.StatusOK, code)
	val := body["data"].(map[string]interface{})
	assert.Len(t, val["positions"], 1)

	code, body = do(t, r, "GET", "/api/portfolio/performance", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "1000000", body["data"].(map[string]interface{})["total_deposits"])

	code, body = do(t, r, "GET", "/api/portfolio/suggestions", "")
	require.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, body["data"], "200 shares at 1200 is over the position limit")

	code, body = do(t, r, "GET", "/api/portfolio/history?limit=2", "")
	require.Equal(t, http.StatusOK, code)
	history := body["data"].([]interface{})
	require.Len(t, history, 2)
	assert.Equal(t, "sell", history[0].(map[string]interface{})["type"], "newest first")

	// limit beyond the log length returns every entry
	code, body = do(t, r, "GET", "/api/portfolio/history?limit=9000000000000000", "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["data"], 3)
	assert.EqualValues(t, 3, body["count"])

	code, _ = do(t, r, "GET", "/api/portfolio/risk", "")
	assert.Equal(t, http.StatusOK, code)
}

func TestScreenStream(t *testing.T) {
	srv := httptest.NewServer(newTestRouter(t))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/screen?symbols=AAA,ZZZ"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var types []string
	for {
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var msg handlers.StreamMessage
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		types = append(types, msg.Type)
		if msg.Type == handlers.MessageDone {
			assert.Equal(t, 1, msg.Completed)
			assert.Equal(t, 2, msg.Total)
		}
	}

	require.Len(t, types, 3)
	assert.ElementsMatch(t, []string{handlers.MessageRow, handlers.MessageFailure}, types[:2])
	assert.Equal(t, handlers.MessageDone, types[2])
}
