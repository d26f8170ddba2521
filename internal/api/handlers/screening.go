package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/nicebigrose/stock-analysis-system/internal/selection"
	"github.com/nicebigrose/stock-analysis-system/internal/strategyconfig"
	"github.com/nicebigrose/stock-analysis-system/pkg/logger"
)

// ScreeningHandler serves screening, scanning, single-symbol analysis
// and the watchlist
// ⭐ SSOT: 스크리닝 API 핸들러는 이 구조체에서만
type ScreeningHandler struct {
	screener *selection.Screener
	scanner  *selection.Scanner
	holder   *strategyconfig.Holder
	workers  int
	logger   *logger.Logger
}

// NewScreeningHandler creates a new screening handler
func NewScreeningHandler(screener *selection.Screener, scanner *selection.Scanner, holder *strategyconfig.Holder, workers int, log *logger.Logger) *ScreeningHandler {
	return &ScreeningHandler{
		screener: screener,
		scanner:  scanner,
		holder:   holder,
		workers:  workers,
		logger:   log,
	}
}

// symbolsFor returns ?symbols=A,B or the watchlist
func (h *ScreeningHandler) symbolsFor(r *http.Request) []string {
	raw := r.URL.Query().Get("symbols")
	if raw == "" {
		return h.holder.Watchlist()
	}
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strategyconfig.NormalizeSymbol(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Screen runs the combined screen
// GET /api/screen?top=10&filter=true&symbols=FPT,VNM&workers=5
func (h *ScreeningHandler) Screen(w http.ResponseWriter, r *http.Request) {
	symbols := h.symbolsFor(r)
	workers := queryInt(r, "workers", h.workers)

	report, err := h.screener.ScreenAll(r.Context(), symbols, workers, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Screening interrupted")
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	cfg := h.holder.Config()
	rows := report.Rows
	if queryBool(r, "filter") {
		rows = selection.FilterByCriteria(rows, cfg.Screening.Filter)
	}
	if top := queryInt(r, "top", 0); top > 0 && top < len(rows) {
		rows = rows[:top]
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"summary":   report.Summary(),
		"rows":      rows,
		"top_picks": selection.TopPicks(report.Rows, cfg.Screening.TopN),
		"failures":  report.Failures,
		"duration":  report.Duration.String(),
	})
}

// Scan runs the technical-only scan
// GET /api/scan?kind=buy|oversold|overbought|support|breakout&threshold=30
func (h *ScreeningHandler) Scan(w http.ResponseWriter, r *http.Request) {
	kind := strings.ToLower(r.URL.Query().Get("kind"))
	var threshold float64
	if s := r.URL.Query().Get("threshold"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "threshold must be a number")
			return
		}
		threshold = v
	}

	if _, ok := selection.ScanKinds[kind]; !ok && kind != "" {
		respondError(w, http.StatusBadRequest, "unknown scan kind: "+kind)
		return
	}

	report, err := h.scanner.ScanAll(r.Context(), h.symbolsFor(r), queryInt(r, "workers", h.workers))
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	results := report.Results
	if kind != "" {
		results = selection.ApplyScan(kind, results, threshold)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"summary":  report.Summary(),
		"kind":     kind,
		"results":  results,
		"failures": report.Failures,
	})
}

// Analyze returns the full analysis of one symbol
// GET /api/analyze/{symbol}
func (h *ScreeningHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	symbol := strategyconfig.NormalizeSymbol(mux.Vars(r)["symbol"])
	if symbol == "" {
		respondError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	res, err := h.screener.ScreenSymbol(r.Context(), symbol)
	if err != nil {
		h.logger.WithError(err).WithField("symbol", symbol).Warn("Analysis failed")
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    res,
	})
}

// watchlistRequest is the body of watchlist mutations
type watchlistRequest struct {
	Symbols []string `json:"symbols"`
}

// Watchlist lists the watchlist
// GET /api/watchlist
func (h *ScreeningHandler) Watchlist(w http.ResponseWriter, r *http.Request) {
	symbols := h.holder.Watchlist()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   len(symbols),
		"data":    symbols,
	})
}

// AddWatchlist adds symbols
// POST /api/watchlist {"symbols": ["FPT"]}
func (h *ScreeningHandler) AddWatchlist(w http.ResponseWriter, r *http.Request) {
	var req watchlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Symbols) == 0 {
		respondError(w, http.StatusBadRequest, "symbols are required")
		return
	}

	added := h.holder.Add(req.Symbols...)
	h.persistWatchlist()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"added":   added,
		"data":    h.holder.Watchlist(),
	})
}

// RemoveWatchlist removes one symbol
// DELETE /api/watchlist/{symbol}
func (h *ScreeningHandler) RemoveWatchlist(w http.ResponseWriter, r *http.Request) {
	removed := h.holder.Remove(mux.Vars(r)["symbol"])
	if len(removed) == 0 {
		respondError(w, http.StatusNotFound, "symbol not in watchlist")
		return
	}

	h.persistWatchlist()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"removed": removed,
		"data":    h.holder.Watchlist(),
	})
}

// persistWatchlist saves when the holder is file-backed
func (h *ScreeningHandler) persistWatchlist() {
	if err := h.holder.Save(); err != nil {
		h.logger.WithError(err).Debug("Watchlist not persisted")
	}
}
