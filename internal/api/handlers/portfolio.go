package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nicebigrose/stock-analysis-system/internal/portfolio"
	"github.com/nicebigrose/stock-analysis-system/internal/rebalance"
	"github.com/nicebigrose/stock-analysis-system/internal/strategyconfig"
	"github.com/nicebigrose/stock-analysis-system/pkg/logger"
)

// PortfolioHandler serves the simulated ledger
// ⭐ SSOT: 포트폴리오 API 핸들러는 이 구조체에서만
type PortfolioHandler struct {
	ledger  *portfolio.Ledger
	valuer  *portfolio.Valuer
	advisor *rebalance.Advisor
	policy  strategyconfig.PortfolioPolicy
	logger  *logger.Logger
}

// NewPortfolioHandler creates a new portfolio handler
func NewPortfolioHandler(ledger *portfolio.Ledger, valuer *portfolio.Valuer, advisor *rebalance.Advisor, policy strategyconfig.PortfolioPolicy, log *logger.Logger) *PortfolioHandler {
	return &PortfolioHandler{
		ledger:  ledger,
		valuer:  valuer,
		advisor: advisor,
		policy:  policy,
		logger:  log,
	}
}

// GetPortfolio returns the marked-to-market valuation
// GET /api/portfolio
func (h *PortfolioHandler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	val, err := h.valuer.CurrentValue(r.Context(), h.ledger)
	if err != nil {
		h.logger.WithError(err).Error("Failed to value portfolio")
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    val,
	})
}

// GetPerformance returns deposits, pnl and realized/unrealized split
// GET /api/portfolio/performance
func (h *PortfolioHandler) GetPerformance(w http.ResponseWriter, r *http.Request) {
	perf, err := h.valuer.Performance(r.Context(), h.ledger)
	if err != nil {
		h.logger.WithError(err).Error("Failed to compute performance")
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    perf,
	})
}

// GetSuggestions returns rebalancing suggestions
// GET /api/portfolio/suggestions
func (h *PortfolioHandler) GetSuggestions(w http.ResponseWriter, r *http.Request) {
	val, err := h.valuer.CurrentValue(r.Context(), h.ledger)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    h.advisor.Suggest(val, h.policy),
	})
}

// GetRisk returns pooled risk metrics over ?days= (default 365)
// GET /api/portfolio/risk
func (h *PortfolioHandler) GetRisk(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 365)
	report, err := h.valuer.RiskMetrics(r.Context(), h.ledger, time.Duration(days)*24*time.Hour)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    report,
	})
}

// GetHistory returns the transaction log, newest first, limited by ?limit=
// GET /api/portfolio/history
func (h *PortfolioHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	history := h.ledger.History()
	limit := queryInt(r, "limit", len(history))
	if limit > len(history) {
		limit = len(history)
	}

	out := make([]portfolio.Transaction, 0, limit)
	for i := len(history) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, history[i])
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   len(out),
		"data":    out,
	})
}

type depositRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type tradeRequest struct {
	Symbol string          `json:"symbol"`
	Shares int64           `json:"shares"`
	Price  decimal.Decimal `json:"price"`
}

// Deposit adds cash
// POST /api/portfolio/deposit {"amount": 1000000}
func (h *PortfolioHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tx, err := h.ledger.Deposit(r.Context(), req.Amount)
	if err != nil {
		h.logger.WithError(err).Warn("Deposit rejected")
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    tx,
		"cash":    h.ledger.Cash(),
	})
}

// Buy opens or adds to a position
// POST /api/portfolio/buy {"symbol": "FPT", "shares": 100, "price": 95000}
func (h *PortfolioHandler) Buy(w http.ResponseWriter, r *http.Request) {
	var req tradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tx, err := h.ledger.Buy(r.Context(), req.Symbol, req.Shares, req.Price)
	if err != nil {
		h.logger.WithError(err).WithField("symbol", req.Symbol).Warn("Buy rejected")
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    tx,
		"cash":    h.ledger.Cash(),
	})
}

// Sell reduces or closes a position
// POST /api/portfolio/sell {"symbol": "FPT", "shares": 50, "price": 99000}
func (h *PortfolioHandler) Sell(w http.ResponseWriter, r *http.Request) {
	var req tradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.ledger.Sell(r.Context(), req.Symbol, req.Shares, req.Price)
	if err != nil {
		h.logger.WithError(err).WithField("symbol", req.Symbol).Warn("Sell rejected")
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    res,
		"cash":    h.ledger.Cash(),
	})
}
