package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/nicebigrose/stock-analysis-system/internal/api/handlers"
	"github.com/nicebigrose/stock-analysis-system/pkg/logger"
)

// Handlers groups every handler the router mounts
type Handlers struct {
	Screening *handlers.ScreeningHandler
	Portfolio *handlers.PortfolioHandler
	Stream    *handlers.StreamHandler
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(h Handlers, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Screening endpoints
	api.HandleFunc("/screen", h.Screening.Screen).Methods("GET")
	api.HandleFunc("/scan", h.Screening.Scan).Methods("GET")
	api.HandleFunc("/analyze/{symbol}", h.Screening.Analyze).Methods("GET")
	api.HandleFunc("/watchlist", h.Screening.Watchlist).Methods("GET")
	api.HandleFunc("/watchlist", h.Screening.AddWatchlist).Methods("POST")
	api.HandleFunc("/watchlist/{symbol}", h.Screening.RemoveWatchlist).Methods("DELETE")

	// Portfolio endpoints
	api.HandleFunc("/portfolio", h.Portfolio.GetPortfolio).Methods("GET")
	api.HandleFunc("/portfolio/performance", h.Portfolio.GetPerformance).Methods("GET")
	api.HandleFunc("/portfolio/suggestions", h.Portfolio.GetSuggestions).Methods("GET")
	api.HandleFunc("/portfolio/risk", h.Portfolio.GetRisk).Methods("GET")
	api.HandleFunc("/portfolio/history", h.Portfolio.GetHistory).Methods("GET")
	api.HandleFunc("/portfolio/deposit", h.Portfolio.Deposit).Methods("POST")
	api.HandleFunc("/portfolio/buy", h.Portfolio.Buy).Methods("POST")
	api.HandleFunc("/portfolio/sell", h.Portfolio.Sell).Methods("POST")

	// Screening progress stream
	r.HandleFunc("/ws/screen", h.Stream.Screen).Methods("GET")

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "stock-analysis-api",
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
