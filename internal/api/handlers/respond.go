package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/nicebigrose/stock-analysis-system/internal/contracts"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// errorStatus maps a domain error onto an HTTP status
// ⭐ SSOT: 도메인 에러 → HTTP 상태 매핑은 여기서만
func errorStatus(err error) int {
	switch {
	case errors.Is(err, contracts.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, contracts.ErrNoPosition), errors.Is(err, contracts.ErrDataUnavailable):
		return http.StatusNotFound
	case errors.Is(err, contracts.ErrInsufficientFunds), errors.Is(err, contracts.ErrInsufficientShares):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondDomainError writes err with its mapped status. Internal errors
// are not echoed to the client.
func respondDomainError(w http.ResponseWriter, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		respondError(w, status, "internal error")
		return
	}
	respondError(w, status, err.Error())
}

// queryInt parses a positive integer query parameter
func queryInt(r *http.Request, key string, def int) int {
	if s := r.URL.Query().Get(key); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			return v
		}
	}
	return def
}

func queryBool(r *http.Request, key string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(key))
	return v
}
