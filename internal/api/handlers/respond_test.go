package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nicebigrose/stock-analysis-system/internal/contracts"
)

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{contracts.ErrInvalidAmount, http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", contracts.ErrInvalidAmount), http.StatusBadRequest},
		{contracts.ErrNoPosition, http.StatusNotFound},
		{contracts.ErrDataUnavailable, http.StatusNotFound},
		{contracts.ErrInsufficientFunds, http.StatusConflict},
		{contracts.ErrInsufficientShares, http.StatusConflict},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, errorStatus(tt.err))
		})
	}
}

func TestRespondDomainErrorHidesInternals(t *testing.T) {
	rec := httptest.NewRecorder()
	respondDomainError(rec, errors.New("open /secret/path: permission denied"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "/secret/path")
}

func TestQueryInt(t *testing.T) {
	tests := []struct {
		url  string
		want int
	}{
		{"/x", 7},
		{"/x?n=3", 3},
		{"/x?n=0", 7},
		{"/x?n=-2", 7},
		{"/x?n=abc", 7},
	}
	for _, tt := range tests {
		r := httptest.NewRequest("GET", tt.url, nil)
		assert.Equal(t, tt.want, queryInt(r, "n", 7), tt.url)
	}
}
