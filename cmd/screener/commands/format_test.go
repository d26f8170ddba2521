package commands

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/nicebigrose/stock-analysis-system/internal/contracts"
)

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "0"},
		{"999", "999"},
		{"1000", "1,000"},
		{"1234567.6", "1,234,568"},
		{"-25000", "-25,000"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, formatMoney(decimal.RequireFromString(tt.in)))
		})
	}
}

func TestFormatFloat(t *testing.T) {
	assert.Equal(t, "N/A", formatFloat(math.NaN(), 2))
	assert.Equal(t, "N/A", formatFloat(math.Inf(1), 2))
	assert.Equal(t, "12.35", formatFloat(12.345, 2))
	assert.Equal(t, "N/A", formatOptional(nil, 1))
	assert.Equal(t, "18.5", formatOptional(contracts.Float(18.5), 1))
	assert.Equal(t, "+3.10%", formatPercent(3.1))
	assert.Equal(t, "-0.50%", formatPercent(-0.5))
}
