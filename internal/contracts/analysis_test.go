package contracts

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOrdinals(t *testing.T) {
	ratings := []Rating{RatingPoor, RatingBelowAverage, RatingAverage, RatingGood, RatingExcellent}
	for i, r := range ratings {
		assert.Equal(t, i+1, r.Ordinal(), string(r))
	}

	signals := []Signal{SignalStrongSell, SignalSell, SignalHold, SignalBuy, SignalStrongBuy}
	for i, s := range signals {
		assert.Equal(t, i+1, s.Ordinal(), string(s))
	}

	assert.Equal(t, 3, Rating("UNKNOWN").Ordinal())
	assert.Equal(t, 3, Signal("").Ordinal())
}

func TestSnapshotValid(t *testing.T) {
	s := IndicatorSnapshot{
		Close: 100, RSI: 50, MACD: 1, MACDSignal: 0.5, BBUpper: 110, BBLower: 90,
		SMA: map[int]float64{50: 98, 200: 95},
	}
	assert.True(t, s.Valid(50, 200))

	s.SMA[200] = math.NaN()
	assert.False(t, s.Valid(50, 200))

	delete(s.SMA, 200)
	assert.False(t, s.Valid(50, 200))
}

func TestRatioSnapshot(t *testing.T) {
	r := &RatioSnapshot{Symbol: "VNM", Year: 2020, ROE: Float(0), PE: Float(12)}

	assert.Equal(t, 2, r.Count(), "present zero still counts")
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, r.IsStale(now, 3))

	r.Year = 2023
	assert.False(t, r.IsStale(now, 3))

	r.Year = 0
	assert.False(t, r.IsStale(now, 3), "unknown period is not stale")
}

func TestPriceSeries(t *testing.T) {
	var empty PriceSeries
	_, ok := empty.Last()
	assert.False(t, ok)

	s := PriceSeries{
		{Close: 10, High: 11, Low: 9, Volume: 100},
		{Close: 12, High: 13, Low: 11, Volume: 200},
	}
	last, ok := s.Last()
	assert.True(t, ok)
	assert.Equal(t, 12.0, last.Close)
	assert.Equal(t, []float64{10, 12}, s.Closes())
	assert.Equal(t, []float64{100, 200}, s.Volumes())
}

func TestFallbackProfile(t *testing.T) {
	p := FallbackProfile("FPT")
	assert.Equal(t, "FPT", p.CompanyName)
	assert.True(t, p.Fallback)
}
