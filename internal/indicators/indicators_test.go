package indicators

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicebigrose/stock-analysis-system/internal/contracts"
	"github.com/nicebigrose/stock-analysis-system/internal/strategyconfig"
)

func linearSeries(n int, start, step float64) contracts.PriceSeries {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := make(contracts.PriceSeries, n)
	for i := range s {
		c := start + step*float64(i)
		s[i] = contracts.Bar{
			Date:   day.AddDate(0, 0, i),
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1000,
		}
	}
	return s
}

func TestSMA(t *testing.T) {
	out := SMA([]float64{1, 2, 3, 4, 5}, 3)

	assert.True(t, math.IsNaN(out[0]))
	assert.True(t, math.IsNaN(out[1]))
	assert.InDelta(t, 2.0, out[2], 1e-9)
	assert.InDelta(t, 3.0, out[3], 1e-9)
	assert.InDelta(t, 4.0, out[4], 1e-9)
}

func TestEMA_SeededWithSMA(t *testing.T) {
	out := EMA([]float64{2, 4, 6, 8}, 3)

	assert.True(t, math.IsNaN(out[1]))
	assert.InDelta(t, 4.0, out[2], 1e-9)
	// k = 0.5 -> 8*0.5 + 4*0.5
	assert.InDelta(t, 6.0, out[3], 1e-9)
}

func TestEMA_SkipsLeadingNaN(t *testing.T) {
	out := EMA([]float64{math.NaN(), math.NaN(), 1, 1, 1}, 2)
	assert.True(t, math.IsNaN(out[2]))
	assert.InDelta(t, 1.0, out[3], 1e-9)
	assert.InDelta(t, 1.0, out[4], 1e-9)
}

func TestRSI_Bounds(t *testing.T) {
	up := linearSeries(40, 100, 1).Closes()
	rsiUp := RSI(up, 14)
	assert.InDelta(t, 100.0, rsiUp[39], 1e-9)

	down := linearSeries(40, 100, -1).Closes()
	rsiDown := RSI(down, 14)
	assert.InDelta(t, 0.0, rsiDown[39], 1e-9)

	flat := linearSeries(40, 100, 0).Closes()
	assert.InDelta(t, 50.0, RSI(flat, 14)[39], 1e-9)

	assert.True(t, math.IsNaN(rsiUp[13]))
	assert.False(t, math.IsNaN(rsiUp[14]))
}

func TestRSI_KnownValue(t *testing.T) {
	// alternating +2/-1: avg gain 1, avg loss 0.5 over an even window
	closes := []float64{10}
	for i := 0; i < 14; i++ {
		if i%2 == 0 {
			closes = append(closes, closes[len(closes)-1]+2)
		} else {
			closes = append(closes, closes[len(closes)-1]-1)
		}
	}
	out := RSI(closes, 14)
	assert.InDelta(t, 100-100/(1+2.0), out[14], 1e-9)
}

func TestMACD_TrendSign(t *testing.T) {
	up := linearSeries(80, 100, 1).Closes()
	line, sig, hist := MACD(up, 12, 26, 9)

	last := len(up) - 1
	assert.Greater(t, line[last], 0.0)
	assert.False(t, math.IsNaN(sig[last]))
	assert.InDelta(t, line[last]-sig[last], hist[last], 1e-9)
	assert.True(t, math.IsNaN(sig[26+9-3]), "signal needs slow+signal-1 bars")
}

func TestBollinger(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5}
	upper, middle, lower, width := Bollinger(closes, 5, 2)

	sd := math.Sqrt(2) // population stddev of 1..5
	assert.InDelta(t, 3.0, middle[4], 1e-9)
	assert.InDelta(t, 3+2*sd, upper[4], 1e-9)
	assert.InDelta(t, 3-2*sd, lower[4], 1e-9)
	assert.InDelta(t, 4*sd/3*100, width[4], 1e-9)
}

func TestStochastic(t *testing.T) {
	highs := []float64{10, 11, 12}
	lows := []float64{8, 9, 10}
	closes := []float64{9, 10, 12}
	k, d := Stochastic(highs, lows, closes, 3, 1)

	assert.InDelta(t, 100.0, k[2], 1e-9) // close at the 3-bar high
	assert.InDelta(t, k[2], d[2], 1e-9)
}

func TestATR_ConstantRange(t *testing.T) {
	s := linearSeries(30, 100, 0)
	out := ATR(s.Highs(), s.Lows(), s.Closes(), 14)
	assert.InDelta(t, 2.0, out[29], 1e-9)
}

func TestOBV(t *testing.T) {
	out := OBV([]float64{10, 11, 11, 9}, []float64{100, 200, 300, 400})
	assert.Equal(t, []float64{0, 200, 200, -200}, out)
}

func TestTrailingMean(t *testing.T) {
	assert.InDelta(t, 3.5, TrailingMean([]float64{1, 2, 3, 4}, 2), 1e-9)
	assert.InDelta(t, 2.5, TrailingMean([]float64{1, 2, 3, 4}, 10), 1e-9)
	assert.True(t, math.IsNaN(TrailingMean(nil, 3)))
}

func TestCompute(t *testing.T) {
	params := strategyconfig.Default().Technical

	_, err := Compute(linearSeries(50, 100, 1), params)
	require.Error(t, err)
	assert.True(t, errors.Is(err, contracts.ErrComputation))

	f, err := Compute(linearSeries(260, 100, 1), params)
	require.NoError(t, err)
	require.Equal(t, 260, f.Len())

	latest := f.Latest()
	assert.True(t, latest.Valid(params.MediumMA, params.LongMA))
	assert.InDelta(t, 359.0, latest.Close, 1e-9)
	// SMA200 of 160..359
	assert.InDelta(t, 259.5, latest.SMAOf(200), 1e-9)
	assert.Greater(t, latest.SMAOf(50), latest.SMAOf(200))

	prev := f.Previous()
	assert.InDelta(t, 358.0, prev.Close, 1e-9)
}
