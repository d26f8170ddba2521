// Package indicators computes textbook technical indicators over float
// columns. Output slices have the input's length; positions a window
// cannot fill yet hold NaN.
package indicators

import "math"

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// firstValid returns the index of the first non-NaN value, or len(values)
func firstValid(values []float64) int {
	for i, v := range values {
		if !math.IsNaN(v) {
			return i
		}
	}
	return len(values)
}

// SMA is the simple moving average
func SMA(values []float64, window int) []float64 {
	out := nanSlice(len(values))
	if window <= 0 {
		return out
	}

	start := firstValid(values)
	var sum float64
	for i := start; i < len(values); i++ {
		sum += values[i]
		if i-start >= window {
			sum -= values[i-window]
		}
		if i-start+1 >= window {
			out[i] = sum / float64(window)
		}
	}
	return out
}

// EMA is the exponential moving average with alpha 2/(n+1),
// seeded with the SMA of the first full window. Leading NaNs are skipped.
func EMA(values []float64, window int) []float64 {
	out := nanSlice(len(values))
	if window <= 0 {
		return out
	}

	start := firstValid(values)
	seedEnd := start + window - 1
	if seedEnd >= len(values) {
		return out
	}

	var sum float64
	for i := start; i <= seedEnd; i++ {
		sum += values[i]
	}
	out[seedEnd] = sum / float64(window)

	k := 2.0 / float64(window+1)
	for i := seedEnd + 1; i < len(values); i++ {
		out[i] = values[i]*k + out[i-1]*(1-k)
	}
	return out
}

// RSI is Wilder's relative strength index
func RSI(closes []float64, period int) []float64 {
	n := len(closes)
	out := nanSlice(n)
	if period <= 0 || n < period+1 {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < n; i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// MACD returns the MACD line, signal line and histogram
func MACD(closes []float64, fast, slow, signal int) (line, sig, hist []float64) {
	fastEMA := EMA(closes, fast)
	slowEMA := EMA(closes, slow)

	line = nanSlice(len(closes))
	for i := range closes {
		line[i] = fastEMA[i] - slowEMA[i] // NaN propagates
	}

	sig = EMA(line, signal)
	hist = nanSlice(len(closes))
	for i := range closes {
		hist[i] = line[i] - sig[i]
	}
	return line, sig, hist
}

// Bollinger returns upper, middle, lower bands and width (% of middle).
// Standard deviation is the population deviation over the window.
func Bollinger(closes []float64, period int, k float64) (upper, middle, lower, width []float64) {
	n := len(closes)
	upper, lower, width = nanSlice(n), nanSlice(n), nanSlice(n)
	middle = SMA(closes, period)

	for i := period - 1; i < n && period > 0; i++ {
		mean := middle[i]
		if math.IsNaN(mean) {
			continue
		}
		var ss float64
		for j := i - period + 1; j <= i; j++ {
			d := closes[j] - mean
			ss += d * d
		}
		sd := math.Sqrt(ss / float64(period))
		upper[i] = mean + k*sd
		lower[i] = mean - k*sd
		if mean != 0 {
			width[i] = (upper[i] - lower[i]) / mean * 100
		}
	}
	return upper, middle, lower, width
}

// Stochastic returns %K over period and %D as the SMA of %K over smooth
func Stochastic(highs, lows, closes []float64, period, smooth int) (k, d []float64) {
	n := len(closes)
	k = nanSlice(n)

	for i := period - 1; i < n && period > 0; i++ {
		hh, ll := highs[i], lows[i]
		for j := i - period + 1; j < i; j++ {
			hh = math.Max(hh, highs[j])
			ll = math.Min(ll, lows[j])
		}
		if hh == ll {
			k[i] = 50
			continue
		}
		k[i] = (closes[i] - ll) / (hh - ll) * 100
	}
	return k, SMA(k, smooth)
}

// ATR is Wilder's average true range
func ATR(highs, lows, closes []float64, period int) []float64 {
	n := len(closes)
	out := nanSlice(n)
	if period <= 0 || n < period+1 {
		return out
	}

	tr := make([]float64, n)
	for i := 1; i < n; i++ {
		tr[i] = math.Max(highs[i]-lows[i],
			math.Max(math.Abs(highs[i]-closes[i-1]), math.Abs(lows[i]-closes[i-1])))
	}

	var sum float64
	for i := 1; i <= period; i++ {
		sum += tr[i]
	}
	out[period] = sum / float64(period)

	for i := period + 1; i < n; i++ {
		out[i] = (out[i-1]*float64(period-1) + tr[i]) / float64(period)
	}
	return out
}

// OBV is on-balance volume, starting at zero
func OBV(closes, volumes []float64) []float64 {
	out := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		switch {
		case closes[i] > closes[i-1]:
			out[i] = out[i-1] + volumes[i]
		case closes[i] < closes[i-1]:
			out[i] = out[i-1] - volumes[i]
		default:
			out[i] = out[i-1]
		}
	}
	return out
}

// Mean of the last n values (fewer if the slice is shorter); NaNs are skipped
func TrailingMean(values []float64, n int) float64 {
	if n > len(values) {
		n = len(values)
	}
	var sum float64
	var count int
	for _, v := range values[len(values)-n:] {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		count++
	}
	if count == 0 {
		return math.NaN()
	}
	return sum / float64(count)
}
