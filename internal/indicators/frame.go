package indicators

import (
	"fmt"

	"github.com/nicebigrose/stock-analysis-system/internal/contracts"
	"github.com/nicebigrose/stock-analysis-system/internal/strategyconfig"
)

// Frame is a price series with every indicator column aligned to it
type Frame struct {
	Series contracts.PriceSeries

	SMA map[int][]float64
	EMA map[int][]float64

	RSI        []float64
	MACD       []float64
	MACDSignal []float64
	MACDHist   []float64
	BBUpper    []float64
	BBMiddle   []float64
	BBLower    []float64
	BBWidth    []float64
	StochK     []float64
	StochD     []float64
	ATR        []float64
	OBV        []float64
}

// Compute adds all indicators to series.
// Fails with contracts.ErrComputation when the series is shorter than
// the longest configured window.
func Compute(series contracts.PriceSeries, p strategyconfig.TechnicalParams) (*Frame, error) {
	if need := p.LongestWindow(); len(series) < need {
		return nil, fmt.Errorf("%w: %d bars, need %d", contracts.ErrComputation, len(series), need)
	}

	closes := series.Closes()
	highs := series.Highs()
	lows := series.Lows()
	volumes := series.Volumes()

	f := &Frame{
		Series: series,
		SMA:    make(map[int][]float64, len(p.MAPeriods)),
		EMA:    make(map[int][]float64, len(p.MAPeriods)),
	}
	for _, w := range p.MAPeriods {
		f.SMA[w] = SMA(closes, w)
		f.EMA[w] = EMA(closes, w)
	}

	f.RSI = RSI(closes, p.RSIPeriod)
	f.MACD, f.MACDSignal, f.MACDHist = MACD(closes, p.MACDFast, p.MACDSlow, p.MACDSignal)
	f.BBUpper, f.BBMiddle, f.BBLower, f.BBWidth = Bollinger(closes, p.BBPeriod, p.BBStd)
	f.StochK, f.StochD = Stochastic(highs, lows, closes, p.StochPeriod, p.StochSmooth)
	f.ATR = ATR(highs, lows, closes, p.ATRPeriod)
	f.OBV = OBV(closes, volumes)

	return f, nil
}

// Len is the number of bars
func (f *Frame) Len() int {
	return len(f.Series)
}

// Snapshot returns every indicator value at bar i
func (f *Frame) Snapshot(i int) contracts.IndicatorSnapshot {
	bar := f.Series[i]
	s := contracts.IndicatorSnapshot{
		Date:       bar.Date,
		Close:      bar.Close,
		Volume:     float64(bar.Volume),
		SMA:        make(map[int]float64, len(f.SMA)),
		EMA:        make(map[int]float64, len(f.EMA)),
		RSI:        f.RSI[i],
		MACD:       f.MACD[i],
		MACDSignal: f.MACDSignal[i],
		MACDHist:   f.MACDHist[i],
		BBUpper:    f.BBUpper[i],
		BBMiddle:   f.BBMiddle[i],
		BBLower:    f.BBLower[i],
		BBWidth:    f.BBWidth[i],
		StochK:     f.StochK[i],
		StochD:     f.StochD[i],
		ATR:        f.ATR[i],
		OBV:        f.OBV[i],
	}
	for w, col := range f.SMA {
		s.SMA[w] = col[i]
	}
	for w, col := range f.EMA {
		s.EMA[w] = col[i]
	}
	return s
}

// Latest is the snapshot at the last bar
func (f *Frame) Latest() contracts.IndicatorSnapshot {
	return f.Snapshot(f.Len() - 1)
}

// Previous is the snapshot one bar before the last
func (f *Frame) Previous() contracts.IndicatorSnapshot {
	return f.Snapshot(f.Len() - 2)
}
