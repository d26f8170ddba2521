package fundamental

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicebigrose/stock-analysis-system/internal/contracts"
	"github.com/nicebigrose/stock-analysis-system/internal/strategyconfig"
	"github.com/nicebigrose/stock-analysis-system/pkg/logger"
)

func newTestAnalyzer(now time.Time) *Analyzer {
	a := NewAnalyzer(*strategyconfig.Default(), logger.Nop())
	a.now = func() time.Time { return now }
	return a
}

func TestAnalyze(t *testing.T) {
	a := newTestAnalyzer(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	r := fullRatios()
	r.Year = 2023

	res, err := a.Analyze(r, nil)
	require.NoError(t, err)

	assert.Equal(t, "VNM", res.Symbol)
	assert.True(t, res.Profile.Fallback)
	assert.Equal(t, "VNM", res.Profile.CompanyName)
	assert.Equal(t, contracts.RatingExcellent, res.Score.Rating)
	assert.True(t, res.Criteria.MeetsCriteria)
	assert.Equal(t, contracts.ActionStrongBuy, res.Recommendation.Action)
	assert.False(t, res.Stale)

	require.NotNil(t, res.Intrinsic)
	assert.InDelta(t, 5200*10.0, res.Intrinsic.Value, 1e-6)
	require.NotNil(t, res.Valuation)
	assert.Nil(t, res.Valuation.Upside)
}

func TestAnalyze_StaleIsWarningOnly(t *testing.T) {
	a := newTestAnalyzer(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	r := fullRatios()
	r.Year = 2019

	res, err := a.Analyze(r, &contracts.CompanyProfile{Symbol: "VNM", CompanyName: "Vinamilk"})
	require.NoError(t, err)
	assert.True(t, res.Stale)
	assert.Equal(t, "Vinamilk", res.Profile.CompanyName)
}

func TestAnalyze_NoRatios(t *testing.T) {
	_, err := newTestAnalyzer(time.Now()).Analyze(nil, nil)
	assert.True(t, errors.Is(err, contracts.ErrDataUnavailable))
}

func TestIntrinsicValue(t *testing.T) {
	assert.Nil(t, IntrinsicValue(&contracts.RatioSnapshot{EPS: f(100)}, 0.1))
	assert.Nil(t, IntrinsicValue(nil, 0.1))

	iv := IntrinsicValue(&contracts.RatioSnapshot{EPS: f(100), PE: f(12)}, 0.15)
	require.NotNil(t, iv)
	assert.InDelta(t, 1500.0, iv.Value, 1e-9)
	assert.InDelta(t, 15.0, iv.FairPE, 1e-9)
	assert.Equal(t, 12.0, iv.CurrentPE)
}

func TestValuator_DCF(t *testing.T) {
	v := NewValuator(0, 0)
	res, err := v.DCF([]float64{1000, 1100, 1210, 1331, 1464}, 0.10, 0.03)
	require.NoError(t, err)

	var pv float64
	for i, c := range []float64{1000, 1100, 1210, 1331, 1464} {
		pv += c / math.Pow(1.1, float64(i+1))
	}
	tv := 1464 * 1.03 / 0.07
	assert.InDelta(t, pv, res.PVFCF, 1e-6)
	assert.InDelta(t, tv, res.TerminalValue, 1e-6)
	assert.InDelta(t, pv+tv/math.Pow(1.1, 5), res.EnterpriseValue, 1e-6)

	_, err = v.DCF(nil, 0.1, 0.03)
	assert.True(t, errors.Is(err, contracts.ErrComputation))
	_, err = v.DCF([]float64{1}, 0.03, 0.03)
	assert.True(t, errors.Is(err, contracts.ErrComputation))
}

func TestValuator_PE(t *testing.T) {
	v := NewValuator(0, 0)
	industry := 12.0
	growth := 0.15

	assert.InDelta(t, 60000.0, v.PE(5000, &industry, &growth).FairValue, 1e-9)
	assert.InDelta(t, 75000.0, v.PE(5000, nil, &growth).FairValue, 1e-9)
	assert.InDelta(t, 75000.0, v.PE(5000, nil, nil).FairValue, 1e-9)
}

func TestValuator_PBAndDDM(t *testing.T) {
	v := NewValuator(0, 0)

	pb, err := v.PB(20000, 0.18, 0.12)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, pb.FairMultiple, 1e-9)
	assert.InDelta(t, 30000.0, pb.FairValue, 1e-9)

	ddm, err := v.DDM(1000, 0.05, 0.10)
	require.NoError(t, err)
	assert.InDelta(t, 21000.0, ddm, 1e-6)

	_, err = v.DDM(1000, 0.10, 0.10)
	assert.True(t, errors.Is(err, contracts.ErrComputation))
}

func TestValuator_Comprehensive(t *testing.T) {
	v := NewValuator(0, 0)
	r := &contracts.RatioSnapshot{EPS: f(1000), BVPS: f(20000), ROE: f(18)}

	val := v.Comprehensive(r, 0.10, 12500)
	require.NotNil(t, val)
	require.Len(t, val.Methods, 2)
	// pe: 1000*10 = 10000; pb: 20000*1.5 = 30000
	assert.InDelta(t, 20000.0, val.AverageValue, 1e-6)
	assert.InDelta(t, 20000.0, val.MedianValue, 1e-6)
	require.NotNil(t, val.Upside)
	assert.InDelta(t, 60.0, *val.Upside, 1e-6)

	assert.Nil(t, v.Comprehensive(&contracts.RatioSnapshot{PE: f(10)}, 0.1, 100))
}
