package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nicebigrose/stock-analysis-system/internal/contracts"
	"github.com/nicebigrose/stock-analysis-system/internal/strategyconfig"
)

func TestCombine_Extremes(t *testing.T) {
	best := Combine(contracts.RatingExcellent, contracts.SignalStrongBuy, DefaultWeights)
	assert.InDelta(t, 5.0, best.CombinedScore, 1e-9)
	assert.Equal(t, contracts.ActionStrongBuy, best.FinalRating)
	assert.False(t, best.HasConflict)
	assert.Equal(t, []string{"Strong fundamentals", "Positive technicals"}, best.Strengths)
	assert.Empty(t, best.Weaknesses)

	worst := Combine(contracts.RatingPoor, contracts.SignalStrongSell, DefaultWeights)
	assert.InDelta(t, 1.0, worst.CombinedScore, 1e-9)
	assert.Equal(t, contracts.ActionSell, worst.FinalRating)
	assert.Equal(t, []string{"Weak fundamentals", "Negative technicals"}, worst.Weaknesses)
}

func TestCombine_Conflict(t *testing.T) {
	res := Combine(contracts.RatingExcellent, contracts.SignalSell, DefaultWeights)
	assert.Equal(t, 5, res.FundamentalScore)
	assert.Equal(t, 2, res.TechnicalScore)
	assert.True(t, res.HasConflict)
	assert.Equal(t, NoteFundamentalsAhead, res.Note)

	res = Combine(contracts.RatingBelowAverage, contracts.SignalStrongBuy, DefaultWeights)
	assert.True(t, res.HasConflict)
	assert.Equal(t, NoteTechnicalsAhead, res.Note)

	res = Combine(contracts.RatingGood, contracts.SignalHold, DefaultWeights)
	assert.False(t, res.HasConflict)
	assert.Equal(t, NoteAgreement, res.Note)
}

func TestCombine_Tiers(t *testing.T) {
	tests := []struct {
		rating contracts.Rating
		signal contracts.Signal
		score  float64
		want   contracts.Action
	}{
		{contracts.RatingExcellent, contracts.SignalBuy, 4.6, contracts.ActionStrongBuy},
		{contracts.RatingGood, contracts.SignalStrongBuy, 4.4, contracts.ActionBuy},
		{contracts.RatingAverage, contracts.SignalStrongBuy, 3.8, contracts.ActionBuy},
		{contracts.RatingGood, contracts.SignalSell, 3.2, contracts.ActionHold},
		{contracts.RatingAverage, contracts.SignalHold, 3.0, contracts.ActionAvoid},
		{contracts.RatingBelowAverage, contracts.SignalBuy, 2.8, contracts.ActionAvoid},
		{contracts.RatingBelowAverage, contracts.SignalHold, 2.4, contracts.ActionSell},
	}

	for _, tt := range tests {
		t.Run(string(tt.rating)+"/"+string(tt.signal), func(t *testing.T) {
			res := Combine(tt.rating, tt.signal, DefaultWeights)
			assert.InDelta(t, tt.score, res.CombinedScore, 1e-9)
			assert.InDelta(t, float64(res.FundamentalScore)*0.6+float64(res.TechnicalScore)*0.4, res.CombinedScore, 1e-6)
			assert.Equal(t, tt.want, res.FinalRating)
			assert.NotEmpty(t, res.Action)
		})
	}
}

func TestCombine_UnknownAndWeights(t *testing.T) {
	res := Combine(contracts.Rating("??"), contracts.Signal(""), strategyconfig.CombinerWeights{})
	assert.Equal(t, 3, res.FundamentalScore)
	assert.Equal(t, 3, res.TechnicalScore)
	assert.InDelta(t, 3.0, res.CombinedScore, 1e-9)

	res = Combine(contracts.RatingExcellent, contracts.SignalStrongSell, strategyconfig.CombinerWeights{Fundamental: 1})
	assert.InDelta(t, 5.0, res.CombinedScore, 1e-9)
}
