package marketdata

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicebigrose/stock-analysis-system/internal/contracts"
	"github.com/nicebigrose/stock-analysis-system/pkg/logger"
)

func TestUpdatePrices(t *testing.T) {
	up := newFakeUpstream()
	store := newMemStore()
	svc := NewService(up, up, 0, logger.Nop(), WithStore(store))
	u := NewUpdater(svc, 3, logger.Nop())

	report := u.UpdatePrices(context.Background(), []string{"FPT", "VNM", "ZZZ"}, 30)

	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, "prices: 2 of 3 succeeded", report.Summary())

	failed := report.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "ZZZ", failed[0].Symbol)
	assert.ErrorIs(t, failed[0].Error, contracts.ErrDataUnavailable)

	assert.Len(t, store.prices["FPT"], 3)
	assert.Len(t, store.prices["VNM"], 2)
}

func TestUpdateFundamentals(t *testing.T) {
	up := newFakeUpstream()
	store := newMemStore()
	svc := NewService(up, up, 0, logger.Nop(), WithStore(store))
	u := NewUpdater(svc, 0, logger.Nop())
	ctx := context.Background()

	_, err := svc.Ratios(ctx, "FPT")
	require.NoError(t, err)

	report := u.UpdateFundamentals(ctx, []string{"FPT", "ZZZ"})
	assert.Equal(t, "fundamentals: 1 of 2 succeeded", report.Summary())
	assert.Equal(t, 2, up.ratioCalls-1, "refresh bypasses the cache")

	assert.Contains(t, store.ratios, "FPT")
	assert.Equal(t, "FPT Corporation", store.profiles["FPT"].CompanyName)
}

func TestUpdateCancelled(t *testing.T) {
	up := newFakeUpstream()
	svc := NewService(up, up, 0, logger.Nop())
	u := NewUpdater(svc, 2, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := u.UpdatePrices(ctx, []string{"FPT", "VNM"}, 0)
	assert.Equal(t, 0, report.Succeeded)
	assert.Equal(t, 0, up.historyCalls)
	for _, r := range report.Failed() {
		assert.ErrorIs(t, r.Error, context.Canceled)
	}
}
