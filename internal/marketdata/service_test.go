package marketdata

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicebigrose/stock-analysis-system/internal/contracts"
	"github.com/nicebigrose/stock-analysis-system/pkg/logger"
)

var errUpstream = errors.New("upstream down")

type fakeUpstream struct {
	mu           sync.Mutex
	series       map[string]contracts.PriceSeries
	ratios       map[string]*contracts.RatioSnapshot
	profiles     map[string]*contracts.CompanyProfile
	fail         bool
	historyCalls int
	latestCalls  int
	ratioCalls   int
	profileCalls int
}

func newFakeUpstream() *fakeUpstream {
	return &fakeUpstream{
		series: map[string]contracts.PriceSeries{
			"FPT": bars(100, 101, 102),
			"VNM": bars(50, 49),
		},
		ratios: map[string]*contracts.RatioSnapshot{
			"FPT": {Symbol: "FPT", Year: 2026, ROE: contracts.Float(22)},
			"OLD": {Symbol: "OLD", Year: 2019, ROE: contracts.Float(5)},
		},
		profiles: map[string]*contracts.CompanyProfile{
			"FPT": {Symbol: "FPT", CompanyName: "FPT Corporation", Industry: "Technology"},
		},
	}
}

func bars(closes ...float64) contracts.PriceSeries {
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	out := make(contracts.PriceSeries, len(closes))
	for i, c := range closes {
		out[i] = contracts.Bar{Date: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 1000}
	}
	return out
}

func (f *fakeUpstream) History(_ context.Context, symbol string, _, _ time.Time) (contracts.PriceSeries, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.historyCalls++
	if f.fail {
		return nil, errUpstream
	}
	return append(contracts.PriceSeries(nil), f.series[symbol]...), nil
}

func (f *fakeUpstream) Latest(_ context.Context, symbol string) (*contracts.LatestPrice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latestCalls++
	if f.fail {
		return nil, errUpstream
	}
	last, ok := f.series[symbol].Last()
	if !ok {
		return nil, contracts.ErrDataUnavailable
	}
	return &contracts.LatestPrice{Symbol: symbol, Date: last.Date, Close: last.Close}, nil
}

func (f *fakeUpstream) Ratios(_ context.Context, symbol string) (*contracts.RatioSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ratioCalls++
	r, ok := f.ratios[symbol]
	if f.fail || !ok {
		return nil, fmt.Errorf("%w: %s", contracts.ErrDataUnavailable, symbol)
	}
	cp := *r
	return &cp, nil
}

func (f *fakeUpstream) Profile(_ context.Context, symbol string) (*contracts.CompanyProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profileCalls++
	p, ok := f.profiles[symbol]
	if f.fail || !ok {
		return nil, errUpstream
	}
	cp := *p
	return &cp, nil
}

func (f *fakeUpstream) setFail(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = v
}

// memStore is an in-memory Store
type memStore struct {
	mu       sync.Mutex
	prices   map[string]contracts.PriceSeries
	ratios   map[string]*contracts.RatioSnapshot
	profiles map[string]*contracts.CompanyProfile
}

func newMemStore() *memStore {
	return &memStore{
		prices:   map[string]contracts.PriceSeries{},
		ratios:   map[string]*contracts.RatioSnapshot{},
		profiles: map[string]*contracts.CompanyProfile{},
	}
}

func (m *memStore) SavePrices(_ context.Context, symbol string, s contracts.PriceSeries) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[symbol] = append(contracts.PriceSeries(nil), s...)
	return nil
}

func (m *memStore) PricesBetween(_ context.Context, symbol string, _, _ time.Time) (contracts.PriceSeries, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append(contracts.PriceSeries(nil), m.prices[symbol]...), nil
}

func (m *memStore) SaveRatios(_ context.Context, r *contracts.RatioSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.ratios[r.Symbol] = &cp
	return nil
}

func (m *memStore) Ratios(_ context.Context, symbol string) (*contracts.RatioSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.ratios[symbol]
	if !ok {
		return nil, contracts.ErrDataUnavailable
	}
	cp := *r
	return &cp, nil
}

func (m *memStore) SaveProfile(_ context.Context, p *contracts.CompanyProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.profiles[p.Symbol] = &cp
	return nil
}

func (m *memStore) Profile(_ context.Context, symbol string) (*contracts.CompanyProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[symbol]
	if !ok {
		return nil, contracts.ErrDataUnavailable
	}
	cp := *p
	return &cp, nil
}

var (
	rangeFrom = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rangeTo   = time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
)

func TestHistoryCachesExactRange(t *testing.T) {
	up := newFakeUpstream()
	svc := NewService(up, up, 0, logger.Nop())
	ctx := context.Background()

	first, err := svc.History(ctx, "fpt", rangeFrom, rangeTo)
	require.NoError(t, err)
	require.Len(t, first, 3)

	second, err := svc.History(ctx, "FPT", rangeFrom, rangeTo)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, up.historyCalls, "second call is a cache hit")

	// a different range is a different key
	_, err = svc.History(ctx, "FPT", rangeFrom.AddDate(0, 1, 0), rangeTo)
	require.NoError(t, err)
	assert.Equal(t, 2, up.historyCalls)
}

func TestHistoryReturnsCopies(t *testing.T) {
	up := newFakeUpstream()
	svc := NewService(up, up, 0, logger.Nop())
	ctx := context.Background()

	first, err := svc.History(ctx, "FPT", rangeFrom, rangeTo)
	require.NoError(t, err)
	first[0].Close = -1

	second, err := svc.History(ctx, "FPT", rangeFrom, rangeTo)
	require.NoError(t, err)
	assert.Equal(t, 100.0, second[0].Close)
}

func TestHistoryMemoryTTL(t *testing.T) {
	up := newFakeUpstream()
	svc := NewService(up, up, time.Hour, logger.Nop())
	clock := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	svc.memory.now = func() time.Time { return clock }
	ctx := context.Background()

	_, err := svc.History(ctx, "FPT", rangeFrom, rangeTo)
	require.NoError(t, err)

	clock = clock.Add(2 * time.Hour)
	_, err = svc.History(ctx, "FPT", rangeFrom, rangeTo)
	require.NoError(t, err)
	assert.Equal(t, 2, up.historyCalls, "expired entry refetches")
}

func TestHistoryFallsBackToStore(t *testing.T) {
	up := newFakeUpstream()
	store := newMemStore()
	svc := NewService(up, up, 0, logger.Nop(), WithStore(store))
	ctx := context.Background()

	_, err := svc.History(ctx, "FPT", rangeFrom, rangeTo)
	require.NoError(t, err)
	assert.Len(t, store.prices["FPT"], 3, "fetched bars are persisted")

	svc.memory.clear()
	up.setFail(true)

	series, err := svc.History(ctx, "FPT", rangeFrom, rangeTo)
	require.NoError(t, err)
	assert.Len(t, series, 3)

	_, err = svc.History(ctx, "VNM", rangeFrom, rangeTo)
	assert.ErrorIs(t, err, errUpstream, "nothing stored for VNM")
}

func TestLatestFallsBackToStoredClose(t *testing.T) {
	up := newFakeUpstream()
	store := newMemStore()
	store.prices["FPT"] = bars(100, 110)
	svc := NewService(up, up, 0, logger.Nop(), WithStore(store))
	ctx := context.Background()

	latest, err := svc.Latest(ctx, "FPT")
	require.NoError(t, err)
	assert.Equal(t, 102.0, latest.Close)

	up.setFail(true)
	latest, err = svc.Latest(ctx, "FPT")
	require.NoError(t, err)
	assert.Equal(t, 110.0, latest.Close)
	assert.InDelta(t, 10.0, latest.Change, 1e-9)
}

func TestRatiosCacheAndFallback(t *testing.T) {
	up := newFakeUpstream()
	store := newMemStore()
	svc := NewService(up, up, 0, logger.Nop(), WithStore(store))
	ctx := context.Background()

	r, err := svc.Ratios(ctx, "FPT")
	require.NoError(t, err)
	assert.Equal(t, 22.0, *r.ROE)

	_, err = svc.Ratios(ctx, "FPT")
	require.NoError(t, err)
	assert.Equal(t, 1, up.ratioCalls)

	_, err = svc.Ratios(ctx, "ZZZ")
	assert.ErrorIs(t, err, contracts.ErrDataUnavailable)

	svc.memory.clear()
	up.setFail(true)
	r, err = svc.Ratios(ctx, "FPT")
	require.NoError(t, err, "stored snapshot answers")
	assert.Equal(t, 22.0, *r.ROE)
}

func TestRatiosStaleWarning(t *testing.T) {
	var buf bytes.Buffer
	up := newFakeUpstream()
	svc := NewService(up, up, 0, logger.NewWithWriter(&buf, "warn"))
	svc.now = func() time.Time { return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC) }

	r, err := svc.Ratios(context.Background(), "OLD")
	require.NoError(t, err, "stale data is still returned")
	assert.Equal(t, 2019, r.Year)
	assert.Contains(t, buf.String(), "more than 3 years old")

	buf.Reset()
	_, err = svc.Ratios(context.Background(), "FPT")
	require.NoError(t, err)
	assert.Empty(t, buf.String())
}

func TestProfileFallback(t *testing.T) {
	up := newFakeUpstream()
	svc := NewService(up, up, 0, logger.Nop())
	ctx := context.Background()

	p, err := svc.Profile(ctx, "FPT")
	require.NoError(t, err)
	assert.Equal(t, "FPT Corporation", p.CompanyName)
	assert.False(t, p.Fallback)

	p, err = svc.Profile(ctx, "ZZZ")
	require.NoError(t, err)
	assert.Equal(t, "ZZZ", p.CompanyName)
	assert.True(t, p.Fallback)

	_, _ = svc.Profile(ctx, "ZZZ")
	assert.Equal(t, 3, up.profileCalls, "fallback is not cached")
}

func TestInvalidateAndClear(t *testing.T) {
	up := newFakeUpstream()
	svc := NewService(up, up, 0, logger.Nop())
	ctx := context.Background()

	_, err := svc.History(ctx, "FPT", rangeFrom, rangeTo)
	require.NoError(t, err)
	_, err = svc.History(ctx, "VNM", rangeFrom, rangeTo)
	require.NoError(t, err)
	_, err = svc.Ratios(ctx, "FPT")
	require.NoError(t, err)

	removed, err := svc.Invalidate(ctx, "fpt")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, svc.Stats()["series"])

	_, err = svc.History(ctx, "FPT", rangeFrom, rangeTo)
	require.NoError(t, err)
	assert.Equal(t, 3, up.historyCalls, "invalidated symbol refetches")

	removed, err = svc.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Equal(t, map[string]int{"series": 0, "ratios": 0, "profiles": 0}, svc.Stats())
}

func TestConcurrentHistory(t *testing.T) {
	up := newFakeUpstream()
	svc := NewService(up, up, 0, logger.Nop())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			series, err := svc.History(ctx, "FPT", rangeFrom, rangeTo)
			assert.NoError(t, err)
			assert.Len(t, series, 3)
		}()
	}
	wg.Wait()
}
