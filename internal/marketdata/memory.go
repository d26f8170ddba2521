package marketdata

import (
	"strings"
	"sync"
	"time"

	"github.com/nicebigrose/stock-analysis-system/internal/contracts"
)

type seriesEntry struct {
	symbol   string
	series   contracts.PriceSeries
	storedAt time.Time
}

type ratiosEntry struct {
	ratios   *contracts.RatioSnapshot
	storedAt time.Time
}

type profileEntry struct {
	profile  *contracts.CompanyProfile
	storedAt time.Time
}

// memoryCache is the first cache tier.
// ⭐ SSOT: 프로세스 내 시세/재무 캐시는 이 구조체에서만 (RWMutex로 동시 접근 보호)
type memoryCache struct {
	mu       sync.RWMutex
	series   map[string]seriesEntry
	ratios   map[string]ratiosEntry
	profiles map[string]profileEntry
	ttl      time.Duration // 0 = until invalidated
	now      func() time.Time
}

func newMemoryCache(ttl time.Duration) *memoryCache {
	return &memoryCache{
		series:   make(map[string]seriesEntry),
		ratios:   make(map[string]ratiosEntry),
		profiles: make(map[string]profileEntry),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (c *memoryCache) fresh(storedAt time.Time) bool {
	return c.ttl <= 0 || c.now().Sub(storedAt) <= c.ttl
}

func (c *memoryCache) getSeries(key string) (contracts.PriceSeries, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.series[key]
	if !ok || !c.fresh(e.storedAt) {
		return nil, false
	}
	// callers may append; hand out a copy
	return append(contracts.PriceSeries(nil), e.series...), true
}

func (c *memoryCache) putSeries(key, symbol string, series contracts.PriceSeries) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.series[key] = seriesEntry{
		symbol:   symbol,
		series:   append(contracts.PriceSeries(nil), series...),
		storedAt: c.now(),
	}
}

func (c *memoryCache) getRatios(symbol string) (*contracts.RatioSnapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.ratios[symbol]
	if !ok || !c.fresh(e.storedAt) {
		return nil, false
	}
	cp := *e.ratios
	return &cp, true
}

func (c *memoryCache) putRatios(symbol string, r *contracts.RatioSnapshot) {
	cp := *r
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ratios[symbol] = ratiosEntry{ratios: &cp, storedAt: c.now()}
}

func (c *memoryCache) getProfile(symbol string) (*contracts.CompanyProfile, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.profiles[symbol]
	if !ok || !c.fresh(e.storedAt) {
		return nil, false
	}
	cp := *e.profile
	return &cp, true
}

func (c *memoryCache) putProfile(symbol string, p *contracts.CompanyProfile) {
	cp := *p
	c.mu.Lock()
	defer c.mu.Unlock()
	c.profiles[symbol] = profileEntry{profile: &cp, storedAt: c.now()}
}

// invalidate drops every entry for symbol and returns how many went
func (c *memoryCache) invalidate(symbol string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, e := range c.series {
		if strings.EqualFold(e.symbol, symbol) {
			delete(c.series, key)
			removed++
		}
	}
	if _, ok := c.ratios[symbol]; ok {
		delete(c.ratios, symbol)
		removed++
	}
	if _, ok := c.profiles[symbol]; ok {
		delete(c.profiles, symbol)
		removed++
	}
	return removed
}

func (c *memoryCache) clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.series) + len(c.ratios) + len(c.profiles)
	c.series = make(map[string]seriesEntry)
	c.ratios = make(map[string]ratiosEntry)
	c.profiles = make(map[string]profileEntry)
	return n
}

// stats reports entry counts per kind
func (c *memoryCache) stats() map[string]int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return map[string]int{
		"series":   len(c.series),
		"ratios":   len(c.ratios),
		"profiles": len(c.profiles),
	}
}
