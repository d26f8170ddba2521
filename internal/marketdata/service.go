// Package marketdata layers caching, persistence and fallbacks over the
// quote and ratio providers.
package marketdata

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nicebigrose/stock-analysis-system/internal/contracts"
	"github.com/nicebigrose/stock-analysis-system/internal/external/quotes"
	"github.com/nicebigrose/stock-analysis-system/pkg/logger"
	"github.com/nicebigrose/stock-analysis-system/pkg/redis"
)

// StaleYears is how old a reporting year may be before a warning is logged
const StaleYears = 3

const dateKey = "2006-01-02"

// Prices is the upstream price source
type Prices interface {
	contracts.PriceProvider
	contracts.LatestPriceProvider
}

// Fundamentals is the upstream ratio and profile source
type Fundamentals interface {
	contracts.RatioProvider
	contracts.ProfileProvider
}

// Store is the durable tier. *Repository implements it.
type Store interface {
	SavePrices(ctx context.Context, symbol string, series contracts.PriceSeries) error
	PricesBetween(ctx context.Context, symbol string, from, to time.Time) (contracts.PriceSeries, error)
	SaveRatios(ctx context.Context, ratios *contracts.RatioSnapshot) error
	Ratios(ctx context.Context, symbol string) (*contracts.RatioSnapshot, error)
	SaveProfile(ctx context.Context, p *contracts.CompanyProfile) error
	Profile(ctx context.Context, symbol string) (*contracts.CompanyProfile, error)
}

// Service implements contracts.MarketData.
// Lookups go memory → Redis → upstream; Postgres stores what was fetched
// and answers when upstream fails. Every tier but upstream is optional.
// ⭐ SSOT: 시세/재무 조회 경로는 이 서비스에서만
type Service struct {
	prices       Prices
	fundamentals Fundamentals
	memory       *memoryCache
	cache        *redis.Cache // nil = disabled
	store        Store        // nil = disabled
	logger       *logger.Logger
	now          func() time.Time
}

// Option configures optional tiers
type Option func(*Service)

// WithCache enables the Redis tier
func WithCache(c *redis.Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithStore enables the Postgres tier
func WithStore(st Store) Option {
	return func(s *Service) { s.store = st }
}

// NewService creates the market data service. memoryTTL 0 keeps memory
// entries until invalidated.
func NewService(prices Prices, fundamentals Fundamentals, memoryTTL time.Duration, log *logger.Logger, opts ...Option) *Service {
	s := &Service{
		prices:       prices,
		fundamentals: fundamentals,
		memory:       newMemoryCache(memoryTTL),
		logger:       log.WithComponent("marketdata"),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// History returns bars in [from, to]. Repeated calls for the same range
// are served from cache until invalidated or expired.
func (s *Service) History(ctx context.Context, symbol string, from, to time.Time) (contracts.PriceSeries, error) {
	symbol = normalize(symbol)
	key := redis.SeriesKey(symbol, from.Format(dateKey), to.Format(dateKey))

	if series, ok := s.memory.getSeries(key); ok {
		return series, nil
	}

	var cached contracts.PriceSeries
	if hit, err := s.cache.Get(ctx, key, &cached); err != nil {
		s.logger.WithError(err).WithField("symbol", symbol).Warn("redis series lookup failed")
	} else if hit {
		s.memory.putSeries(key, symbol, cached)
		return cached, nil
	}

	series, err := s.prices.History(ctx, symbol, from, to)
	if err != nil {
		if stored, ok := s.storedSeries(ctx, symbol, from, to); ok {
			s.logger.WithError(err).WithField("symbol", symbol).Warn("upstream history failed, serving stored prices")
			return stored, nil
		}
		return nil, err
	}

	s.memory.putSeries(key, symbol, series)
	if err := s.cache.Set(ctx, key, series, redis.TTLSeries); err != nil {
		s.logger.WithError(err).WithField("symbol", symbol).Warn("redis series store failed")
	}
	if s.store != nil {
		if err := s.store.SavePrices(ctx, symbol, series); err != nil {
			s.logger.WithError(err).WithField("symbol", symbol).Warn("failed to persist prices")
		}
	}
	return series, nil
}

func (s *Service) storedSeries(ctx context.Context, symbol string, from, to time.Time) (contracts.PriceSeries, bool) {
	if s.store == nil {
		return nil, false
	}
	series, err := s.store.PricesBetween(ctx, symbol, from, to)
	if err != nil || len(series) == 0 {
		return nil, false
	}
	return series, true
}

// Latest returns the most recent close. Falls back to stored bars when
// upstream fails.
func (s *Service) Latest(ctx context.Context, symbol string) (*contracts.LatestPrice, error) {
	symbol = normalize(symbol)
	key := redis.LatestKey(symbol)

	var cached contracts.LatestPrice
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, nil
	}

	latest, err := s.prices.Latest(ctx, symbol)
	if err != nil {
		to := s.now()
		if stored, ok := s.storedSeries(ctx, symbol, to.AddDate(0, 0, -14), to); ok {
			s.logger.WithError(err).WithField("symbol", symbol).Warn("upstream latest failed, serving stored close")
			return quotes.LatestFrom(symbol, stored)
		}
		return nil, err
	}

	if err := s.cache.Set(ctx, key, latest, redis.TTLLatest); err != nil {
		s.logger.WithError(err).WithField("symbol", symbol).Warn("redis latest store failed")
	}
	return latest, nil
}

// Ratios returns the latest ratio snapshot. A stale reporting period is
// logged but still returned.
func (s *Service) Ratios(ctx context.Context, symbol string) (*contracts.RatioSnapshot, error) {
	symbol = normalize(symbol)

	if r, ok := s.memory.getRatios(symbol); ok {
		return r, nil
	}

	var cached contracts.RatioSnapshot
	if hit, err := s.cache.Get(ctx, redis.RatiosKey(symbol), &cached); err != nil {
		s.logger.WithError(err).WithField("symbol", symbol).Warn("redis ratios lookup failed")
	} else if hit {
		s.memory.putRatios(symbol, &cached)
		return &cached, nil
	}

	ratios, err := s.fundamentals.Ratios(ctx, symbol)
	if err != nil {
		if s.store != nil {
			if stored, serr := s.store.Ratios(ctx, symbol); serr == nil {
				s.logger.WithError(err).WithField("symbol", symbol).Warn("upstream ratios failed, serving stored snapshot")
				s.warnIfStale(stored)
				return stored, nil
			}
		}
		return nil, err
	}

	s.warnIfStale(ratios)
	s.memory.putRatios(symbol, ratios)
	if err := s.cache.Set(ctx, redis.RatiosKey(symbol), ratios, redis.TTLRatios); err != nil {
		s.logger.WithError(err).WithField("symbol", symbol).Warn("redis ratios store failed")
	}
	if s.store != nil {
		if err := s.store.SaveRatios(ctx, ratios); err != nil {
			s.logger.WithError(err).WithField("symbol", symbol).Warn("failed to persist ratios")
		}
	}
	return ratios, nil
}

func (s *Service) warnIfStale(r *contracts.RatioSnapshot) {
	if r.IsStale(s.now(), StaleYears) {
		s.logger.WithFields(map[string]interface{}{
			"symbol": r.Symbol,
			"year":   r.Year,
		}).Warn("ratio snapshot is more than 3 years old")
	}
}

// Profile never fails: any lookup error yields the fallback profile,
// which is not cached so the next call retries.
func (s *Service) Profile(ctx context.Context, symbol string) (*contracts.CompanyProfile, error) {
	symbol = normalize(symbol)

	if p, ok := s.memory.getProfile(symbol); ok {
		return p, nil
	}

	var cached contracts.CompanyProfile
	if hit, err := s.cache.Get(ctx, redis.ProfileKey(symbol), &cached); err == nil && hit {
		s.memory.putProfile(symbol, &cached)
		return &cached, nil
	}

	p, err := s.fundamentals.Profile(ctx, symbol)
	if err != nil {
		if s.store != nil {
			if stored, serr := s.store.Profile(ctx, symbol); serr == nil {
				return stored, nil
			}
		}
		s.logger.WithError(err).WithField("symbol", symbol).Debug("profile lookup failed, using fallback")
		return contracts.FallbackProfile(symbol), nil
	}

	s.memory.putProfile(symbol, p)
	if err := s.cache.Set(ctx, redis.ProfileKey(symbol), p, redis.TTLRatios); err != nil {
		s.logger.WithError(err).WithField("symbol", symbol).Warn("redis profile store failed")
	}
	if s.store != nil {
		if err := s.store.SaveProfile(ctx, p); err != nil {
			s.logger.WithError(err).WithField("symbol", symbol).Warn("failed to persist profile")
		}
	}
	return p, nil
}

// Invalidate drops every cached entry for symbol in memory and Redis.
// Stored Postgres rows are history, not cache, and are kept.
func (s *Service) Invalidate(ctx context.Context, symbol string) (int, error) {
	symbol = normalize(symbol)
	removed := s.memory.invalidate(symbol)

	n, err := s.cache.DeletePattern(ctx, redis.SeriesPattern(symbol))
	removed += n
	if err != nil {
		return removed, fmt.Errorf("failed to invalidate %s: %w", symbol, err)
	}

	var errs []error
	for _, key := range []string{redis.RatiosKey(symbol), redis.ProfileKey(symbol), redis.LatestKey(symbol)} {
		if err := s.cache.Delete(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return removed, fmt.Errorf("failed to invalidate %s: %w", symbol, err)
	}

	s.logger.WithFields(map[string]interface{}{
		"symbol":  symbol,
		"removed": removed,
	}).Info("cache invalidated")
	return removed, nil
}

// Clear empties memory and every Redis key the service owns
func (s *Service) Clear(ctx context.Context) (int, error) {
	removed := s.memory.clear()

	for _, pattern := range []string{"series:*", "ratios:*", "profile:*", "latest:*"} {
		n, err := s.cache.DeletePattern(ctx, pattern)
		removed += n
		if err != nil {
			return removed, fmt.Errorf("failed to clear cache: %w", err)
		}
	}

	s.logger.WithField("removed", removed).Info("cache cleared")
	return removed, nil
}

// Stats reports memory entry counts
func (s *Service) Stats() map[string]int {
	return s.memory.stats()
}

// refreshHistory fetches from upstream and rewrites every tier
func (s *Service) refreshHistory(ctx context.Context, symbol string, from, to time.Time) (int, error) {
	symbol = normalize(symbol)
	series, err := s.prices.History(ctx, symbol, from, to)
	if err != nil {
		return 0, err
	}
	if len(series) == 0 {
		return 0, fmt.Errorf("%w: no bars for %s", contracts.ErrDataUnavailable, symbol)
	}

	key := redis.SeriesKey(symbol, from.Format(dateKey), to.Format(dateKey))
	s.memory.putSeries(key, symbol, series)
	if err := s.cache.Set(ctx, key, series, redis.TTLSeries); err != nil {
		s.logger.WithError(err).WithField("symbol", symbol).Warn("redis series store failed")
	}
	if s.store != nil {
		if err := s.store.SavePrices(ctx, symbol, series); err != nil {
			return 0, err
		}
	}
	return len(series), nil
}

// refreshRatios fetches ratios and profile from upstream in one pass
func (s *Service) refreshRatios(ctx context.Context, symbol string) error {
	symbol = normalize(symbol)
	s.memory.invalidate(symbol)
	if err := s.cache.Delete(ctx, redis.RatiosKey(symbol)); err != nil {
		s.logger.WithError(err).WithField("symbol", symbol).Warn("redis ratios delete failed")
	}
	if err := s.cache.Delete(ctx, redis.ProfileKey(symbol)); err != nil {
		s.logger.WithError(err).WithField("symbol", symbol).Warn("redis profile delete failed")
	}

	ratios, err := s.fundamentals.Ratios(ctx, symbol)
	if err != nil {
		return err
	}
	s.warnIfStale(ratios)
	s.memory.putRatios(symbol, ratios)
	if err := s.cache.Set(ctx, redis.RatiosKey(symbol), ratios, redis.TTLRatios); err != nil {
		s.logger.WithError(err).WithField("symbol", symbol).Warn("redis ratios store failed")
	}
	if s.store != nil {
		if err := s.store.SaveRatios(ctx, ratios); err != nil {
			return err
		}
	}

	// profile is best-effort
	_, _ = s.Profile(ctx, symbol)
	return nil
}
