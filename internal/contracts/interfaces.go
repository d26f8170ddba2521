package contracts

import (
	"context"
	"time"
)

// PriceProvider returns daily history ascending by date.
// An empty series with nil error means no data.
// ⭐ SSOT: 시세 수집 인터페이스
type PriceProvider interface {
	History(ctx context.Context, symbol string, from, to time.Time) (PriceSeries, error)
}

// LatestPriceProvider returns the latest close or ErrDataUnavailable
type LatestPriceProvider interface {
	Latest(ctx context.Context, symbol string) (*LatestPrice, error)
}

// RatioProvider returns the most recent ratio snapshot or ErrDataUnavailable
type RatioProvider interface {
	Ratios(ctx context.Context, symbol string) (*RatioSnapshot, error)
}

// ProfileProvider returns company metadata
type ProfileProvider interface {
	Profile(ctx context.Context, symbol string) (*CompanyProfile, error)
}

// MarketData bundles every provider the screener needs
type MarketData interface {
	PriceProvider
	LatestPriceProvider
	RatioProvider
	ProfileProvider
}
