package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nicebigrose/stock-analysis-system/internal/contracts"
)

const marketSchema = `
	CREATE SCHEMA IF NOT EXISTS market;

	CREATE TABLE IF NOT EXISTS market.daily_prices (
		symbol      TEXT NOT NULL,
		trade_date  DATE NOT NULL,
		open_price  DOUBLE PRECISION NOT NULL,
		high_price  DOUBLE PRECISION NOT NULL,
		low_price   DOUBLE PRECISION NOT NULL,
		close_price DOUBLE PRECISION NOT NULL,
		volume      BIGINT NOT NULL,
		PRIMARY KEY (symbol, trade_date)
	);

	CREATE TABLE IF NOT EXISTS market.ratio_snapshots (
		symbol     TEXT PRIMARY KEY,
		year       INT NOT NULL DEFAULT 0,
		quarter    INT NOT NULL DEFAULT 0,
		ratios     JSONB NOT NULL,
		fetched_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS market.company_profiles (
		symbol       TEXT PRIMARY KEY,
		company_name TEXT NOT NULL,
		industry     TEXT NOT NULL DEFAULT '',
		exchange     TEXT NOT NULL DEFAULT '',
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
`

// Repository persists prices, ratios and profiles in Postgres
// ⭐ SSOT: 시세/재무 DB 저장소는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new market data repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// EnsureSchema creates the market tables if needed
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, marketSchema); err != nil {
		return fmt.Errorf("failed to create market schema: %w", err)
	}
	return nil
}

// SavePrices upserts every bar of a series in one batch
func (r *Repository) SavePrices(ctx context.Context, symbol string, series contracts.PriceSeries) error {
	if len(series) == 0 {
		return nil
	}

	query := `
		INSERT INTO market.daily_prices (symbol, trade_date, open_price, high_price, low_price, close_price, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (symbol, trade_date) DO UPDATE SET
			open_price = EXCLUDED.open_price,
			high_price = EXCLUDED.high_price,
			low_price = EXCLUDED.low_price,
			close_price = EXCLUDED.close_price,
			volume = EXCLUDED.volume
	`

	batch := &pgx.Batch{}
	for _, b := range series {
		batch.Queue(query, symbol, b.Date, b.Open, b.High, b.Low, b.Close, b.Volume)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range series {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to save prices for %s: %w", symbol, err)
		}
	}
	return nil
}

// PricesBetween retrieves bars for a symbol within [from, to], ascending
func (r *Repository) PricesBetween(ctx context.Context, symbol string, from, to time.Time) (contracts.PriceSeries, error) {
	query := `
		SELECT trade_date, open_price, high_price, low_price, close_price, volume
		FROM market.daily_prices
		WHERE symbol = $1 AND trade_date BETWEEN $2 AND $3
		ORDER BY trade_date ASC
	`

	rows, err := r.pool.Query(ctx, query, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query prices: %w", err)
	}
	defer rows.Close()

	series := contracts.PriceSeries{}
	for rows.Next() {
		var b contracts.Bar
		if err := rows.Scan(&b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan price: %w", err)
		}
		series = append(series, b)
	}
	return series, rows.Err()
}

// SaveRatios upserts the latest ratio snapshot
func (r *Repository) SaveRatios(ctx context.Context, ratios *contracts.RatioSnapshot) error {
	doc, err := json.Marshal(ratios)
	if err != nil {
		return fmt.Errorf("failed to marshal ratios: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO market.ratio_snapshots (symbol, year, quarter, ratios, fetched_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (symbol) DO UPDATE SET
			year = EXCLUDED.year,
			quarter = EXCLUDED.quarter,
			ratios = EXCLUDED.ratios,
			fetched_at = EXCLUDED.fetched_at
	`, ratios.Symbol, ratios.Year, ratios.Quarter, doc, ratios.FetchedAt)
	if err != nil {
		return fmt.Errorf("failed to save ratios for %s: %w", ratios.Symbol, err)
	}
	return nil
}

// Ratios returns the stored snapshot or ErrDataUnavailable
func (r *Repository) Ratios(ctx context.Context, symbol string) (*contracts.RatioSnapshot, error) {
	var doc []byte
	err := r.pool.QueryRow(ctx,
		"SELECT ratios FROM market.ratio_snapshots WHERE symbol = $1",
		symbol,
	).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: no stored ratios for %s", contracts.ErrDataUnavailable, symbol)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load ratios: %w", err)
	}

	var ratios contracts.RatioSnapshot
	if err := json.Unmarshal(doc, &ratios); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ratios: %w", err)
	}
	return &ratios, nil
}

// SaveProfile upserts company metadata
func (r *Repository) SaveProfile(ctx context.Context, p *contracts.CompanyProfile) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO market.company_profiles (symbol, company_name, industry, exchange, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (symbol) DO UPDATE SET
			company_name = EXCLUDED.company_name,
			industry = EXCLUDED.industry,
			exchange = EXCLUDED.exchange,
			updated_at = NOW()
	`, p.Symbol, p.CompanyName, p.Industry, p.Exchange)
	if err != nil {
		return fmt.Errorf("failed to save profile for %s: %w", p.Symbol, err)
	}
	return nil
}

// Profile returns stored company metadata or ErrDataUnavailable
func (r *Repository) Profile(ctx context.Context, symbol string) (*contracts.CompanyProfile, error) {
	p := contracts.CompanyProfile{Symbol: symbol}
	err := r.pool.QueryRow(ctx,
		"SELECT company_name, industry, exchange FROM market.company_profiles WHERE symbol = $1",
		symbol,
	).Scan(&p.CompanyName, &p.Industry, &p.Exchange)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: no stored profile for %s", contracts.ErrDataUnavailable, symbol)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return &p, nil
}
