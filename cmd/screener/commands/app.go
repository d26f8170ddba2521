package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/nicebigrose/stock-analysis-system/internal/external/quotes"
	"github.com/nicebigrose/stock-analysis-system/internal/external/ratios"
	"github.com/nicebigrose/stock-analysis-system/internal/marketdata"
	"github.com/nicebigrose/stock-analysis-system/internal/portfolio"
	"github.com/nicebigrose/stock-analysis-system/internal/rebalance"
	"github.com/nicebigrose/stock-analysis-system/internal/selection"
	"github.com/nicebigrose/stock-analysis-system/internal/strategyconfig"
	"github.com/nicebigrose/stock-analysis-system/pkg/config"
	"github.com/nicebigrose/stock-analysis-system/pkg/database"
	"github.com/nicebigrose/stock-analysis-system/pkg/httputil"
	"github.com/nicebigrose/stock-analysis-system/pkg/logger"
	"github.com/nicebigrose/stock-analysis-system/pkg/redis"
)

// app holds every wired component a command may need
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	holder   *strategyconfig.Holder
	market   *marketdata.Service
	updater  *marketdata.Updater
	db       *database.DB    // nil when DB_ENABLED=false
	redis    *redis.Client   // no-op when REDIS_ENABLED=false
	store    portfolio.Store // ledger persistence
	valuer   *portfolio.Valuer
	advisor  *rebalance.Advisor
	screener *selection.Screener
	scanner  *selection.Scanner
}

// newApp loads configuration and wires the dependency graph
func newApp(ctx context.Context) (*app, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	// 3. Load strategy
	path := cfg.StrategyFile
	if strategyFile != "" {
		path = strategyFile
	}
	strategy, err := strategyconfig.LoadOrDefault(path)
	if err != nil {
		return nil, fmt.Errorf("load strategy: %w", err)
	}
	if hash, err := strategyconfig.Hash(strategy); err == nil {
		log.WithField("strategy_hash", hash[:12]).Debug("Strategy loaded")
	}
	holder := strategyconfig.NewHolder(strategy, path)

	a := &app{cfg: cfg, log: log, holder: holder}

	// 4. Optional stores
	var opts []marketdata.Option
	if cfg.Database.Enabled {
		db, err := database.New(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		a.db = db

		repo := marketdata.NewRepository(db.Pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			a.Close()
			return nil, err
		}
		opts = append(opts, marketdata.WithStore(repo))
		log.Info("Connected to database")
	}

	rc, err := redis.New(ctx, cfg)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, continuing without it")
		rc = nil
	}
	a.redis = rc
	if rc.Enabled() {
		opts = append(opts, marketdata.WithCache(redis.NewCache(rc, "screener")))
	}

	// 5. Create HTTP client and providers
	httpClient := httputil.New(cfg, log)
	quoteClient := quotes.NewClient(httpClient, cfg.Quotes, log)
	ratioClient := ratios.NewClient(httpClient, cfg.Ratios, log)

	// 6. Market data service
	a.market = marketdata.NewService(quoteClient, ratioClient, cfg.CacheTTL, log, opts...)
	a.updater = marketdata.NewUpdater(a.market, cfg.Workers, log)

	// 7. Ledger store
	switch cfg.LedgerStore {
	case "postgres":
		pg := portfolio.NewPGStore(a.db.Pool, portfolio.DefaultLedgerID)
		if err := pg.EnsureSchema(ctx); err != nil {
			a.Close()
			return nil, err
		}
		a.store = pg
	default:
		a.store = portfolio.NewFileStore(cfg.LedgerFile)
	}

	// 8. Analysis components
	a.valuer = portfolio.NewValuer(a.market, a.market, strategy.Portfolio.RiskFreeRate, log)
	a.advisor = rebalance.NewAdvisor(log)
	a.screener = selection.NewScreener(a.market, *strategy, cfg.FetchTimeout, log)
	a.scanner = selection.NewScanner(a.market, *strategy, cfg.FetchTimeout, log)

	return a, nil
}

// openLedger loads the ledger from the configured store
func (a *app) openLedger(ctx context.Context) (*portfolio.Ledger, error) {
	return portfolio.Open(ctx, a.store, a.holder.Config().Fees, a.log)
}

// workers returns n if positive, else the strategy then config default
func (a *app) workers(n int) int {
	if n > 0 {
		return n
	}
	if w := a.holder.Config().Screening.Workers; w > 0 {
		return w
	}
	return a.cfg.Workers
}

// Close releases pooled connections
func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}

// commandContext bounds a one-shot command
func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Minute)
}
