package jobs

import (
	"context"
	"fmt"

	"github.com/nicebigrose/stock-analysis-system/pkg/logger"
)

// CacheClearer empties every cache tier. *marketdata.Service implements it.
type CacheClearer interface {
	Clear(ctx context.Context) (int, error)
}

// CacheCleanupJob drops cached series so a week of range keys does not pile up
type CacheCleanupJob struct {
	cache  CacheClearer
	logger *logger.Logger
}

// NewCacheCleanupJob creates a new cache cleanup job
func NewCacheCleanupJob(c CacheClearer, log *logger.Logger) *CacheCleanupJob {
	return &CacheCleanupJob{
		cache:  c,
		logger: log,
	}
}

// Name returns the job name
func (j *CacheCleanupJob) Name() string {
	return "cache_cleanup"
}

// Schedule returns the cron schedule (Sunday 03:00)
func (j *CacheCleanupJob) Schedule() string {
	return "0 0 3 * * SUN"
}

// Run executes the cache cleanup
func (j *CacheCleanupJob) Run(ctx context.Context) error {
	count, err := j.cache.Clear(ctx)
	if err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	if count > 0 {
		j.logger.WithField("removed", count).Info("Cache cleanup completed")
	}
	return nil
}
