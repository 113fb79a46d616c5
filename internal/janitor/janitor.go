// Package janitor periodically removes spent reset tokens and stale phone
// verification records.
package janitor

import (
	"context"
	"time"

	"github.com/toolntask/toolntask-api/internal/repository"
	"go.uber.org/zap"
)

type Janitor struct {
	store    repository.Purger
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

func New(store repository.Purger, interval time.Duration, logger *zap.Logger) *Janitor {
	return &Janitor{store: store, interval: interval, logger: logger.Named("janitor"), now: time.Now}
}

// Run purges once immediately and then on every tick until ctx is done. It
// returns only after the sweep in progress has finished.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		j.Sweep(ctx)
		select {
		case <-ctx.Done():
			j.logger.Info("janitor stopped")
			return
		case <-ticker.C:
		}
	}
}

// Sweep returns how many records were deleted, including those removed by a
// sweep that failed part way.
func (j *Janitor) Sweep(ctx context.Context) int {
	n, err := j.store.PurgeExpired(ctx, j.now())
	if err != nil && ctx.Err() == nil {
		j.logger.Error("purge expired records", zap.Int("purged", n), zap.Error(err))
	}
	if n > 0 {
		j.logger.Info("purged expired records", zap.Int("count", n))
	}
	return n
}
