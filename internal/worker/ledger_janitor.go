// Package worker holds background loops that run alongside the HTTP server.
package worker

import (
	"context"
	"time"

	"github.com/CR-AudioViz-AI/crav-newsletter-web/internal/pkg/logger"
)

// DefaultJanitorInterval is how often expired ledger rows are purged.
const DefaultJanitorInterval = time.Hour

// LedgerPurger removes idempotency records past their retention window.
type LedgerPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// LedgerJanitor periodically purges expired idempotency records. The Postgres
// ledger needs this; Redis expires keys on its own and does not run one.
type LedgerJanitor struct {
	purger   LedgerPurger
	interval time.Duration
}

// NewLedgerJanitor creates a janitor. A zero interval uses the default.
func NewLedgerJanitor(purger LedgerPurger, interval time.Duration) *LedgerJanitor {
	if interval <= 0 {
		interval = DefaultJanitorInterval
	}
	return &LedgerJanitor{purger: purger, interval: interval}
}

// Start begins the purge loop. It blocks until ctx is cancelled.
func (j *LedgerJanitor) Start(ctx context.Context) {
	logger.Info("ledger janitor starting", "interval", j.interval.String())

	// Run once immediately on start
	j.purge(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("ledger janitor stopping")
			return
		case <-ticker.C:
			j.purge(ctx)
		}
	}
}

func (j *LedgerJanitor) purge(ctx context.Context) {
	n, err := j.purger.PurgeExpired(ctx)
	if err != nil {
		logger.Error("ledger purge failed", "error", err)
		return
	}
	if n > 0 {
		logger.Info("ledger purge completed", "removed", n)
	}
}
