// Package rediscache implements the idempotency ledger on Redis.
//
// SET NX with a TTL gives the ledger store-level key uniqueness: of two
// concurrent deliveries of the same provider event, at most one Record wins,
// and expiry handles the retention window without a housekeeping job.
package rediscache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "webhook:event:"

// IdempotencyLedger implements events.Ledger against Redis.
type IdempotencyLedger struct {
	client    *redis.Client
	retention time.Duration
}

// NewIdempotencyLedger creates a Redis-backed ledger. A zero retention falls
// back to the standard 7-day window.
func NewIdempotencyLedger(client *redis.Client, retention time.Duration) *IdempotencyLedger {
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}
	return &IdempotencyLedger{client: client, retention: retention}
}

func (l *IdempotencyLedger) Has(ctx context.Context, providerEventID string) (bool, error) {
	n, err := l.client.Exists(ctx, keyPrefix+providerEventID).Result()
	if err != nil {
		return false, fmt.Errorf("idempotency lookup: %w", err)
	}
	return n > 0, nil
}

func (l *IdempotencyLedger) Record(ctx context.Context, providerEventID string) error {
	// NX: a concurrent Record for the same key is a silent no-op, the
	// original record and its expiry are preserved.
	_, err := l.client.SetNX(ctx, keyPrefix+providerEventID,
		time.Now().UTC().Format(time.RFC3339Nano), l.retention).Result()
	if err != nil {
		return fmt.Errorf("record idempotency key: %w", err)
	}
	return nil
}
