package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// DefaultRetention is how long a processed provider event id stays in the
// ledger before redeliveries are treated as new events.
const DefaultRetention = 7 * 24 * time.Hour

// IdempotencyRepo implements events.Ledger against PostgreSQL.
//
// idempotency_keys carries a unique constraint on key; Record uses ON
// CONFLICT DO NOTHING so two concurrent deliveries of the same event cannot
// both insert. Expired rows count as misses and are removed by PurgeExpired.
type IdempotencyRepo struct {
	db        *sql.DB
	retention time.Duration
}

// NewIdempotencyRepo creates a Postgres-backed idempotency ledger. A zero
// retention falls back to DefaultRetention.
func NewIdempotencyRepo(db *sql.DB, retention time.Duration) *IdempotencyRepo {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &IdempotencyRepo{db: db, retention: retention}
}

func (r *IdempotencyRepo) Has(ctx context.Context, providerEventID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM idempotency_keys WHERE key = $1 AND expires_at > NOW())`,
		providerEventID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("idempotency lookup: %w", err)
	}
	return exists, nil
}

func (r *IdempotencyRepo) Record(ctx context.Context, providerEventID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO idempotency_keys (key, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (key) DO NOTHING
	`, providerEventID, time.Now().UTC().Add(r.retention))
	if err != nil {
		return fmt.Errorf("record idempotency key: %w", err)
	}
	return nil
}

// PurgeExpired removes ledger rows past their expiry and returns how many
// were deleted. Called by the housekeeping worker, never by the hot path.
func (r *IdempotencyRepo) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM idempotency_keys WHERE expires_at <= NOW()`,
	)
	if err != nil {
		return 0, fmt.Errorf("purge idempotency keys: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
