// Package postgres implements the service repository interfaces against
// PostgreSQL via database/sql and lib/pq.
//
// Each repository owns its table exclusively. No repository opens
// transactions spanning another repository's table: the pipeline relies on
// per-statement atomicity plus the idempotency ledger, not cross-step
// transactions.
package postgres
