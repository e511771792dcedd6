package events

import (
	"context"

	"github.com/CR-AudioViz-AI/crav-newsletter-web/internal/domain"
)

// SendRepository reads and mutates send rows. Rows are owned by the
// campaign-send workflow; the processor only marks them sent.
type SendRepository interface {
	// MarkSent transitions the send's status to "sent". Must be an
	// idempotent upsert: redelivered events repeat it safely.
	MarkSent(ctx context.Context, sendID string) error

	// Resolve returns the send for the given id, or ErrSendNotFound.
	Resolve(ctx context.Context, sendID string) (*domain.Send, error)
}

// EventRepository appends to the email_events ledger.
type EventRepository interface {
	Append(ctx context.Context, event *domain.EmailEvent) error
}

// Ledger records which provider event ids have been processed within the
// retention window. Implementations must enforce key uniqueness at the store
// layer so concurrent deliveries of the same event cannot both record.
type Ledger interface {
	// Has reports whether a non-expired record exists for the key.
	Has(ctx context.Context, providerEventID string) (bool, error)

	// Record inserts a record expiring after the retention window. Called
	// only after the corresponding state mutation has durably committed.
	Record(ctx context.Context, providerEventID string) error
}

// Suppressor records bounce/complaint suppressions.
type Suppressor interface {
	Suppress(ctx context.Context, orgID, email string, reason domain.SuppressionReason, source domain.SuppressionSource) error
}

// DeadLetterSink captures events that exhausted their retry budget. The
// event argument is the normalized webhook event, or the raw envelope when
// normalization itself failed.
type DeadLetterSink interface {
	Capture(ctx context.Context, event any, cause error) error
}
