package domain

import "time"

// EventType enumerates the canonical delivery-status event types emitted by
// the webhook normalizer.
type EventType string

const (
	EventDelivered EventType = "delivered"
	EventBounce    EventType = "bounce"
	EventComplaint EventType = "complaint"
	EventOpen      EventType = "open"
	EventClick     EventType = "click"
)

// Valid reports whether t is one of the canonical event types.
func (t EventType) Valid() bool {
	switch t {
	case EventDelivered, EventBounce, EventComplaint, EventOpen, EventClick:
		return true
	}
	return false
}

// WebhookEvent is the canonical representation of one delivery-status
// notification, after provider-specific normalization.
//
// ProviderEventID is the provider-assigned id for the underlying notification
// and is the deduplication key: the same notification redelivered by the
// provider carries the same id.
type WebhookEvent struct {
	Type            EventType      `json:"type"`
	SendID          string         `json:"send_id"`
	CampaignID      string         `json:"campaign_id"`
	Email           string         `json:"email"`
	OccurredAt      time.Time      `json:"occurred_at"`
	ProviderEventID string         `json:"provider_event_id"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// EmailEvent is one row in the append-only delivery-event ledger. Rows are
// written exactly once by the event processor and never updated or deleted
// here; data retention is an external concern.
type EmailEvent struct {
	ID             string         `json:"id" db:"id"`
	OrganizationID string         `json:"organization_id" db:"organization_id"`
	CampaignID     string         `json:"campaign_id" db:"campaign_id"`
	SubscriberID   string         `json:"subscriber_id" db:"subscriber_id"`
	Type           EventType      `json:"type" db:"type"`
	Metadata       map[string]any `json:"metadata,omitempty" db:"metadata"`
	OccurredAt     time.Time      `json:"occurred_at" db:"occurred_at"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
}

// IdempotencyRecord marks a provider event id as already processed. A record
// past ExpiresAt counts as a miss; expired rows are purged by housekeeping.
type IdempotencyRecord struct {
	Key       string    `json:"key" db:"key"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
}
