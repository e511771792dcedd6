package domain

import "time"

// SuppressionReason enumerates why an email was suppressed.
type SuppressionReason string

const (
	ReasonBounce      SuppressionReason = "bounce"
	ReasonComplaint   SuppressionReason = "complaint"
	ReasonUnsubscribe SuppressionReason = "unsubscribe"
	ReasonManual      SuppressionReason = "manual"
)

// SuppressionSource indicates where the suppression signal originated.
type SuppressionSource string

const (
	SourceWebhook SuppressionSource = "webhook"
	SourceManual  SuppressionSource = "manual"
	SourceImport  SuppressionSource = "import"
)

// Suppression is a recorded reason to exclude an address from future sends.
// Entries are append-only; the send-scheduling path reads them to filter
// recipients.
type Suppression struct {
	ID             string            `json:"id" db:"id"`
	OrganizationID string            `json:"organization_id" db:"organization_id"`
	Email          string            `json:"email" db:"email"`
	Reason         SuppressionReason `json:"reason" db:"reason"`
	Source         SuppressionSource `json:"source" db:"source"`
	CreatedAt      time.Time         `json:"created_at" db:"created_at"`
}
