package domain

import "time"

// SendStatus tracks the lifecycle of one outbound send attempt.
type SendStatus string

const (
	SendQueued SendStatus = "queued"
	SendSent   SendStatus = "sent"
	SendFailed SendStatus = "failed"
)

// Send is one attempt to deliver a campaign email to one subscriber. Rows are
// created by the campaign-send workflow; the event processor only transitions
// Status to "sent" when a delivery notification arrives.
type Send struct {
	ID                string     `json:"id" db:"id"`
	OrganizationID    string     `json:"organization_id" db:"organization_id"`
	CampaignID        string     `json:"campaign_id" db:"campaign_id"`
	SubscriberID      string     `json:"subscriber_id" db:"subscriber_id"`
	Email             string     `json:"email" db:"email"`
	Status            SendStatus `json:"status" db:"status"`
	ProviderMessageID string     `json:"provider_message_id,omitempty" db:"provider_message_id"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
}
