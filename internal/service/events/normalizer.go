package events

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/CR-AudioViz-AI/crav-newsletter-web/internal/domain"
	"github.com/CR-AudioViz-AI/crav-newsletter-web/internal/pkg/logger"
	"github.com/CR-AudioViz-AI/crav-newsletter-web/internal/sns"
)

// CorrelationHeader is the mail header the send path stamps on every
// outbound message. Its value is a JSON object carrying the send and
// campaign ids, read back here to tie provider events to internal state.
const CorrelationHeader = "X-Campaign-Data"

// eventTypes maps SES event-type strings (lowercased) to canonical types.
// SES uses "eventType" on event-publishing notifications and
// "notificationType" on legacy bounce/complaint/delivery notifications;
// both spellings land in this table.
var eventTypes = map[string]domain.EventType{
	"delivery":  domain.EventDelivered,
	"bounce":    domain.EventBounce,
	"complaint": domain.EventComplaint,
	"open":      domain.EventOpen,
	"click":     domain.EventClick,
}

type sesHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type sesMail struct {
	MessageID   string      `json:"messageId"`
	Timestamp   string      `json:"timestamp"`
	Destination []string    `json:"destination"`
	Headers     []sesHeader `json:"headers"`
}

type sesOpen struct {
	UserAgent string `json:"userAgent"`
	IPAddress string `json:"ipAddress"`
}

type sesClick struct {
	UserAgent string `json:"userAgent"`
	IPAddress string `json:"ipAddress"`
	Link      string `json:"link"`
}

type sesNotification struct {
	EventType        string    `json:"eventType"`
	NotificationType string    `json:"notificationType"`
	Mail             sesMail   `json:"mail"`
	Open             *sesOpen  `json:"open"`
	Click            *sesClick `json:"click"`
}

type correlation struct {
	SendID     string `json:"sendId"`
	CampaignID string `json:"campaignId"`
}

// Normalize maps an SES notification envelope to the canonical event shape.
// It returns nil, not an error, when the payload is structurally malformed
// or carries an unrecognized event type; callers must route nil to the
// dead-letter path, not drop it.
//
// Missing correlation data (no X-Campaign-Data header) degrades to empty
// send/campaign ids so the event is still recorded under best-effort
// identifiers.
func Normalize(env *sns.Envelope) *domain.WebhookEvent {
	body, err := env.MessageBody()
	if err != nil {
		logger.Warn("webhook envelope has no message body", "sns_message_id", env.MessageID)
		return nil
	}

	var n sesNotification
	if err := json.Unmarshal(body, &n); err != nil {
		logger.Warn("webhook message is not valid JSON", "sns_message_id", env.MessageID, "error", err)
		return nil
	}

	rawType := n.EventType
	if rawType == "" {
		rawType = n.NotificationType
	}
	if rawType == "" || n.Mail.MessageID == "" {
		logger.Warn("webhook message missing eventType or messageId", "sns_message_id", env.MessageID)
		return nil
	}

	eventType, ok := eventTypes[strings.ToLower(rawType)]
	if !ok {
		logger.Warn("unknown webhook event type", "event_type", rawType, "message_id", n.Mail.MessageID)
		return nil
	}

	var corr correlation
	for _, h := range n.Mail.Headers {
		if h.Name == CorrelationHeader {
			if err := json.Unmarshal([]byte(h.Value), &corr); err != nil {
				logger.Warn("malformed correlation header", "message_id", n.Mail.MessageID, "error", err)
			}
			break
		}
	}

	occurredAt := time.Now().UTC()
	if ts, err := time.Parse(time.RFC3339, n.Mail.Timestamp); err == nil {
		occurredAt = ts
	}

	email := ""
	if len(n.Mail.Destination) > 0 {
		email = n.Mail.Destination[0]
	}

	// Keep the whole decoded payload as opaque metadata, with open/click
	// details lifted to top-level keys for cheap querying.
	metadata := map[string]any{}
	_ = json.Unmarshal(body, &metadata)
	switch {
	case n.Open != nil:
		metadata["userAgent"] = n.Open.UserAgent
		metadata["ipAddress"] = n.Open.IPAddress
	case n.Click != nil:
		metadata["userAgent"] = n.Click.UserAgent
		metadata["ipAddress"] = n.Click.IPAddress
		metadata["link"] = n.Click.Link
	}

	return &domain.WebhookEvent{
		Type:            eventType,
		SendID:          corr.SendID,
		CampaignID:      corr.CampaignID,
		Email:           email,
		OccurredAt:      occurredAt,
		ProviderEventID: n.Mail.MessageID,
		Metadata:        metadata,
	}
}
