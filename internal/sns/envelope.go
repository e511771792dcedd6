// Package sns models the Amazon SNS transport envelope that wraps SES
// delivery notifications, and verifies envelope signatures against the
// signing certificate the notification points at.
package sns

import (
	"encoding/json"
	"errors"
	"strings"
)

// Envelope type discriminators. Anything else is rejected upstream.
const (
	TypeSubscriptionConfirmation = "SubscriptionConfirmation"
	TypeNotification             = "Notification"
)

// Envelope is the outer SNS wrapper around an SES notification. The Type
// field discriminates control messages (subscription confirmations) from
// content notifications; decode paths must switch on it rather than poking
// at loosely-typed fields.
type Envelope struct {
	Type         string          `json:"Type"`
	MessageID    string          `json:"MessageId"`
	TopicArn     string          `json:"TopicArn,omitempty"`
	Subject      string          `json:"Subject,omitempty"`
	Message      json.RawMessage `json:"Message"`
	Timestamp    string          `json:"Timestamp,omitempty"`
	SubscribeURL string          `json:"SubscribeURL,omitempty"`
	Token        string          `json:"Token,omitempty"`
}

var errEmptyMessage = errors.New("sns: envelope has no Message field")

// MessageBody returns the inner notification payload as raw JSON. SNS
// delivers Message as a JSON-encoded string; dev-mode senders may inline the
// object directly, so both forms are accepted.
func (e *Envelope) MessageBody() ([]byte, error) {
	if len(e.Message) == 0 {
		return nil, errEmptyMessage
	}
	var s string
	if err := json.Unmarshal(e.Message, &s); err == nil {
		return []byte(s), nil
	}
	return []byte(e.Message), nil
}

// messageString returns the Message value as signed by SNS: the decoded
// string when Message is a JSON string, otherwise the raw JSON text.
func (e *Envelope) messageString() string {
	if len(e.Message) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(e.Message, &s); err == nil {
		return s
	}
	return string(e.Message)
}

// CanonicalString builds the string-to-sign for this envelope: alternating
// "name\nvalue\n" pairs in the fixed field order SNS signs, skipping fields
// not present in the envelope.
func (e *Envelope) CanonicalString() string {
	pairs := []struct {
		name  string
		value string
	}{
		{"Message", e.messageString()},
		{"MessageId", e.MessageID},
		{"Subject", e.Subject},
		{"Timestamp", e.Timestamp},
		{"TopicArn", e.TopicArn},
		{"Type", e.Type},
	}

	var b strings.Builder
	for _, p := range pairs {
		if p.value == "" {
			continue
		}
		b.WriteString(p.name)
		b.WriteByte('\n')
		b.WriteString(p.value)
		b.WriteByte('\n')
	}
	return b.String()
}
