package domain

import (
	"encoding/json"
	"time"
)

// DeadLetterTopic is the bus topic under which failed webhook events are
// preserved for later inspection or replay.
const DeadLetterTopic = "webhook.failed"

// DeadLetterEntry is a permanently-failed unit of work. The payload holds the
// original event (or raw envelope, when normalization itself failed) together
// with a serializable description of the final error.
type DeadLetterEntry struct {
	ID        string          `json:"id" db:"id"`
	Topic     string          `json:"topic" db:"topic"`
	Payload   json.RawMessage `json:"payload" db:"payload"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// DeadLetterPayload is the JSON shape stored in DeadLetterEntry.Payload.
type DeadLetterPayload struct {
	Event any             `json:"event"`
	Error DeadLetterError `json:"error"`
}

// DeadLetterError is the serializable form of the failure that exhausted the
// retry budget. Only the message is kept; stack traces never leave the logs.
type DeadLetterError struct {
	Message string `json:"message"`
}
