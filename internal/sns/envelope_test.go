package sns

import (
	"encoding/json"
	"testing"
)

func TestMessageBody_StringEncoded(t *testing.T) {
	env := &Envelope{
		Type:    TypeNotification,
		Message: json.RawMessage(`"{\"eventType\":\"Bounce\"}"`),
	}
	body, err := env.MessageBody()
	if err != nil {
		t.Fatalf("MessageBody: %v", err)
	}
	if string(body) != `{"eventType":"Bounce"}` {
		t.Errorf("unexpected body: %s", body)
	}
}

func TestMessageBody_InlineObject(t *testing.T) {
	env := &Envelope{
		Type:    TypeNotification,
		Message: json.RawMessage(`{"eventType":"Open"}`),
	}
	body, err := env.MessageBody()
	if err != nil {
		t.Fatalf("MessageBody: %v", err)
	}
	var decoded struct {
		EventType string `json:"eventType"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("inner payload is not JSON: %v", err)
	}
	if decoded.EventType != "Open" {
		t.Errorf("eventType = %q, want Open", decoded.EventType)
	}
}

func TestMessageBody_Empty(t *testing.T) {
	env := &Envelope{Type: TypeNotification}
	if _, err := env.MessageBody(); err == nil {
		t.Error("expected error for envelope without Message")
	}
}

func TestCanonicalString_FieldOrder(t *testing.T) {
	env := &Envelope{
		Type:      TypeNotification,
		MessageID: "msg-1",
		TopicArn:  "arn:aws:sns:us-east-1:123:deliveries",
		Subject:   "Amazon SES Email Event Notification",
		Message:   json.RawMessage(`"hello"`),
		Timestamp: "2026-08-29T10:00:00.000Z",
	}

	want := "Message\nhello\n" +
		"MessageId\nmsg-1\n" +
		"Subject\nAmazon SES Email Event Notification\n" +
		"Timestamp\n2026-08-29T10:00:00.000Z\n" +
		"TopicArn\narn:aws:sns:us-east-1:123:deliveries\n" +
		"Type\nNotification\n"

	if got := env.CanonicalString(); got != want {
		t.Errorf("canonical string mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestCanonicalString_SkipsAbsentFields(t *testing.T) {
	env := &Envelope{
		Type:      TypeNotification,
		MessageID: "msg-2",
		Message:   json.RawMessage(`"payload"`),
	}

	want := "Message\npayload\nMessageId\nmsg-2\nType\nNotification\n"
	if got := env.CanonicalString(); got != want {
		t.Errorf("canonical string mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}
