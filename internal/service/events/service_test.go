package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/CR-AudioViz-AI/crav-newsletter-web/internal/domain"
)

// ---------------------------------------------------------------------------
// In-memory collaborators
// ---------------------------------------------------------------------------

type mockSends struct {
	mu         sync.Mutex
	sends      map[string]*domain.Send
	resolveErr []error // consumed one per Resolve call; nil entries succeed
	markCalls  int
}

func newMockSends() *mockSends {
	return &mockSends{sends: map[string]*domain.Send{
		"send-1": {ID: "send-1", OrganizationID: "org1", SubscriberID: "sub-1", Status: domain.SendQueued},
	}}
}

func (m *mockSends) MarkSent(_ context.Context, sendID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markCalls++
	if s, ok := m.sends[sendID]; ok {
		s.Status = domain.SendSent
	}
	return nil
}

func (m *mockSends) Resolve(_ context.Context, sendID string) (*domain.Send, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.resolveErr) > 0 {
		err := m.resolveErr[0]
		m.resolveErr = m.resolveErr[1:]
		if err != nil {
			return nil, err
		}
	}
	s, ok := m.sends[sendID]
	if !ok {
		return nil, ErrSendNotFound
	}
	cp := *s
	return &cp, nil
}

type mockEvents struct {
	mu        sync.Mutex
	rows      []*domain.EmailEvent
	failNext  int // fail this many Append calls
	failErr   error
	calls     int
}

func (m *mockEvents) Append(_ context.Context, e *domain.EmailEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failNext != 0 {
		if m.failNext > 0 {
			m.failNext--
		}
		return m.failErr
	}
	m.rows = append(m.rows, e)
	return nil
}

type mockLedger struct {
	mu   sync.Mutex
	keys map[string]time.Time // key → expiry
	now  time.Time
}

func newMockLedger() *mockLedger {
	return &mockLedger{keys: map[string]time.Time{}, now: time.Now()}
}

func (m *mockLedger) Has(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.keys[key]
	return ok && exp.After(m.now), nil
}

func (m *mockLedger) Record(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[key] = m.now.Add(7 * 24 * time.Hour)
	return nil
}

type mockSupp struct {
	mu      sync.Mutex
	entries []domain.Suppression
}

func (m *mockSupp) Suppress(_ context.Context, orgID, email string, reason domain.SuppressionReason, source domain.SuppressionSource) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, domain.Suppression{
		OrganizationID: orgID, Email: email, Reason: reason, Source: source,
	})
	return nil
}

type capturedDeadLetter struct {
	event any
	cause error
}

type mockSink struct {
	mu       sync.Mutex
	captured []capturedDeadLetter
	err      error
}

func (m *mockSink) Capture(_ context.Context, event any, cause error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.captured = append(m.captured, capturedDeadLetter{event: event, cause: cause})
	return nil
}

type fixture struct {
	svc    *Service
	sends  *mockSends
	events *mockEvents
	ledger *mockLedger
	supp   *mockSupp
	sink   *mockSink
	delays []time.Duration
}

func newFixture() *fixture {
	f := &fixture{
		sends:  newMockSends(),
		events: &mockEvents{},
		ledger: newMockLedger(),
		supp:   &mockSupp{},
		sink:   &mockSink{},
	}
	f.svc = NewService(f.sends, f.events, f.ledger, f.supp, f.sink, Config{})
	f.svc.sleep = func(_ context.Context, d time.Duration) error {
		f.delays = append(f.delays, d)
		return nil
	}
	return f
}

func deliveredEvent() *domain.WebhookEvent {
	return &domain.WebhookEvent{
		Type:            domain.EventDelivered,
		SendID:          "send-1",
		CampaignID:      "camp-1",
		Email:           "u@x.com",
		OccurredAt:      time.Now().UTC(),
		ProviderEventID: "m1",
	}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestProcess_DeliveredMarksSendSent(t *testing.T) {
	f := newFixture()

	outcome, err := f.svc.Process(context.Background(), deliveredEvent())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if outcome != OutcomeRecorded {
		t.Errorf("outcome = %q, want recorded", outcome)
	}
	if f.sends.sends["send-1"].Status != domain.SendSent {
		t.Errorf("send status = %q, want sent", f.sends.sends["send-1"].Status)
	}
	if len(f.events.rows) != 1 {
		t.Fatalf("email event rows = %d, want 1", len(f.events.rows))
	}
	row := f.events.rows[0]
	if row.OrganizationID != "org1" || row.SubscriberID != "sub-1" {
		t.Errorf("row org/subscriber = (%q, %q), want resolved from send", row.OrganizationID, row.SubscriberID)
	}
	if ok, _ := f.ledger.Has(context.Background(), "m1"); !ok {
		t.Error("ledger should hold m1 after successful processing")
	}
}

func TestProcess_DuplicateIsNoOp(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.svc.Process(ctx, deliveredEvent()); err != nil {
		t.Fatalf("first Process: %v", err)
	}
	outcome, err := f.svc.Process(ctx, deliveredEvent())
	if err != nil {
		t.Fatalf("second Process: %v", err)
	}
	if outcome != OutcomeSkipped {
		t.Errorf("second outcome = %q, want skipped", outcome)
	}
	if len(f.events.rows) != 1 {
		t.Errorf("email event rows = %d, want exactly 1 after duplicate delivery", len(f.events.rows))
	}
	if len(f.ledger.keys) != 1 {
		t.Errorf("ledger records = %d, want 1", len(f.ledger.keys))
	}
}

func TestProcess_ExpiredRecordReprocessed(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.svc.Process(ctx, deliveredEvent()); err != nil {
		t.Fatalf("first Process: %v", err)
	}

	// Move the ledger clock past the retention window.
	f.ledger.mu.Lock()
	f.ledger.now = f.ledger.now.Add(7*24*time.Hour + time.Minute)
	f.ledger.mu.Unlock()

	outcome, err := f.svc.Process(ctx, deliveredEvent())
	if err != nil {
		t.Fatalf("second Process: %v", err)
	}
	if outcome != OutcomeRecorded {
		t.Errorf("outcome = %q, want recorded (expired record is a miss)", outcome)
	}
	if len(f.events.rows) != 2 {
		t.Errorf("email event rows = %d, want 2 (event reprocessed as new)", len(f.events.rows))
	}
}

func TestProcess_RetryThenDeadLetter(t *testing.T) {
	f := newFixture()
	storeErr := errors.New("connection refused")
	f.events.failNext = -1 // every attempt fails
	f.events.failErr = storeErr

	event := deliveredEvent()
	outcome, err := f.svc.Process(context.Background(), event)

	if outcome != OutcomeDeadLettered {
		t.Errorf("outcome = %q, want dead_lettered", outcome)
	}
	var perr *ProcessingError
	if !errors.As(err, &perr) {
		t.Fatalf("error = %v, want *ProcessingError", err)
	}
	if !errors.Is(perr, storeErr) {
		t.Errorf("ProcessingError should wrap the last cause, got %v", perr.Err)
	}
	if perr.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", perr.Attempts)
	}
	if f.events.calls != 3 {
		t.Errorf("store invoked %d times, want 3", f.events.calls)
	}

	// Backoff: one sleep between each attempt, strictly increasing.
	want := []time.Duration{time.Second, 2 * time.Second}
	if len(f.delays) != len(want) {
		t.Fatalf("delays = %v, want %v", f.delays, want)
	}
	for i, d := range f.delays {
		if d != want[i] {
			t.Errorf("delay[%d] = %v, want %v", i, d, want[i])
		}
		if i > 0 && d <= f.delays[i-1] {
			t.Errorf("delays must strictly increase, got %v", f.delays)
		}
	}

	if len(f.sink.captured) != 1 {
		t.Fatalf("dead letters = %d, want exactly 1", len(f.sink.captured))
	}
	if f.sink.captured[0].event != event {
		t.Error("dead letter should preserve the original event")
	}
	if !errors.Is(f.sink.captured[0].cause, storeErr) {
		t.Errorf("dead letter cause = %v, want wrapped store error", f.sink.captured[0].cause)
	}

	if ok, _ := f.ledger.Has(context.Background(), "m1"); ok {
		t.Error("ledger must not record a dead-lettered event")
	}
}

func TestProcess_TransientFailureRecovers(t *testing.T) {
	f := newFixture()
	f.events.failNext = 2
	f.events.failErr = errors.New("deadlock detected")

	outcome, err := f.svc.Process(context.Background(), deliveredEvent())
	if err != nil {
		t.Fatalf("Process should succeed on the third attempt: %v", err)
	}
	if outcome != OutcomeRecorded {
		t.Errorf("outcome = %q, want recorded", outcome)
	}
	if len(f.events.rows) != 1 {
		t.Errorf("email event rows = %d, want 1", len(f.events.rows))
	}
	if len(f.sink.captured) != 0 {
		t.Errorf("transient failures must not dead-letter, got %d entries", len(f.sink.captured))
	}
}

func TestProcess_SendNotFoundIsRetried(t *testing.T) {
	f := newFixture()
	// Send row lands between attempts 1 and 2 (campaign workflow commit race).
	f.sends.resolveErr = []error{ErrSendNotFound}

	outcome, err := f.svc.Process(context.Background(), deliveredEvent())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if outcome != OutcomeRecorded {
		t.Errorf("outcome = %q, want recorded after retry", outcome)
	}
	if len(f.delays) != 1 {
		t.Errorf("expected one backoff before the successful attempt, got %v", f.delays)
	}
}

func TestProcess_BounceCreatesSuppression(t *testing.T) {
	f := newFixture()
	event := deliveredEvent()
	event.Type = domain.EventBounce
	event.Email = "a@x.com"

	if _, err := f.svc.Process(context.Background(), event); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(f.supp.entries) != 1 {
		t.Fatalf("suppressions = %d, want 1", len(f.supp.entries))
	}
	got := f.supp.entries[0]
	if got.OrganizationID != "org1" || got.Email != "a@x.com" {
		t.Errorf("suppression target = (%q, %q)", got.OrganizationID, got.Email)
	}
	if got.Reason != domain.ReasonBounce {
		t.Errorf("reason = %q, want bounce", got.Reason)
	}
	if got.Source != domain.SourceWebhook {
		t.Errorf("source = %q, want webhook", got.Source)
	}
}

func TestProcess_ComplaintCreatesSuppression(t *testing.T) {
	f := newFixture()
	event := deliveredEvent()
	event.Type = domain.EventComplaint

	if _, err := f.svc.Process(context.Background(), event); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(f.supp.entries) != 1 || f.supp.entries[0].Reason != domain.ReasonComplaint {
		t.Errorf("expected one complaint suppression, got %+v", f.supp.entries)
	}
}

func TestProcess_OpenDoesNotSuppress(t *testing.T) {
	f := newFixture()
	event := deliveredEvent()
	event.Type = domain.EventOpen

	if _, err := f.svc.Process(context.Background(), event); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(f.supp.entries) != 0 {
		t.Errorf("open events must not suppress, got %+v", f.supp.entries)
	}
	if f.sends.sends["send-1"].Status != domain.SendQueued {
		t.Error("open events must not touch send status")
	}
}

func TestProcess_SinkFailureDoesNotMaskError(t *testing.T) {
	f := newFixture()
	storeErr := errors.New("disk full")
	f.events.failNext = -1
	f.events.failErr = storeErr
	f.sink.err = errors.New("dead letter store also down")

	_, err := f.svc.Process(context.Background(), deliveredEvent())
	var perr *ProcessingError
	if !errors.As(err, &perr) {
		t.Fatalf("error = %v, want *ProcessingError despite sink failure", err)
	}
	if !errors.Is(err, storeErr) {
		t.Errorf("original cause must survive sink failure, got %v", err)
	}
}

func TestProcess_CancelledContextStopsBackoff(t *testing.T) {
	f := newFixture()
	f.events.failNext = -1
	f.events.failErr = errors.New("down")
	f.svc.sleep = sleepContext

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome, err := f.svc.Process(ctx, deliveredEvent())
	if outcome != OutcomeDeadLettered {
		t.Errorf("outcome = %q, want dead_lettered", outcome)
	}
	if err == nil {
		t.Fatal("expected error when context is cancelled during backoff")
	}
	// The in-flight attempt completes; only the backoff wait is abandoned.
	if f.events.calls != 1 {
		t.Errorf("store invoked %d times, want 1 (no retries after cancel)", f.events.calls)
	}
}
