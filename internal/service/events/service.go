package events

import (
	"context"
	"fmt"
	"time"

	"github.com/CR-AudioViz-AI/crav-newsletter-web/internal/domain"
	"github.com/CR-AudioViz-AI/crav-newsletter-web/internal/pkg/logger"
)

// Outcome reports how an event moved through the processing state machine.
type Outcome string

const (
	// OutcomeSkipped means the ledger already holds the event's id.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeRecorded means state was mutated and the ledger updated.
	OutcomeRecorded Outcome = "recorded"
	// OutcomeDeadLettered means the retry budget was exhausted.
	OutcomeDeadLettered Outcome = "dead_lettered"
)

// Config controls the processor's retry behavior.
type Config struct {
	// MaxRetries is the total attempt budget (default 3).
	MaxRetries int
	// BaseDelay is the first backoff delay; it doubles each attempt
	// (default 1s, so 1s then 2s before attempts 2 and 3).
	BaseDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = time.Second
	}
	return c
}

// Service is the event processor. It is safe for concurrent use; correctness
// under concurrent redeliveries of the same event rests on the ledger's
// store-level key uniqueness, not on in-process locking.
type Service struct {
	sends  SendRepository
	events EventRepository
	ledger Ledger
	supp   Suppressor
	sink   DeadLetterSink
	cfg    Config

	// sleep is swapped out in tests to observe backoff delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewService creates an event processor over the given collaborators.
func NewService(sends SendRepository, events EventRepository, ledger Ledger, supp Suppressor, sink DeadLetterSink, cfg Config) *Service {
	return &Service{
		sends:  sends,
		events: events,
		ledger: ledger,
		supp:   supp,
		sink:   sink,
		cfg:    cfg.withDefaults(),
		sleep:  sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Process applies one normalized event to delivery state. The whole step
// sequence (dedup check, send update, ledger append, suppression, idempotency
// record) is retried as a unit with exponential backoff; once the budget is
// exhausted the event is dead-lettered and a ProcessingError returned.
func (s *Service) Process(ctx context.Context, event *domain.WebhookEvent) (Outcome, error) {
	var lastErr error

	for attempt := 1; attempt <= s.cfg.MaxRetries; attempt++ {
		if attempt > 1 {
			delay := s.cfg.BaseDelay << (attempt - 2)
			if err := s.sleep(ctx, delay); err != nil {
				lastErr = err
				break
			}
		}

		outcome, err := s.apply(ctx, event)
		if err == nil {
			return outcome, nil
		}
		lastErr = err
		logger.Warn("event apply failed",
			"provider_event_id", event.ProviderEventID,
			"attempt", attempt, "max", s.cfg.MaxRetries, "error", err)
	}

	perr := &ProcessingError{
		ProviderEventID: event.ProviderEventID,
		Attempts:        s.cfg.MaxRetries,
		Err:             lastErr,
	}
	s.DeadLetter(ctx, event, perr)
	return OutcomeDeadLettered, perr
}

// apply runs the step sequence once. Every mutation in here must be safe to
// repeat: a crash between the final state write and the ledger record means
// a redelivered event runs the whole sequence again.
func (s *Service) apply(ctx context.Context, event *domain.WebhookEvent) (Outcome, error) {
	dup, err := s.ledger.Has(ctx, event.ProviderEventID)
	if err != nil {
		return "", fmt.Errorf("idempotency check: %w", err)
	}
	if dup {
		logger.Info("duplicate event skipped", "provider_event_id", event.ProviderEventID)
		return OutcomeSkipped, nil
	}

	if event.Type == domain.EventDelivered {
		if err := s.sends.MarkSent(ctx, event.SendID); err != nil {
			return "", fmt.Errorf("mark send sent: %w", err)
		}
	}

	send, err := s.sends.Resolve(ctx, event.SendID)
	if err != nil {
		// ErrSendNotFound lands here too: the send row may not have
		// committed yet, so it goes back around the retry loop.
		return "", fmt.Errorf("resolve send %q: %w", event.SendID, err)
	}

	if err := s.events.Append(ctx, &domain.EmailEvent{
		OrganizationID: send.OrganizationID,
		CampaignID:     event.CampaignID,
		SubscriberID:   send.SubscriberID,
		Type:           event.Type,
		Metadata:       event.Metadata,
		OccurredAt:     event.OccurredAt,
	}); err != nil {
		return "", fmt.Errorf("append email event: %w", err)
	}

	if event.Type == domain.EventBounce || event.Type == domain.EventComplaint {
		reason := domain.ReasonBounce
		if event.Type == domain.EventComplaint {
			reason = domain.ReasonComplaint
		}
		if err := s.supp.Suppress(ctx, send.OrganizationID, event.Email, reason, domain.SourceWebhook); err != nil {
			return "", fmt.Errorf("suppress %s: %w", logger.RedactEmail(event.Email), err)
		}
	}

	if err := s.ledger.Record(ctx, event.ProviderEventID); err != nil {
		return "", fmt.Errorf("record idempotency: %w", err)
	}

	logger.Info("event processed",
		"type", string(event.Type),
		"send_id", event.SendID,
		"provider_event_id", event.ProviderEventID)
	return OutcomeRecorded, nil
}

// DeadLetter captures a failed event, best-effort. Capture failures are
// logged and swallowed so they never mask the original processing error.
func (s *Service) DeadLetter(ctx context.Context, event any, cause error) {
	if err := s.sink.Capture(ctx, event, cause); err != nil {
		logger.Error("dead letter capture failed", "error", err, "cause", cause)
	}
}
