package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/CR-AudioViz-AI/crav-newsletter-web/internal/domain"
	"github.com/CR-AudioViz-AI/crav-newsletter-web/internal/pkg/httputil"
	"github.com/CR-AudioViz-AI/crav-newsletter-web/internal/pkg/logger"
	"github.com/CR-AudioViz-AI/crav-newsletter-web/internal/service/events"
	"github.com/CR-AudioViz-AI/crav-newsletter-web/internal/sns"
)

// Signature headers on incoming webhook requests.
const (
	HeaderSignature      = "X-Signature"
	HeaderSigningCertURL = "X-Signing-Cert-Url"
)

// Verifier checks a notification's authenticity.
type Verifier interface {
	Verify(ctx context.Context, env *sns.Envelope, signature, certURL string) bool
}

// Processor runs one normalized event through the delivery-state pipeline.
type Processor interface {
	Process(ctx context.Context, event *domain.WebhookEvent) (events.Outcome, error)
	DeadLetter(ctx context.Context, event any, cause error)
}

// DeadLetterLister reads back captured failures for inspection.
type DeadLetterLister interface {
	List(ctx context.Context, limit int) ([]domain.DeadLetterEntry, error)
}

// WebhookHandler terminates provider notifications: verify, normalize,
// process, respond.
type WebhookHandler struct {
	verifier    Verifier
	processor   Processor
	deadLetters DeadLetterLister
	devMode     bool

	received     atomic.Int64
	recorded     atomic.Int64
	skipped      atomic.Int64
	deadLettered atomic.Int64
	rejected     atomic.Int64
}

// NewWebhookHandler creates the webhook handler. devMode true skips signature
// verification; it must only ever be set from a development configuration.
func NewWebhookHandler(verifier Verifier, processor Processor, deadLetters DeadLetterLister, devMode bool) *WebhookHandler {
	return &WebhookHandler{
		verifier:    verifier,
		processor:   processor,
		deadLetters: deadLetters,
		devMode:     devMode,
	}
}

// Receive handles POST /webhook.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	h.received.Add(1)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.rejected.Add(1)
		httputil.BadRequest(w, "failed to read body")
		return
	}

	var env sns.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		h.rejected.Add(1)
		httputil.BadRequest(w, "invalid JSON")
		return
	}

	if !h.devMode {
		sig := r.Header.Get(HeaderSignature)
		certURL := r.Header.Get(HeaderSigningCertURL)
		if !h.verifier.Verify(r.Context(), &env, sig, certURL) {
			h.rejected.Add(1)
			logger.Warn("webhook signature rejected", "message_id", env.MessageID)
			httputil.Unauthorized(w, "Invalid signature")
			return
		}
	}

	if env.Type == sns.TypeSubscriptionConfirmation {
		logger.Info("subscription confirmation received",
			"topic_arn", env.TopicArn, "subscribe_url", env.SubscribeURL)
		httputil.OK(w, map[string]string{"message": "Subscription confirmed"})
		return
	}

	event := events.Normalize(&env)
	if event == nil {
		h.rejected.Add(1)
		h.processor.DeadLetter(r.Context(), &env, fmt.Errorf("unrecognized event payload"))
		httputil.BadRequest(w, "Unrecognized event payload")
		return
	}

	outcome, err := h.processor.Process(r.Context(), event)
	duration := durationMillis(start)
	switch outcome {
	case events.OutcomeRecorded:
		h.recorded.Add(1)
	case events.OutcomeSkipped:
		h.skipped.Add(1)
	case events.OutcomeDeadLettered:
		h.deadLettered.Add(1)
	}
	if err != nil {
		httputil.JSON(w, http.StatusInternalServerError, map[string]any{
			"error":    "event processing failed",
			"duration": duration,
		})
		return
	}

	httputil.OK(w, map[string]any{"received": true, "duration": duration})
}

// Stats handles GET /webhook/stats.
func (h *WebhookHandler) Stats(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]int64{
		"received":      h.received.Load(),
		"recorded":      h.recorded.Load(),
		"skipped":       h.skipped.Load(),
		"dead_lettered": h.deadLettered.Load(),
		"rejected":      h.rejected.Load(),
	})
}

// DeadLetters handles GET /webhook/deadletters.
func (h *WebhookHandler) DeadLetters(w http.ResponseWriter, r *http.Request) {
	entries, err := h.deadLetters.List(r.Context(), 0)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if entries == nil {
		entries = []domain.DeadLetterEntry{}
	}
	httputil.OK(w, map[string]any{"entries": entries, "count": len(entries)})
}

func durationMillis(start time.Time) string {
	return fmt.Sprintf("%dms", time.Since(start).Milliseconds())
}
