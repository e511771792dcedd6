package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/CR-AudioViz-AI/crav-newsletter-web/internal/domain"
)

// EmailEventRepo implements events.EventRepository against PostgreSQL.
// email_events is append-only; there is no update or delete path here.
type EmailEventRepo struct{ db *sql.DB }

// NewEmailEventRepo creates a Postgres-backed email event repository.
func NewEmailEventRepo(db *sql.DB) *EmailEventRepo { return &EmailEventRepo{db: db} }

func (r *EmailEventRepo) Append(ctx context.Context, e *domain.EmailEvent) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	metadata, err := json.Marshal(e.Metadata)
	if err != nil {
		return fmt.Errorf("marshal event metadata: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO email_events (id, organization_id, campaign_id, subscriber_id, type, metadata, occurred_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`, e.ID, e.OrganizationID, e.CampaignID, e.SubscriberID, e.Type, metadata, e.OccurredAt)
	if err != nil {
		return fmt.Errorf("append email event: %w", err)
	}
	return nil
}
