package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/CR-AudioViz-AI/crav-newsletter-web/internal/domain"
	"github.com/CR-AudioViz-AI/crav-newsletter-web/internal/service/events"
)

// SendRepo implements events.SendRepository against PostgreSQL.
type SendRepo struct{ db *sql.DB }

// NewSendRepo creates a Postgres-backed send repository.
func NewSendRepo(db *sql.DB) *SendRepo { return &SendRepo{db: db} }

// MarkSent is an idempotent status transition: re-running it for a send that
// is already "sent" is a no-op update.
func (r *SendRepo) MarkSent(ctx context.Context, sendID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sends SET status = 'sent', updated_at = NOW() WHERE id = $1`,
		sendID,
	)
	if err != nil {
		return fmt.Errorf("mark send sent: %w", err)
	}
	return nil
}

func (r *SendRepo) Resolve(ctx context.Context, sendID string) (*domain.Send, error) {
	var s domain.Send
	err := r.db.QueryRowContext(ctx, `
		SELECT id, organization_id, campaign_id, subscriber_id, email, status
		FROM sends WHERE id = $1
	`, sendID).Scan(&s.ID, &s.OrganizationID, &s.CampaignID, &s.SubscriberID, &s.Email, &s.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, events.ErrSendNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolve send: %w", err)
	}
	return &s, nil
}
