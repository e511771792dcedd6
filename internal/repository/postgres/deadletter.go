package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/CR-AudioViz-AI/crav-newsletter-web/internal/domain"
)

// DeadLetterRepo implements events.DeadLetterSink against PostgreSQL,
// writing failed events to the event_bus table under the webhook.failed
// topic for later inspection or replay.
type DeadLetterRepo struct{ db *sql.DB }

// NewDeadLetterRepo creates a Postgres-backed dead letter sink.
func NewDeadLetterRepo(db *sql.DB) *DeadLetterRepo { return &DeadLetterRepo{db: db} }

func (r *DeadLetterRepo) Capture(ctx context.Context, event any, cause error) error {
	payload, err := json.Marshal(domain.DeadLetterPayload{
		Event: event,
		Error: domain.DeadLetterError{Message: cause.Error()},
	})
	if err != nil {
		return fmt.Errorf("marshal dead letter payload: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO event_bus (id, topic, payload, created_at)
		VALUES ($1, $2, $3, NOW())
	`, uuid.New().String(), domain.DeadLetterTopic, payload)
	if err != nil {
		return fmt.Errorf("capture dead letter: %w", err)
	}
	return nil
}

// List returns dead-lettered webhook events, newest first. Used by the
// admin inspection endpoint; replay stays a manual operation.
func (r *DeadLetterRepo) List(ctx context.Context, limit int) ([]domain.DeadLetterEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, topic, payload, created_at
		FROM event_bus
		WHERE topic = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, domain.DeadLetterTopic, limit)
	if err != nil {
		return nil, fmt.Errorf("list dead letters: %w", err)
	}
	defer rows.Close()

	var out []domain.DeadLetterEntry
	for rows.Next() {
		var e domain.DeadLetterEntry
		if err := rows.Scan(&e.ID, &e.Topic, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan dead letter: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
