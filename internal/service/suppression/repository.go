package suppression

import (
	"context"

	"github.com/CR-AudioViz-AI/crav-newsletter-web/internal/domain"
)

// Repository defines the data access contract for the suppression list.
type Repository interface {
	// IsSuppressed returns true if the email is suppressed for the org.
	IsSuppressed(ctx context.Context, orgID, email string) (bool, error)

	// Suppress adds an email to the suppression list. If it already
	// exists, the existing record is preserved (idempotent append).
	Suppress(ctx context.Context, s *domain.Suppression) error

	// List returns suppression entries for an org, newest first.
	List(ctx context.Context, orgID string, limit, offset int) ([]domain.Suppression, error)
}
