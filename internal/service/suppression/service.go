package suppression

import (
	"context"
	"strings"

	"github.com/CR-AudioViz-AI/crav-newsletter-web/internal/domain"
)

// Service implements suppression business logic. It is safe for concurrent use.
type Service struct {
	repo Repository
}

// NewService creates a suppression service backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// IsSuppressed checks whether an email address should be blocked from sending.
func (s *Service) IsSuppressed(ctx context.Context, orgID, email string) (bool, error) {
	return s.repo.IsSuppressed(ctx, orgID, normalize(email))
}

// Suppress adds an email to the suppression list. Idempotent: if the email
// is already suppressed for the org, the existing record is preserved.
func (s *Service) Suppress(ctx context.Context, orgID, email string, reason domain.SuppressionReason, source domain.SuppressionSource) error {
	email = normalize(email)
	if email == "" {
		return ErrEmailRequired
	}
	return s.repo.Suppress(ctx, &domain.Suppression{
		OrganizationID: orgID,
		Email:          email,
		Reason:         reason,
		Source:         source,
	})
}

// List returns suppression entries for an org, newest first.
func (s *Service) List(ctx context.Context, orgID string, limit, offset int) ([]domain.Suppression, error) {
	return s.repo.List(ctx, orgID, limit, offset)
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
