package dedup

import (
	"context"
	"errors"

	"leadcrm_backend/internal/leads/repository"
	"leadcrm_backend/platform/apperr"

	"github.com/google/uuid"
)

// ContactLookup is the store query the guard depends on.
type ContactLookup interface {
	FindLeadByContact(ctx context.Context, mobile string, email *string, excludeID *uuid.UUID) (repository.ContactMatch, error)
}

// Guard rejects writes that would give two active leads the same contact.
type Guard struct {
	repo ContactLookup
}

func NewGuard(repo ContactLookup) *Guard {
	return &Guard{repo: repo}
}

// Check returns a Duplicate error naming the colliding field. Mobile is
// reported before email when both collide.
func (g *Guard) Check(ctx context.Context, mobile string, email *string, excludeID *uuid.UUID) error {
	match, err := g.repo.FindLeadByContact(ctx, mobile, email, excludeID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return apperr.Infrastructure("dedup.Guard.Check", err)
	}
	return apperr.Duplicate(match.Field, match.Lead.ID)
}

// Translate converts a store-level uniqueness violation, raised when a
// concurrent writer won the race past Check, into the same Duplicate error.
// Other errors are tagged as infrastructure failures.
func (g *Guard) Translate(ctx context.Context, err error, mobile string, email *string, excludeID *uuid.UUID) error {
	if err == nil {
		return nil
	}
	field, ok := repository.AsDuplicateContact(err)
	if !ok {
		return apperr.Infrastructure("dedup.Guard.Translate", err)
	}

	existing := uuid.Nil
	if match, lookupErr := g.repo.FindLeadByContact(ctx, mobile, email, excludeID); lookupErr == nil {
		existing = match.Lead.ID
		field = match.Field
	}
	return apperr.Duplicate(field, existing)
}
