package repository

import (
	"errors"
	"fmt"

	"leadcrm_backend/internal/leads/domain"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound               = errors.New("lead not found")
	ErrFollowUpNotFound       = errors.New("follow-up not found")
	ErrStaleDistributionState = errors.New("distribution state changed concurrently")
)

const pgUniqueViolation = "23505"

// Names of the partial unique indexes backing the duplicate guard.
const (
	constraintActiveMobile = "leads_active_mobile_key"
	constraintActiveEmail  = "leads_active_email_key"
)

// DuplicateContactError is returned when the store itself rejects a write
// because another active lead owns the mobile or email.
type DuplicateContactError struct {
	Field string
}

func (e *DuplicateContactError) Error() string {
	return fmt.Sprintf("active lead with same %s already exists", e.Field)
}

// AsDuplicateContact reports the colliding field if err is a store-level
// uniqueness violation.
func AsDuplicateContact(err error) (string, bool) {
	var dup *DuplicateContactError
	if errors.As(err, &dup) {
		return dup.Field, true
	}
	return "", false
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return err
	}
	switch pgErr.ConstraintName {
	case constraintActiveMobile:
		return &DuplicateContactError{Field: domain.FieldMobile}
	case constraintActiveEmail:
		return &DuplicateContactError{Field: domain.FieldEmail}
	}
	return err
}
