package repository

import (
	"context"

	"github.com/google/uuid"
)

// =====================================
// Segregated Interfaces (Interface Segregation Principle)
// =====================================

// LeadReader provides read-only access to lead data.
type LeadReader interface {
	GetLead(ctx context.Context, id uuid.UUID) (Lead, error)
	// FindLeadByContact returns the active lead sharing mobile, or email when
	// email is non-nil, skipping excludeID. A mobile match wins over an email
	// match. Returns ErrNotFound when nothing collides.
	FindLeadByContact(ctx context.Context, mobile string, email *string, excludeID *uuid.UUID) (ContactMatch, error)
	// ListLeads returns every active lead, most recent first.
	ListLeads(ctx context.Context) ([]Lead, error)
	// ListUnassignedLeads returns active leads without an owner, oldest first.
	ListUnassignedLeads(ctx context.Context) ([]Lead, error)
}

// LeadWriter provides write operations for lead management.
type LeadWriter interface {
	CreateLead(ctx context.Context, params CreateLeadParams) (Lead, error)
	UpdateLead(ctx context.Context, id uuid.UUID, params UpdateLeadParams) (Lead, error)
	DeleteLead(ctx context.Context, id uuid.UUID) error
}

// FollowUpStore manages scheduled contact attempts.
type FollowUpStore interface {
	ListFollowUps(ctx context.Context, leadID uuid.UUID) ([]FollowUp, error)
	GetFollowUp(ctx context.Context, id uuid.UUID) (FollowUp, error)
	CreateFollowUp(ctx context.Context, params CreateFollowUpParams) (FollowUp, error)
	UpdateFollowUp(ctx context.Context, id uuid.UUID, params UpdateFollowUpParams) (FollowUp, error)
}

// NoteStore manages lead notes.
type NoteStore interface {
	ListNotes(ctx context.Context, leadID uuid.UUID) ([]LeadNote, error)
	CreateNote(ctx context.Context, params CreateNoteParams) (LeadNote, error)
}

// CallLogStore manages logged calls.
type CallLogStore interface {
	ListCallLogs(ctx context.Context, leadID uuid.UUID) ([]CallLog, error)
	CreateCallLog(ctx context.Context, params CreateCallLogParams) (CallLog, error)
}

// UserReader lists users for distribution eligibility.
type UserReader interface {
	ListUsers(ctx context.Context) ([]User, error)
}

// DistributionStateStore persists the round-robin singleton.
type DistributionStateStore interface {
	// GetDistributionState creates the row on first read.
	GetDistributionState(ctx context.Context) (DistributionState, error)
	// SaveDistributionState writes state if its Version still matches the
	// stored one and returns the row with the bumped version. A mismatch
	// returns ErrStaleDistributionState.
	SaveDistributionState(ctx context.Context, state DistributionState) (DistributionState, error)
}

// ActivityLogger records the append-only audit trail.
type ActivityLogger interface {
	AppendActivityLog(ctx context.Context, params AppendActivityParams) error
	ListActivityLog(ctx context.Context, entityType string, entityID uuid.UUID) ([]ActivityLog, error)
}

// ClientWriter stores converted leads. CreateClient is keyed by lead: a
// repeated call for the same lead updates and returns the existing client.
type ClientWriter interface {
	CreateClient(ctx context.Context, params CreateClientParams) (Client, error)
}

// =====================================
// Composite Interface
// =====================================

// LeadStore is the full set of operations the lead lifecycle engine needs.
type LeadStore interface {
	LeadReader
	LeadWriter
	FollowUpStore
	NoteStore
	CallLogStore
	UserReader
	DistributionStateStore
	ActivityLogger
	ClientWriter
}

var (
	_ LeadStore = (*Repository)(nil)
	_ LeadStore = (*Memory)(nil)
)
