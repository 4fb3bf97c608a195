package repository

import (
	"time"

	"github.com/google/uuid"
)

type Lead struct {
	ID             uuid.UUID
	Name           string
	Mobile         string
	Email          *string
	City           string
	Source         string
	Status         string
	PipelineStage  string
	Score          int
	Temperature    string
	ScoreReason    string
	ScoredAt       *time.Time
	AssignedUserID *uuid.UUID
	DistributedAt  *time.Time
	Budget         *float64
	InterestLevel  string
	LastActivityAt time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HasEmail reports whether the lead carries a non-empty email.
func (l Lead) HasEmail() bool {
	return l.Email != nil && *l.Email != ""
}

type CreateLeadParams struct {
	Name           string
	Mobile         string
	Email          *string
	City           string
	Source         string
	Status         string
	PipelineStage  string
	Budget         *float64
	InterestLevel  string
	AssignedUserID *uuid.UUID
}

// UpdateLeadParams is a partial update; nil fields are left untouched.
// Nullable columns use a companion *Set flag so they can be cleared.
type UpdateLeadParams struct {
	Name              *string
	Mobile            *string
	Email             *string
	EmailSet          bool
	City              *string
	Source            *string
	Status            *string
	PipelineStage     *string
	Score             *int
	Temperature       *string
	ScoreReason       *string
	ScoredAt          *time.Time
	AssignedUserID    *uuid.UUID
	AssignedUserIDSet bool
	DistributedAt     *time.Time
	Budget            *float64
	BudgetSet         bool
	InterestLevel     *string
	LastActivityAt    *time.Time
}

// ContactMatch is an active lead found by the duplicate lookup together
// with the contact field that matched.
type ContactMatch struct {
	Lead  Lead
	Field string
}

type FollowUp struct {
	ID          uuid.UUID
	LeadID      uuid.UUID
	UserID      *uuid.UUID
	ScheduledAt time.Time
	Completed   bool
	CompletedAt *time.Time
	Notes       string
	// MergedFromID is the follow-up this row was copied from by a merge.
	MergedFromID *uuid.UUID
	CreatedAt    time.Time
}

type CreateFollowUpParams struct {
	LeadID      uuid.UUID
	UserID      *uuid.UUID
	ScheduledAt time.Time
	Completed   bool
	CompletedAt *time.Time
	Notes       string
	// MergedFromID makes the create idempotent: a second copy of the same
	// source onto the same lead returns the existing row.
	MergedFromID *uuid.UUID
}

type UpdateFollowUpParams struct {
	Completed   *bool
	CompletedAt *time.Time
	Notes       *string
}

type LeadNote struct {
	ID           uuid.UUID
	LeadID       uuid.UUID
	AuthorID     *uuid.UUID
	Type         string
	Body         string
	MergedFromID *uuid.UUID
	CreatedAt    time.Time
}

type CreateNoteParams struct {
	LeadID   uuid.UUID
	AuthorID *uuid.UUID
	Type     string
	Body     string
	// CreatedAt keeps the original timestamp when notes are copied; nil means now.
	CreatedAt    *time.Time
	MergedFromID *uuid.UUID
}

type CallLog struct {
	ID              uuid.UUID
	LeadID          uuid.UUID
	UserID          *uuid.UUID
	DurationSeconds int
	Outcome         string
	CalledAt        time.Time
	MergedFromID    *uuid.UUID
}

type CreateCallLogParams struct {
	LeadID          uuid.UUID
	UserID          *uuid.UUID
	DurationSeconds int
	Outcome         string
	// CalledAt zero means now.
	CalledAt     time.Time
	MergedFromID *uuid.UUID
}

type User struct {
	ID        uuid.UUID
	Name      string
	Email     string
	Role      string
	IsActive  bool
	CreatedAt time.Time
}

// DistributionState is the single shared row driving round-robin.
// Version is compared on save to detect concurrent writers.
type DistributionState struct {
	LastAssignedUserID *uuid.UUID
	Method             string
	Enabled            bool
	Version            int64
	UpdatedAt          time.Time
}

type ActivityLog struct {
	ID         uuid.UUID
	Actor      string
	Action     string
	EntityType string
	EntityID   *uuid.UUID
	Detail     string
	CreatedAt  time.Time
}

type AppendActivityParams struct {
	Actor      string
	Action     string
	EntityType string
	EntityID   *uuid.UUID
	Detail     string
}

type Client struct {
	ID          uuid.UUID
	LeadID      uuid.UUID
	Name        string
	Mobile      string
	Email       *string
	City        string
	Company     string
	Address     string
	OwnerUserID *uuid.UUID
	CreatedAt   time.Time
}

type CreateClientParams struct {
	LeadID      uuid.UUID
	Name        string
	Mobile      string
	Email       *string
	City        string
	Company     string
	Address     string
	OwnerUserID *uuid.UUID
}
