// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"leadcrm_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadCaptured is published when a new lead passes the duplicate guard.
type LeadCaptured struct {
	BaseEvent
	LeadID uuid.UUID `json:"leadId"`
	Name   string    `json:"name"`
	Source string    `json:"source"`
}

func (e LeadCaptured) EventName() string { return "leads.lead.captured" }

// FollowUpScheduled is published when a follow-up is logged for a lead.
type FollowUpScheduled struct {
	BaseEvent
	LeadID         uuid.UUID  `json:"leadId"`
	FollowUpID     uuid.UUID  `json:"followUpId"`
	LeadName       string     `json:"leadName"`
	ScheduledAt    time.Time  `json:"scheduledAt"`
	AssignedUserID *uuid.UUID `json:"assignedUserId,omitempty"`
	ActorID        *uuid.UUID `json:"actorId,omitempty"`
}

func (e FollowUpScheduled) EventName() string { return "leads.follow_up.scheduled" }

// LeadAssigned is published when distribution gives a lead an owner.
type LeadAssigned struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	LeadName  string    `json:"leadName"`
	Mobile    string    `json:"mobile"`
	City      string    `json:"city"`
	UserID    uuid.UUID `json:"userId"`
	UserName  string    `json:"userName"`
	UserEmail string    `json:"userEmail"`
}

func (e LeadAssigned) EventName() string { return "leads.lead.assigned" }

// LeadsMerged is published after duplicates were folded into a primary.
type LeadsMerged struct {
	BaseEvent
	PrimaryLeadID  uuid.UUID   `json:"primaryLeadId"`
	MergedLeadIDs  []uuid.UUID `json:"mergedLeadIds"`
	AssignedUserID *uuid.UUID  `json:"assignedUserId,omitempty"`
}

func (e LeadsMerged) EventName() string { return "leads.lead.merged" }

// LeadConverted is published when a lead becomes a client.
type LeadConverted struct {
	BaseEvent
	LeadID         uuid.UUID  `json:"leadId"`
	ClientID       uuid.UUID  `json:"clientId"`
	LeadName       string     `json:"leadName"`
	AssignedUserID *uuid.UUID `json:"assignedUserId,omitempty"`
}

func (e LeadConverted) EventName() string { return "leads.lead.converted" }

// LeadStageChanged is published when a lead moves on the pipeline board.
type LeadStageChanged struct {
	BaseEvent
	LeadID   uuid.UUID `json:"leadId"`
	OldStage string    `json:"oldStage"`
	NewStage string    `json:"newStage"`
}

func (e LeadStageChanged) EventName() string { return "leads.lead.stage_changed" }

// LeadScoreUpdated is published after a score recompute was persisted.
type LeadScoreUpdated struct {
	BaseEvent
	LeadID      uuid.UUID `json:"leadId"`
	Score       int       `json:"score"`
	Temperature string    `json:"temperature"`
}

func (e LeadScoreUpdated) EventName() string { return "leads.lead.score_updated" }
