package transport

import (
	"time"

	"github.com/google/uuid"
)

type ScheduleFollowUpRequest struct {
	ScheduledAt time.Time `json:"scheduledAt" validate:"required"`
	Notes       string    `json:"notes,omitempty" validate:"max=2000"`
}

type CompleteFollowUpRequest struct {
	Notes *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

type FollowUpResponse struct {
	ID          uuid.UUID  `json:"id"`
	LeadID      uuid.UUID  `json:"leadId"`
	UserID      *uuid.UUID `json:"userId,omitempty"`
	ScheduledAt time.Time  `json:"scheduledAt"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Notes       string     `json:"notes"`
	CreatedAt   time.Time  `json:"createdAt"`
}

type FollowUpsResponse struct {
	Items []FollowUpResponse `json:"items"`
}

type NextFollowUpResponse struct {
	FollowUp *FollowUpResponse `json:"followUp,omitempty"`
	Overdue  bool              `json:"overdue"`
}
