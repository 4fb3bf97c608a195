package transport

import (
	"time"

	"github.com/google/uuid"
)

type CreateLeadNoteRequest struct {
	Body string `json:"body" validate:"required,min=1,max=2000"`
	Type string `json:"type" validate:"omitempty,oneof=note call whatsapp email"`
}

type LeadNoteResponse struct {
	ID        uuid.UUID  `json:"id"`
	LeadID    uuid.UUID  `json:"leadId"`
	AuthorID  *uuid.UUID `json:"authorId,omitempty"`
	Type      string     `json:"type"`
	Body      string     `json:"body"`
	CreatedAt time.Time  `json:"createdAt"`
}

type LeadNotesResponse struct {
	Items []LeadNoteResponse `json:"items"`
}

type LogCallRequest struct {
	DurationSeconds int        `json:"durationSeconds" validate:"gte=0,lte=86400"`
	Outcome         string     `json:"outcome" validate:"max=200"`
	CalledAt        *time.Time `json:"calledAt,omitempty"`
}

type CallLogResponse struct {
	ID              uuid.UUID  `json:"id"`
	LeadID          uuid.UUID  `json:"leadId"`
	UserID          *uuid.UUID `json:"userId,omitempty"`
	DurationSeconds int        `json:"durationSeconds"`
	Outcome         string     `json:"outcome"`
	CalledAt        time.Time  `json:"calledAt"`
}

type CallLogsResponse struct {
	Items []CallLogResponse `json:"items"`
}
