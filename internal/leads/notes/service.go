// Package notes handles lead note and call log operations.
// This is a vertically sliced feature package containing service logic
// for recording interactions on leads.
package notes

import (
	"context"
	"errors"
	"time"

	"leadcrm_backend/internal/leads/domain"
	"leadcrm_backend/internal/leads/repository"
	"leadcrm_backend/internal/leads/transport"
	"leadcrm_backend/platform/apperr"
	"leadcrm_backend/platform/logger"
	"leadcrm_backend/platform/sanitize"

	"github.com/google/uuid"
)

const maxNoteLength = 2000

// Repository defines the data access interface needed by the notes service.
// This is a consumer-driven interface - only what notes needs.
type Repository interface {
	GetLead(ctx context.Context, id uuid.UUID) (repository.Lead, error)
	UpdateLead(ctx context.Context, id uuid.UUID, params repository.UpdateLeadParams) (repository.Lead, error)
	repository.NoteStore
	repository.CallLogStore
	repository.ActivityLogger
}

// Service handles lead note operations.
type Service struct {
	repo Repository
	log  *logger.Logger
	now  func() time.Time
}

// New creates a new notes service.
func New(repo Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log, now: time.Now}
}

// Add adds a note to a lead and bumps its last activity.
func (s *Service) Add(ctx context.Context, leadID uuid.UUID, req transport.CreateLeadNoteRequest, actor domain.Actor) (transport.LeadNoteResponse, error) {
	const op = "notes.Service.Add"

	body := sanitize.Text(req.Body)
	if body == "" || len(body) > maxNoteLength {
		return transport.LeadNoteResponse{}, apperr.Validation("note body must be between 1 and 2000 characters")
	}

	noteType := req.Type
	if noteType == "" {
		noteType = domain.NoteTypeNote
	}
	if !domain.IsKnownNoteType(noteType) || noteType == domain.NoteTypeSystem {
		return transport.LeadNoteResponse{}, apperr.Validation("invalid note type")
	}

	if err := s.ensureLead(ctx, leadID); err != nil {
		return transport.LeadNoteResponse{}, err
	}

	note, err := s.repo.CreateNote(ctx, repository.CreateNoteParams{
		LeadID:   leadID,
		AuthorID: actor.UserID,
		Type:     noteType,
		Body:     body,
	})
	if err != nil {
		return transport.LeadNoteResponse{}, apperr.Infrastructure(op, err)
	}

	s.touch(ctx, leadID, note.CreatedAt)
	s.appendLog(ctx, leadID, actor, domain.ActionNoteAdded, noteType)
	return transport.ToNoteResponse(note), nil
}

// List retrieves all notes for a lead, newest first.
func (s *Service) List(ctx context.Context, leadID uuid.UUID) (transport.LeadNotesResponse, error) {
	if err := s.ensureLead(ctx, leadID); err != nil {
		return transport.LeadNotesResponse{}, err
	}

	notesList, err := s.repo.ListNotes(ctx, leadID)
	if err != nil {
		return transport.LeadNotesResponse{}, apperr.Infrastructure("notes.Service.List", err)
	}

	items := make([]transport.LeadNoteResponse, len(notesList))
	for i, note := range notesList {
		items[i] = transport.ToNoteResponse(note)
	}
	return transport.LeadNotesResponse{Items: items}, nil
}

// LogCall records a call with the lead and bumps its last activity.
func (s *Service) LogCall(ctx context.Context, leadID uuid.UUID, req transport.LogCallRequest, actor domain.Actor) (transport.CallLogResponse, error) {
	const op = "notes.Service.LogCall"

	if req.DurationSeconds < 0 {
		return transport.CallLogResponse{}, apperr.Validation("call duration cannot be negative")
	}
	if err := s.ensureLead(ctx, leadID); err != nil {
		return transport.CallLogResponse{}, err
	}

	calledAt := s.now().UTC()
	if req.CalledAt != nil {
		if req.CalledAt.After(calledAt) {
			return transport.CallLogResponse{}, apperr.Validation("call time cannot be in the future")
		}
		calledAt = req.CalledAt.UTC()
	}

	call, err := s.repo.CreateCallLog(ctx, repository.CreateCallLogParams{
		LeadID:          leadID,
		UserID:          actor.UserID,
		DurationSeconds: req.DurationSeconds,
		Outcome:         sanitize.Text(req.Outcome),
		CalledAt:        calledAt,
	})
	if err != nil {
		return transport.CallLogResponse{}, apperr.Infrastructure(op, err)
	}

	s.touch(ctx, leadID, call.CalledAt)
	s.appendLog(ctx, leadID, actor, domain.ActionCallLogged, call.Outcome)
	return transport.ToCallLogResponse(call), nil
}

// ListCalls retrieves all call logs for a lead, newest first.
func (s *Service) ListCalls(ctx context.Context, leadID uuid.UUID) (transport.CallLogsResponse, error) {
	if err := s.ensureLead(ctx, leadID); err != nil {
		return transport.CallLogsResponse{}, err
	}

	calls, err := s.repo.ListCallLogs(ctx, leadID)
	if err != nil {
		return transport.CallLogsResponse{}, apperr.Infrastructure("notes.Service.ListCalls", err)
	}

	items := make([]transport.CallLogResponse, len(calls))
	for i, call := range calls {
		items[i] = transport.ToCallLogResponse(call)
	}
	return transport.CallLogsResponse{Items: items}, nil
}

func (s *Service) ensureLead(ctx context.Context, leadID uuid.UUID) error {
	if _, err := s.repo.GetLead(ctx, leadID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("lead not found")
		}
		return apperr.Infrastructure("notes.Service.ensureLead", err)
	}
	return nil
}

// touch moves last activity forward; it never moves it back.
func (s *Service) touch(ctx context.Context, leadID uuid.UUID, at time.Time) {
	lead, err := s.repo.GetLead(ctx, leadID)
	if err != nil || !at.After(lead.LastActivityAt) {
		return
	}
	if _, err := s.repo.UpdateLead(ctx, leadID, repository.UpdateLeadParams{LastActivityAt: &at}); err != nil {
		s.log.Error("last activity bump failed", "leadId", leadID, "error", err)
	}
}

func (s *Service) appendLog(ctx context.Context, leadID uuid.UUID, actor domain.Actor, action, detail string) {
	if err := s.repo.AppendActivityLog(ctx, repository.AppendActivityParams{
		Actor:      actor.Label(),
		Action:     action,
		EntityType: domain.EntityLead,
		EntityID:   &leadID,
		Detail:     detail,
	}); err != nil {
		s.log.Error("activity log append failed", "leadId", leadID, "action", action, "error", err)
	}
}
