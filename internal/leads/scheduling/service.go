// Package scheduling handles follow-up scheduling operations for leads.
// This is a vertically sliced feature package containing service logic
// for logging, completing and querying lead follow-ups.
package scheduling

import (
	"context"
	"errors"
	"time"

	"leadcrm_backend/internal/events"
	"leadcrm_backend/internal/leads/domain"
	"leadcrm_backend/internal/leads/pipeline"
	"leadcrm_backend/internal/leads/repository"
	"leadcrm_backend/internal/leads/transport"
	"leadcrm_backend/platform/apperr"
	"leadcrm_backend/platform/logger"
	"leadcrm_backend/platform/sanitize"

	"github.com/google/uuid"
)

// Repository defines the data access interface needed by the scheduling service.
// This is a consumer-driven interface - only what scheduling needs.
type Repository interface {
	GetLead(ctx context.Context, id uuid.UUID) (repository.Lead, error)
	UpdateLead(ctx context.Context, id uuid.UUID, params repository.UpdateLeadParams) (repository.Lead, error)
	repository.FollowUpStore
	repository.ActivityLogger
}

// Service handles follow-up scheduling operations.
type Service struct {
	repo     Repository
	eventBus events.Bus
	log      *logger.Logger
	now      func() time.Time
}

// New creates a new follow-up scheduling service.
func New(repo Repository, eventBus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, eventBus: eventBus, log: log, now: time.Now}
}

// WithClock replaces the clock used for activity stamps and overdue checks.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Schedule logs a follow-up for a lead, bumps the lead's last activity and
// notifies the owner.
func (s *Service) Schedule(ctx context.Context, leadID uuid.UUID, req transport.ScheduleFollowUpRequest, actor domain.Actor) (transport.FollowUpResponse, error) {
	const op = "scheduling.Service.Schedule"

	if req.ScheduledAt.IsZero() {
		return transport.FollowUpResponse{}, apperr.Validation("scheduledAt is required")
	}

	lead, err := s.repo.GetLead(ctx, leadID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.FollowUpResponse{}, apperr.NotFound("lead not found")
		}
		return transport.FollowUpResponse{}, apperr.Infrastructure(op, err)
	}

	followUp, err := s.repo.CreateFollowUp(ctx, repository.CreateFollowUpParams{
		LeadID:      leadID,
		UserID:      actor.UserID,
		ScheduledAt: req.ScheduledAt.UTC(),
		Notes:       sanitize.Text(req.Notes),
	})
	if err != nil {
		return transport.FollowUpResponse{}, apperr.Infrastructure(op, err)
	}

	now := s.now().UTC()
	if _, err := s.repo.UpdateLead(ctx, leadID, repository.UpdateLeadParams{LastActivityAt: &now}); err != nil {
		return transport.FollowUpResponse{}, apperr.Infrastructure(op, err)
	}

	s.appendLog(ctx, leadID, actor, domain.ActionFollowUpLogged, followUp.ScheduledAt.Format(time.RFC3339))
	s.eventBus.Publish(ctx, events.FollowUpScheduled{
		BaseEvent:      events.NewBaseEvent(),
		LeadID:         leadID,
		FollowUpID:     followUp.ID,
		LeadName:       lead.Name,
		ScheduledAt:    followUp.ScheduledAt,
		AssignedUserID: lead.AssignedUserID,
		ActorID:        actor.UserID,
	})

	return transport.ToFollowUpResponse(followUp), nil
}

// Complete marks a follow-up as done. A follow-up that is already
// completed only accepts new notes; its completion time is kept.
func (s *Service) Complete(ctx context.Context, followUpID uuid.UUID, req transport.CompleteFollowUpRequest, actor domain.Actor) (transport.FollowUpResponse, error) {
	const op = "scheduling.Service.Complete"

	current, err := s.repo.GetFollowUp(ctx, followUpID)
	if err != nil {
		if errors.Is(err, repository.ErrFollowUpNotFound) {
			return transport.FollowUpResponse{}, apperr.NotFound("follow-up not found")
		}
		return transport.FollowUpResponse{}, apperr.Infrastructure(op, err)
	}

	params := repository.UpdateFollowUpParams{}
	if req.Notes != nil {
		notes := sanitize.Text(*req.Notes)
		params.Notes = &notes
	}

	if current.Completed {
		if params.Notes == nil {
			return transport.ToFollowUpResponse(current), nil
		}
		updated, err := s.repo.UpdateFollowUp(ctx, followUpID, params)
		if err != nil {
			return transport.FollowUpResponse{}, apperr.Infrastructure(op, err)
		}
		return transport.ToFollowUpResponse(updated), nil
	}

	now := s.now().UTC()
	completed := true
	params.Completed = &completed
	params.CompletedAt = &now

	updated, err := s.repo.UpdateFollowUp(ctx, followUpID, params)
	if err != nil {
		if errors.Is(err, repository.ErrFollowUpNotFound) {
			return transport.FollowUpResponse{}, apperr.NotFound("follow-up not found")
		}
		return transport.FollowUpResponse{}, apperr.Infrastructure(op, err)
	}

	if _, err := s.repo.UpdateLead(ctx, current.LeadID, repository.UpdateLeadParams{LastActivityAt: &now}); err != nil {
		s.log.Error("last activity bump failed", "leadId", current.LeadID, "error", err)
	}
	s.appendLog(ctx, current.LeadID, actor, domain.ActionFollowUpCompleted, followUpID.String())

	return transport.ToFollowUpResponse(updated), nil
}

// List returns every follow-up of a lead.
func (s *Service) List(ctx context.Context, leadID uuid.UUID) (transport.FollowUpsResponse, error) {
	followUps, err := s.listForLead(ctx, leadID)
	if err != nil {
		return transport.FollowUpsResponse{}, err
	}

	items := make([]transport.FollowUpResponse, len(followUps))
	for i, f := range followUps {
		items[i] = transport.ToFollowUpResponse(f)
	}
	return transport.FollowUpsResponse{Items: items}, nil
}

// Next returns the earliest pending follow-up of a lead and whether it is
// overdue. The follow-up is omitted when nothing is pending.
func (s *Service) Next(ctx context.Context, leadID uuid.UUID) (transport.NextFollowUpResponse, error) {
	followUps, err := s.listForLead(ctx, leadID)
	if err != nil {
		return transport.NextFollowUpResponse{}, err
	}

	next, ok := pipeline.Next(followUps, s.now())
	if !ok {
		return transport.NextFollowUpResponse{}, nil
	}
	resp := transport.ToFollowUpResponse(next.FollowUp)
	return transport.NextFollowUpResponse{FollowUp: &resp, Overdue: next.Overdue}, nil
}

func (s *Service) listForLead(ctx context.Context, leadID uuid.UUID) ([]repository.FollowUp, error) {
	if _, err := s.repo.GetLead(ctx, leadID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("lead not found")
		}
		return nil, apperr.Infrastructure("scheduling.Service.listForLead", err)
	}
	followUps, err := s.repo.ListFollowUps(ctx, leadID)
	if err != nil {
		return nil, apperr.Infrastructure("scheduling.Service.listForLead", err)
	}
	return followUps, nil
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
