// Package management handles lead CRUD and lifecycle transitions.
// This is a vertically sliced feature package containing service logic
// for capturing, reading, updating, converting and deleting leads.
package management

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leadcrm_backend/internal/events"
	"leadcrm_backend/internal/leads/dedup"
	"leadcrm_backend/internal/leads/domain"
	"leadcrm_backend/internal/leads/pipeline"
	"leadcrm_backend/internal/leads/repository"
	"leadcrm_backend/internal/leads/transport"
	"leadcrm_backend/platform/apperr"
	"leadcrm_backend/platform/logger"
	"leadcrm_backend/platform/phone"
	"leadcrm_backend/platform/sanitize"

	"github.com/google/uuid"
)

// Repository defines the data access interface needed by the management service.
// This is a consumer-driven interface - only what management needs.
type Repository interface {
	repository.LeadReader
	repository.LeadWriter
	repository.ActivityLogger
	repository.ClientWriter
}

// Service handles lead management operations.
type Service struct {
	repo   Repository
	guard  *dedup.Guard
	bus    events.Bus
	log    *logger.Logger
	region string
	now    func() time.Time
}

// New creates a new lead management service. region is the default phone
// region for numbers written without a country code.
func New(repo Repository, eventBus events.Bus, log *logger.Logger, region string) *Service {
	return &Service{
		repo:   repo,
		guard:  dedup.NewGuard(repo),
		bus:    eventBus,
		log:    log,
		region: region,
		now:    time.Now,
	}
}

// Capture creates a lead after the duplicate guard passed.
func (s *Service) Capture(ctx context.Context, req transport.CaptureLeadRequest, actor domain.Actor) (transport.LeadResponse, error) {
	const op = "management.Service.Capture"

	name := sanitize.Name(req.Name)
	if name == "" {
		return transport.LeadResponse{}, apperr.Validation("name is required")
	}
	mobile := phone.NormalizeE164(req.Mobile, s.region)
	if mobile == "" {
		return transport.LeadResponse{}, apperr.Validation("mobile is required")
	}
	email := normalizeEmail(req.Email)

	source := string(req.Source)
	if source == "" {
		source = domain.SourceOther
	}
	if !domain.IsKnownSource(source) {
		return transport.LeadResponse{}, apperr.Validation(fmt.Sprintf("invalid source %q", source))
	}
	interest := string(req.InterestLevel)
	if !domain.IsKnownInterest(interest) {
		return transport.LeadResponse{}, apperr.Validation(fmt.Sprintf("invalid interest level %q", interest))
	}
	if req.Budget != nil && *req.Budget < 0 {
		return transport.LeadResponse{}, apperr.Validation("budget cannot be negative")
	}

	if err := s.guard.Check(ctx, mobile, email, nil); err != nil {
		return transport.LeadResponse{}, err
	}

	lead, err := s.repo.CreateLead(ctx, repository.CreateLeadParams{
		Name:           name,
		Mobile:         mobile,
		Email:          email,
		City:           sanitize.Name(req.City),
		Source:         source,
		Status:         domain.LeadStatusNew,
		PipelineStage:  domain.PipelineStageNewLead,
		Budget:         req.Budget,
		InterestLevel:  interest,
		AssignedUserID: req.AssignedUserID,
	})
	if err != nil {
		if dupErr := s.guard.Translate(ctx, err, mobile, email, nil); apperr.Is(dupErr, apperr.KindDuplicate) {
			return transport.LeadResponse{}, dupErr
		}
		return transport.LeadResponse{}, apperr.Infrastructure(op, err)
	}

	s.appendLog(ctx, lead.ID, actor, domain.ActionLeadCreated, "captured from "+lead.Source)
	s.bus.Publish(ctx, events.LeadCaptured{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		Name:      lead.Name,
		Source:    lead.Source,
	})

	return transport.ToLeadResponse(lead), nil
}

// CheckDuplicate reports whether a contact pair collides with an active lead.
func (s *Service) CheckDuplicate(ctx context.Context, mobile, email string) (transport.DuplicateCheckResponse, error) {
	normalized := phone.NormalizeE164(mobile, s.region)
	if normalized == "" {
		return transport.DuplicateCheckResponse{}, apperr.Validation("mobile is required")
	}

	err := s.guard.Check(ctx, normalized, normalizeEmail(email), nil)
	if err == nil {
		return transport.DuplicateCheckResponse{IsDuplicate: false}, nil
	}
	appErr, ok := apperr.As(err)
	if !ok || appErr.Kind != apperr.KindDuplicate {
		return transport.DuplicateCheckResponse{}, err
	}
	details, _ := appErr.Details.(apperr.DuplicateDetails)
	existing := details.ExistingLeadID
	return transport.DuplicateCheckResponse{
		IsDuplicate:    true,
		Field:          details.Field,
		ExistingLeadID: &existing,
	}, nil
}

// GetByID retrieves a lead by ID.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.load(ctx, id)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	return transport.ToLeadResponse(lead), nil
}

// Update applies a partial update. Contact changes go through the
// duplicate guard with the lead itself excluded.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpdateLeadRequest, actor domain.Actor) (transport.LeadResponse, error) {
	const op = "management.Service.Update"

	current, err := s.load(ctx, id)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	params := repository.UpdateLeadParams{}
	if req.Name != nil {
		name := sanitize.Name(*req.Name)
		if name == "" {
			return transport.LeadResponse{}, apperr.Validation("name cannot be empty")
		}
		params.Name = &name
	}
	if req.Mobile != nil {
		mobile := phone.NormalizeE164(*req.Mobile, s.region)
		if mobile == "" {
			return transport.LeadResponse{}, apperr.Validation("mobile cannot be empty")
		}
		params.Mobile = &mobile
	}
	if req.Email != nil {
		params.Email = normalizeEmail(*req.Email)
		params.EmailSet = true
	}
	if req.City != nil {
		city := sanitize.Name(*req.City)
		params.City = &city
	}
	if req.Source != nil {
		source := string(*req.Source)
		if !domain.IsKnownSource(source) {
			return transport.LeadResponse{}, apperr.Validation(fmt.Sprintf("invalid source %q", source))
		}
		params.Source = &source
	}
	if req.Status != nil {
		status := string(*req.Status)
		if !domain.IsKnownStatus(status) || status == domain.LeadStatusConverted {
			return transport.LeadResponse{}, apperr.Validation(fmt.Sprintf("invalid status %q", status))
		}
		if current.Status == domain.LeadStatusConverted {
			return transport.LeadResponse{}, apperr.AlreadyConverted(id)
		}
		params.Status = &status
	}
	if req.Budget != nil {
		if *req.Budget < 0 {
			return transport.LeadResponse{}, apperr.Validation("budget cannot be negative")
		}
		params.Budget = req.Budget
		params.BudgetSet = true
	}
	if req.InterestLevel != nil {
		interest := string(*req.InterestLevel)
		if !domain.IsKnownInterest(interest) {
			return transport.LeadResponse{}, apperr.Validation(fmt.Sprintf("invalid interest level %q", interest))
		}
		params.InterestLevel = &interest
	}
	if req.AssignedUserID.Set {
		params.AssignedUserID = req.AssignedUserID.Value
		params.AssignedUserIDSet = true
	}

	mobile, email := current.Mobile, current.Email
	if params.Mobile != nil {
		mobile = *params.Mobile
	}
	if params.EmailSet {
		email = params.Email
	}
	if params.Mobile != nil || params.EmailSet {
		if err := s.guard.Check(ctx, mobile, email, &id); err != nil {
			return transport.LeadResponse{}, err
		}
	}

	lead, err := s.repo.UpdateLead(ctx, id, params)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.LeadResponse{}, apperr.NotFound("lead not found")
		}
		if dupErr := s.guard.Translate(ctx, err, mobile, email, &id); apperr.Is(dupErr, apperr.KindDuplicate) {
			return transport.LeadResponse{}, dupErr
		}
		return transport.LeadResponse{}, apperr.Infrastructure(op, err)
	}

	s.appendLog(ctx, id, actor, domain.ActionLeadUpdated, "")
	return transport.ToLeadResponse(lead), nil
}

// Delete soft-deletes a lead, releasing its contact values.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, actor domain.Actor) error {
	if err := s.repo.DeleteLead(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("lead not found")
		}
		return apperr.Infrastructure("management.Service.Delete", err)
	}
	s.appendLog(ctx, id, actor, domain.ActionLeadDeleted, "")
	return nil
}

// ChangeStage moves a lead to any enumerated pipeline stage.
func (s *Service) ChangeStage(ctx context.Context, id uuid.UUID, stage string, actor domain.Actor) (transport.LeadResponse, error) {
	const op = "management.Service.ChangeStage"

	target, err := pipeline.ValidateStage(stage)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	if current.PipelineStage == target {
		return transport.ToLeadResponse(current), nil
	}

	lead, err := s.repo.UpdateLead(ctx, id, repository.UpdateLeadParams{PipelineStage: &target})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.LeadResponse{}, apperr.NotFound("lead not found")
		}
		return transport.LeadResponse{}, apperr.Infrastructure(op, err)
	}

	s.appendLog(ctx, id, actor, domain.ActionStageChanged, current.PipelineStage+" -> "+target)
	s.bus.Publish(ctx, events.LeadStageChanged{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    id,
		OldStage:  current.PipelineStage,
		NewStage:  target,
	})
	return transport.ToLeadResponse(lead), nil
}

// Convert creates a client from the lead and marks the lead converted.
// The client is written first and is keyed by lead, so when the status
// write fails the lead stays unconverted and a repeated call reuses the
// same client.
func (s *Service) Convert(ctx context.Context, id uuid.UUID, req transport.ConvertLeadRequest, actor domain.Actor) (transport.ConvertLeadResponse, error) {
	const op = "management.Service.Convert"

	current, err := s.load(ctx, id)
	if err != nil {
		return transport.ConvertLeadResponse{}, err
	}
	if current.Status == domain.LeadStatusConverted {
		return transport.ConvertLeadResponse{}, apperr.AlreadyConverted(id)
	}

	params := repository.CreateClientParams{
		LeadID:      current.ID,
		Name:        current.Name,
		Mobile:      current.Mobile,
		Email:       current.Email,
		City:        current.City,
		Company:     sanitize.Name(req.Company),
		Address:     sanitize.Text(req.Address),
		OwnerUserID: current.AssignedUserID,
	}
	if req.Name != nil {
		if name := sanitize.Name(*req.Name); name != "" {
			params.Name = name
		}
	}
	if req.Email != nil {
		params.Email = normalizeEmail(*req.Email)
	}
	if req.City != nil {
		params.City = sanitize.Name(*req.City)
	}

	client, err := s.repo.CreateClient(ctx, params)
	if err != nil {
		return transport.ConvertLeadResponse{}, apperr.Infrastructure(op, err)
	}

	status := domain.LeadStatusConverted
	lead, err := s.repo.UpdateLead(ctx, id, repository.UpdateLeadParams{Status: &status})
	if err != nil {
		return transport.ConvertLeadResponse{}, apperr.Infrastructure(op, err)
	}

	s.appendLog(ctx, id, actor, domain.ActionLeadConverted, "client "+client.ID.String())
	s.bus.Publish(ctx, events.LeadConverted{
		BaseEvent:      events.NewBaseEvent(),
		LeadID:         lead.ID,
		ClientID:       client.ID,
		LeadName:       lead.Name,
		AssignedUserID: lead.AssignedUserID,
	})

	return transport.ConvertLeadResponse{
		Lead:   transport.ToLeadResponse(lead),
		Client: transport.ToClientResponse(client),
	}, nil
}

// Board groups every active lead into pipeline columns.
func (s *Service) Board(ctx context.Context) (transport.PipelineBoardResponse, error) {
	leads, err := s.repo.ListLeads(ctx)
	if err != nil {
		return transport.PipelineBoardResponse{}, apperr.Infrastructure("management.Service.Board", err)
	}

	columns := pipeline.Board(leads)
	resp := transport.PipelineBoardResponse{Columns: make([]transport.PipelineColumnResponse, len(columns))}
	for i, col := range columns {
		resp.Columns[i] = transport.PipelineColumnResponse{
			Stage: col.Stage,
			Count: len(col.Leads),
			Leads: transport.ToLeadResponses(col.Leads),
		}
	}
	return resp, nil
}

// Activity returns the audit trail of a lead, newest first.
func (s *Service) Activity(ctx context.Context, id uuid.UUID) (transport.ActivityListResponse, error) {
	if _, err := s.load(ctx, id); err != nil {
		return transport.ActivityListResponse{}, err
	}
	entries, err := s.repo.ListActivityLog(ctx, domain.EntityLead, id)
	if err != nil {
		return transport.ActivityListResponse{}, apperr.Infrastructure("management.Service.Activity", err)
	}

	items := make([]transport.ActivityResponse, len(entries))
	for i, e := range entries {
		items[i] = transport.ToActivityResponse(e)
	}
	return transport.ActivityListResponse{Items: items}, nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (repository.Lead, error) {
	lead, err := s.repo.GetLead(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.Lead{}, apperr.NotFound("lead not found")
		}
		return repository.Lead{}, apperr.Infrastructure("management.Service.load", err)
	}
	return lead, nil
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

func normalizeEmail(raw string) *string {
	email := sanitize.Email(raw)
	if email == "" {
		return nil
	}
	return &email
}
