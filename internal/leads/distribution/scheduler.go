package distribution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leadcrm_backend/internal/events"
	"leadcrm_backend/internal/leads/domain"
	"leadcrm_backend/internal/leads/repository"
	"leadcrm_backend/platform/apperr"
	"leadcrm_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	lockKey = "leads:distribution:lock"
	lockTTL = 2 * time.Minute

	// maxStateAttempts bounds reload-and-retry on a stale state save.
	maxStateAttempts = 5
)

// Store defines the data access interface needed by the scheduler.
type Store interface {
	GetLead(ctx context.Context, id uuid.UUID) (repository.Lead, error)
	ListUnassignedLeads(ctx context.Context) ([]repository.Lead, error)
	UpdateLead(ctx context.Context, id uuid.UUID, params repository.UpdateLeadParams) (repository.Lead, error)
	repository.UserReader
	repository.DistributionStateStore
	repository.ActivityLogger
}

// Scheduler hands unowned leads to eligible users.
type Scheduler struct {
	repo     Store
	locker   Locker
	eventBus events.Bus
	log      *logger.Logger
	now      func() time.Time
}

func New(repo Store, locker Locker, eventBus events.Bus, log *logger.Logger) *Scheduler {
	if locker == nil {
		locker = NoopLocker{}
	}
	return &Scheduler{repo: repo, locker: locker, eventBus: eventBus, log: log, now: time.Now}
}

// WithClock replaces the clock used for distribution timestamps.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// DistributeUnassigned assigns every lead without an owner, oldest first,
// and returns how many were assigned. With no eligible users nothing is
// assigned and no error is returned. A lead that cannot be written is
// logged and skipped; the error is then a PartialFailure naming it. Runs
// regardless of the enabled flag.
func (s *Scheduler) DistributeUnassigned(ctx context.Context, actor string) (int, error) {
	const op = "distribution.Scheduler.DistributeUnassigned"

	release, err := s.locker.Acquire(ctx, lockKey, lockTTL)
	if errors.Is(err, ErrLockHeld) {
		return 0, apperr.Conflict("distribution is already running")
	}
	if err != nil {
		return 0, apperr.Infrastructure(op, err)
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.log.Error("distribution lock release failed", "error", err)
		}
	}()

	leads, err := s.repo.ListUnassignedLeads(ctx)
	if err != nil {
		return 0, apperr.Infrastructure(op, err)
	}
	if len(leads) == 0 {
		return 0, nil
	}

	eligible, err := s.eligibleUsers(ctx)
	if err != nil {
		return 0, err
	}
	if len(eligible) == 0 {
		s.log.Warn("no eligible users for distribution", "unassigned", len(leads))
		return 0, nil
	}

	var result domain.BulkResult
	for _, lead := range leads {
		if err := ctx.Err(); err != nil {
			result.Fail(lead.ID, err)
			continue
		}
		if _, err := s.assign(ctx, lead, eligible, actor); err != nil {
			s.log.Error("lead distribution failed", "leadId", lead.ID, "error", err)
			result.Fail(lead.ID, err)
			continue
		}
		result.Succeed(lead.ID)
	}

	assigned := len(result.Succeeded())
	s.log.Info("distribution run complete", "assigned", assigned, "failed", len(result.Failed()), "unassigned", len(leads))
	return assigned, result.Err()
}

// AssignLead gives a single unowned lead the next user in rotation. The
// boolean is false when the lead already has an owner or nobody is eligible.
func (s *Scheduler) AssignLead(ctx context.Context, leadID uuid.UUID, actor string) (repository.Lead, bool, error) {
	const op = "distribution.Scheduler.AssignLead"

	lead, err := s.repo.GetLead(ctx, leadID)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Lead{}, false, apperr.NotFound("lead not found")
	}
	if err != nil {
		return repository.Lead{}, false, apperr.Infrastructure(op, err)
	}
	if lead.AssignedUserID != nil {
		return lead, false, nil
	}

	eligible, err := s.eligibleUsers(ctx)
	if err != nil {
		return repository.Lead{}, false, err
	}
	if len(eligible) == 0 {
		return lead, false, nil
	}

	updated, err := s.assign(ctx, lead, eligible, actor)
	if err != nil {
		return repository.Lead{}, false, err
	}
	return updated, true, nil
}

// Settings returns the current distribution state.
func (s *Scheduler) Settings(ctx context.Context) (repository.DistributionState, error) {
	state, err := s.repo.GetDistributionState(ctx)
	if err != nil {
		return repository.DistributionState{}, apperr.Infrastructure("distribution.Scheduler.Settings", err)
	}
	return state, nil
}

// SetEnabled toggles automatic distribution.
func (s *Scheduler) SetEnabled(ctx context.Context, enabled bool, actor string) (repository.DistributionState, error) {
	const op = "distribution.Scheduler.SetEnabled"

	for attempt := 0; attempt < maxStateAttempts; attempt++ {
		state, err := s.repo.GetDistributionState(ctx)
		if err != nil {
			return repository.DistributionState{}, apperr.Infrastructure(op, err)
		}
		state.Enabled = enabled
		saved, err := s.repo.SaveDistributionState(ctx, state)
		if errors.Is(err, repository.ErrStaleDistributionState) {
			continue
		}
		if err != nil {
			return repository.DistributionState{}, apperr.Infrastructure(op, err)
		}
		s.appendLog(ctx, repository.AppendActivityParams{
			Actor:      actor,
			Action:     domain.ActionDistributionToggled,
			EntityType: domain.EntityDistribution,
			Detail:     fmt.Sprintf("enabled=%t", enabled),
		})
		return saved, nil
	}
	return repository.DistributionState{}, apperr.Conflict("distribution settings changed concurrently, retry")
}

func (s *Scheduler) eligibleUsers(ctx context.Context) ([]repository.User, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, apperr.Infrastructure("distribution.Scheduler.eligibleUsers", err)
	}
	return EligibleUsers(users), nil
}

// assign writes the next user in rotation onto the lead, then records that
// user as last assigned. The rotation only advances once the lead write has
// succeeded. On a stale state the rotation is reloaded and the lead is
// rewritten if another writer moved it in between.
func (s *Scheduler) assign(ctx context.Context, lead repository.Lead, eligible []repository.User, actor string) (repository.Lead, error) {
	const op = "distribution.Scheduler.assign"

	var (
		updated repository.Lead
		written *repository.User
	)
	for attempt := 0; attempt < maxStateAttempts; attempt++ {
		state, err := s.repo.GetDistributionState(ctx)
		if err != nil {
			return repository.Lead{}, apperr.Infrastructure(op, err)
		}
		next, _ := NextAssignee(eligible, state.LastAssignedUserID)

		if written == nil || written.ID != next.ID {
			updated, err = s.writeAssignee(ctx, lead.ID, next)
			if err != nil {
				return repository.Lead{}, err
			}
			written = &next
		}

		nextID := next.ID
		state.LastAssignedUserID = &nextID
		if state.Method == "" {
			state.Method = domain.DistributionRoundRobin
		}
		_, err = s.repo.SaveDistributionState(ctx, state)
		if errors.Is(err, repository.ErrStaleDistributionState) {
			s.log.Debug("distribution state stale, reloading", "leadId", lead.ID, "attempt", attempt+1)
			continue
		}
		if err != nil {
			s.log.Warn("lead assigned but rotation not saved", "leadId", lead.ID, "userId", next.ID, "error", err)
			return repository.Lead{}, apperr.Infrastructure(op, err)
		}

		s.announce(ctx, updated, next, actor)
		return updated, nil
	}
	return repository.Lead{}, apperr.Conflict("distribution state changed concurrently, retry")
}

func (s *Scheduler) writeAssignee(ctx context.Context, leadID uuid.UUID, user repository.User) (repository.Lead, error) {
	userID := user.ID
	now := s.now().UTC()
	updated, err := s.repo.UpdateLead(ctx, leadID, repository.UpdateLeadParams{
		AssignedUserID:    &userID,
		AssignedUserIDSet: true,
		DistributedAt:     &now,
	})
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Lead{}, apperr.NotFound("lead not found")
	}
	if err != nil {
		return repository.Lead{}, apperr.Infrastructure("distribution.Scheduler.writeAssignee", err)
	}
	return updated, nil
}

func (s *Scheduler) announce(ctx context.Context, lead repository.Lead, user repository.User, actor string) {
	leadID := lead.ID
	s.appendLog(ctx, repository.AppendActivityParams{
		Actor:      actor,
		Action:     domain.ActionLeadAssigned,
		EntityType: domain.EntityLead,
		EntityID:   &leadID,
		Detail:     fmt.Sprintf("assigned to %s (%s)", user.Name, user.ID),
	})

	if s.eventBus != nil {
		s.eventBus.Publish(ctx, events.LeadAssigned{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    lead.ID,
			LeadName:  lead.Name,
			Mobile:    lead.Mobile,
			City:      lead.City,
			UserID:    user.ID,
			UserName:  user.Name,
			UserEmail: user.Email,
		})
	}
}

func (s *Scheduler) appendLog(ctx context.Context, params repository.AppendActivityParams) {
	if err := s.repo.AppendActivityLog(ctx, params); err != nil {
		s.log.Error("activity log append failed", "action", params.Action, "error", err)
	}
}
