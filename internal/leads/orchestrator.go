package leads

import (
	"context"
	"errors"

	"leadcrm_backend/internal/events"
	"leadcrm_backend/internal/leads/dedup"
	"leadcrm_backend/internal/leads/distribution"
	"leadcrm_backend/internal/leads/domain"
	"leadcrm_backend/internal/leads/management"
	"leadcrm_backend/internal/leads/notes"
	"leadcrm_backend/internal/leads/repository"
	"leadcrm_backend/internal/leads/scheduling"
	"leadcrm_backend/internal/leads/scoring"
	"leadcrm_backend/internal/leads/transport"
	"leadcrm_backend/platform/apperr"
	"leadcrm_backend/platform/logger"

	"github.com/google/uuid"
)

// Orchestrator sequences the lead lifecycle: every operation fetches from
// the store, computes, writes the result back and appends to the activity
// log. It holds no state of its own between calls.
type Orchestrator struct {
	store        repository.LeadStore
	management   *management.Service
	scheduling   *scheduling.Service
	notes        *notes.Service
	scoring      *scoring.Service
	merger       *dedup.Merger
	distribution *distribution.Scheduler
	eventBus     events.Bus
	log          *logger.Logger
}

// OrchestratorDeps groups the collaborators an Orchestrator composes.
type OrchestratorDeps struct {
	Store        repository.LeadStore
	Management   *management.Service
	Scheduling   *scheduling.Service
	Notes        *notes.Service
	Scoring      *scoring.Service
	Merger       *dedup.Merger
	Distribution *distribution.Scheduler
	EventBus     events.Bus
	Log          *logger.Logger
}

func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	return &Orchestrator{
		store:        deps.Store,
		management:   deps.Management,
		scheduling:   deps.Scheduling,
		notes:        deps.Notes,
		scoring:      deps.Scoring,
		merger:       deps.Merger,
		distribution: deps.Distribution,
		eventBus:     deps.EventBus,
		log:          deps.Log,
	}
}

// OnLeadCaptured creates a lead behind the duplicate guard. When
// distribution is enabled and the payload names no owner, the lead is
// handed to the next user in rotation; a failed hand-off is logged and the
// created lead is still returned.
func (o *Orchestrator) OnLeadCaptured(ctx context.Context, req transport.CaptureLeadRequest, actor domain.Actor) (transport.LeadResponse, error) {
	lead, err := o.management.Capture(ctx, req, actor)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	if lead.AssignedUserID != nil {
		return lead, nil
	}

	state, err := o.distribution.Settings(ctx)
	if err != nil {
		o.log.Error("auto distribution skipped", "leadId", lead.ID, "error", err)
		return lead, nil
	}
	if !state.Enabled {
		return lead, nil
	}

	assigned, ok, err := o.distribution.AssignLead(ctx, lead.ID, actor.Label())
	if err != nil {
		o.log.Error("auto distribution failed", "leadId", lead.ID, "error", err)
		return lead, nil
	}
	if !ok {
		return lead, nil
	}
	return transport.ToLeadResponse(assigned), nil
}

// OnFollowUpLogged records a follow-up and bumps the lead's last activity.
func (o *Orchestrator) OnFollowUpLogged(ctx context.Context, leadID uuid.UUID, req transport.ScheduleFollowUpRequest, actor domain.Actor) (transport.FollowUpResponse, error) {
	return o.scheduling.Schedule(ctx, leadID, req, actor)
}

// RecomputeScore rescores one lead from its current activity and stores
// score, tier, reason and evaluation time. Every recompute is logged; the
// score event is only published when score or tier moved.
func (o *Orchestrator) RecomputeScore(ctx context.Context, leadID uuid.UUID, actor domain.Actor) (transport.ScoreResponse, error) {
	const op = "leads.Orchestrator.RecomputeScore"

	lead, result, err := o.scoring.Recalculate(ctx, leadID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.ScoreResponse{}, apperr.NotFound("lead not found")
		}
		return transport.ScoreResponse{}, apperr.Infrastructure(op, err)
	}

	scoredAt := result.ScoredAt
	if _, err := o.store.UpdateLead(ctx, leadID, repository.UpdateLeadParams{
		Score:       &result.Score,
		Temperature: &result.Tier,
		ScoreReason: &result.Reason,
		ScoredAt:    &scoredAt,
	}); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.ScoreResponse{}, apperr.NotFound("lead not found")
		}
		return transport.ScoreResponse{}, apperr.Infrastructure(op, err)
	}

	o.appendLog(ctx, leadID, actor, domain.ActionScoreUpdated, result.Reason)
	if lead.Score != result.Score || lead.Temperature != result.Tier {
		o.eventBus.Publish(ctx, events.LeadScoreUpdated{
			BaseEvent:   events.NewBaseEvent(),
			LeadID:      leadID,
			Score:       result.Score,
			Temperature: result.Tier,
		})
	}

	return toScoreResponse(leadID, result), nil
}

// RecomputeAllScores rescores every active lead. Failures are collected
// per lead; the returned error is a PartialFailure when any lead failed.
func (o *Orchestrator) RecomputeAllScores(ctx context.Context, actor domain.Actor) (transport.BulkResultResponse, error) {
	leads, err := o.store.ListLeads(ctx)
	if err != nil {
		return transport.BulkResultResponse{}, apperr.Infrastructure("leads.Orchestrator.RecomputeAllScores", err)
	}

	var result domain.BulkResult
	for _, lead := range leads {
		if err := ctx.Err(); err != nil {
			result.Fail(lead.ID, err)
			continue
		}
		if _, err := o.RecomputeScore(ctx, lead.ID, actor); err != nil {
			o.log.Error("score recompute failed", "leadId", lead.ID, "error", err)
			result.Fail(lead.ID, err)
			continue
		}
		result.Succeed(lead.ID)
	}

	o.log.Info("score recompute complete", "succeeded", len(result.Succeeded()), "failed", len(result.Failed()))
	return transport.ToBulkResultResponse(result), result.Err()
}

// ChangeStage moves a lead to another pipeline stage.
func (o *Orchestrator) ChangeStage(ctx context.Context, leadID uuid.UUID, stage string, actor domain.Actor) (transport.LeadResponse, error) {
	return o.management.ChangeStage(ctx, leadID, stage, actor)
}

// FindDuplicates groups active leads sharing a mobile or email. The oldest
// lead of each group is its primary.
func (o *Orchestrator) FindDuplicates(ctx context.Context) (transport.DuplicateGroupsResponse, error) {
	leads, err := o.store.ListLeads(ctx)
	if err != nil {
		return transport.DuplicateGroupsResponse{}, apperr.Infrastructure("leads.Orchestrator.FindDuplicates", err)
	}
	management.SortLeads(leads, domain.SortCreatedAt, domain.SortAsc)

	groups := dedup.FindDuplicateGroups(leads)
	resp := transport.DuplicateGroupsResponse{Groups: make([]transport.DuplicateGroupResponse, len(groups))}
	for i, g := range groups {
		resp.Groups[i] = transport.DuplicateGroupResponse{
			Primary: transport.ToLeadResponse(g.Primary),
			Matches: transport.ToLeadResponses(g.Matches),
		}
	}
	return resp, nil
}

// Merge folds duplicates into the primary lead. The response is filled in
// even when some duplicates failed; the error is then a PartialFailure and
// the failed ids can be retried.
func (o *Orchestrator) Merge(ctx context.Context, req transport.MergeLeadsRequest, actor domain.Actor) (transport.MergeResponse, error) {
	primary, result, err := o.merger.Merge(ctx, req.PrimaryID, req.DuplicateIDs, actor.Label())
	if err != nil {
		return transport.MergeResponse{}, err
	}

	if merged := result.Succeeded(); len(merged) > 0 {
		o.eventBus.Publish(ctx, events.LeadsMerged{
			BaseEvent:      events.NewBaseEvent(),
			PrimaryLeadID:  primary.ID,
			MergedLeadIDs:  merged,
			AssignedUserID: primary.AssignedUserID,
		})
	}

	return transport.MergeResponse{
		Primary: transport.ToLeadResponse(primary),
		Result:  transport.ToBulkResultResponse(result),
	}, result.Err()
}

// DistributeUnassigned hands every unowned lead to the next user in
// rotation, whether or not automatic distribution is enabled. Leads that
// could not be assigned are listed in the response and the error is a
// PartialFailure.
func (o *Orchestrator) DistributeUnassigned(ctx context.Context, actor domain.Actor) (transport.DistributeResponse, error) {
	assigned, err := o.distribution.DistributeUnassigned(ctx, actor.Label())
	resp := transport.DistributeResponse{Assigned: assigned}
	if appErr, ok := apperr.As(err); ok && appErr.Kind == apperr.KindPartialFailure {
		if failed, ok := appErr.Details.([]domain.FailedItem); ok {
			for _, item := range failed {
				resp.Failed = append(resp.Failed, transport.FailedItemResponse{ID: item.ID, Error: item.Error})
			}
		}
	}
	return resp, err
}

// AutoDistribute is the scheduled form of DistributeUnassigned. It does
// nothing while distribution is disabled; the boolean reports whether a
// run happened.
func (o *Orchestrator) AutoDistribute(ctx context.Context, actor domain.Actor) (transport.DistributeResponse, bool, error) {
	state, err := o.distribution.Settings(ctx)
	if err != nil {
		return transport.DistributeResponse{}, false, err
	}
	if !state.Enabled {
		return transport.DistributeResponse{}, false, nil
	}
	resp, err := o.DistributeUnassigned(ctx, actor)
	return resp, true, err
}

// DistributionSettings returns the round-robin state.
func (o *Orchestrator) DistributionSettings(ctx context.Context) (transport.DistributionSettingsResponse, error) {
	state, err := o.distribution.Settings(ctx)
	if err != nil {
		return transport.DistributionSettingsResponse{}, err
	}
	return transport.ToDistributionSettingsResponse(state), nil
}

// SetDistributionEnabled toggles automatic distribution of captured leads.
func (o *Orchestrator) SetDistributionEnabled(ctx context.Context, enabled bool, actor domain.Actor) (transport.DistributionSettingsResponse, error) {
	state, err := o.distribution.SetEnabled(ctx, enabled, actor.Label())
	if err != nil {
		return transport.DistributionSettingsResponse{}, err
	}
	return transport.ToDistributionSettingsResponse(state), nil
}

// ConvertToClient turns a lead into a client record.
func (o *Orchestrator) ConvertToClient(ctx context.Context, leadID uuid.UUID, req transport.ConvertLeadRequest, actor domain.Actor) (transport.ConvertLeadResponse, error) {
	return o.management.Convert(ctx, leadID, req, actor)
}

func (o *Orchestrator) appendLog(ctx context.Context, leadID uuid.UUID, actor domain.Actor, action, detail string) {
	if err := o.store.AppendActivityLog(ctx, repository.AppendActivityParams{
		Actor:      actor.Label(),
		Action:     action,
		EntityType: domain.EntityLead,
		EntityID:   &leadID,
		Detail:     detail,
	}); err != nil {
		o.log.Error("activity log append failed", "leadId", leadID, "action", action, "error", err)
	}
}

func toScoreResponse(leadID uuid.UUID, result scoring.Result) transport.ScoreResponse {
	factors := make([]transport.ScoreFactorResponse, len(result.Factors))
	for i, f := range result.Factors {
		factors[i] = transport.ScoreFactorResponse{Key: f.Key, Label: f.Label, Points: f.Points}
	}
	return transport.ScoreResponse{
		LeadID:      leadID,
		Score:       result.Score,
		Temperature: result.Tier,
		Reason:      result.Reason,
		Factors:     factors,
		Version:     result.Version,
		ScoredAt:    result.ScoredAt,
	}
}
