package transport

import (
	"leadcrm_backend/internal/leads/domain"
	"leadcrm_backend/internal/leads/repository"
)

func ToLeadResponse(lead repository.Lead) LeadResponse {
	return LeadResponse{
		ID:             lead.ID,
		Name:           lead.Name,
		Mobile:         lead.Mobile,
		Email:          lead.Email,
		City:           lead.City,
		Source:         lead.Source,
		Status:         lead.Status,
		PipelineStage:  lead.PipelineStage,
		Score:          lead.Score,
		Temperature:    lead.Temperature,
		ScoreReason:    lead.ScoreReason,
		ScoredAt:       lead.ScoredAt,
		AssignedUserID: lead.AssignedUserID,
		DistributedAt:  lead.DistributedAt,
		Budget:         lead.Budget,
		InterestLevel:  lead.InterestLevel,
		LastActivityAt: lead.LastActivityAt,
		CreatedAt:      lead.CreatedAt,
		UpdatedAt:      lead.UpdatedAt,
	}
}

func ToLeadResponses(leads []repository.Lead) []LeadResponse {
	items := make([]LeadResponse, 0, len(leads))
	for _, lead := range leads {
		items = append(items, ToLeadResponse(lead))
	}
	return items
}

func ToFollowUpResponse(f repository.FollowUp) FollowUpResponse {
	return FollowUpResponse{
		ID:          f.ID,
		LeadID:      f.LeadID,
		UserID:      f.UserID,
		ScheduledAt: f.ScheduledAt,
		Completed:   f.Completed,
		CompletedAt: f.CompletedAt,
		Notes:       f.Notes,
		CreatedAt:   f.CreatedAt,
	}
}

func ToNoteResponse(n repository.LeadNote) LeadNoteResponse {
	return LeadNoteResponse{
		ID:        n.ID,
		LeadID:    n.LeadID,
		AuthorID:  n.AuthorID,
		Type:      n.Type,
		Body:      n.Body,
		CreatedAt: n.CreatedAt,
	}
}

func ToCallLogResponse(c repository.CallLog) CallLogResponse {
	return CallLogResponse{
		ID:              c.ID,
		LeadID:          c.LeadID,
		UserID:          c.UserID,
		DurationSeconds: c.DurationSeconds,
		Outcome:         c.Outcome,
		CalledAt:        c.CalledAt,
	}
}

func ToClientResponse(c repository.Client) ClientResponse {
	return ClientResponse{
		ID:          c.ID,
		LeadID:      c.LeadID,
		Name:        c.Name,
		Mobile:      c.Mobile,
		Email:       c.Email,
		City:        c.City,
		Company:     c.Company,
		Address:     c.Address,
		OwnerUserID: c.OwnerUserID,
		CreatedAt:   c.CreatedAt,
	}
}

func ToDistributionSettingsResponse(s repository.DistributionState) DistributionSettingsResponse {
	return DistributionSettingsResponse{
		Enabled:            s.Enabled,
		Method:             s.Method,
		LastAssignedUserID: s.LastAssignedUserID,
		UpdatedAt:          s.UpdatedAt,
	}
}

func ToActivityResponse(e repository.ActivityLog) ActivityResponse {
	return ActivityResponse{
		ID:         e.ID,
		Actor:      e.Actor,
		Action:     e.Action,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Detail:     e.Detail,
		CreatedAt:  e.CreatedAt,
	}
}

func ToBulkResultResponse(r domain.BulkResult) BulkResultResponse {
	failed := make([]FailedItemResponse, 0)
	for _, item := range r.FailedItems() {
		failed = append(failed, FailedItemResponse{ID: item.ID, Error: item.Error})
	}
	return BulkResultResponse{Succeeded: r.Succeeded(), Failed: failed}
}
