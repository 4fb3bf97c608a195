// Package pipeline derives state from a lead's funnel position and its
// scheduled follow-ups. Any enumerated stage may follow any other.
package pipeline

import (
	"fmt"
	"strings"
	"time"

	"leadcrm_backend/internal/leads/domain"
	"leadcrm_backend/internal/leads/repository"
	"leadcrm_backend/platform/apperr"
)

// ValidateStage normalizes and checks a stage literal.
func ValidateStage(stage string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(stage))
	if !domain.IsKnownPipelineStage(normalized) {
		return "", apperr.Validation(fmt.Sprintf("invalid pipeline stage %q", stage)).
			WithDetails(map[string]any{"allowed": domain.PipelineStages})
	}
	return normalized, nil
}

// NextFollowUp is the earliest incomplete follow-up of a lead.
type NextFollowUp struct {
	FollowUp repository.FollowUp
	Overdue  bool
}

// Next picks the earliest incomplete follow-up by scheduled time. The
// boolean is false when nothing is pending.
func Next(followUps []repository.FollowUp, now time.Time) (NextFollowUp, bool) {
	var (
		best  repository.FollowUp
		found bool
	)
	for _, f := range followUps {
		if f.Completed {
			continue
		}
		if !found || f.ScheduledAt.Before(best.ScheduledAt) {
			best = f
			found = true
		}
	}
	if !found {
		return NextFollowUp{}, false
	}
	return NextFollowUp{FollowUp: best, Overdue: best.ScheduledAt.Before(now)}, true
}

// Column is one Kanban column.
type Column struct {
	Stage string
	Leads []repository.Lead
}

// Board groups leads by stage in funnel order. Every stage gets a column,
// and leads keep their input order within a column. Leads carrying an
// unknown stage are placed in the first column.
func Board(leads []repository.Lead) []Column {
	columns := make([]Column, len(domain.PipelineStages))
	for i, stage := range domain.PipelineStages {
		columns[i] = Column{Stage: stage, Leads: make([]repository.Lead, 0)}
	}
	for _, lead := range leads {
		idx := domain.PipelineStageOrder(lead.PipelineStage)
		if idx < 0 {
			idx = 0
		}
		columns[idx].Leads = append(columns[idx].Leads, lead)
	}
	return columns
}
