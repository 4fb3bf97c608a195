package management

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"leadcrm_backend/internal/leads/domain"
	"leadcrm_backend/internal/leads/pipeline"
	"leadcrm_backend/internal/leads/repository"
	"leadcrm_backend/internal/leads/transport"
	"leadcrm_backend/platform/apperr"

	"github.com/google/uuid"
)

const (
	defaultPage     = 1
	defaultPageSize = 20
	maxPageSize     = 100
)

type leadComparator func(a, b repository.Lead) int

// comparators maps every sort field to a typed comparison. Ties are broken
// by id so pages are stable.
var comparators = map[domain.SortField]leadComparator{
	domain.SortCreatedAt:      func(a, b repository.Lead) int { return a.CreatedAt.Compare(b.CreatedAt) },
	domain.SortUpdatedAt:      func(a, b repository.Lead) int { return a.UpdatedAt.Compare(b.UpdatedAt) },
	domain.SortLastActivityAt: func(a, b repository.Lead) int { return a.LastActivityAt.Compare(b.LastActivityAt) },
	domain.SortScore:          func(a, b repository.Lead) int { return cmp.Compare(a.Score, b.Score) },
	domain.SortName: func(a, b repository.Lead) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	},
	domain.SortCity: func(a, b repository.Lead) int {
		return strings.Compare(strings.ToLower(a.City), strings.ToLower(b.City))
	},
	domain.SortPipelineStage: func(a, b repository.Lead) int {
		return cmp.Compare(domain.PipelineStageOrder(a.PipelineStage), domain.PipelineStageOrder(b.PipelineStage))
	},
	// Leads without a budget sort below every stated budget.
	domain.SortBudget: func(a, b repository.Lead) int {
		switch {
		case a.Budget == nil && b.Budget == nil:
			return 0
		case a.Budget == nil:
			return -1
		case b.Budget == nil:
			return 1
		}
		return cmp.Compare(*a.Budget, *b.Budget)
	},
}

// List retrieves a filtered, sorted page of leads.
func (s *Service) List(ctx context.Context, req transport.ListLeadsRequest) (transport.LeadListResponse, error) {
	field, order, err := domain.ParseSort(req.SortBy, req.SortOrder)
	if err != nil {
		return transport.LeadListResponse{}, err
	}

	var ownerID *uuid.UUID
	if req.AssignedUserID != "" {
		parsed, err := uuid.Parse(req.AssignedUserID)
		if err != nil {
			return transport.LeadListResponse{}, apperr.Validation("invalid assignedUserId")
		}
		ownerID = &parsed
	}
	stage := ""
	if req.Stage != "" {
		if stage, err = pipeline.ValidateStage(req.Stage); err != nil {
			return transport.LeadListResponse{}, err
		}
	}

	page := req.Page
	if page < 1 {
		page = defaultPage
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	leads, err := s.repo.ListLeads(ctx)
	if err != nil {
		return transport.LeadListResponse{}, apperr.Infrastructure("management.Service.List", err)
	}

	search := strings.ToLower(strings.TrimSpace(req.Search))
	filtered := make([]repository.Lead, 0, len(leads))
	for _, lead := range leads {
		if stage != "" && lead.PipelineStage != stage {
			continue
		}
		if req.Status != "" && lead.Status != req.Status {
			continue
		}
		if req.Temperature != "" && lead.Temperature != req.Temperature {
			continue
		}
		if req.Unassigned && lead.AssignedUserID != nil {
			continue
		}
		if ownerID != nil && (lead.AssignedUserID == nil || *lead.AssignedUserID != *ownerID) {
			continue
		}
		if search != "" && !matchesSearch(lead, search) {
			continue
		}
		filtered = append(filtered, lead)
	}

	SortLeads(filtered, field, order)

	total := len(filtered)
	totalPages := (total + pageSize - 1) / pageSize
	start := min((page-1)*pageSize, total)
	end := min(start+pageSize, total)

	return transport.LeadListResponse{
		Items:      transport.ToLeadResponses(filtered[start:end]),
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// SortLeads orders leads in place by a parsed sort field.
func SortLeads(leads []repository.Lead, field domain.SortField, order domain.SortOrder) {
	compare, ok := comparators[field]
	if !ok {
		compare = comparators[domain.SortCreatedAt]
	}
	slices.SortStableFunc(leads, func(a, b repository.Lead) int {
		c := compare(a, b)
		if c == 0 {
			c = strings.Compare(a.ID.String(), b.ID.String())
		}
		if order == domain.SortDesc {
			return -c
		}
		return c
	})
}

func matchesSearch(lead repository.Lead, needle string) bool {
	if strings.Contains(strings.ToLower(lead.Name), needle) ||
		strings.Contains(lead.Mobile, needle) ||
		strings.Contains(strings.ToLower(lead.City), needle) {
		return true
	}
	return lead.Email != nil && strings.Contains(*lead.Email, needle)
}
