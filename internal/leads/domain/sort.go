package domain

import (
	"fmt"
	"strings"

	"leadcrm_backend/platform/apperr"
)

// SortField is a lead attribute lists may be ordered by.
type SortField string

const (
	SortCreatedAt      SortField = "createdAt"
	SortUpdatedAt      SortField = "updatedAt"
	SortLastActivityAt SortField = "lastActivityAt"
	SortScore          SortField = "score"
	SortName           SortField = "name"
	SortCity           SortField = "city"
	SortPipelineStage  SortField = "pipelineStage"
	SortBudget         SortField = "budget"
)

// SortFields lists every accepted sort key.
var SortFields = []SortField{
	SortCreatedAt,
	SortUpdatedAt,
	SortLastActivityAt,
	SortScore,
	SortName,
	SortCity,
	SortPipelineStage,
	SortBudget,
}

// SortOrder is ascending or descending.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ParseSort validates a boundary-supplied sort key and order.
// Empty values default to createdAt desc.
func ParseSort(field, order string) (SortField, SortOrder, error) {
	f := SortField(strings.TrimSpace(field))
	if f == "" {
		f = SortCreatedAt
	}
	known := false
	for _, candidate := range SortFields {
		if candidate == f {
			known = true
			break
		}
	}
	if !known {
		return "", "", apperr.Validation(fmt.Sprintf("unknown sort field %q", field)).
			WithDetails(map[string]any{"allowed": SortFields})
	}

	o := SortOrder(strings.ToLower(strings.TrimSpace(order)))
	switch o {
	case "":
		o = SortDesc
	case SortAsc, SortDesc:
	default:
		return "", "", apperr.Validation(fmt.Sprintf("unknown sort order %q", order))
	}
	return f, o, nil
}
