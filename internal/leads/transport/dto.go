package transport

import (
	"time"

	"github.com/google/uuid"
)

// Enum values
type LeadSource string

const (
	LeadSourceWebsite   LeadSource = "website"
	LeadSourceFacebook  LeadSource = "facebook"
	LeadSourceGoogle    LeadSource = "google"
	LeadSourceInstagram LeadSource = "instagram"
	LeadSourceReferral  LeadSource = "referral"
	LeadSourceWalkIn    LeadSource = "walk_in"
	LeadSourceOther     LeadSource = "other"
)

type LeadStatus string

const (
	LeadStatusNew           LeadStatus = "new"
	LeadStatusInterested    LeadStatus = "interested"
	LeadStatusFollowUp      LeadStatus = "follow_up"
	LeadStatusConverted     LeadStatus = "converted"
	LeadStatusNotInterested LeadStatus = "not_interested"
)

type InterestLevel string

const (
	InterestLevelLow    InterestLevel = "low"
	InterestLevelMedium InterestLevel = "medium"
	InterestLevelHigh   InterestLevel = "high"
)

// Request DTOs

// CaptureLeadRequest is the intake payload from forms, ads and walk-ins.
type CaptureLeadRequest struct {
	Name           string        `json:"name" validate:"required,min=1,max=200"`
	Mobile         string        `json:"mobile" validate:"required,min=5,max=20"`
	Email          string        `json:"email,omitempty" validate:"omitempty,email,max=254"`
	City           string        `json:"city,omitempty" validate:"max=100"`
	Source         LeadSource    `json:"source,omitempty" validate:"omitempty,oneof=website facebook google instagram referral walk_in other"`
	Budget         *float64      `json:"budget,omitempty" validate:"omitempty,gte=0"`
	InterestLevel  InterestLevel `json:"interestLevel,omitempty" validate:"omitempty,oneof=low medium high"`
	AssignedUserID *uuid.UUID    `json:"assignedUserId,omitempty"`
}

// UpdateLeadRequest is a partial update. An empty email clears it.
type UpdateLeadRequest struct {
	Name           *string        `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Mobile         *string        `json:"mobile,omitempty" validate:"omitempty,min=5,max=20"`
	Email          *string        `json:"email,omitempty" validate:"omitempty,max=254"`
	City           *string        `json:"city,omitempty" validate:"omitempty,max=100"`
	Source         *LeadSource    `json:"source,omitempty" validate:"omitempty,oneof=website facebook google instagram referral walk_in other"`
	Status         *LeadStatus    `json:"status,omitempty" validate:"omitempty,oneof=new interested follow_up not_interested"`
	Budget         *float64       `json:"budget,omitempty" validate:"omitempty,gte=0"`
	InterestLevel  *InterestLevel `json:"interestLevel,omitempty" validate:"omitempty,oneof=low medium high"`
	AssignedUserID OptionalUUID   `json:"assignedUserId,omitempty" validate:"-"`
}

type ChangeStageRequest struct {
	Stage string `json:"stage" validate:"required"`
}

type MergeLeadsRequest struct {
	PrimaryID    uuid.UUID   `json:"primaryId" validate:"required"`
	DuplicateIDs []uuid.UUID `json:"duplicateIds" validate:"required,min=1,max=100"`
}

// ConvertLeadRequest overrides lead fields on the created client.
type ConvertLeadRequest struct {
	Name    *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Email   *string `json:"email,omitempty" validate:"omitempty,email,max=254"`
	City    *string `json:"city,omitempty" validate:"omitempty,max=100"`
	Company string  `json:"company,omitempty" validate:"max=200"`
	Address string  `json:"address,omitempty" validate:"max=500"`
}

type DistributionSettingsRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

type ListLeadsRequest struct {
	Stage          string `form:"stage" validate:"omitempty,max=40"`
	Status         string `form:"status" validate:"omitempty,oneof=new interested follow_up converted not_interested"`
	Temperature    string `form:"temperature" validate:"omitempty,oneof=hot warm cold"`
	AssignedUserID string `form:"assignedUserId" validate:"omitempty,uuid"`
	Unassigned     bool   `form:"unassigned"`
	Search         string `form:"search" validate:"max=100"`
	SortBy         string `form:"sortBy" validate:"max=40"`
	SortOrder      string `form:"sortOrder" validate:"max=4"`
	Page           int    `form:"page" validate:"omitempty,min=1"`
	PageSize       int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

// Response DTOs

type LeadResponse struct {
	ID             uuid.UUID  `json:"id"`
	Name           string     `json:"name"`
	Mobile         string     `json:"mobile"`
	Email          *string    `json:"email,omitempty"`
	City           string     `json:"city"`
	Source         string     `json:"source"`
	Status         string     `json:"status"`
	PipelineStage  string     `json:"pipelineStage"`
	Score          int        `json:"score"`
	Temperature    string     `json:"temperature"`
	ScoreReason    string     `json:"scoreReason"`
	ScoredAt       *time.Time `json:"scoredAt,omitempty"`
	AssignedUserID *uuid.UUID `json:"assignedUserId,omitempty"`
	DistributedAt  *time.Time `json:"distributedAt,omitempty"`
	Budget         *float64   `json:"budget,omitempty"`
	InterestLevel  string     `json:"interestLevel,omitempty"`
	LastActivityAt time.Time  `json:"lastActivityAt"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

type LeadListResponse struct {
	Items      []LeadResponse `json:"items"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalPages int            `json:"totalPages"`
}

type ScoreFactorResponse struct {
	Key    string `json:"key"`
	Label  string `json:"label"`
	Points int    `json:"points"`
}

type ScoreResponse struct {
	LeadID      uuid.UUID             `json:"leadId"`
	Score       int                   `json:"score"`
	Temperature string                `json:"temperature"`
	Reason      string                `json:"reason"`
	Factors     []ScoreFactorResponse `json:"factors"`
	Version     string                `json:"version"`
	ScoredAt    time.Time             `json:"scoredAt"`
}

type FailedItemResponse struct {
	ID    uuid.UUID `json:"id"`
	Error string    `json:"error"`
}

// BulkResultResponse lists which ids succeeded and which must be retried.
type BulkResultResponse struct {
	Succeeded []uuid.UUID          `json:"succeeded"`
	Failed    []FailedItemResponse `json:"failed"`
}

type DuplicateGroupResponse struct {
	Primary LeadResponse   `json:"primary"`
	Matches []LeadResponse `json:"matches"`
}

type DuplicateGroupsResponse struct {
	Groups []DuplicateGroupResponse `json:"groups"`
}

type DuplicateCheckResponse struct {
	IsDuplicate    bool       `json:"isDuplicate"`
	Field          string     `json:"field,omitempty"`
	ExistingLeadID *uuid.UUID `json:"existingLeadId,omitempty"`
}

type MergeResponse struct {
	Primary LeadResponse       `json:"primary"`
	Result  BulkResultResponse `json:"result"`
}

type PipelineColumnResponse struct {
	Stage string         `json:"stage"`
	Count int            `json:"count"`
	Leads []LeadResponse `json:"leads"`
}

type PipelineBoardResponse struct {
	Columns []PipelineColumnResponse `json:"columns"`
}

type DistributeResponse struct {
	Assigned int                  `json:"assigned"`
	Failed   []FailedItemResponse `json:"failed,omitempty"`
}

type DistributionSettingsResponse struct {
	Enabled            bool       `json:"enabled"`
	Method             string     `json:"method"`
	LastAssignedUserID *uuid.UUID `json:"lastAssignedUserId,omitempty"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

type ClientResponse struct {
	ID          uuid.UUID  `json:"id"`
	LeadID      uuid.UUID  `json:"leadId"`
	Name        string     `json:"name"`
	Mobile      string     `json:"mobile"`
	Email       *string    `json:"email,omitempty"`
	City        string     `json:"city"`
	Company     string     `json:"company,omitempty"`
	Address     string     `json:"address,omitempty"`
	OwnerUserID *uuid.UUID `json:"ownerUserId,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

type ConvertLeadResponse struct {
	Lead   LeadResponse   `json:"lead"`
	Client ClientResponse `json:"client"`
}

type ActivityResponse struct {
	ID         uuid.UUID  `json:"id"`
	Actor      string     `json:"actor"`
	Action     string     `json:"action"`
	EntityType string     `json:"entityType"`
	EntityID   *uuid.UUID `json:"entityId,omitempty"`
	Detail     string     `json:"detail"`
	CreatedAt  time.Time  `json:"createdAt"`
}

type ActivityListResponse struct {
	Items []ActivityResponse `json:"items"`
}
