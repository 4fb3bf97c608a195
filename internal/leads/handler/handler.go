package handler

import (
	"context"
	"net/http"

	"leadcrm_backend/internal/leads/domain"
	"leadcrm_backend/internal/leads/management"
	"leadcrm_backend/internal/leads/scheduling"
	"leadcrm_backend/internal/leads/transport"
	"leadcrm_backend/platform/httpkit"
	"leadcrm_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Lifecycle is the orchestrated part of the lead engine the handler drives.
type Lifecycle interface {
	OnLeadCaptured(ctx context.Context, req transport.CaptureLeadRequest, actor domain.Actor) (transport.LeadResponse, error)
	OnFollowUpLogged(ctx context.Context, leadID uuid.UUID, req transport.ScheduleFollowUpRequest, actor domain.Actor) (transport.FollowUpResponse, error)
	RecomputeScore(ctx context.Context, leadID uuid.UUID, actor domain.Actor) (transport.ScoreResponse, error)
	RecomputeAllScores(ctx context.Context, actor domain.Actor) (transport.BulkResultResponse, error)
	ChangeStage(ctx context.Context, leadID uuid.UUID, stage string, actor domain.Actor) (transport.LeadResponse, error)
	FindDuplicates(ctx context.Context) (transport.DuplicateGroupsResponse, error)
	Merge(ctx context.Context, req transport.MergeLeadsRequest, actor domain.Actor) (transport.MergeResponse, error)
	DistributeUnassigned(ctx context.Context, actor domain.Actor) (transport.DistributeResponse, error)
	DistributionSettings(ctx context.Context) (transport.DistributionSettingsResponse, error)
	SetDistributionEnabled(ctx context.Context, enabled bool, actor domain.Actor) (transport.DistributionSettingsResponse, error)
	ConvertToClient(ctx context.Context, leadID uuid.UUID, req transport.ConvertLeadRequest, actor domain.Actor) (transport.ConvertLeadResponse, error)
}

type Handler struct {
	lifecycle  Lifecycle
	mgmt       *management.Service
	scheduling *scheduling.Service
	notes      *NotesHandler
	val        *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidLeadID    = "invalid lead id"
)

func New(lifecycle Lifecycle, mgmt *management.Service, schedulingSvc *scheduling.Service, notesHandler *NotesHandler, val *validator.Validator) *Handler {
	return &Handler{
		lifecycle:  lifecycle,
		mgmt:       mgmt,
		scheduling: schedulingSvc,
		notes:      notesHandler,
		val:        val,
	}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Capture)
	rg.GET("/check-duplicate", h.CheckDuplicate)
	rg.GET("/duplicates", h.FindDuplicates)
	rg.POST("/merge", h.Merge)
	rg.GET("/board", h.Board)
	rg.POST("/distribute", h.Distribute)
	rg.GET("/distribution", h.DistributionSettings)
	rg.PUT("/distribution", h.UpdateDistributionSettings)
	rg.POST("/scores/recompute", h.RecomputeAllScores)
	rg.POST("/follow-ups/:followUpId/complete", h.CompleteFollowUp)
	rg.GET("/:id", h.GetByID)
	rg.PATCH("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
	rg.PATCH("/:id/stage", h.ChangeStage)
	rg.POST("/:id/score", h.RecomputeScore)
	rg.POST("/:id/convert", h.Convert)
	rg.GET("/:id/activity", h.Activity)
	rg.GET("/:id/follow-ups", h.ListFollowUps)
	rg.POST("/:id/follow-ups", h.LogFollowUp)
	rg.GET("/:id/follow-ups/next", h.NextFollowUp)
	rg.GET("/:id/notes", h.notes.ListNotes)
	rg.POST("/:id/notes", h.notes.AddNote)
	rg.GET("/:id/calls", h.notes.ListCalls)
	rg.POST("/:id/calls", h.notes.LogCall)
}

func (h *Handler) Capture(c *gin.Context) {
	var req transport.CaptureLeadRequest
	if !bindJSON(c, h.val, &req) {
		return
	}

	lead, err := h.lifecycle.OnLeadCaptured(c.Request.Context(), req, actorFrom(c))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, lead)
}

func (h *Handler) List(c *gin.Context) {
	var req transport.ListLeadsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	result, err := h.mgmt.List(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) CheckDuplicate(c *gin.Context) {
	mobile := c.Query("mobile")
	if mobile == "" {
		httpkit.Error(c, http.StatusBadRequest, "mobile is required", nil)
		return
	}

	result, err := h.mgmt.CheckDuplicate(c.Request.Context(), mobile, c.Query("email"))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) FindDuplicates(c *gin.Context) {
	groups, err := h.lifecycle.FindDuplicates(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, groups)
}

func (h *Handler) Merge(c *gin.Context) {
	var req transport.MergeLeadsRequest
	if !bindJSON(c, h.val, &req) {
		return
	}

	result, err := h.lifecycle.Merge(c.Request.Context(), req, actorFrom(c))
	httpkit.Bulk(c, result, err)
}

func (h *Handler) Board(c *gin.Context) {
	board, err := h.mgmt.Board(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, board)
}

func (h *Handler) Distribute(c *gin.Context) {
	result, err := h.lifecycle.DistributeUnassigned(c.Request.Context(), actorFrom(c))
	httpkit.Bulk(c, result, err)
}

func (h *Handler) DistributionSettings(c *gin.Context) {
	settings, err := h.lifecycle.DistributionSettings(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, settings)
}

func (h *Handler) UpdateDistributionSettings(c *gin.Context) {
	var req transport.DistributionSettingsRequest
	if !bindJSON(c, h.val, &req) {
		return
	}

	settings, err := h.lifecycle.SetDistributionEnabled(c.Request.Context(), *req.Enabled, actorFrom(c))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, settings)
}

func (h *Handler) RecomputeAllScores(c *gin.Context) {
	result, err := h.lifecycle.RecomputeAllScores(c.Request.Context(), actorFrom(c))
	httpkit.Bulk(c, result, err)
}

func (h *Handler) GetByID(c *gin.Context) {
	id, ok := leadID(c)
	if !ok {
		return
	}

	lead, err := h.mgmt.GetByID(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, lead)
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := leadID(c)
	if !ok {
		return
	}

	var req transport.UpdateLeadRequest
	if !bindJSON(c, h.val, &req) {
		return
	}

	lead, err := h.mgmt.Update(c.Request.Context(), id, req, actorFrom(c))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, lead)
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := leadID(c)
	if !ok {
		return
	}

	if err := h.mgmt.Delete(c.Request.Context(), id, actorFrom(c)); httpkit.HandleError(c, err) {
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) ChangeStage(c *gin.Context) {
	id, ok := leadID(c)
	if !ok {
		return
	}

	var req transport.ChangeStageRequest
	if !bindJSON(c, h.val, &req) {
		return
	}

	lead, err := h.lifecycle.ChangeStage(c.Request.Context(), id, req.Stage, actorFrom(c))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, lead)
}

func (h *Handler) RecomputeScore(c *gin.Context) {
	id, ok := leadID(c)
	if !ok {
		return
	}

	score, err := h.lifecycle.RecomputeScore(c.Request.Context(), id, actorFrom(c))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, score)
}

func (h *Handler) Convert(c *gin.Context) {
	id, ok := leadID(c)
	if !ok {
		return
	}

	var req transport.ConvertLeadRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, h.val, &req) {
		return
	}

	result, err := h.lifecycle.ConvertToClient(c.Request.Context(), id, req, actorFrom(c))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, result)
}

func (h *Handler) Activity(c *gin.Context) {
	id, ok := leadID(c)
	if !ok {
		return
	}

	entries, err := h.mgmt.Activity(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, entries)
}

func (h *Handler) ListFollowUps(c *gin.Context) {
	id, ok := leadID(c)
	if !ok {
		return
	}

	followUps, err := h.scheduling.List(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, followUps)
}

func (h *Handler) LogFollowUp(c *gin.Context) {
	id, ok := leadID(c)
	if !ok {
		return
	}

	var req transport.ScheduleFollowUpRequest
	if !bindJSON(c, h.val, &req) {
		return
	}

	followUp, err := h.lifecycle.OnFollowUpLogged(c.Request.Context(), id, req, actorFrom(c))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, followUp)
}

func (h *Handler) NextFollowUp(c *gin.Context) {
	id, ok := leadID(c)
	if !ok {
		return
	}

	next, err := h.scheduling.Next(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, next)
}

func (h *Handler) CompleteFollowUp(c *gin.Context) {
	id, err := uuid.Parse(c.Param("followUpId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid follow-up id", nil)
		return
	}

	var req transport.CompleteFollowUpRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, h.val, &req) {
		return
	}

	followUp, err := h.scheduling.Complete(c.Request.Context(), id, req, actorFrom(c))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, followUp)
}

func leadID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return uuid.UUID{}, false
	}
	return id, true
}

// bindJSON decodes and validates a request body, writing the 400 itself.
func bindJSON(c *gin.Context, val *validator.Validator, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	if err := val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return false
	}
	return true
}

func actorFrom(c *gin.Context) domain.Actor {
	ident := httpkit.GetIdentity(c)
	return domain.Actor{UserID: ident.UserID, Name: ident.Name}
}
