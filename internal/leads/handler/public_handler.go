package handler

import (
	"net/http"
	"strings"

	"leadcrm_backend/internal/leads/domain"
	"leadcrm_backend/internal/leads/transport"
	"leadcrm_backend/platform/apperr"
	"leadcrm_backend/platform/httpkit"
	"leadcrm_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

// PublicHandler serves the unauthenticated intake used by website forms
// and ad landing pages.
type PublicHandler struct {
	lifecycle Lifecycle
	val       *validator.Validator
}

// PublicIntakeRequest is the form payload. Owner and budget cannot be set
// from outside.
type PublicIntakeRequest struct {
	Name          string                  `json:"name" validate:"required,min=1,max=200"`
	Mobile        string                  `json:"mobile" validate:"required,min=5,max=20"`
	Email         string                  `json:"email,omitempty" validate:"omitempty,email,max=254"`
	City          string                  `json:"city,omitempty" validate:"max=100"`
	Source        transport.LeadSource    `json:"source,omitempty" validate:"omitempty,oneof=website facebook google instagram"`
	InterestLevel transport.InterestLevel `json:"interestLevel,omitempty" validate:"omitempty,oneof=low medium high"`
}

// PublicIntakeResponse deliberately omits lead details.
type PublicIntakeResponse struct {
	Received bool `json:"received"`
}

func NewPublicHandler(lifecycle Lifecycle, val *validator.Validator) *PublicHandler {
	return &PublicHandler{lifecycle: lifecycle, val: val}
}

func (h *PublicHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/leads", h.Intake)
}

// Intake captures a lead from a public form. A contact that is already on
// file is acknowledged the same way as a new one.
func (h *PublicHandler) Intake(c *gin.Context) {
	var req PublicIntakeRequest
	if !bindJSON(c, h.val, &req) {
		return
	}

	source := req.Source
	if strings.TrimSpace(string(source)) == "" {
		source = transport.LeadSourceWebsite
	}

	_, err := h.lifecycle.OnLeadCaptured(c.Request.Context(), transport.CaptureLeadRequest{
		Name:          req.Name,
		Mobile:        req.Mobile,
		Email:         req.Email,
		City:          req.City,
		Source:        source,
		InterestLevel: req.InterestLevel,
	}, domain.Actor{Name: "public-intake"})
	if apperr.Is(err, apperr.KindDuplicate) {
		httpkit.JSON(c, http.StatusAccepted, PublicIntakeResponse{Received: true})
		return
	}
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, PublicIntakeResponse{Received: true})
}
