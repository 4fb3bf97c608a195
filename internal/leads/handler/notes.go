package handler

import (
	"net/http"

	"leadcrm_backend/internal/leads/notes"
	"leadcrm_backend/internal/leads/transport"
	"leadcrm_backend/platform/httpkit"
	"leadcrm_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

// NotesHandler handles HTTP requests for lead notes and call logs.
// This is separate from the main Handler to allow independent wiring.
type NotesHandler struct {
	svc *notes.Service
	val *validator.Validator
}

// NewNotesHandler creates a new notes handler.
func NewNotesHandler(svc *notes.Service, val *validator.Validator) *NotesHandler {
	return &NotesHandler{svc: svc, val: val}
}

func (h *NotesHandler) ListNotes(c *gin.Context) {
	id, ok := leadID(c)
	if !ok {
		return
	}

	notesList, err := h.svc.List(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, notesList)
}

func (h *NotesHandler) AddNote(c *gin.Context) {
	id, ok := leadID(c)
	if !ok {
		return
	}

	var req transport.CreateLeadNoteRequest
	if !bindJSON(c, h.val, &req) {
		return
	}

	created, err := h.svc.Add(c.Request.Context(), id, req, actorFrom(c))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, created)
}

func (h *NotesHandler) ListCalls(c *gin.Context) {
	id, ok := leadID(c)
	if !ok {
		return
	}

	calls, err := h.svc.ListCalls(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, calls)
}

func (h *NotesHandler) LogCall(c *gin.Context) {
	id, ok := leadID(c)
	if !ok {
		return
	}

	var req transport.LogCallRequest
	if !bindJSON(c, h.val, &req) {
		return
	}

	call, err := h.svc.LogCall(c.Request.Context(), id, req, actorFrom(c))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, call)
}
