// Package httpkit provides HTTP response utilities.
// This is part of the platform layer and contains no business logic.
package httpkit

import (
	"net/http"

	"leadcrm_backend/platform/apperr"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

// JSON sends a JSON response with the given status code.
func JSON(c *gin.Context, status int, payload interface{}) {
	c.JSON(status, payload)
}

// Error sends an error response with the given status code and message.
func Error(c *gin.Context, status int, message string, details interface{}) {
	c.JSON(status, ErrorResponse{Error: message, Details: details})
}

// OK sends a 200 OK response with the given payload.
func OK(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusOK, payload)
}

// HandleError maps domain errors to HTTP responses.
// A typed *apperr.Error anywhere in the chain decides the status code.
// Infrastructure causes are not exposed to the client; untyped errors
// become 500. Returns true if an error was handled, false otherwise.
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}
	_ = c.Error(err)

	domainErr, ok := apperr.As(err)
	if !ok {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		return true
	}

	message := domainErr.Message
	if domainErr.Kind == apperr.KindInfrastructure {
		message = "service temporarily unavailable"
	}
	c.JSON(domainErr.HTTPStatus(), ErrorResponse{
		Error:   message,
		Details: domainErr.Details,
	})
	return true
}

// Bulk writes the body of a bulk operation. A PartialFailure error yields
// 207 with the body; other errors go through HandleError.
func Bulk(c *gin.Context, payload interface{}, err error) {
	if err == nil {
		OK(c, payload)
		return
	}
	if apperr.Is(err, apperr.KindPartialFailure) {
		_ = c.Error(err)
		c.JSON(http.StatusMultiStatus, payload)
		return
	}
	HandleError(c, err)
}
