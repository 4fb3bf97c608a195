// Package httpkit provides HTTP utilities including identity abstraction.
package httpkit

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// HeaderActorID carries the acting user's ID, set by the gateway in front
	// of this service.
	HeaderActorID = "X-Actor-ID"
	// HeaderActorName carries a display label for the actor.
	HeaderActorName = "X-Actor-Name"

	// ContextUserIDKey is the gin context key for the acting user ID.
	ContextUserIDKey = "userID"
	// ContextActorNameKey is the gin context key for the actor label.
	ContextActorNameKey = "actorName"

	maxActorNameLength = 100
)

// Identity is the caller an operation is attributed to. UserID is nil for
// anonymous or automated callers.
type Identity struct {
	UserID *uuid.UUID
	Name   string
}

// ActorHeaders reads the actor headers into the gin context. A malformed
// actor ID is rejected with 400.
func ActorHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw := strings.TrimSpace(c.GetHeader(HeaderActorID)); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + HeaderActorID + " header"})
				return
			}
			c.Set(ContextUserIDKey, id)
		}
		if name := strings.TrimSpace(c.GetHeader(HeaderActorName)); name != "" {
			if len(name) > maxActorNameLength {
				name = name[:maxActorNameLength]
			}
			c.Set(ContextActorNameKey, name)
		}
		c.Next()
	}
}

// GetIdentity extracts the Identity from a Gin context.
func GetIdentity(c *gin.Context) Identity {
	var ident Identity
	if value, ok := c.Get(ContextUserIDKey); ok {
		if id, ok := value.(uuid.UUID); ok {
			ident.UserID = &id
		}
	}
	if value, ok := c.Get(ContextActorNameKey); ok {
		ident.Name, _ = value.(string)
	}
	return ident
}
