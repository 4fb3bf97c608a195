package domain

import "github.com/google/uuid"

// Actor identifies who triggered an operation. UserID is nil for
// automation.
type Actor struct {
	UserID *uuid.UUID
	Name   string
}

// SystemActor is used by jobs and automatic side effects.
func SystemActor() Actor {
	return Actor{Name: ActorSystem}
}

// Label is the value written to the activity log.
func (a Actor) Label() string {
	switch {
	case a.Name != "":
		return a.Name
	case a.UserID != nil:
		return a.UserID.String()
	default:
		return ActorSystem
	}
}
