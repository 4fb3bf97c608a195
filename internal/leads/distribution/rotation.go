// Package distribution assigns unowned leads to sales users in a fixed
// round-robin rotation.
package distribution

import (
	"sort"

	"leadcrm_backend/internal/leads/domain"
	"leadcrm_backend/internal/leads/repository"

	"github.com/google/uuid"
)

// EligibleUsers returns active non-client users in rotation order:
// creation time, then id.
func EligibleUsers(users []repository.User) []repository.User {
	eligible := make([]repository.User, 0, len(users))
	for _, u := range users {
		if u.IsActive && u.Role != domain.RoleClient {
			eligible = append(eligible, u)
		}
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		if !eligible[i].CreatedAt.Equal(eligible[j].CreatedAt) {
			return eligible[i].CreatedAt.Before(eligible[j].CreatedAt)
		}
		return eligible[i].ID.String() < eligible[j].ID.String()
	})
	return eligible
}

// NextAssignee returns the user after last in rotation. When last is nil
// or no longer eligible the rotation restarts at the first user.
func NextAssignee(eligible []repository.User, last *uuid.UUID) (repository.User, bool) {
	if len(eligible) == 0 {
		return repository.User{}, false
	}
	if last == nil {
		return eligible[0], true
	}
	for i, u := range eligible {
		if u.ID == *last {
			return eligible[(i+1)%len(eligible)], true
		}
	}
	return eligible[0], true
}
