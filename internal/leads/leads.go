// Package leads provides the lead lifecycle bounded context.
// This file defines the public API of the leads bounded context.
// Only types and interfaces defined here should be imported by other domains.
package leads

import (
	"context"
	"errors"

	"leadcrm_backend/internal/leads/repository"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Directory lookups for unknown ids.
var ErrNotFound = errors.New("not found")

// Lead represents the minimal lead information that can be shared with other domains.
type Lead struct {
	ID             uuid.UUID
	Name           string
	Mobile         string
	City           string
	AssignedUserID *uuid.UUID
}

// User is a salesperson who can own leads.
type User struct {
	ID       uuid.UUID
	Name     string
	Email    string
	IsActive bool
}

// Directory defines the public lookups other domains may use.
// Other domains should depend on this interface, not on concrete implementations.
type Directory interface {
	GetLead(ctx context.Context, id uuid.UUID) (Lead, error)
	GetUser(ctx context.Context, id uuid.UUID) (User, error)
}

type storeDirectory struct {
	store repository.LeadStore
}

// NewDirectory exposes a lead store as a Directory.
func NewDirectory(store repository.LeadStore) Directory {
	return storeDirectory{store: store}
}

func (d storeDirectory) GetLead(ctx context.Context, id uuid.UUID) (Lead, error) {
	lead, err := d.store.GetLead(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return Lead{}, ErrNotFound
	}
	if err != nil {
		return Lead{}, err
	}
	return Lead{
		ID:             lead.ID,
		Name:           lead.Name,
		Mobile:         lead.Mobile,
		City:           lead.City,
		AssignedUserID: lead.AssignedUserID,
	}, nil
}

func (d storeDirectory) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	users, err := d.store.ListUsers(ctx)
	if err != nil {
		return User{}, err
	}
	for _, u := range users {
		if u.ID == id {
			return User{ID: u.ID, Name: u.Name, Email: u.Email, IsActive: u.IsActive}, nil
		}
	}
	return User{}, ErrNotFound
}
