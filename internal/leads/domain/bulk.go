package domain

import (
	"leadcrm_backend/platform/apperr"

	"github.com/google/uuid"
)

// ItemOutcome is the tagged result of one sub-operation in a bulk call.
// Err is nil on success.
type ItemOutcome struct {
	ID  uuid.UUID
	Err error
}

// FailedItem is the wire shape of a failed bulk item.
type FailedItem struct {
	ID    uuid.UUID `json:"id"`
	Error string    `json:"error"`
}

// BulkResult aggregates per-item outcomes of a continue-on-error operation.
type BulkResult struct {
	Items []ItemOutcome
}

func (r *BulkResult) Succeed(id uuid.UUID) {
	r.Items = append(r.Items, ItemOutcome{ID: id})
}

func (r *BulkResult) Fail(id uuid.UUID, err error) {
	r.Items = append(r.Items, ItemOutcome{ID: id, Err: err})
}

// Succeeded returns ids whose sub-operation completed.
func (r BulkResult) Succeeded() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(r.Items))
	for _, item := range r.Items {
		if item.Err == nil {
			ids = append(ids, item.ID)
		}
	}
	return ids
}

// Failed returns ids the caller must retry.
func (r BulkResult) Failed() []uuid.UUID {
	ids := make([]uuid.UUID, 0)
	for _, item := range r.Items {
		if item.Err != nil {
			ids = append(ids, item.ID)
		}
	}
	return ids
}

// FailedItems pairs each failed id with its error text.
func (r BulkResult) FailedItems() []FailedItem {
	items := make([]FailedItem, 0)
	for _, item := range r.Items {
		if item.Err != nil {
			items = append(items, FailedItem{ID: item.ID, Error: item.Err.Error()})
		}
	}
	return items
}

// Err returns a PartialFailure error when any item failed, nil otherwise.
func (r BulkResult) Err() error {
	failed := r.FailedItems()
	if len(failed) == 0 {
		return nil
	}
	return apperr.PartialFailure(len(r.Items)-len(failed), len(failed), failed)
}
