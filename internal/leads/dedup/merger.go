package dedup

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"leadcrm_backend/internal/leads/domain"
	"leadcrm_backend/internal/leads/repository"
	"leadcrm_backend/platform/apperr"
	"leadcrm_backend/platform/logger"

	"github.com/google/uuid"
)

// MergeStore defines the data access interface needed by the merger.
type MergeStore interface {
	GetLead(ctx context.Context, id uuid.UUID) (repository.Lead, error)
	DeleteLead(ctx context.Context, id uuid.UUID) error
	repository.FollowUpStore
	repository.NoteStore
	repository.CallLogStore
	repository.ActivityLogger
}

// Merger folds duplicate leads into a primary record.
type Merger struct {
	repo MergeStore
	log  *logger.Logger
}

func NewMerger(repo MergeStore, log *logger.Logger) *Merger {
	return &Merger{repo: repo, log: log}
}

// Merge copies every duplicate's follow-ups, notes and call logs onto the
// primary and then deletes the duplicate. Duplicates are processed one at
// a time with no enclosing transaction: a failure on one duplicate is
// recorded in the result and the rest are still attempted.
func (m *Merger) Merge(ctx context.Context, primaryID uuid.UUID, duplicateIDs []uuid.UUID, actor string) (repository.Lead, domain.BulkResult, error) {
	const op = "dedup.Merger.Merge"

	ids := uniqueIDs(duplicateIDs)
	if len(ids) == 0 {
		return repository.Lead{}, domain.BulkResult{}, apperr.Validation("at least one duplicate id is required")
	}

	primary, err := m.repo.GetLead(ctx, primaryID)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Lead{}, domain.BulkResult{}, apperr.NotFound("primary lead not found")
	}
	if err != nil {
		return repository.Lead{}, domain.BulkResult{}, apperr.Infrastructure(op, err)
	}

	var result domain.BulkResult
	for _, dupID := range ids {
		if dupID == primaryID {
			result.Fail(dupID, apperr.Validation("a lead cannot be merged into itself"))
			continue
		}
		if err := m.mergeOne(ctx, primaryID, dupID); err != nil {
			m.log.Error("merge of duplicate failed", "primaryLeadId", primaryID, "leadId", dupID, "error", err)
			result.Fail(dupID, err)
			continue
		}
		result.Succeed(dupID)
	}

	if merged := len(result.Succeeded()); merged > 0 {
		entityID := primaryID
		if err := m.repo.AppendActivityLog(ctx, repository.AppendActivityParams{
			Actor:      actor,
			Action:     domain.ActionLeadsMerged,
			EntityType: domain.EntityLead,
			EntityID:   &entityID,
			Detail:     fmt.Sprintf("merged %d duplicate lead(s): %s", merged, joinIDs(result.Succeeded())),
		}); err != nil {
			m.log.Error("merge activity log failed", "leadId", primaryID, "error", err)
		}
	}

	return primary, result, nil
}

// mergeOne reads everything the duplicate owns before writing anything.
// Each copy carries its source id, so a retry after a partial copy does not
// duplicate rows already on the primary.
func (m *Merger) mergeOne(ctx context.Context, primaryID, dupID uuid.UUID) error {
	const op = "dedup.Merger.mergeOne"

	if _, err := m.repo.GetLead(ctx, dupID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("duplicate lead not found")
		}
		return apperr.Infrastructure(op, err)
	}

	followUps, err := m.repo.ListFollowUps(ctx, dupID)
	if err != nil {
		return apperr.Infrastructure(op, err)
	}
	notes, err := m.repo.ListNotes(ctx, dupID)
	if err != nil {
		return apperr.Infrastructure(op, err)
	}
	calls, err := m.repo.ListCallLogs(ctx, dupID)
	if err != nil {
		return apperr.Infrastructure(op, err)
	}

	for _, f := range followUps {
		sourceID := f.ID
		if _, err := m.repo.CreateFollowUp(ctx, repository.CreateFollowUpParams{
			LeadID:       primaryID,
			UserID:       f.UserID,
			ScheduledAt:  f.ScheduledAt,
			Completed:    f.Completed,
			CompletedAt:  f.CompletedAt,
			Notes:        f.Notes,
			MergedFromID: &sourceID,
		}); err != nil {
			return apperr.Infrastructure(op, err)
		}
	}

	for _, n := range notes {
		createdAt := n.CreatedAt
		sourceID := n.ID
		if _, err := m.repo.CreateNote(ctx, repository.CreateNoteParams{
			LeadID:       primaryID,
			AuthorID:     n.AuthorID,
			Type:         n.Type,
			Body:         domain.MergedNotePrefix + n.Body,
			CreatedAt:    &createdAt,
			MergedFromID: &sourceID,
		}); err != nil {
			return apperr.Infrastructure(op, err)
		}
	}

	for _, c := range calls {
		sourceID := c.ID
		if _, err := m.repo.CreateCallLog(ctx, repository.CreateCallLogParams{
			LeadID:          primaryID,
			UserID:          c.UserID,
			DurationSeconds: c.DurationSeconds,
			Outcome:         c.Outcome,
			CalledAt:        c.CalledAt,
			MergedFromID:    &sourceID,
		}); err != nil {
			return apperr.Infrastructure(op, err)
		}
	}

	if err := m.repo.DeleteLead(ctx, dupID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("duplicate lead not found")
		}
		return apperr.Infrastructure(op, err)
	}
	return nil
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func joinIDs(ids []uuid.UUID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ", ")
}
