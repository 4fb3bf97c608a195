package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const followUpColumns = `id, lead_id, user_id, scheduled_at, completed, completed_at, notes, merged_from_id, created_at`

func scanFollowUp(row rowScanner) (FollowUp, error) {
	var f FollowUp
	err := row.Scan(&f.ID, &f.LeadID, &f.UserID, &f.ScheduledAt, &f.Completed, &f.CompletedAt, &f.Notes, &f.MergedFromID, &f.CreatedAt)
	return f, err
}

// CreateFollowUp inserts a follow-up. A row already copied from the same
// merge source onto the same lead is returned unchanged.
func (r *Repository) CreateFollowUp(ctx context.Context, params CreateFollowUpParams) (FollowUp, error) {
	return scanFollowUp(r.pool.QueryRow(ctx, `
		INSERT INTO lead_follow_ups (lead_id, user_id, scheduled_at, completed, completed_at, notes, merged_from_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (lead_id, merged_from_id) WHERE merged_from_id IS NOT NULL
		DO UPDATE SET merged_from_id = EXCLUDED.merged_from_id
		RETURNING `+followUpColumns,
		params.LeadID, params.UserID, params.ScheduledAt, params.Completed, params.CompletedAt, params.Notes, params.MergedFromID,
	))
}

func (r *Repository) GetFollowUp(ctx context.Context, id uuid.UUID) (FollowUp, error) {
	f, err := scanFollowUp(r.pool.QueryRow(ctx,
		`SELECT `+followUpColumns+` FROM lead_follow_ups WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return FollowUp{}, ErrFollowUpNotFound
	}
	return f, err
}

func (r *Repository) ListFollowUps(ctx context.Context, leadID uuid.UUID) ([]FollowUp, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+followUpColumns+`
		FROM lead_follow_ups
		WHERE lead_id = $1
		ORDER BY scheduled_at ASC, id ASC
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]FollowUp, 0)
	for rows.Next() {
		f, err := scanFollowUp(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}

func (r *Repository) UpdateFollowUp(ctx context.Context, id uuid.UUID, params UpdateFollowUpParams) (FollowUp, error) {
	f, err := scanFollowUp(r.pool.QueryRow(ctx, `
		UPDATE lead_follow_ups SET
			completed = COALESCE($2, completed),
			completed_at = COALESCE($3, completed_at),
			notes = COALESCE($4, notes)
		WHERE id = $1
		RETURNING `+followUpColumns,
		id, params.Completed, params.CompletedAt, params.Notes,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return FollowUp{}, ErrFollowUpNotFound
	}
	return f, err
}
