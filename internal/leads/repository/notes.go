package repository

import (
	"context"

	"github.com/google/uuid"
)

func (r *Repository) CreateNote(ctx context.Context, params CreateNoteParams) (LeadNote, error) {
	var note LeadNote
	err := r.pool.QueryRow(ctx, `
		INSERT INTO lead_notes (lead_id, author_id, type, body, created_at, merged_from_id)
		VALUES ($1, $2, $3, $4, COALESCE($5::timestamptz, now()), $6)
		ON CONFLICT (lead_id, merged_from_id) WHERE merged_from_id IS NOT NULL
		DO UPDATE SET merged_from_id = EXCLUDED.merged_from_id
		RETURNING id, lead_id, author_id, type, body, merged_from_id, created_at
	`, params.LeadID, params.AuthorID, params.Type, params.Body, params.CreatedAt, params.MergedFromID).Scan(
		&note.ID,
		&note.LeadID,
		&note.AuthorID,
		&note.Type,
		&note.Body,
		&note.MergedFromID,
		&note.CreatedAt,
	)
	return note, err
}

func (r *Repository) ListNotes(ctx context.Context, leadID uuid.UUID) ([]LeadNote, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, author_id, type, body, merged_from_id, created_at
		FROM lead_notes
		WHERE lead_id = $1
		ORDER BY created_at DESC
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := make([]LeadNote, 0)
	for rows.Next() {
		var note LeadNote
		if err := rows.Scan(&note.ID, &note.LeadID, &note.AuthorID, &note.Type, &note.Body, &note.MergedFromID, &note.CreatedAt); err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return notes, nil
}

func (r *Repository) CreateCallLog(ctx context.Context, params CreateCallLogParams) (CallLog, error) {
	var calledAt any
	if !params.CalledAt.IsZero() {
		calledAt = params.CalledAt
	}

	var call CallLog
	err := r.pool.QueryRow(ctx, `
		INSERT INTO lead_call_logs (lead_id, user_id, duration_seconds, outcome, called_at, merged_from_id)
		VALUES ($1, $2, $3, $4, COALESCE($5::timestamptz, now()), $6)
		ON CONFLICT (lead_id, merged_from_id) WHERE merged_from_id IS NOT NULL
		DO UPDATE SET merged_from_id = EXCLUDED.merged_from_id
		RETURNING id, lead_id, user_id, duration_seconds, outcome, called_at, merged_from_id
	`, params.LeadID, params.UserID, params.DurationSeconds, params.Outcome, calledAt, params.MergedFromID).Scan(
		&call.ID, &call.LeadID, &call.UserID, &call.DurationSeconds, &call.Outcome, &call.CalledAt, &call.MergedFromID,
	)
	return call, err
}

func (r *Repository) ListCallLogs(ctx context.Context, leadID uuid.UUID) ([]CallLog, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, user_id, duration_seconds, outcome, called_at, merged_from_id
		FROM lead_call_logs
		WHERE lead_id = $1
		ORDER BY called_at DESC
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	calls := make([]CallLog, 0)
	for rows.Next() {
		var call CallLog
		if err := rows.Scan(&call.ID, &call.LeadID, &call.UserID, &call.DurationSeconds, &call.Outcome, &call.CalledAt, &call.MergedFromID); err != nil {
			return nil, err
		}
		calls = append(calls, call)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return calls, nil
}
