package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"leadcrm_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const leadColumns = `id, name, mobile, email, city, source, status, pipeline_stage,
	score, temperature, score_reason, scored_at, assigned_user_id, distributed_at,
	budget, interest_level, last_activity_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (Lead, error) {
	var lead Lead
	err := row.Scan(
		&lead.ID, &lead.Name, &lead.Mobile, &lead.Email, &lead.City, &lead.Source, &lead.Status, &lead.PipelineStage,
		&lead.Score, &lead.Temperature, &lead.ScoreReason, &lead.ScoredAt, &lead.AssignedUserID, &lead.DistributedAt,
		&lead.Budget, &lead.InterestLevel, &lead.LastActivityAt, &lead.CreatedAt, &lead.UpdatedAt,
	)
	return lead, err
}

func scanLeads(rows pgx.Rows) ([]Lead, error) {
	defer rows.Close()

	items := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, lead)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}

func (r *Repository) CreateLead(ctx context.Context, params CreateLeadParams) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO leads (
			name, mobile, email, city, source, status, pipeline_stage,
			budget, interest_level, assigned_user_id, distributed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, CASE WHEN $10::uuid IS NULL THEN NULL ELSE now() END)
		RETURNING `+leadColumns,
		params.Name, params.Mobile, params.Email, params.City, params.Source, params.Status, params.PipelineStage,
		params.Budget, params.InterestLevel, params.AssignedUserID,
	)
	lead, err := scanLead(row)
	if err != nil {
		return Lead{}, mapWriteError(err)
	}
	return lead, nil
}

func (r *Repository) GetLead(ctx context.Context, id uuid.UUID) (Lead, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE id = $1 AND deleted_at IS NULL`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

func (r *Repository) FindLeadByContact(ctx context.Context, mobile string, email *string, excludeID *uuid.UUID) (ContactMatch, error) {
	var emailArg any
	if email != nil && *email != "" {
		emailArg = *email
	}

	row := r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+`, (mobile = $1) AS mobile_match
		FROM leads
		WHERE deleted_at IS NULL
			AND ($3::uuid IS NULL OR id <> $3)
			AND (mobile = $1 OR ($2::text IS NOT NULL AND email = $2))
		ORDER BY mobile_match DESC, created_at ASC
		LIMIT 1
	`, mobile, emailArg, excludeID)

	var (
		lead        Lead
		mobileMatch bool
	)
	err := row.Scan(
		&lead.ID, &lead.Name, &lead.Mobile, &lead.Email, &lead.City, &lead.Source, &lead.Status, &lead.PipelineStage,
		&lead.Score, &lead.Temperature, &lead.ScoreReason, &lead.ScoredAt, &lead.AssignedUserID, &lead.DistributedAt,
		&lead.Budget, &lead.InterestLevel, &lead.LastActivityAt, &lead.CreatedAt, &lead.UpdatedAt,
		&mobileMatch,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return ContactMatch{}, ErrNotFound
	}
	if err != nil {
		return ContactMatch{}, err
	}

	field := domain.FieldEmail
	if mobileMatch {
		field = domain.FieldMobile
	}
	return ContactMatch{Lead: lead, Field: field}, nil
}

func (r *Repository) ListLeads(ctx context.Context) ([]Lead, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE deleted_at IS NULL ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	return scanLeads(rows)
}

func (r *Repository) ListUnassignedLeads(ctx context.Context) ([]Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+` FROM leads
		WHERE deleted_at IS NULL AND assigned_user_id IS NULL
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	return scanLeads(rows)
}

func (r *Repository) UpdateLead(ctx context.Context, id uuid.UUID, params UpdateLeadParams) (Lead, error) {
	setClauses := []string{}
	args := []interface{}{}
	argIdx := 1

	fields := []struct {
		enabled bool
		column  string
		value   interface{}
	}{
		{params.Name != nil, "name", params.Name},
		{params.Mobile != nil, "mobile", params.Mobile},
		{params.EmailSet || params.Email != nil, "email", params.Email},
		{params.City != nil, "city", params.City},
		{params.Source != nil, "source", params.Source},
		{params.Status != nil, "status", params.Status},
		{params.PipelineStage != nil, "pipeline_stage", params.PipelineStage},
		{params.Score != nil, "score", params.Score},
		{params.Temperature != nil, "temperature", params.Temperature},
		{params.ScoreReason != nil, "score_reason", params.ScoreReason},
		{params.ScoredAt != nil, "scored_at", params.ScoredAt},
		{params.AssignedUserIDSet || params.AssignedUserID != nil, "assigned_user_id", params.AssignedUserID},
		{params.DistributedAt != nil, "distributed_at", params.DistributedAt},
		{params.BudgetSet || params.Budget != nil, "budget", params.Budget},
		{params.InterestLevel != nil, "interest_level", params.InterestLevel},
		{params.LastActivityAt != nil, "last_activity_at", params.LastActivityAt},
	}

	for _, field := range fields {
		if !field.enabled {
			continue
		}
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", field.column, argIdx))
		args = append(args, field.value)
		argIdx++
	}

	setClauses = append(setClauses, "updated_at = now()")
	args = append(args, id)

	query := fmt.Sprintf(`
		UPDATE leads SET %s
		WHERE id = $%d AND deleted_at IS NULL
		RETURNING %s
	`, strings.Join(setClauses, ", "), argIdx, leadColumns)

	lead, err := scanLead(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	if err != nil {
		return Lead{}, mapWriteError(err)
	}
	return lead, nil
}

// DeleteLead soft-deletes the lead so its mobile and email are released
// while its history stays readable for audit.
func (r *Repository) DeleteLead(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE leads SET deleted_at = now(), updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
