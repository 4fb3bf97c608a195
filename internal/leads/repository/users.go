package repository

import (
	"context"
	"errors"

	"leadcrm_backend/internal/leads/domain"

	"github.com/jackc/pgx/v5"
)

func (r *Repository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, email, role, is_active, created_at
		FROM users
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.IsActive, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return users, nil
}

func (r *Repository) GetDistributionState(ctx context.Context) (DistributionState, error) {
	// The singleton row is created on first use.
	_, err := r.pool.Exec(ctx, `
		INSERT INTO distribution_state (id, method, enabled)
		VALUES (1, $1, true)
		ON CONFLICT (id) DO NOTHING
	`, domain.DistributionRoundRobin)
	if err != nil {
		return DistributionState{}, err
	}

	var state DistributionState
	err = r.pool.QueryRow(ctx, `
		SELECT last_assigned_user_id, method, enabled, version, updated_at
		FROM distribution_state WHERE id = 1
	`).Scan(&state.LastAssignedUserID, &state.Method, &state.Enabled, &state.Version, &state.UpdatedAt)
	return state, err
}

func (r *Repository) SaveDistributionState(ctx context.Context, state DistributionState) (DistributionState, error) {
	var saved DistributionState
	err := r.pool.QueryRow(ctx, `
		UPDATE distribution_state SET
			last_assigned_user_id = $1,
			method = $2,
			enabled = $3,
			version = version + 1,
			updated_at = now()
		WHERE id = 1 AND version = $4
		RETURNING last_assigned_user_id, method, enabled, version, updated_at
	`, state.LastAssignedUserID, state.Method, state.Enabled, state.Version).Scan(
		&saved.LastAssignedUserID, &saved.Method, &saved.Enabled, &saved.Version, &saved.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return DistributionState{}, ErrStaleDistributionState
	}
	return saved, err
}
