package repository

import (
	"context"

	"github.com/google/uuid"
)

func (r *Repository) AppendActivityLog(ctx context.Context, params AppendActivityParams) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO activity_logs (actor, action, entity_type, entity_id, detail)
		VALUES ($1, $2, $3, $4, $5)
	`, params.Actor, params.Action, params.EntityType, params.EntityID, params.Detail)
	return err
}

func (r *Repository) ListActivityLog(ctx context.Context, entityType string, entityID uuid.UUID) ([]ActivityLog, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, actor, action, entity_type, entity_id, detail, created_at
		FROM activity_logs
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at DESC
	`, entityType, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]ActivityLog, 0)
	for rows.Next() {
		var e ActivityLog
		if err := rows.Scan(&e.ID, &e.Actor, &e.Action, &e.EntityType, &e.EntityID, &e.Detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return entries, nil
}

// CreateClient stores the client record for a lead. A lead has at most one
// client; writing again for the same lead overwrites it and keeps its id.
func (r *Repository) CreateClient(ctx context.Context, params CreateClientParams) (Client, error) {
	var c Client
	err := r.pool.QueryRow(ctx, `
		INSERT INTO clients (lead_id, name, mobile, email, city, company, address, owner_user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (lead_id) DO UPDATE SET
			name = EXCLUDED.name,
			mobile = EXCLUDED.mobile,
			email = EXCLUDED.email,
			city = EXCLUDED.city,
			company = EXCLUDED.company,
			address = EXCLUDED.address,
			owner_user_id = EXCLUDED.owner_user_id
		RETURNING id, lead_id, name, mobile, email, city, company, address, owner_user_id, created_at
	`, params.LeadID, params.Name, params.Mobile, params.Email, params.City, params.Company, params.Address, params.OwnerUserID).Scan(
		&c.ID, &c.LeadID, &c.Name, &c.Mobile, &c.Email, &c.City, &c.Company, &c.Address, &c.OwnerUserID, &c.CreatedAt,
	)
	return c, err
}
