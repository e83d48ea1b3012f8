package registry

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) List(ctx context.Context) ([]Definition, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, color, icon, counts_as_door_knock, COALESCE(special_behavior, ''), sort_order
		FROM disposition_statuses
		WHERE active = true
		ORDER BY sort_order ASC, name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Definition, 0)
	for rows.Next() {
		var d Definition
		if err := rows.Scan(&d.ID, &d.Name, &d.Color, &d.Icon, &d.CountsAsDoorKnock, &d.SpecialBehavior, &d.SortOrder); err != nil {
			return nil, err
		}
		items = append(items, d)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return items, nil
}

// Upsert writes a definition, updating display metadata and flags in place.
// Used by the YAML seeder at startup.
func (r *Repository) Upsert(ctx context.Context, d Definition) error {
	var special *string
	if d.SpecialBehavior != "" {
		special = &d.SpecialBehavior
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO disposition_statuses (id, name, color, icon, counts_as_door_knock, special_behavior, sort_order, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, true)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			color = EXCLUDED.color,
			icon = EXCLUDED.icon,
			counts_as_door_knock = EXCLUDED.counts_as_door_knock,
			special_behavior = EXCLUDED.special_behavior,
			sort_order = EXCLUDED.sort_order,
			active = true
	`, d.ID, d.Name, d.Color, d.Icon, d.CountsAsDoorKnock, special, d.SortOrder)
	return err
}
