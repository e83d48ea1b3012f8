// Package repository provides data access for drawn territories.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"fieldops_backend/platform/geo"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("territory not found")

// Territory is a persisted polygon drawn by a manager.
type Territory struct {
	ID        uuid.UUID
	Name      string
	Vertices  []geo.Point
	CreatedBy uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type CreateParams struct {
	Name      string
	Vertices  []geo.Point
	CreatedBy uuid.UUID
}

// Create persists a territory. Vertices are stored as a JSONB array of
// {lat,lng} objects in draw order, first vertex not repeated at the end.
func (r *Repository) Create(ctx context.Context, params CreateParams) (Territory, error) {
	vertices, err := json.Marshal(params.Vertices)
	if err != nil {
		return Territory{}, err
	}

	var t Territory
	var raw []byte
	err = r.pool.QueryRow(ctx, `
		INSERT INTO territories (name, vertices, created_by)
		VALUES ($1, $2, $3)
		RETURNING id, name, vertices, created_by, created_at, updated_at`,
		params.Name, vertices, params.CreatedBy,
	).Scan(&t.ID, &t.Name, &raw, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return Territory{}, err
	}
	if err := json.Unmarshal(raw, &t.Vertices); err != nil {
		return Territory{}, err
	}
	return t, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Territory, error) {
	var t Territory
	var raw []byte
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, vertices, created_by, created_at, updated_at
		FROM territories
		WHERE id = $1`,
		id,
	).Scan(&t.ID, &t.Name, &raw, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Territory{}, ErrNotFound
	}
	if err != nil {
		return Territory{}, err
	}
	if err := json.Unmarshal(raw, &t.Vertices); err != nil {
		return Territory{}, err
	}
	return t, nil
}

func (r *Repository) List(ctx context.Context) ([]Territory, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, vertices, created_by, created_at, updated_at
		FROM territories
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	territories := make([]Territory, 0)
	for rows.Next() {
		var t Territory
		var raw []byte
		if err := rows.Scan(&t.ID, &t.Name, &raw, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &t.Vertices); err != nil {
			return nil, err
		}
		territories = append(territories, t)
	}
	return territories, rows.Err()
}

// SetLeadSnapshot records the ids of the leads the territory contained at
// assignment time. The snapshot is informational and never re-evaluated.
func (r *Repository) SetLeadSnapshot(ctx context.Context, id uuid.UUID, leadIDs []uuid.UUID) error {
	snapshot, err := json.Marshal(leadIDs)
	if err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE territories
		SET lead_snapshot = $2, updated_at = now()
		WHERE id = $1`,
		id, snapshot,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM territories WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
