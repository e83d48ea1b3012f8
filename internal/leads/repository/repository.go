// Package repository provides lead persistence over Postgres.
//
// Consistency contract: writes are optimistic last-write-wins. The one
// exception is the claim invariant, which is enforced by a conditional UPDATE
// so that concurrent claims resolve authoritatively in the store.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound      = errors.New("lead not found")
	ErrClaimConflict = errors.New("lead claimed by another user")
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Lead struct {
	ID              uuid.UUID
	FirstName       string
	LastName        string
	Phone           string
	Email           *string
	AddressStreet   string
	AddressCity     string
	AddressState    string
	AddressZip      string
	Latitude        *float64
	Longitude       *float64
	Status          string
	ClaimedBy       *uuid.UUID
	AssignedTo      *uuid.UUID
	DispositionedAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

const leadColumns = `
	id, first_name, last_name, phone, email,
	address_street, address_city, address_state, address_zip,
	latitude, longitude, status, claimed_by, assigned_to, dispositioned_at,
	created_at, updated_at`

func scanLead(row pgx.Row) (Lead, error) {
	var l Lead
	err := row.Scan(
		&l.ID, &l.FirstName, &l.LastName, &l.Phone, &l.Email,
		&l.AddressStreet, &l.AddressCity, &l.AddressState, &l.AddressZip,
		&l.Latitude, &l.Longitude, &l.Status, &l.ClaimedBy, &l.AssignedTo, &l.DispositionedAt,
		&l.CreatedAt, &l.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return l, err
}

type CreateLeadParams struct {
	FirstName     string
	LastName      string
	Phone         string
	Email         *string
	AddressStreet string
	AddressCity   string
	AddressState  string
	AddressZip    string
	Latitude      *float64
	Longitude     *float64
}

// Create inserts an imported lead with the built-in unclaimed status.
func (r *Repository) Create(ctx context.Context, params CreateLeadParams) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `
		INSERT INTO leads (
			first_name, last_name, phone, email,
			address_street, address_city, address_state, address_zip,
			latitude, longitude, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 'unclaimed')
		RETURNING `+leadColumns,
		params.FirstName, params.LastName, params.Phone, params.Email,
		params.AddressStreet, params.AddressCity, params.AddressState, params.AddressZip,
		params.Latitude, params.Longitude,
	))
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE id = $1
	`, id))
}

// ListFilter narrows List results. Zero values mean no filtering.
type ListFilter struct {
	Status    string
	ClaimedBy *uuid.UUID
}

func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE ($1 = '' OR status = $1)
		  AND ($2::uuid IS NULL OR claimed_by = $2)
		ORDER BY created_at DESC
	`, filter.Status, filter.ClaimedBy)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := make([]Lead, 0)
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, l)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return leads, nil
}

// ListWithCoordinates returns all leads that carry a geocoded position.
// The territory engine runs its containment test over this set.
func (r *Repository) ListWithCoordinates(ctx context.Context) ([]Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE latitude IS NOT NULL AND longitude IS NOT NULL
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := make([]Lead, 0)
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, l)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return leads, nil
}

// ListRoutable returns the user's workable leads with coordinates: claimed by
// or assigned to the user and not terminal.
func (r *Repository) ListRoutable(ctx context.Context, userID uuid.UUID) ([]Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE latitude IS NOT NULL AND longitude IS NOT NULL
		  AND (claimed_by = $1 OR assigned_to = $1)
		ORDER BY created_at ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := make([]Lead, 0)
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, l)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return leads, nil
}

// Claim sets ownership iff the lead is unowned or already owned by the user.
// The conditional UPDATE is the authoritative resolution of concurrent claims.
func (r *Repository) Claim(ctx context.Context, id, userID uuid.UUID) (Lead, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx, `
		UPDATE leads
		SET status = 'claimed', claimed_by = $2, updated_at = now()
		WHERE id = $1 AND (claimed_by IS NULL OR claimed_by = $2)
		RETURNING `+leadColumns,
		id, userID,
	))
	if errors.Is(err, ErrNotFound) {
		// Distinguish a missing lead from a lost claim race.
		if _, getErr := r.GetByID(ctx, id); getErr == nil {
			return Lead{}, ErrClaimConflict
		}
		return Lead{}, ErrNotFound
	}
	return lead, err
}

// Unclaim releases ownership and directed assignment.
func (r *Repository) Unclaim(ctx context.Context, id uuid.UUID) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `
		UPDATE leads
		SET status = 'unclaimed', claimed_by = NULL, assigned_to = NULL, updated_at = now()
		WHERE id = $1
		RETURNING `+leadColumns,
		id,
	))
}

// SetAssigned records a manager-directed assignment. It deliberately leaves
// claimed_by untouched: directed routing bypasses the single-claim invariant.
func (r *Repository) SetAssigned(ctx context.Context, id uuid.UUID, assigneeID *uuid.UUID) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `
		UPDATE leads
		SET assigned_to = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+leadColumns,
		id, assigneeID,
	))
}

// UpdateCoordinates backfills a geocoded position.
func (r *Repository) UpdateCoordinates(ctx context.Context, id uuid.UUID, lat, lng float64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads SET latitude = $2, longitude = $3, updated_at = now() WHERE id = $1
	`, id, lat, lng)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListMissingCoordinates returns leads without a geocoded position, oldest first.
func (r *Repository) ListMissingCoordinates(ctx context.Context, limit int) ([]Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE latitude IS NULL OR longitude IS NULL
		ORDER BY created_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := make([]Lead, 0)
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, l)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return leads, nil
}
