package tracking

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists position samples for audit. The hot path reads from
// the in-memory store; rows here are write-mostly.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, userID uuid.UUID, lat, lng, accuracyM float64, recordedAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO position_samples (user_id, latitude, longitude, accuracy_m, recorded_at)
		VALUES ($1, $2, $3, $4, $5)`,
		userID, lat, lng, accuracyM, recordedAt,
	)
	return err
}
