package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// HistoryEntry is one immutable disposition record. Entries are only ever
// inserted; reads return them newest first.
type HistoryEntry struct {
	ID                uuid.UUID
	LeadID            uuid.UUID
	Disposition       string
	CountsAsDoorKnock bool
	UserID            uuid.UUID
	UserName          string
	GPSLat            *float64
	GPSLng            *float64
	GPSAccuracyM      *float64
	DistanceFromAddrM *float64
	CreatedAt         time.Time
}

type CommitDispositionParams struct {
	LeadID            uuid.UUID
	Status            string
	CountsAsDoorKnock bool
	UserID            uuid.UUID
	UserName          string
	// ClaimTo, when set, becomes the lead's claimant as part of the commit.
	// Administrative overrides leave it nil.
	ClaimTo           *uuid.UUID
	GPSLat            *float64
	GPSLng            *float64
	GPSAccuracyM      *float64
	DistanceFromAddrM *float64
	// ScheduledRevisit, when set, records the go-back revisit in the same
	// transaction.
	ScheduledRevisit *time.Time
}

// CommitDisposition applies a disposition atomically: status update, history
// append, and optional revisit record in one transaction. The returned
// revisit id is uuid.Nil when no revisit was scheduled.
func (r *Repository) CommitDisposition(ctx context.Context, params CommitDispositionParams) (Lead, HistoryEntry, uuid.UUID, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Lead{}, HistoryEntry{}, uuid.Nil, err
	}
	defer tx.Rollback(ctx)

	lead, err := scanLead(tx.QueryRow(ctx, `
		UPDATE leads
		SET status = $2,
		    dispositioned_at = now(),
		    claimed_by = COALESCE($3, claimed_by),
		    updated_at = now()
		WHERE id = $1
		RETURNING `+leadColumns,
		params.LeadID, params.Status, params.ClaimTo,
	))
	if err != nil {
		return Lead{}, HistoryEntry{}, uuid.Nil, err
	}

	var entry HistoryEntry
	err = tx.QueryRow(ctx, `
		INSERT INTO disposition_history (
			lead_id, disposition, counts_as_door_knock, user_id, user_name,
			gps_lat, gps_lng, gps_accuracy_m, distance_from_address_m
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, lead_id, disposition, counts_as_door_knock, user_id, user_name,
			gps_lat, gps_lng, gps_accuracy_m, distance_from_address_m, created_at
	`,
		params.LeadID, params.Status, params.CountsAsDoorKnock, params.UserID, params.UserName,
		params.GPSLat, params.GPSLng, params.GPSAccuracyM, params.DistanceFromAddrM,
	).Scan(
		&entry.ID, &entry.LeadID, &entry.Disposition, &entry.CountsAsDoorKnock, &entry.UserID, &entry.UserName,
		&entry.GPSLat, &entry.GPSLng, &entry.GPSAccuracyM, &entry.DistanceFromAddrM, &entry.CreatedAt,
	)
	if err != nil {
		return Lead{}, HistoryEntry{}, uuid.Nil, err
	}

	revisitID := uuid.Nil
	if params.ScheduledRevisit != nil {
		err = tx.QueryRow(ctx, `
			INSERT INTO scheduled_revisits (lead_id, scheduled_for, created_by)
			VALUES ($1, $2, $3)
			RETURNING id
		`, params.LeadID, *params.ScheduledRevisit, params.UserID).Scan(&revisitID)
		if err != nil {
			return Lead{}, HistoryEntry{}, uuid.Nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Lead{}, HistoryEntry{}, uuid.Nil, err
	}

	return lead, entry, revisitID, nil
}

// ListHistory returns a lead's disposition history, newest first.
func (r *Repository) ListHistory(ctx context.Context, leadID uuid.UUID) ([]HistoryEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, disposition, counts_as_door_knock, user_id, user_name,
			gps_lat, gps_lng, gps_accuracy_m, distance_from_address_m, created_at
		FROM disposition_history
		WHERE lead_id = $1
		ORDER BY created_at DESC, id DESC
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []HistoryEntry
	for rows.Next() {
		var entry HistoryEntry
		if err := rows.Scan(
			&entry.ID, &entry.LeadID, &entry.Disposition, &entry.CountsAsDoorKnock, &entry.UserID, &entry.UserName,
			&entry.GPSLat, &entry.GPSLng, &entry.GPSAccuracyM, &entry.DistanceFromAddrM, &entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		history = append(history, entry)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return history, nil
}
