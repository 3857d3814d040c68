package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/automas/booking-engine/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const handoffColumns = `id, session_id, name, version, payload, encrypted, consumed, consumed_at, created_at, updated_at`

// HandoffRepository stores the envelopes carried across the payment gateway redirect
type HandoffRepository struct {
	db *sqlx.DB
}

// NewHandoffRepository creates a new handoff repository
func NewHandoffRepository(db *sqlx.DB) *HandoffRepository {
	return &HandoffRepository{db: db}
}

// Upsert writes the record for (sessionID, name). An existing record is overwritten,
// never merged: its version is bumped and its consumed flag cleared.
func (r *HandoffRepository) Upsert(ctx context.Context, sessionID string, name models.HandoffRecordName, payload []byte, encrypted bool) (*models.HandoffEnvelope, error) {
	query := `
		INSERT INTO handoff_envelopes (
			id, session_id, name, version, payload, encrypted,
			consumed, consumed_at, created_at, updated_at
		) VALUES ($1, $2, $3, 1, $4, $5, FALSE, NULL, $6, $6)
		ON CONFLICT (session_id, name) DO UPDATE SET
			payload = EXCLUDED.payload,
			encrypted = EXCLUDED.encrypted,
			version = handoff_envelopes.version + 1,
			consumed = FALSE,
			consumed_at = NULL,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + handoffColumns

	var env models.HandoffEnvelope
	err := r.db.GetContext(ctx, &env, query, uuid.New(), sessionID, name, payload, encrypted, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to write handoff envelope: %w", err)
	}
	return &env, nil
}

// FindActive returns the unconsumed record for (sessionID, name), or nil when there is none
func (r *HandoffRepository) FindActive(ctx context.Context, sessionID string, name models.HandoffRecordName) (*models.HandoffEnvelope, error) {
	query := `
		SELECT ` + handoffColumns + `
		FROM handoff_envelopes
		WHERE session_id = $1 AND name = $2 AND consumed = FALSE`

	var env models.HandoffEnvelope
	err := r.db.GetContext(ctx, &env, query, sessionID, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read handoff envelope: %w", err)
	}
	return &env, nil
}

// Find returns the record for (sessionID, name) whether or not it was consumed, or nil
func (r *HandoffRepository) Find(ctx context.Context, sessionID string, name models.HandoffRecordName) (*models.HandoffEnvelope, error) {
	query := `
		SELECT ` + handoffColumns + `
		FROM handoff_envelopes
		WHERE session_id = $1 AND name = $2`

	var env models.HandoffEnvelope
	err := r.db.GetContext(ctx, &env, query, sessionID, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read handoff envelope: %w", err)
	}
	return &env, nil
}

// MarkConsumed consumes the record only if it still has the given version.
// It reports false when a newer write or another consumer got there first.
func (r *HandoffRepository) MarkConsumed(ctx context.Context, id uuid.UUID, version int) (bool, error) {
	query := `
		UPDATE handoff_envelopes
		SET consumed = TRUE, consumed_at = $1
		WHERE id = $2 AND version = $3 AND consumed = FALSE`

	result, err := r.db.ExecContext(ctx, query, time.Now(), id, version)
	if err != nil {
		return false, fmt.Errorf("failed to consume handoff envelope: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to consume handoff envelope: %w", err)
	}
	return rows == 1, nil
}

// PurgeStale deletes consumed records older than consumedBefore and any record
// not written since staleBefore
func (r *HandoffRepository) PurgeStale(ctx context.Context, consumedBefore, staleBefore time.Time) (int64, error) {
	query := `
		DELETE FROM handoff_envelopes
		WHERE (consumed = TRUE AND consumed_at < $1) OR updated_at < $2`

	result, err := r.db.ExecContext(ctx, query, consumedBefore, staleBefore)
	if err != nil {
		return 0, fmt.Errorf("failed to purge handoff envelopes: %w", err)
	}
	return result.RowsAffected()
}
