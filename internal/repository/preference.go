package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type preferenceRepository struct {
	db *sqlx.DB
}

func NewPreferenceRepository(db *sqlx.DB) PreferenceRepository {
	return &preferenceRepository{db: db}
}

// Get returns the recipient's push opt-in flag. A recipient with no stored
// row defaults to enabled.
func (r *preferenceRepository) Get(ctx context.Context, ownerID int64) (bool, error) {
	query := `SELECT enabled FROM notification_prefs WHERE owner_id = $1`

	var enabled bool
	err := r.db.GetContext(ctx, &enabled, query, ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("get notification preference: %w", err)
	}
	return enabled, nil
}

// Set stores the recipient's push opt-in flag.
func (r *preferenceRepository) Set(ctx context.Context, ownerID int64, enabled bool) error {
	query := `
		INSERT INTO notification_prefs (owner_id, enabled, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (owner_id) DO UPDATE SET
			enabled = EXCLUDED.enabled,
			updated_at = NOW()
	`
	_, err := r.db.ExecContext(ctx, query, ownerID, enabled)
	if err != nil {
		return fmt.Errorf("set notification preference: %w", err)
	}
	return nil
}
