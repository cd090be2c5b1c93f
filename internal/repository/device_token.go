package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"medremind/internal/model"
)

type deviceTokenRepository struct {
	db *sqlx.DB
}

func NewDeviceTokenRepository(db *sqlx.DB) DeviceTokenRepository {
	return &deviceTokenRepository{db: db}
}

// Upsert stores or replaces the recipient's device token.
// Conflict target is owner_id: one live token per recipient, last write wins.
func (r *deviceTokenRepository) Upsert(ctx context.Context, ownerID int64, token, platform string) error {
	query := `
		INSERT INTO device_tokens (owner_id, token, platform, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (owner_id) DO UPDATE SET
			token = EXCLUDED.token,
			platform = EXCLUDED.platform,
			updated_at = NOW()
	`
	_, err := r.db.ExecContext(ctx, query, ownerID, token, platform)
	if err != nil {
		return fmt.Errorf("upsert device token: %w", err)
	}
	return nil
}

// GetByOwner returns the recipient's token, or (nil, nil) when absent.
// Absence means "undeliverable, skip silently" for the caller.
func (r *deviceTokenRepository) GetByOwner(ctx context.Context, ownerID int64) (*model.DeviceToken, error) {
	query := `
		SELECT owner_id, token, platform, updated_at
		FROM device_tokens
		WHERE owner_id = $1
	`
	var tok model.DeviceToken
	err := r.db.GetContext(ctx, &tok, query, ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get device token: %w", err)
	}
	return &tok, nil
}

// Delete removes the recipient's token; deleting an absent row is a no-op.
func (r *deviceTokenRepository) Delete(ctx context.Context, ownerID int64) error {
	query := `DELETE FROM device_tokens WHERE owner_id = $1`
	_, err := r.db.ExecContext(ctx, query, ownerID)
	if err != nil {
		return fmt.Errorf("delete device token: %w", err)
	}
	return nil
}
