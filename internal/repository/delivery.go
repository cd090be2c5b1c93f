package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"medremind/internal/model"
)

type deliveryRepository struct {
	db *sqlx.DB
}

func NewDeliveryRepository(db *sqlx.DB) DeliveryRepository {
	return &deliveryRepository{db: db}
}

// Append inserts one ledger record and returns its ID.
// The ledger is append-only: no delete, no bulk update, and no mutation
// afterwards except the read flag.
func (r *deliveryRepository) Append(ctx context.Context, rec *model.DeliveryRecord) (int64, error) {
	query := `
		INSERT INTO delivery_records (owner_id, title, content, source_ref, success)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		rec.OwnerID, rec.Title, rec.Content, rec.SourceRef, rec.Success,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("append delivery record: %w", err)
	}
	return rec.ID, nil
}

// ListByOwner returns the recipient's records, newest first.
func (r *deliveryRepository) ListByOwner(ctx context.Context, ownerID int64, limit int) ([]model.DeliveryRecord, error) {
	query := `
		SELECT id, owner_id, title, content, source_ref, success, read, created_at
		FROM delivery_records
		WHERE owner_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	var records []model.DeliveryRecord
	err := r.db.SelectContext(ctx, &records, query, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list delivery records: %w", err)
	}
	return records, nil
}

// MarkRead flips the read flag on a single record. The owner scope in the
// WHERE clause is what stops a recipient from touching someone else's record.
func (r *deliveryRepository) MarkRead(ctx context.Context, ownerID, recordID int64) error {
	query := `
		UPDATE delivery_records
		SET read = true
		WHERE id = $1 AND owner_id = $2
	`
	res, err := r.db.ExecContext(ctx, query, recordID, ownerID)
	if err != nil {
		return fmt.Errorf("mark delivery record read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark delivery record read: %w", err)
	}
	if affected == 0 {
		return model.ErrRecordNotFound
	}
	return nil
}

// MarkAllRead flips the read flag on all of the recipient's unread records.
func (r *deliveryRepository) MarkAllRead(ctx context.Context, ownerID int64) (int64, error) {
	query := `
		UPDATE delivery_records
		SET read = true
		WHERE owner_id = $1 AND read = false
	`
	res, err := r.db.ExecContext(ctx, query, ownerID)
	if err != nil {
		return 0, fmt.Errorf("mark all delivery records read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark all delivery records read: %w", err)
	}
	return affected, nil
}

// UnreadCount returns the number of unread records for the recipient.
func (r *deliveryRepository) UnreadCount(ctx context.Context, ownerID int64) (int, error) {
	query := `
		SELECT COUNT(*) FROM delivery_records
		WHERE owner_id = $1 AND read = false
	`
	var count int
	err := r.db.GetContext(ctx, &count, query, ownerID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("get unread count: %w", err)
	}
	return count, nil
}
