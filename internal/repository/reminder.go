package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"medremind/internal/model"
)

type medicationReminderRepository struct {
	db *sqlx.DB
}

func NewMedicationReminderRepository(db *sqlx.DB) MedicationReminderRepository {
	return &medicationReminderRepository{db: db}
}

func (r *medicationReminderRepository) Create(ctx context.Context, rem *model.MedicationReminder) error {
	query := `
		INSERT INTO medication_reminders (owner_id, name, dose, hours, enabled)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		rem.OwnerID, rem.Name, rem.Dose, rem.Hours, rem.Enabled,
	).Scan(&rem.ID, &rem.CreatedAt, &rem.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert medication reminder: %w", err)
	}
	return nil
}

func (r *medicationReminderRepository) Update(ctx context.Context, rem *model.MedicationReminder) error {
	query := `
		UPDATE medication_reminders
		SET name = $1, dose = $2, hours = $3, enabled = $4, updated_at = NOW()
		WHERE id = $5 AND owner_id = $6
	`
	res, err := r.db.ExecContext(ctx, query,
		rem.Name, rem.Dose, rem.Hours, rem.Enabled, rem.ID, rem.OwnerID)
	if err != nil {
		return fmt.Errorf("update medication reminder: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update medication reminder: %w", err)
	}
	if affected == 0 {
		return model.ErrReminderNotFound
	}
	return nil
}

func (r *medicationReminderRepository) Delete(ctx context.Context, ownerID, id int64) error {
	query := `DELETE FROM medication_reminders WHERE id = $1 AND owner_id = $2`
	res, err := r.db.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete medication reminder: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete medication reminder: %w", err)
	}
	if affected == 0 {
		return model.ErrReminderNotFound
	}
	return nil
}

func (r *medicationReminderRepository) GetByID(ctx context.Context, ownerID, id int64) (*model.MedicationReminder, error) {
	query := `
		SELECT id, owner_id, name, dose, hours, enabled, created_at, updated_at
		FROM medication_reminders
		WHERE id = $1 AND owner_id = $2
	`
	var rem model.MedicationReminder
	err := r.db.GetContext(ctx, &rem, query, id, ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrReminderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get medication reminder: %w", err)
	}
	return &rem, nil
}

func (r *medicationReminderRepository) ListByOwner(ctx context.Context, ownerID int64) ([]model.MedicationReminder, error) {
	query := `
		SELECT id, owner_id, name, dose, hours, enabled, created_at, updated_at
		FROM medication_reminders
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`
	var rems []model.MedicationReminder
	err := r.db.SelectContext(ctx, &rems, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list medication reminders: %w", err)
	}
	return rems, nil
}

// DueAtHour returns all enabled reminders due at the given local hour.
// hour is a zero-padded "HH" string; the hours column is a text[] of those.
func (r *medicationReminderRepository) DueAtHour(ctx context.Context, hour string) ([]model.MedicationReminder, error) {
	query := `
		SELECT id, owner_id, name, dose, hours, enabled, created_at, updated_at
		FROM medication_reminders
		WHERE enabled = true AND $1 = ANY(hours)
	`
	var rems []model.MedicationReminder
	err := r.db.SelectContext(ctx, &rems, query, hour)
	if err != nil {
		return nil, fmt.Errorf("select due medication reminders: %w", err)
	}
	return rems, nil
}

type appointmentReminderRepository struct {
	db *sqlx.DB
}

func NewAppointmentReminderRepository(db *sqlx.DB) AppointmentReminderRepository {
	return &appointmentReminderRepository{db: db}
}

func (r *appointmentReminderRepository) Create(ctx context.Context, rem *model.AppointmentReminder) error {
	query := `
		INSERT INTO appointment_reminders (owner_id, facility_name, scheduled_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		rem.OwnerID, rem.FacilityName, rem.ScheduledAt,
	).Scan(&rem.ID, &rem.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert appointment reminder: %w", err)
	}
	return nil
}

func (r *appointmentReminderRepository) Delete(ctx context.Context, ownerID, id int64) error {
	query := `DELETE FROM appointment_reminders WHERE id = $1 AND owner_id = $2`
	res, err := r.db.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete appointment reminder: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete appointment reminder: %w", err)
	}
	if affected == 0 {
		return model.ErrReminderNotFound
	}
	return nil
}

func (r *appointmentReminderRepository) GetByID(ctx context.Context, ownerID, id int64) (*model.AppointmentReminder, error) {
	query := `
		SELECT id, owner_id, facility_name, scheduled_at, created_at
		FROM appointment_reminders
		WHERE id = $1 AND owner_id = $2
	`
	var rem model.AppointmentReminder
	err := r.db.GetContext(ctx, &rem, query, id, ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrReminderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get appointment reminder: %w", err)
	}
	return &rem, nil
}

func (r *appointmentReminderRepository) ListByOwner(ctx context.Context, ownerID int64) ([]model.AppointmentReminder, error) {
	query := `
		SELECT id, owner_id, facility_name, scheduled_at, created_at
		FROM appointment_reminders
		WHERE owner_id = $1
		ORDER BY scheduled_at ASC
	`
	var rems []model.AppointmentReminder
	err := r.db.SelectContext(ctx, &rems, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list appointment reminders: %w", err)
	}
	return rems, nil
}

// InWindow returns all appointments scheduled in [from, to).
func (r *appointmentReminderRepository) InWindow(ctx context.Context, from, to time.Time) ([]model.AppointmentReminder, error) {
	query := `
		SELECT id, owner_id, facility_name, scheduled_at, created_at
		FROM appointment_reminders
		WHERE scheduled_at >= $1 AND scheduled_at < $2
	`
	var rems []model.AppointmentReminder
	err := r.db.SelectContext(ctx, &rems, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("select appointments in window: %w", err)
	}
	return rems, nil
}
