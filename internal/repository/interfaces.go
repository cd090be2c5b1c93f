package repository

import (
	"context"
	"time"

	"medremind/internal/model"
)

type DeviceTokenRepository interface {
	// Upsert stores the recipient's token, overwriting any previous one.
	// Last write wins: a recipient has at most one live token.
	Upsert(ctx context.Context, ownerID int64, token, platform string) error
	// GetByOwner returns the recipient's token, or (nil, nil) if none is
	// registered.
	GetByOwner(ctx context.Context, ownerID int64) (*model.DeviceToken, error)
	// Delete removes the recipient's token. Deleting an absent token is a
	// no-op, not an error.
	Delete(ctx context.Context, ownerID int64) error
}

type PreferenceRepository interface {
	// Get returns the recipient's push opt-in flag; absent rows read as
	// enabled.
	Get(ctx context.Context, ownerID int64) (bool, error)
	// Set stores the recipient's push opt-in flag.
	Set(ctx context.Context, ownerID int64, enabled bool) error
}

type DeliveryRepository interface {
	// Append inserts one ledger record and returns its ID. Called only by
	// the dispatcher, synchronously with each push attempt.
	Append(ctx context.Context, rec *model.DeliveryRecord) (int64, error)
	// ListByOwner returns the recipient's records, newest first.
	ListByOwner(ctx context.Context, ownerID int64, limit int) ([]model.DeliveryRecord, error)
	// MarkRead flips the read flag on one record owned by the recipient.
	MarkRead(ctx context.Context, ownerID, recordID int64) error
	// MarkAllRead flips the read flag on all of the recipient's records.
	MarkAllRead(ctx context.Context, ownerID int64) (int64, error)
	// UnreadCount returns the number of unread records for the recipient.
	UnreadCount(ctx context.Context, ownerID int64) (int, error)
}

type MedicationReminderRepository interface {
	Create(ctx context.Context, rem *model.MedicationReminder) error
	Update(ctx context.Context, rem *model.MedicationReminder) error
	Delete(ctx context.Context, ownerID, id int64) error
	GetByID(ctx context.Context, ownerID, id int64) (*model.MedicationReminder, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]model.MedicationReminder, error)
	// DueAtHour returns all enabled reminders whose hour set contains the
	// given zero-padded local hour string.
	DueAtHour(ctx context.Context, hour string) ([]model.MedicationReminder, error)
}

type AppointmentReminderRepository interface {
	Create(ctx context.Context, rem *model.AppointmentReminder) error
	Delete(ctx context.Context, ownerID, id int64) error
	GetByID(ctx context.Context, ownerID, id int64) (*model.AppointmentReminder, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]model.AppointmentReminder, error)
	// InWindow returns all appointments scheduled in the half-open window
	// [from, to).
	InWindow(ctx context.Context, from, to time.Time) ([]model.AppointmentReminder, error)
}
