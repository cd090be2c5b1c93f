package model

import (
	"errors"
	"time"

	"github.com/lib/pq"
)

// MedicationReminder is a recurring reminder for a medication intake.
// Hours holds zero-padded local hour strings ("08", "15"); the hourly matcher
// fires for every reminder whose Hours set contains the current hour.
// All hours are interpreted in the application's single fixed timezone.
type MedicationReminder struct {
	ID        int64          `db:"id" json:"id"`
	OwnerID   int64          `db:"owner_id" json:"-"`
	Name      string         `db:"name" json:"name"`
	Dose      string         `db:"dose" json:"dose"`
	Hours     pq.StringArray `db:"hours" json:"hours"`
	Enabled   bool           `db:"enabled" json:"enabled"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// AppointmentReminder is a one-shot reminder for a facility visit.
// The daily matcher selects appointments scheduled inside the half-open
// window [tomorrow 00:00, day after 00:00).
type AppointmentReminder struct {
	ID           int64     `db:"id" json:"id"`
	OwnerID      int64     `db:"owner_id" json:"-"`
	FacilityName string    `db:"facility_name" json:"facility_name"`
	ScheduledAt  time.Time `db:"scheduled_at" json:"scheduled_at"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// CreateMedicationRequest is the request body for creating a medication reminder.
type CreateMedicationRequest struct {
	Name  string   `json:"name"`
	Dose  string   `json:"dose"`
	Hours []string `json:"hours"`
}

// UpdateMedicationRequest is the request body for editing a medication reminder.
// Nil fields are left unchanged.
type UpdateMedicationRequest struct {
	Name    *string   `json:"name"`
	Dose    *string   `json:"dose"`
	Hours   *[]string `json:"hours"`
	Enabled *bool     `json:"enabled"`
}

// CreateAppointmentRequest is the request body for creating an appointment reminder.
type CreateAppointmentRequest struct {
	FacilityName string    `json:"facility_name"`
	ScheduledAt  time.Time `json:"scheduled_at"`
}

var (
	// ErrReminderNotFound is returned when a reminder does not exist or
	// belongs to a different recipient.
	ErrReminderNotFound = errors.New("reminder not found")

	// ErrInvalidHour is returned when a medication hour is not a zero-padded
	// "HH" string in the 00-23 range.
	ErrInvalidHour = errors.New("invalid reminder hour")
)
