package model

import "time"

// NotificationPreference is a recipient's push opt-in flag.
// A recipient with no stored row is treated as enabled; disabling suppresses
// dispatch entirely for that recipient, with no ledger trace.
type NotificationPreference struct {
	OwnerID   int64     `db:"owner_id" json:"-"`
	Enabled   bool      `db:"enabled" json:"enabled"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// UpdatePreferenceRequest is the request body for setting the preference.
type UpdatePreferenceRequest struct {
	Enabled *bool `json:"enabled"`
}
