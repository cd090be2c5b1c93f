package model

import (
	"time"
)

// DeviceToken is a recipient's registered push destination.
// Each recipient has at most one live token: a new registration from any of
// their devices overwrites the previous value (last write wins). A missing
// row means the recipient is currently unreachable and delivery is skipped.
type DeviceToken struct {
	OwnerID   int64     `db:"owner_id" json:"-"`
	Token     string    `db:"token" json:"-"` // push token, never exposed
	Platform  string    `db:"platform" json:"platform"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// RegisterTokenRequest is the request body for registering a device token.
type RegisterTokenRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"` // "ios", "android", "expo"
}

// Platform constants
const (
	PlatformIOS     = "ios"
	PlatformAndroid = "android"
	PlatformExpo    = "expo"
)
