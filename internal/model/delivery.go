package model

import (
	"errors"
	"time"
)

// DeliveryRecord is one entry in the delivery ledger: a single push attempt
// to a single recipient. Records are written exactly once per attempt,
// success or failure, and are immutable afterwards except for the Read flag,
// which only the owning recipient may flip.
type DeliveryRecord struct {
	ID        int64     `db:"id" json:"id"`
	OwnerID   int64     `db:"owner_id" json:"-"`
	Title     string    `db:"title" json:"title"`
	Content   string    `db:"content" json:"content"`
	SourceRef string    `db:"source_ref" json:"source_ref"` // e.g. "medication:12", "appointment:7"
	Success   bool      `db:"success" json:"success"`
	Read      bool      `db:"read" json:"read"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// OutboundMessage is a push message built from a matched reminder, ready for
// the dispatcher. Data is the structured payload forwarded to the client app.
type OutboundMessage struct {
	Title     string
	Body      string
	SourceRef string
	Data      map[string]string
}

// DeliveryListResponse is the paginated ledger response.
type DeliveryListResponse struct {
	Records     []DeliveryRecord `json:"records"`
	UnreadCount int              `json:"unread_count"`
}

var (
	// ErrRecordNotFound is returned when a ledger record does not exist or
	// belongs to a different recipient.
	ErrRecordNotFound = errors.New("delivery record not found")
)
