package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types for the reminder stream
const (
	EventAppointmentCreated  = "appointment_created"
	EventAppointmentCanceled = "appointment_canceled"
)

// Stream and consumer-group names
const (
	StreamReminders = "stream:reminders"

	ConsumerGroupNotify = "notify_workers"
)

// ReminderEvent is published when a recipient's appointment book changes.
// Workers turn these into immediate confirmation pushes, separate from the
// scheduled day-before reminders.
type ReminderEvent struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"` // Unix timestamp when event occurred

	OwnerID       int64  `json:"owner_id"`
	AppointmentID int64  `json:"appointment_id"`
	FacilityName  string `json:"facility_name"`
	ScheduledAt   int64  `json:"scheduled_at"` // Unix timestamp of the visit
}

// NewAppointmentCreatedEvent creates an event for a freshly booked visit.
func NewAppointmentCreatedEvent(ownerID, appointmentID int64, facilityName string, scheduledAt time.Time) ReminderEvent {
	return ReminderEvent{
		Type:          EventAppointmentCreated,
		Timestamp:     time.Now().Unix(),
		OwnerID:       ownerID,
		AppointmentID: appointmentID,
		FacilityName:  facilityName,
		ScheduledAt:   scheduledAt.Unix(),
	}
}

// NewAppointmentCanceledEvent creates an event for a canceled visit.
func NewAppointmentCanceledEvent(ownerID, appointmentID int64, facilityName string, scheduledAt time.Time) ReminderEvent {
	return ReminderEvent{
		Type:          EventAppointmentCanceled,
		Timestamp:     time.Now().Unix(),
		OwnerID:       ownerID,
		AppointmentID: appointmentID,
		FacilityName:  facilityName,
		ScheduledAt:   scheduledAt.Unix(),
	}
}

// ToMap converts the event to a map for Redis XADD. Streams store
// field-value pairs, so the event rides in a JSON "data" field.
func (e ReminderEvent) ToMap() (map[string]interface{}, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return map[string]interface{}{
		"type": e.Type,
		"data": string(data),
	}, nil
}

// ParseReminderEvent parses a ReminderEvent from stream message values.
func ParseReminderEvent(values map[string]interface{}) (ReminderEvent, error) {
	data, ok := values["data"].(string)
	if !ok {
		return ReminderEvent{}, fmt.Errorf("missing or invalid 'data' field")
	}

	var event ReminderEvent
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return ReminderEvent{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return event, nil
}
