package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"medremind/internal/model"
	"medremind/internal/queue"
)

// Deliverer sends outbound messages to a single recipient, honoring
// their notification preference and recording the outcome.
type Deliverer interface {
	DeliverToOwner(ctx context.Context, ownerID int64, msgs []model.OutboundMessage) error
}

// Handler processes reminder events from the queue.
type Handler struct {
	deliverer Deliverer
	location  *time.Location
}

// NewHandler creates a new event handler. Event timestamps are
// formatted for display in the given location.
func NewHandler(deliverer Deliverer, loc *time.Location) *Handler {
	return &Handler{deliverer: deliverer, location: loc}
}

// HandleEvent routes an event to the appropriate handler based on type.
func (h *Handler) HandleEvent(ctx context.Context, event queue.ReminderEvent) error {
	startTime := time.Now()
	var err error

	switch event.Type {
	case queue.EventAppointmentCreated:
		err = h.handleAppointmentCreated(ctx, event)
	case queue.EventAppointmentCanceled:
		err = h.handleAppointmentCanceled(ctx, event)
	default:
		log.Printf("[Worker] Unknown event type: %s", event.Type)
		return fmt.Errorf("unknown event type: %s", event.Type)
	}

	if err != nil {
		log.Printf("[Worker] HandleEvent FAILED: type=%s duration=%v err=%v",
			event.Type, time.Since(startTime), err)
		return err
	}

	log.Printf("[Worker] HandleEvent OK: type=%s duration=%v", event.Type, time.Since(startTime))
	return nil
}

// handleAppointmentCreated sends a booking confirmation push to the
// appointment owner.
func (h *Handler) handleAppointmentCreated(ctx context.Context, event queue.ReminderEvent) error {
	log.Printf("[Worker] AppointmentCreated: appointment=%d owner=%d", event.AppointmentID, event.OwnerID)

	msg := model.OutboundMessage{
		Title:     "Appointment booked",
		Body:      fmt.Sprintf("Your appointment at %s on %s is confirmed.", event.FacilityName, h.formatTime(event.ScheduledAt)),
		SourceRef: fmt.Sprintf("appointment:%d", event.AppointmentID),
		Data: map[string]string{
			"type":           "appointment_confirmation",
			"appointment_id": fmt.Sprintf("%d", event.AppointmentID),
		},
	}

	if err := h.deliverer.DeliverToOwner(ctx, event.OwnerID, []model.OutboundMessage{msg}); err != nil {
		return fmt.Errorf("deliver confirmation: %w", err)
	}
	return nil
}

// handleAppointmentCanceled sends a cancellation notice to the owner.
func (h *Handler) handleAppointmentCanceled(ctx context.Context, event queue.ReminderEvent) error {
	log.Printf("[Worker] AppointmentCanceled: appointment=%d owner=%d", event.AppointmentID, event.OwnerID)

	msg := model.OutboundMessage{
		Title:     "Appointment canceled",
		Body:      fmt.Sprintf("Your appointment at %s on %s has been canceled.", event.FacilityName, h.formatTime(event.ScheduledAt)),
		SourceRef: fmt.Sprintf("appointment:%d", event.AppointmentID),
		Data: map[string]string{
			"type":           "appointment_cancellation",
			"appointment_id": fmt.Sprintf("%d", event.AppointmentID),
		},
	}

	if err := h.deliverer.DeliverToOwner(ctx, event.OwnerID, []model.OutboundMessage{msg}); err != nil {
		return fmt.Errorf("deliver cancellation: %w", err)
	}
	return nil
}

func (h *Handler) formatTime(unix int64) string {
	t := time.Unix(unix, 0)
	if h.location != nil {
		t = t.In(h.location)
	}
	return t.Format("02/01/2006 15:04")
}
