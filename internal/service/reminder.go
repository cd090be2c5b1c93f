package service

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/lib/pq"

	"medremind/internal/model"
	"medremind/internal/queue"
	"medremind/internal/repository"
)

// ReminderService manages medication and appointment reminders.
// Appointment changes are published to the reminder stream so the
// worker pool can push a confirmation asynchronously.
type ReminderService struct {
	medications  repository.MedicationReminderRepository
	appointments repository.AppointmentReminderRepository
	publisher    queue.Publisher // can be nil, events are then skipped
}

// NewReminderService creates a new ReminderService.
func NewReminderService(
	medications repository.MedicationReminderRepository,
	appointments repository.AppointmentReminderRepository,
	publisher queue.Publisher,
) *ReminderService {
	return &ReminderService{
		medications:  medications,
		appointments: appointments,
		publisher:    publisher,
	}
}

// CreateMedication validates and stores a new medication reminder.
// New reminders start enabled.
func (s *ReminderService) CreateMedication(ctx context.Context, ownerID int64, req *model.CreateMedicationRequest) (*model.MedicationReminder, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("medication name is required")
	}
	if len(req.Hours) == 0 {
		return nil, fmt.Errorf("at least one reminder hour is required")
	}
	hours, err := normalizeHours(req.Hours)
	if err != nil {
		return nil, err
	}

	rem := &model.MedicationReminder{
		OwnerID: ownerID,
		Name:    req.Name,
		Dose:    req.Dose,
		Hours:   hours,
		Enabled: true,
	}
	if err := s.medications.Create(ctx, rem); err != nil {
		log.Printf("[ReminderService] CreateMedication FAILED: owner=%d err=%v", ownerID, err)
		return nil, fmt.Errorf("create medication reminder: %w", err)
	}

	log.Printf("[ReminderService] CreateMedication OK: owner=%d id=%d hours=%v", ownerID, rem.ID, rem.Hours)
	return rem, nil
}

// UpdateMedication applies a partial update to an existing reminder.
func (s *ReminderService) UpdateMedication(ctx context.Context, ownerID, id int64, req *model.UpdateMedicationRequest) (*model.MedicationReminder, error) {
	rem, err := s.medications.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if *req.Name == "" {
			return nil, fmt.Errorf("medication name is required")
		}
		rem.Name = *req.Name
	}
	if req.Dose != nil {
		rem.Dose = *req.Dose
	}
	if req.Hours != nil {
		if len(*req.Hours) == 0 {
			return nil, fmt.Errorf("at least one reminder hour is required")
		}
		hours, err := normalizeHours(*req.Hours)
		if err != nil {
			return nil, err
		}
		rem.Hours = hours
	}
	if req.Enabled != nil {
		rem.Enabled = *req.Enabled
	}

	if err := s.medications.Update(ctx, rem); err != nil {
		log.Printf("[ReminderService] UpdateMedication FAILED: owner=%d id=%d err=%v", ownerID, id, err)
		return nil, fmt.Errorf("update medication reminder: %w", err)
	}

	log.Printf("[ReminderService] UpdateMedication OK: owner=%d id=%d", ownerID, id)
	return rem, nil
}

// DeleteMedication removes a medication reminder.
func (s *ReminderService) DeleteMedication(ctx context.Context, ownerID, id int64) error {
	if err := s.medications.Delete(ctx, ownerID, id); err != nil {
		return err
	}
	log.Printf("[ReminderService] DeleteMedication OK: owner=%d id=%d", ownerID, id)
	return nil
}

// ListMedications returns all of the recipient's medication reminders.
func (s *ReminderService) ListMedications(ctx context.Context, ownerID int64) ([]model.MedicationReminder, error) {
	return s.medications.ListByOwner(ctx, ownerID)
}

// CreateAppointment stores a new appointment reminder and publishes a
// confirmation event. Publish failure is logged but does not fail the
// booking, the appointment is already durable at that point.
func (s *ReminderService) CreateAppointment(ctx context.Context, ownerID int64, req *model.CreateAppointmentRequest) (*model.AppointmentReminder, error) {
	if req.FacilityName == "" {
		return nil, fmt.Errorf("facility name is required")
	}
	if req.ScheduledAt.IsZero() {
		return nil, fmt.Errorf("scheduled time is required")
	}

	rem := &model.AppointmentReminder{
		OwnerID:      ownerID,
		FacilityName: req.FacilityName,
		ScheduledAt:  req.ScheduledAt,
	}
	if err := s.appointments.Create(ctx, rem); err != nil {
		log.Printf("[ReminderService] CreateAppointment FAILED: owner=%d err=%v", ownerID, err)
		return nil, fmt.Errorf("create appointment reminder: %w", err)
	}

	if s.publisher != nil {
		event := queue.NewAppointmentCreatedEvent(ownerID, rem.ID, rem.FacilityName, rem.ScheduledAt)
		if _, err := s.publisher.Publish(ctx, queue.StreamReminders, event); err != nil {
			log.Printf("[ReminderService] CreateAppointment: publish event failed: %v", err)
		}
	}

	log.Printf("[ReminderService] CreateAppointment OK: owner=%d id=%d at=%s", ownerID, rem.ID, rem.ScheduledAt)
	return rem, nil
}

// CancelAppointment deletes an appointment reminder and publishes a
// cancellation event.
func (s *ReminderService) CancelAppointment(ctx context.Context, ownerID, id int64) error {
	rem, err := s.appointments.GetByID(ctx, ownerID, id)
	if err != nil {
		return err
	}

	if err := s.appointments.Delete(ctx, ownerID, id); err != nil {
		return err
	}

	if s.publisher != nil {
		event := queue.NewAppointmentCanceledEvent(ownerID, rem.ID, rem.FacilityName, rem.ScheduledAt)
		if _, err := s.publisher.Publish(ctx, queue.StreamReminders, event); err != nil {
			log.Printf("[ReminderService] CancelAppointment: publish event failed: %v", err)
		}
	}

	log.Printf("[ReminderService] CancelAppointment OK: owner=%d id=%d", ownerID, id)
	return nil
}

// ListAppointments returns all of the recipient's appointment reminders.
func (s *ReminderService) ListAppointments(ctx context.Context, ownerID int64) ([]model.AppointmentReminder, error) {
	return s.appointments.ListByOwner(ctx, ownerID)
}

// normalizeHours validates hour strings and returns them zero-padded.
// Accepts "8" or "08"; anything outside 0-23 is rejected.
func normalizeHours(hours []string) (pq.StringArray, error) {
	seen := make(map[string]bool, len(hours))
	out := make(pq.StringArray, 0, len(hours))
	for _, h := range hours {
		n, err := strconv.Atoi(h)
		if err != nil || n < 0 || n > 23 {
			return nil, fmt.Errorf("%w: %q", model.ErrInvalidHour, h)
		}
		padded := fmt.Sprintf("%02d", n)
		if seen[padded] {
			continue
		}
		seen[padded] = true
		out = append(out, padded)
	}
	return out, nil
}
