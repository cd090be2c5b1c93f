package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"medremind/internal/model"
	"medremind/internal/repository"
)

// Deliverer sends outbound messages to a single recipient, honoring
// their notification preference and recording the outcome.
type Deliverer interface {
	DeliverToOwner(ctx context.Context, ownerID int64, msgs []model.OutboundMessage) error
}

// Source selects the reminders due at a given instant and renders them
// as outbound messages grouped by recipient.
type Source interface {
	// Name identifies the source in logs.
	Name() string
	// Collect returns the messages due at now, keyed by recipient.
	Collect(ctx context.Context, now time.Time) (map[int64][]model.OutboundMessage, error)
}

// Matcher runs a Source against the Deliverer. A failure for one
// recipient is logged and does not stop delivery to the rest.
type Matcher struct {
	deliverer Deliverer
}

// NewMatcher creates a new Matcher.
func NewMatcher(deliverer Deliverer) *Matcher {
	return &Matcher{deliverer: deliverer}
}

// Run collects due reminders from the source and delivers them.
// Returns an error only when the collection itself fails; individual
// delivery failures are logged per recipient.
func (m *Matcher) Run(ctx context.Context, src Source, now time.Time) error {
	startTime := time.Now()

	batches, err := src.Collect(ctx, now)
	if err != nil {
		log.Printf("[Matcher] Collect FAILED: source=%s err=%v", src.Name(), err)
		return fmt.Errorf("collect %s reminders: %w", src.Name(), err)
	}

	var failCount int
	for ownerID, msgs := range batches {
		if err := m.deliverer.DeliverToOwner(ctx, ownerID, msgs); err != nil {
			log.Printf("[Matcher] Deliver FAILED: source=%s owner=%d err=%v", src.Name(), ownerID, err)
			failCount++
		}
	}

	log.Printf("[Matcher] Run DONE: source=%s recipients=%d failed=%d duration=%v",
		src.Name(), len(batches), failCount, time.Since(startTime))
	return nil
}

// MedicationSource selects medication reminders whose hour set contains
// the current local hour.
type MedicationSource struct {
	repo     repository.MedicationReminderRepository
	location *time.Location
}

// NewMedicationSource creates a new MedicationSource.
func NewMedicationSource(repo repository.MedicationReminderRepository, loc *time.Location) *MedicationSource {
	return &MedicationSource{repo: repo, location: loc}
}

func (s *MedicationSource) Name() string { return "medication" }

// Collect matches on the zero-padded local hour string, so a reminder
// stored as "08" fires at 08:00 and never at 18:00.
func (s *MedicationSource) Collect(ctx context.Context, now time.Time) (map[int64][]model.OutboundMessage, error) {
	hour := now.In(s.location).Format("15")

	reminders, err := s.repo.DueAtHour(ctx, hour)
	if err != nil {
		return nil, err
	}

	batches := make(map[int64][]model.OutboundMessage)
	for _, rem := range reminders {
		body := fmt.Sprintf("Time to take %s.", rem.Name)
		if rem.Dose != "" {
			body = fmt.Sprintf("Time to take %s (%s).", rem.Name, rem.Dose)
		}
		batches[rem.OwnerID] = append(batches[rem.OwnerID], model.OutboundMessage{
			Title:     "Medication reminder",
			Body:      body,
			SourceRef: fmt.Sprintf("medication:%d", rem.ID),
			Data: map[string]string{
				"type":        "medication_reminder",
				"reminder_id": fmt.Sprintf("%d", rem.ID),
			},
		})
	}
	return batches, nil
}

// AppointmentSource selects appointments scheduled for tomorrow, using
// the half-open window [tomorrow 00:00, day after 00:00) in local time.
type AppointmentSource struct {
	repo     repository.AppointmentReminderRepository
	location *time.Location
}

// NewAppointmentSource creates a new AppointmentSource.
func NewAppointmentSource(repo repository.AppointmentReminderRepository, loc *time.Location) *AppointmentSource {
	return &AppointmentSource{repo: repo, location: loc}
}

func (s *AppointmentSource) Name() string { return "appointment" }

func (s *AppointmentSource) Collect(ctx context.Context, now time.Time) (map[int64][]model.OutboundMessage, error) {
	local := now.In(s.location)
	from := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, s.location)
	to := time.Date(local.Year(), local.Month(), local.Day()+2, 0, 0, 0, 0, s.location)

	reminders, err := s.repo.InWindow(ctx, from, to)
	if err != nil {
		return nil, err
	}

	batches := make(map[int64][]model.OutboundMessage)
	for _, rem := range reminders {
		at := rem.ScheduledAt.In(s.location)
		batches[rem.OwnerID] = append(batches[rem.OwnerID], model.OutboundMessage{
			Title:     "Appointment tomorrow",
			Body:      fmt.Sprintf("You have an appointment at %s tomorrow at %s.", rem.FacilityName, at.Format("15:04")),
			SourceRef: fmt.Sprintf("appointment:%d", rem.ID),
			Data: map[string]string{
				"type":           "appointment_reminder",
				"appointment_id": fmt.Sprintf("%d", rem.ID),
			},
		})
	}
	return batches, nil
}
