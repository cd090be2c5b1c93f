package scheduler

import (
	"context"
	"log"
	"sync"
	"time"
)

// Config controls when each reminder source fires.
type Config struct {
	// MedicationWindowStart and MedicationWindowEnd bound the hourly
	// medication run, inclusive, in local hours.
	MedicationWindowStart int
	MedicationWindowEnd   int

	// AppointmentHour is the local hour of the daily appointment run.
	AppointmentHour int
}

// Scheduler ticks once per hour, on the hour, and runs the matcher
// against whichever sources are due at that hour.
type Scheduler struct {
	matcher      *Matcher
	medications  Source
	appointments Source
	cfg          Config
	location     *time.Location

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewScheduler creates a new Scheduler.
func NewScheduler(matcher *Matcher, medications, appointments Source, cfg Config, loc *time.Location) *Scheduler {
	return &Scheduler{
		matcher:      matcher,
		medications:  medications,
		appointments: appointments,
		cfg:          cfg,
		location:     loc,
	}
}

// Start launches the scheduling loop in a goroutine. The first tick is
// aligned to the next top of the hour.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()

	log.Printf("[Scheduler] Started: medication window %02d:00-%02d:00, appointment run at %02d:00",
		s.cfg.MedicationWindowStart, s.cfg.MedicationWindowEnd, s.cfg.AppointmentHour)
}

// Stop cancels the loop and waits for any in-flight run to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	log.Printf("[Scheduler] Stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	for {
		now := time.Now().In(s.location)
		next := now.Truncate(time.Hour).Add(time.Hour)

		select {
		case <-ctx.Done():
			return
		case <-time.After(next.Sub(now)):
		}

		s.Tick(ctx, time.Now())
	}
}

// Tick runs the sources due at the given instant. Exposed so a run can
// be triggered directly, outside the hourly loop.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	hour := now.In(s.location).Hour()

	if hour >= s.cfg.MedicationWindowStart && hour <= s.cfg.MedicationWindowEnd {
		if err := s.matcher.Run(ctx, s.medications, now); err != nil {
			log.Printf("[Scheduler] Medication run failed: %v", err)
		}
	} else {
		log.Printf("[Scheduler] Hour %02d outside medication window, skipping", hour)
	}

	if hour == s.cfg.AppointmentHour {
		if err := s.matcher.Run(ctx, s.appointments, now); err != nil {
			log.Printf("[Scheduler] Appointment run failed: %v", err)
		}
	}
}
