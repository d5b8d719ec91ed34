package scheduling

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mediflow/clinic-platform/internal/observability/metrics"
	"github.com/mediflow/clinic-platform/pkg/logging"
)

// SyntheticSlotPrefix marks availability slot ids that were generated from
// the default template rather than persisted as DoctorTiming rows.
const SyntheticSlotPrefix = "default-"

// Service resolves availability and books appointments.
type Service struct {
	repo    *Repository
	metrics *metrics.SchedulingMetrics
	logger  *logging.Logger
	now     func() time.Time
}

// NewService constructs a scheduling service. metrics may be nil.
func NewService(repo *Repository, m *metrics.SchedulingMetrics, logger *logging.Logger) *Service {
	if repo == nil {
		panic("scheduling: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, metrics: m, logger: logger, now: time.Now}
}

// Availability returns the bookable slots for a doctor-day, ascending by
// start. Override rows for the day win outright; otherwise the default
// template minus conflicting appointments is used, and for today's date
// slots that already started are dropped.
func (s *Service) Availability(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]TimeSlot, error) {
	exists, err := s.repo.DoctorExists(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrDoctorNotFound
	}

	started := s.now()
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	timings, err := s.repo.ListTimingsForDay(ctx, doctorID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	if len(timings) > 0 {
		// Override mode: only persisted rows count. No template fallback
		// even when every override is booked.
		out := []TimeSlot{}
		for _, t := range timings {
			if t.IsBooked {
				continue
			}
			out = append(out, TimeSlot{
				ID:        t.ID.String(),
				DoctorID:  t.DoctorID,
				StartTime: t.StartTime,
				EndTime:   t.EndTime,
			})
		}
		s.metrics.ObserveAvailabilityLatency("override", time.Since(started).Seconds())
		return out, nil
	}

	appointments, err := s.repo.ListActiveAppointments(ctx, doctorID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}

	now := s.now()
	isToday := !now.Before(dayStart) && now.Before(dayEnd)

	out := []TimeSlot{}
	for _, slot := range GenerateDefaultSlots(date) {
		if slotConflicts(slot, appointments) {
			continue
		}
		if isToday && !slot.StartTime.After(now) {
			continue
		}
		slot.ID = fmt.Sprintf("%s%d", SyntheticSlotPrefix, slot.StartTime.UnixMilli())
		slot.DoctorID = doctorID
		out = append(out, slot)
	}
	s.metrics.ObserveAvailabilityLatency("default", time.Since(started).Seconds())
	return out, nil
}

func slotConflicts(slot TimeSlot, appointments []Appointment) bool {
	for _, a := range appointments {
		if overlaps(slot.StartTime, slot.EndTime, a.ScheduledAt, a.End()) {
			return true
		}
	}
	return false
}

// BookRequest is a patient's request to book a doctor.
type BookRequest struct {
	DoctorID        uuid.UUID `json:"doctor_id"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	DurationMinutes int       `json:"duration"`
	TimingID        string    `json:"timing_id"`
}

// Book validates and creates an appointment. A TimingID without the
// synthetic prefix routes through override-slot claiming; anything else
// goes through the default-mode overlap check.
func (s *Service) Book(ctx context.Context, patientID uuid.UUID, req BookRequest) (*Appointment, error) {
	if req.DoctorID == uuid.Nil || req.ScheduledAt.IsZero() {
		return nil, ErrMissingFields
	}
	duration := req.DurationMinutes
	if duration <= 0 {
		duration = DefaultSlotMinutes
	}

	exists, err := s.repo.DoctorExists(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}
	if !exists {
		s.metrics.ObserveBooking("unknown", "not_found")
		return nil, ErrDoctorNotFound
	}

	if req.TimingID != "" && !strings.HasPrefix(req.TimingID, SyntheticSlotPrefix) {
		return s.bookOverride(ctx, patientID, req, duration)
	}
	return s.bookDefault(ctx, patientID, req, duration)
}

// bookOverride claims the named DoctorTiming row and creates the
// appointment in one transaction: both happen or neither does.
func (s *Service) bookOverride(ctx context.Context, patientID uuid.UUID, req BookRequest, duration int) (*Appointment, error) {
	timingID, err := uuid.Parse(req.TimingID)
	if err != nil {
		s.metrics.ObserveBooking("override", "not_found")
		return nil, ErrTimingNotFound
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("scheduling: begin booking tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	claimed, err := s.repo.ClaimTiming(ctx, tx, timingID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		if _, err := s.repo.GetTiming(ctx, tx, timingID); err != nil {
			s.metrics.ObserveBooking("override", "not_found")
			return nil, err
		}
		s.metrics.ObserveBooking("override", "conflict")
		return nil, ErrSlotTaken
	}

	appointment, err := s.repo.CreateAppointment(ctx, tx, patientID, req.DoctorID, req.ScheduledAt, duration)
	if err != nil {
		if errors.Is(err, ErrSlotTaken) {
			s.metrics.ObserveBooking("override", "conflict")
		}
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("scheduling: commit booking tx: %w", err)
	}

	s.metrics.ObserveBooking("override", "created")
	s.logger.Info("appointment booked",
		"appointment_id", appointment.ID,
		"doctor_id", req.DoctorID,
		"patient_id", patientID,
		"timing_id", timingID,
	)
	return appointment, nil
}

// bookDefault checks the requested interval against existing active
// appointments. The query window reaches back one duration before the
// requested start to catch partially overlapping rows; the strict overlap
// test is authoritative, and the storage exclusion constraint backstops
// concurrent inserts that both pass it.
func (s *Service) bookDefault(ctx context.Context, patientID uuid.UUID, req BookRequest, duration int) (*Appointment, error) {
	start := req.ScheduledAt
	end := start.Add(time.Duration(duration) * time.Minute)
	windowStart := start.Add(-time.Duration(duration) * time.Minute)

	candidates, err := s.repo.ListActiveAppointments(ctx, req.DoctorID, windowStart, end)
	if err != nil {
		return nil, err
	}
	for _, c := range candidates {
		if overlaps(start, end, c.ScheduledAt, c.End()) {
			s.metrics.ObserveBooking("default", "conflict")
			return nil, ErrSlotTaken
		}
	}

	appointment, err := s.repo.CreateAppointment(ctx, nil, patientID, req.DoctorID, start, duration)
	if err != nil {
		if errors.Is(err, ErrSlotTaken) {
			s.metrics.ObserveBooking("default", "conflict")
		}
		return nil, err
	}

	s.metrics.ObserveBooking("default", "created")
	s.logger.Info("appointment booked",
		"appointment_id", appointment.ID,
		"doctor_id", req.DoctorID,
		"patient_id", patientID,
	)
	return appointment, nil
}
