package prescriptions

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mediflow/clinic-platform/internal/observability/metrics"
	"github.com/mediflow/clinic-platform/pkg/logging"
)

// Service drives the prescription lifecycle:
// PENDING -> READY_FOR_PICKUP -> PURCHASED, with a lazy
// READY_FOR_PICKUP -> EXPIRED sweep.
type Service struct {
	repo    *Repository
	metrics *metrics.PrescriptionMetrics
	logger  *logging.Logger
	now     func() time.Time
}

// NewService constructs a prescription service. metrics may be nil.
func NewService(repo *Repository, m *metrics.PrescriptionMetrics, logger *logging.Logger) *Service {
	if repo == nil {
		panic("prescriptions: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, metrics: m, logger: logger, now: time.Now}
}

// CreateRequest is a doctor's request to issue a new prescription.
type CreateRequest struct {
	PatientID     uuid.UUID  `json:"patient_id"`
	AppointmentID *uuid.UUID `json:"appointment_id,omitempty"`
	Content       string     `json:"content"`
}

// Create issues a PENDING prescription from the doctor to the patient.
func (s *Service) Create(ctx context.Context, doctorID uuid.UUID, req CreateRequest) (*Prescription, error) {
	if req.PatientID == uuid.Nil || strings.TrimSpace(req.Content) == "" {
		return nil, ErrMissingFields
	}
	exists, err := s.repo.PatientExists(ctx, req.PatientID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrPatientNotFound
	}

	p := &Prescription{
		ID:            uuid.New(),
		PatientID:     req.PatientID,
		DoctorID:      doctorID,
		AppointmentID: req.AppointmentID,
		Content:       req.Content,
		Status:        StatusPending,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	s.metrics.ObserveTransition(string(StatusPending))
	s.logger.Info("prescription created", "prescription_id", p.ID, "doctor_id", doctorID, "patient_id", p.PatientID)
	return p, nil
}

// Finalize pushes a PENDING prescription to the pharmacy: status becomes
// READY_FOR_PICKUP and the pickup window opens for 48 hours. Only the
// issuing doctor may finalize.
func (s *Service) Finalize(ctx context.Context, doctorID, id uuid.UUID) (*Prescription, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.DoctorID != doctorID {
		return nil, ErrNotIssuer
	}
	if p.Status != StatusPending {
		return nil, ErrNotPending
	}

	issuedAt := s.now()
	expiresAt := issuedAt.Add(ReadyWindow)
	ok, err := s.repo.Finalize(ctx, id, issuedAt, expiresAt)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost a race with another finalize or delete.
		return nil, ErrNotPending
	}

	p.Status = StatusReadyForPickup
	p.IssuedAt = &issuedAt
	p.ExpiresAt = &expiresAt
	s.metrics.ObserveTransition(string(StatusReadyForPickup))
	s.logger.Info("prescription finalized", "prescription_id", id, "doctor_id", doctorID)
	return p, nil
}

// Delete hard-deletes a PENDING prescription. Only the issuing doctor may
// delete, and only before finalization.
func (s *Service) Delete(ctx context.Context, doctorID, id uuid.UUID) error {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if p.DoctorID != doctorID {
		return ErrNotIssuer
	}
	if p.Status != StatusPending {
		return ErrNotPending
	}
	ok, err := s.repo.DeletePending(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotPending
	}
	s.logger.Info("prescription deleted", "prescription_id", id, "doctor_id", doctorID)
	return nil
}

// ExpireDue sweeps READY_FOR_PICKUP rows past their expiry into EXPIRED and
// returns the number moved. Safe to call from anywhere, any number of times.
func (s *Service) ExpireDue(ctx context.Context) (int, error) {
	n, err := s.repo.ExpireDue(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.metrics.ObserveExpiredSwept(n)
		s.logger.Info("prescriptions expired", "count", n)
	}
	return n, nil
}

// ListReady sweeps overdue rows, then returns the remaining pickable
// prescriptions, newest issued first.
func (s *Service) ListReady(ctx context.Context) ([]WithParties, error) {
	if _, err := s.ExpireDue(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListReady(ctx, s.now())
}

// Purchase dispenses a READY_FOR_PICKUP prescription to the pharmacy.
// Expiry is re-checked at transition time: a row past its window is moved
// to EXPIRED and the purchase rejected.
func (s *Service) Purchase(ctx context.Context, pharmacyID, id uuid.UUID) (*Prescription, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != StatusReadyForPickup {
		return nil, ErrNotReady
	}

	now := s.now()
	if p.ExpiresAt != nil && !p.ExpiresAt.After(now) {
		if err := s.repo.Expire(ctx, id); err != nil {
			return nil, err
		}
		s.metrics.ObserveTransition(string(StatusExpired))
		return nil, ErrExpired
	}

	ok, err := s.repo.Purchase(ctx, id, pharmacyID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotReady
	}

	p.Status = StatusPurchased
	p.DispensedAt = &now
	p.PharmacyID = &pharmacyID
	s.metrics.ObserveTransition(string(StatusPurchased))
	s.logger.Info("prescription purchased", "prescription_id", id, "pharmacy_id", pharmacyID)
	return p, nil
}

// History returns the prescriptions the pharmacy has dispensed, newest
// dispensed first.
func (s *Service) History(ctx context.Context, pharmacyID uuid.UUID) ([]WithParties, error) {
	return s.repo.ListPurchasedByPharmacy(ctx, pharmacyID)
}

// ListForPatient returns the patient's own prescriptions.
func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]WithDoctor, error) {
	return s.repo.ListForPatient(ctx, patientID)
}

// GetByAppointmentForPatient returns the prescription linked to the
// patient's appointment.
func (s *Service) GetByAppointmentForPatient(ctx context.Context, appointmentID, patientID uuid.UUID) (*WithDoctor, error) {
	return s.repo.GetByAppointmentForPatient(ctx, appointmentID, patientID)
}

// ListForPatientByDoctor returns one doctor's prescriptions for a patient.
func (s *Service) ListForPatientByDoctor(ctx context.Context, patientID, doctorID uuid.UUID) ([]WithDoctor, error) {
	return s.repo.ListForPatientByDoctor(ctx, patientID, doctorID)
}
