package prescriptions

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mediflow/clinic-platform/internal/auth"
	"github.com/mediflow/clinic-platform/internal/scheduling"
	"github.com/mediflow/clinic-platform/pkg/logging"
)

// Lifecycle is the service surface the handler needs.
type Lifecycle interface {
	Create(ctx context.Context, doctorID uuid.UUID, req CreateRequest) (*Prescription, error)
	Finalize(ctx context.Context, doctorID, id uuid.UUID) (*Prescription, error)
	Delete(ctx context.Context, doctorID, id uuid.UUID) error
	ListReady(ctx context.Context) ([]WithParties, error)
	Purchase(ctx context.Context, pharmacyID, id uuid.UUID) (*Prescription, error)
	History(ctx context.Context, pharmacyID uuid.UUID) ([]WithParties, error)
	ListForPatient(ctx context.Context, patientID uuid.UUID) ([]WithDoctor, error)
	GetByAppointmentForPatient(ctx context.Context, appointmentID, patientID uuid.UUID) (*WithDoctor, error)
}

// AppointmentSource resolves appointments for the per-appointment
// prescription lookup's ownership check.
type AppointmentSource interface {
	GetAppointment(ctx context.Context, id uuid.UUID) (*scheduling.Appointment, error)
}

// Handler serves the doctor, pharmacist, and patient prescription routes.
type Handler struct {
	service      Lifecycle
	appointments AppointmentSource
	logger       *logging.Logger
}

func NewHandler(service Lifecycle, appointments AppointmentSource, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, appointments: appointments, logger: logger}
}

// CreatePrescription handles POST /doctor/prescriptions.
func (h *Handler) CreatePrescription(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.service.Create(r.Context(), actor.ID, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrMissingFields):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrPatientNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		default:
			h.logger.Error("create prescription failed", "error", err, "doctor_id", actor.ID)
			writeError(w, http.StatusInternalServerError, "failed to create prescription")
		}
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "prescription created", "prescription": p})
}

// FinalizePrescription handles PATCH /doctor/prescriptions/{prescriptionID}/finalize.
func (h *Handler) FinalizePrescription(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "prescriptionID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid prescription id")
		return
	}

	p, err := h.service.Finalize(r.Context(), actor.ID, id)
	if err != nil {
		h.writeLifecycleError(w, err, "finalize prescription failed", id)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "prescription finalized", "prescription": p})
}

// DeletePrescription handles DELETE /doctor/prescriptions/{prescriptionID}.
func (h *Handler) DeletePrescription(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "prescriptionID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid prescription id")
		return
	}

	if err := h.service.Delete(r.Context(), actor.ID, id); err != nil {
		h.writeLifecycleError(w, err, "delete prescription failed", id)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "prescription deleted"})
}

// ListReadyPrescriptions handles GET /pharmacist/prescriptions/ready.
// Overdue prescriptions are swept to EXPIRED before the list is built.
func (h *Handler) ListReadyPrescriptions(w http.ResponseWriter, r *http.Request) {
	prescriptions, err := h.service.ListReady(r.Context())
	if err != nil {
		h.logger.Error("list ready prescriptions failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch prescriptions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"prescriptions": prescriptions})
}

// MarkPurchased handles POST /pharmacist/prescriptions/{prescriptionID}/purchase.
func (h *Handler) MarkPurchased(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "prescriptionID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid prescription id")
		return
	}

	p, err := h.service.Purchase(r.Context(), actor.ID, id)
	if err != nil {
		h.writeLifecycleError(w, err, "purchase prescription failed", id)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "prescription marked as purchased", "prescription": p})
}

// PurchaseHistory handles GET /pharmacist/prescriptions/history.
func (h *Handler) PurchaseHistory(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	prescriptions, err := h.service.History(r.Context(), actor.ID)
	if err != nil {
		h.logger.Error("purchase history failed", "error", err, "pharmacy_id", actor.ID)
		writeError(w, http.StatusInternalServerError, "failed to fetch purchased prescriptions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"prescriptions": prescriptions})
}

// ListMyPrescriptions handles GET /patient/prescriptions.
func (h *Handler) ListMyPrescriptions(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	prescriptions, err := h.service.ListForPatient(r.Context(), actor.ID)
	if err != nil {
		h.logger.Error("list patient prescriptions failed", "error", err, "patient_id", actor.ID)
		writeError(w, http.StatusInternalServerError, "failed to fetch prescriptions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"prescriptions": prescriptions})
}

// GetPrescriptionByAppointment handles GET /patient/prescriptions/{appointmentID}.
// The appointment must exist and belong to the requesting patient.
func (h *Handler) GetPrescriptionByAppointment(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	appointmentID, err := uuid.Parse(chi.URLParam(r, "appointmentID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid appointment id")
		return
	}

	appointment, err := h.appointments.GetAppointment(r.Context(), appointmentID)
	if err != nil {
		if errors.Is(err, scheduling.ErrAppointmentNotFound) {
			writeError(w, http.StatusNotFound, "appointment not found")
			return
		}
		h.logger.Error("appointment lookup failed", "error", err, "appointment_id", appointmentID)
		writeError(w, http.StatusInternalServerError, "failed to fetch prescription")
		return
	}
	if appointment.PatientID != actor.ID {
		writeError(w, http.StatusForbidden, "appointment belongs to another patient")
		return
	}

	p, err := h.service.GetByAppointmentForPatient(r.Context(), appointmentID, actor.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "prescription not found for this appointment")
			return
		}
		h.logger.Error("prescription lookup failed", "error", err, "appointment_id", appointmentID)
		writeError(w, http.StatusInternalServerError, "failed to fetch prescription")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"prescription": p})
}

func (h *Handler) writeLifecycleError(w http.ResponseWriter, err error, logMsg string, id uuid.UUID) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, ErrNotFound.Error())
	case errors.Is(err, ErrNotIssuer):
		writeError(w, http.StatusForbidden, ErrNotIssuer.Error())
	case errors.Is(err, ErrNotPending), errors.Is(err, ErrNotReady), errors.Is(err, ErrExpired):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error(logMsg, "error", err, "prescription_id", id)
		writeError(w, http.StatusInternalServerError, "failed to update prescription")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
