package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mediflow/clinic-platform/internal/auth"
	"github.com/mediflow/clinic-platform/internal/identity"
	"github.com/mediflow/clinic-platform/internal/prescriptions"
	"github.com/mediflow/clinic-platform/internal/scheduling"
	"github.com/mediflow/clinic-platform/pkg/logging"
)

// Directory is the identity read surface the handler needs.
type Directory interface {
	ListDoctors(ctx context.Context) ([]identity.DoctorSummary, error)
	GetPatientByID(ctx context.Context, id uuid.UUID) (*identity.Patient, error)
}

// BookedAppointments lists a doctor's upcoming appointments with patient
// identity attached.
type BookedAppointments interface {
	ListDoctorBookedAppointments(ctx context.Context, doctorID uuid.UUID) ([]scheduling.AppointmentWithPatient, error)
}

// PrescriptionHistory resolves one doctor's prescriptions for a patient.
type PrescriptionHistory interface {
	ListForPatientByDoctor(ctx context.Context, patientID, doctorID uuid.UUID) ([]prescriptions.WithDoctor, error)
}

// DirectoryHandler serves the doctor directory and the doctor-facing
// patient views.
type DirectoryHandler struct {
	directory     Directory
	appointments  BookedAppointments
	prescriptions PrescriptionHistory
	logger        *logging.Logger
}

func NewDirectoryHandler(directory Directory, appointments BookedAppointments, history PrescriptionHistory, logger *logging.Logger) *DirectoryHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &DirectoryHandler{directory: directory, appointments: appointments, prescriptions: history, logger: logger}
}

// ListDoctors handles GET /patient/doctors.
func (h *DirectoryHandler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	doctors, err := h.directory.ListDoctors(r.Context())
	if err != nil {
		h.logger.Error("list doctors failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch doctors")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"doctors": doctors})
}

// ListMyPatients handles GET /doctor/patients: the doctor's BOOKED
// appointments with patient identity, soonest first.
func (h *DirectoryHandler) ListMyPatients(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	appointments, err := h.appointments.ListDoctorBookedAppointments(r.Context(), actor.ID)
	if err != nil {
		h.logger.Error("list doctor patients failed", "error", err, "doctor_id", actor.ID)
		writeError(w, http.StatusInternalServerError, "failed to fetch patients")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": appointments})
}

// patientDetail is the GET /doctor/patients/{patientID} payload: patient
// identity plus this doctor's prescription history for them.
type patientDetail struct {
	ID            uuid.UUID                  `json:"id"`
	Email         string                     `json:"email"`
	Name          *string                    `json:"name,omitempty"`
	AvatarURL     *string                    `json:"avatar_url,omitempty"`
	Phone         *string                    `json:"phone,omitempty"`
	Prescriptions []prescriptions.WithDoctor `json:"prescriptions"`
}

// GetPatientDetail handles GET /doctor/patients/{patientID}.
func (h *DirectoryHandler) GetPatientDetail(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	patientID, err := uuid.Parse(chi.URLParam(r, "patientID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid patient id")
		return
	}

	patient, err := h.directory.GetPatientByID(r.Context(), patientID)
	if err != nil {
		if errors.Is(err, identity.ErrPatientNotFound) {
			writeError(w, http.StatusNotFound, identity.ErrPatientNotFound.Error())
			return
		}
		h.logger.Error("patient lookup failed", "error", err, "patient_id", patientID)
		writeError(w, http.StatusInternalServerError, "failed to fetch patient details")
		return
	}

	history, err := h.prescriptions.ListForPatientByDoctor(r.Context(), patientID, actor.ID)
	if err != nil {
		h.logger.Error("prescription history failed", "error", err, "patient_id", patientID, "doctor_id", actor.ID)
		writeError(w, http.StatusInternalServerError, "failed to fetch patient details")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"patient": patientDetail{
		ID:            patient.ID,
		Email:         patient.Email,
		Name:          patient.Name,
		AvatarURL:     patient.AvatarURL,
		Phone:         patient.Phone,
		Prescriptions: history,
	}})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
