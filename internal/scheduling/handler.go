package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mediflow/clinic-platform/internal/auth"
	"github.com/mediflow/clinic-platform/pkg/logging"
)

// AvailabilityBooker is the service surface the handler needs.
type AvailabilityBooker interface {
	Availability(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]TimeSlot, error)
	Book(ctx context.Context, patientID uuid.UUID, req BookRequest) (*Appointment, error)
}

// AppointmentReader is the read surface for appointment listings.
type AppointmentReader interface {
	ListPatientAppointments(ctx context.Context, patientID uuid.UUID) ([]AppointmentWithDoctor, error)
	GetAppointmentWithPatient(ctx context.Context, id uuid.UUID) (*AppointmentWithPatient, error)
}

// Handler serves availability, booking, and appointment reads.
type Handler struct {
	service      AvailabilityBooker
	appointments AppointmentReader
	logger       *logging.Logger
}

func NewHandler(service AvailabilityBooker, appointments AppointmentReader, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, appointments: appointments, logger: logger}
}

// GetDoctorTimings handles GET /patient/doctors/{doctorID}/timings?date=YYYY-MM-DD.
// The date defaults to today when absent.
func (h *Handler) GetDoctorTimings(w http.ResponseWriter, r *http.Request) {
	doctorID, err := uuid.Parse(chi.URLParam(r, "doctorID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid doctor id")
		return
	}

	date := time.Now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		date, err = time.ParseInLocation("2006-01-02", raw, time.UTC)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			return
		}
	}

	slots, err := h.service.Availability(r.Context(), doctorID, date)
	if err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			writeError(w, http.StatusNotFound, ErrDoctorNotFound.Error())
			return
		}
		h.logger.Error("availability lookup failed", "error", err, "doctor_id", doctorID)
		writeError(w, http.StatusInternalServerError, "failed to load timings")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"timings": slots})
}

// BookAppointment handles POST /patient/appointments for the authenticated
// patient.
func (h *Handler) BookAppointment(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req BookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	appointment, err := h.service.Book(r.Context(), actor.ID, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrMissingFields):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrDoctorNotFound), errors.Is(err, ErrTimingNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, ErrSlotTaken):
			writeError(w, http.StatusConflict, err.Error())
		default:
			h.logger.Error("booking failed", "error", err, "patient_id", actor.ID)
			writeError(w, http.StatusInternalServerError, "failed to book appointment")
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":     "appointment booked successfully",
		"appointment": appointment,
	})
}

// ListMyAppointments handles GET /patient/appointments.
func (h *Handler) ListMyAppointments(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	appointments, err := h.appointments.ListPatientAppointments(r.Context(), actor.ID)
	if err != nil {
		h.logger.Error("list appointments failed", "error", err, "patient_id", actor.ID)
		writeError(w, http.StatusInternalServerError, "failed to load appointments")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": appointments})
}

// GetAppointmentForDoctor handles GET /doctor/appointments/{appointmentID}.
// Doctors can only read their own appointments.
func (h *Handler) GetAppointmentForDoctor(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "appointmentID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid appointment id")
		return
	}

	appointment, err := h.appointments.GetAppointmentWithPatient(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			writeError(w, http.StatusNotFound, ErrAppointmentNotFound.Error())
			return
		}
		h.logger.Error("appointment lookup failed", "error", err, "appointment_id", id)
		writeError(w, http.StatusInternalServerError, "failed to load appointment")
		return
	}
	if appointment.DoctorID != actor.ID {
		writeError(w, http.StatusForbidden, "appointment belongs to another doctor")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointment": appointment})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
