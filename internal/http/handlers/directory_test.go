package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mediflow/clinic-platform/internal/auth"
	"github.com/mediflow/clinic-platform/internal/identity"
	"github.com/mediflow/clinic-platform/internal/prescriptions"
	"github.com/mediflow/clinic-platform/internal/scheduling"
	"github.com/mediflow/clinic-platform/pkg/logging"
)

type fakeDirectory struct {
	doctors    []identity.DoctorSummary
	doctorsErr error
	patient    *identity.Patient
	patientErr error
}

func (f *fakeDirectory) ListDoctors(_ context.Context) ([]identity.DoctorSummary, error) {
	return f.doctors, f.doctorsErr
}

func (f *fakeDirectory) GetPatientByID(_ context.Context, _ uuid.UUID) (*identity.Patient, error) {
	return f.patient, f.patientErr
}

type fakeBookedAppointments struct {
	appointments []scheduling.AppointmentWithPatient
	err          error
}

func (f *fakeBookedAppointments) ListDoctorBookedAppointments(_ context.Context, _ uuid.UUID) ([]scheduling.AppointmentWithPatient, error) {
	return f.appointments, f.err
}

type fakeHistory struct {
	history []prescriptions.WithDoctor
	err     error
}

func (f *fakeHistory) ListForPatientByDoctor(_ context.Context, _, _ uuid.UUID) ([]prescriptions.WithDoctor, error) {
	return f.history, f.err
}

func TestListDoctors(t *testing.T) {
	specialty := "cardiology"
	dir := &fakeDirectory{doctors: []identity.DoctorSummary{{
		ID:               uuid.New(),
		Email:            "wu@clinic.test",
		Name:             "Dr. Wu",
		Specialization:   &specialty,
		AppointmentCount: 12,
	}}}
	h := NewDirectoryHandler(dir, &fakeBookedAppointments{}, &fakeHistory{}, logging.New("error"))

	rec := httptest.NewRecorder()
	h.ListDoctors(rec, httptest.NewRequest(http.MethodGet, "/patient/doctors", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Doctors []identity.DoctorSummary `json:"doctors"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Doctors) != 1 || body.Doctors[0].AppointmentCount != 12 {
		t.Fatalf("unexpected doctors %+v", body.Doctors)
	}
}

func TestListMyPatients(t *testing.T) {
	doctorID := uuid.New()
	name := "Pat Doe"
	booked := &fakeBookedAppointments{appointments: []scheduling.AppointmentWithPatient{{
		Appointment: scheduling.Appointment{
			ID:          uuid.New(),
			DoctorID:    doctorID,
			ScheduledAt: time.Now().Add(24 * time.Hour),
			Status:      scheduling.StatusBooked,
		},
		Patient: scheduling.PatientRef{ID: uuid.New(), Email: "pat@clinic.test", Name: &name},
	}}}
	h := NewDirectoryHandler(&fakeDirectory{}, booked, &fakeHistory{}, logging.New("error"))

	req := httptest.NewRequest(http.MethodGet, "/doctor/patients", nil)
	req = req.WithContext(auth.WithActor(req.Context(), auth.Actor{ID: doctorID, Role: auth.RoleDoctor}))
	rec := httptest.NewRecorder()
	h.ListMyPatients(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Appointments []scheduling.AppointmentWithPatient `json:"appointments"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Appointments) != 1 || body.Appointments[0].Patient.Email != "pat@clinic.test" {
		t.Fatalf("unexpected appointments %+v", body.Appointments)
	}
}

func TestGetPatientDetail(t *testing.T) {
	doctorID := uuid.New()
	patientID := uuid.New()
	name := "Pat Doe"
	dir := &fakeDirectory{patient: &identity.Patient{ID: patientID, Email: "pat@clinic.test", Name: &name}}
	history := &fakeHistory{history: []prescriptions.WithDoctor{{
		Prescription: prescriptions.Prescription{
			ID:        uuid.New(),
			PatientID: patientID,
			DoctorID:  doctorID,
			Content:   "amoxicillin 500mg",
			Status:    prescriptions.StatusPending,
		},
		Doctor: prescriptions.DoctorSummary{ID: doctorID, Name: "Dr. Wu"},
	}}}
	h := NewDirectoryHandler(dir, &fakeBookedAppointments{}, history, logging.New("error"))

	req := httptest.NewRequest(http.MethodGet, "/doctor/patients/"+patientID.String(), nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("patientID", patientID.String())
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	req = req.WithContext(auth.WithActor(req.Context(), auth.Actor{ID: doctorID, Role: auth.RoleDoctor}))
	rec := httptest.NewRecorder()
	h.GetPatientDetail(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	var body struct {
		Patient struct {
			Email         string                     `json:"email"`
			Prescriptions []prescriptions.WithDoctor `json:"prescriptions"`
		} `json:"patient"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Patient.Email != "pat@clinic.test" || len(body.Patient.Prescriptions) != 1 {
		t.Fatalf("unexpected detail %+v", body.Patient)
	}
}

func TestGetPatientDetailNotFound(t *testing.T) {
	h := NewDirectoryHandler(&fakeDirectory{patientErr: identity.ErrPatientNotFound}, &fakeBookedAppointments{}, &fakeHistory{}, logging.New("error"))

	patientID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/doctor/patients/"+patientID.String(), nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("patientID", patientID.String())
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	req = req.WithContext(auth.WithActor(req.Context(), auth.Actor{ID: uuid.New(), Role: auth.RoleDoctor}))
	rec := httptest.NewRecorder()
	h.GetPatientDetail(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
