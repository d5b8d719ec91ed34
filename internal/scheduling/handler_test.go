package scheduling

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mediflow/clinic-platform/internal/auth"
	"github.com/mediflow/clinic-platform/pkg/logging"
)

type fakeBooker struct {
	slots       []TimeSlot
	slotsErr    error
	appointment *Appointment
	bookErr     error
	lastPatient uuid.UUID
	lastReq     BookRequest
}

func (f *fakeBooker) Availability(_ context.Context, _ uuid.UUID, _ time.Time) ([]TimeSlot, error) {
	return f.slots, f.slotsErr
}

func (f *fakeBooker) Book(_ context.Context, patientID uuid.UUID, req BookRequest) (*Appointment, error) {
	f.lastPatient = patientID
	f.lastReq = req
	return f.appointment, f.bookErr
}

type fakeAppointments struct {
	list    []AppointmentWithDoctor
	listErr error
	detail  *AppointmentWithPatient
	getErr  error
}

func (f *fakeAppointments) ListPatientAppointments(_ context.Context, _ uuid.UUID) ([]AppointmentWithDoctor, error) {
	return f.list, f.listErr
}

func (f *fakeAppointments) GetAppointmentWithPatient(_ context.Context, _ uuid.UUID) (*AppointmentWithPatient, error) {
	return f.detail, f.getErr
}

func requestWithActor(r *http.Request, actor auth.Actor) *http.Request {
	return r.WithContext(auth.WithActor(r.Context(), actor))
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestGetDoctorTimings(t *testing.T) {
	doctorID := uuid.New()
	start := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	booker := &fakeBooker{slots: []TimeSlot{{
		ID:        "default-1749546000000",
		DoctorID:  doctorID,
		StartTime: start,
		EndTime:   start.Add(30 * time.Minute),
	}}}
	h := NewHandler(booker, &fakeAppointments{}, logging.New("error"))

	req := httptest.NewRequest(http.MethodGet, "/patient/doctors/"+doctorID.String()+"/timings?date=2025-06-10", nil)
	req = withURLParam(req, "doctorID", doctorID.String())
	rec := httptest.NewRecorder()
	h.GetDoctorTimings(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	var body struct {
		Timings []TimeSlot `json:"timings"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Timings) != 1 || body.Timings[0].ID != "default-1749546000000" {
		t.Fatalf("unexpected timings %+v", body.Timings)
	}
}

func TestGetDoctorTimingsDoctorMissing(t *testing.T) {
	h := NewHandler(&fakeBooker{slotsErr: ErrDoctorNotFound}, &fakeAppointments{}, logging.New("error"))

	req := httptest.NewRequest(http.MethodGet, "/patient/doctors/x/timings", nil)
	req = withURLParam(req, "doctorID", uuid.New().String())
	rec := httptest.NewRecorder()
	h.GetDoctorTimings(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestGetDoctorTimingsBadDate(t *testing.T) {
	h := NewHandler(&fakeBooker{}, &fakeAppointments{}, logging.New("error"))

	req := httptest.NewRequest(http.MethodGet, "/patient/doctors/x/timings?date=June-10", nil)
	req = withURLParam(req, "doctorID", uuid.New().String())
	rec := httptest.NewRecorder()
	h.GetDoctorTimings(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestBookAppointment(t *testing.T) {
	patientID := uuid.New()
	doctorID := uuid.New()
	start := time.Date(2025, 6, 10, 9, 30, 0, 0, time.UTC)
	booker := &fakeBooker{appointment: &Appointment{
		ID:              uuid.New(),
		PatientID:       patientID,
		DoctorID:        doctorID,
		ScheduledAt:     start,
		DurationMinutes: 30,
		Status:          StatusBooked,
	}}
	h := NewHandler(booker, &fakeAppointments{}, logging.New("error"))

	payload := `{"doctor_id":"` + doctorID.String() + `","scheduled_at":"2025-06-10T09:30:00Z"}`
	req := httptest.NewRequest(http.MethodPost, "/patient/appointments", strings.NewReader(payload))
	req = requestWithActor(req, auth.Actor{ID: patientID, Role: auth.RolePatient})
	rec := httptest.NewRecorder()
	h.BookAppointment(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body)
	}
	if booker.lastPatient != patientID {
		t.Fatalf("booked for patient %s, want %s", booker.lastPatient, patientID)
	}
	if booker.lastReq.DoctorID != doctorID || !booker.lastReq.ScheduledAt.Equal(start) {
		t.Fatalf("unexpected request %+v", booker.lastReq)
	}
}

func TestBookAppointmentErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", ErrMissingFields, http.StatusBadRequest},
		{"doctor missing", ErrDoctorNotFound, http.StatusNotFound},
		{"timing missing", ErrTimingNotFound, http.StatusNotFound},
		{"conflict", ErrSlotTaken, http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHandler(&fakeBooker{bookErr: tc.err}, &fakeAppointments{}, logging.New("error"))
			req := httptest.NewRequest(http.MethodPost, "/patient/appointments", strings.NewReader(`{"doctor_id":"`+uuid.NewString()+`","scheduled_at":"2025-06-10T09:30:00Z"}`))
			req = requestWithActor(req, auth.Actor{ID: uuid.New(), Role: auth.RolePatient})
			rec := httptest.NewRecorder()
			h.BookAppointment(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
			var body map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil || body["error"] == "" {
				t.Fatalf("expected error envelope, got %s (err=%v)", rec.Body, err)
			}
		})
	}
}

func TestBookAppointmentUnauthenticated(t *testing.T) {
	h := NewHandler(&fakeBooker{}, &fakeAppointments{}, logging.New("error"))
	req := httptest.NewRequest(http.MethodPost, "/patient/appointments", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.BookAppointment(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestListMyAppointments(t *testing.T) {
	patientID := uuid.New()
	appts := &fakeAppointments{list: []AppointmentWithDoctor{{
		Appointment: Appointment{ID: uuid.New(), PatientID: patientID, Status: StatusBooked},
		Doctor:      DoctorRef{ID: uuid.New(), Name: "Dr. Wu", Email: "wu@clinic.test"},
	}}}
	h := NewHandler(&fakeBooker{}, appts, logging.New("error"))

	req := httptest.NewRequest(http.MethodGet, "/patient/appointments", nil)
	req = requestWithActor(req, auth.Actor{ID: patientID, Role: auth.RolePatient})
	rec := httptest.NewRecorder()
	h.ListMyAppointments(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Appointments []AppointmentWithDoctor `json:"appointments"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Appointments) != 1 || body.Appointments[0].Doctor.Name != "Dr. Wu" {
		t.Fatalf("unexpected appointments %+v", body.Appointments)
	}
}

func TestGetAppointmentForDoctorOwnership(t *testing.T) {
	owner := uuid.New()
	other := uuid.New()
	appointmentID := uuid.New()
	appts := &fakeAppointments{detail: &AppointmentWithPatient{
		Appointment: Appointment{ID: appointmentID, DoctorID: owner, Status: StatusBooked},
		Patient:     PatientRef{ID: uuid.New(), Email: "pat@clinic.test"},
	}}
	h := NewHandler(&fakeBooker{}, appts, logging.New("error"))

	get := func(actor uuid.UUID) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/doctor/appointments/"+appointmentID.String(), nil)
		req = withURLParam(req, "appointmentID", appointmentID.String())
		req = requestWithActor(req, auth.Actor{ID: actor, Role: auth.RoleDoctor})
		rec := httptest.NewRecorder()
		h.GetAppointmentForDoctor(rec, req)
		return rec
	}

	if rec := get(owner); rec.Code != http.StatusOK {
		t.Fatalf("owner status = %d, want 200", rec.Code)
	}
	if rec := get(other); rec.Code != http.StatusForbidden {
		t.Fatalf("other doctor status = %d, want 403", rec.Code)
	}
}

func TestGetAppointmentForDoctorNotFound(t *testing.T) {
	h := NewHandler(&fakeBooker{}, &fakeAppointments{getErr: ErrAppointmentNotFound}, logging.New("error"))
	req := httptest.NewRequest(http.MethodGet, "/doctor/appointments/x", nil)
	req = withURLParam(req, "appointmentID", uuid.New().String())
	req = requestWithActor(req, auth.Actor{ID: uuid.New(), Role: auth.RoleDoctor})
	rec := httptest.NewRecorder()
	h.GetAppointmentForDoctor(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
