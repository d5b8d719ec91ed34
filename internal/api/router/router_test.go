package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mediflow/clinic-platform/internal/auth"
	"github.com/mediflow/clinic-platform/internal/prescriptions"
	"github.com/mediflow/clinic-platform/internal/scheduling"
	"github.com/mediflow/clinic-platform/pkg/logging"
)

type stubScheduling struct {
	slots []scheduling.TimeSlot
}

func (s *stubScheduling) Availability(context.Context, uuid.UUID, time.Time) ([]scheduling.TimeSlot, error) {
	return s.slots, nil
}

func (s *stubScheduling) Book(context.Context, uuid.UUID, scheduling.BookRequest) (*scheduling.Appointment, error) {
	return &scheduling.Appointment{ID: uuid.New(), Status: scheduling.StatusBooked}, nil
}

func (s *stubScheduling) ListPatientAppointments(context.Context, uuid.UUID) ([]scheduling.AppointmentWithDoctor, error) {
	return []scheduling.AppointmentWithDoctor{}, nil
}

func (s *stubScheduling) GetAppointmentWithPatient(context.Context, uuid.UUID) (*scheduling.AppointmentWithPatient, error) {
	return nil, scheduling.ErrAppointmentNotFound
}

func (s *stubScheduling) GetAppointment(context.Context, uuid.UUID) (*scheduling.Appointment, error) {
	return nil, scheduling.ErrAppointmentNotFound
}

type stubPrescriptions struct{}

func (s *stubPrescriptions) Create(context.Context, uuid.UUID, prescriptions.CreateRequest) (*prescriptions.Prescription, error) {
	return &prescriptions.Prescription{ID: uuid.New(), Status: prescriptions.StatusPending}, nil
}

func (s *stubPrescriptions) Finalize(context.Context, uuid.UUID, uuid.UUID) (*prescriptions.Prescription, error) {
	return &prescriptions.Prescription{ID: uuid.New(), Status: prescriptions.StatusReadyForPickup}, nil
}

func (s *stubPrescriptions) Delete(context.Context, uuid.UUID, uuid.UUID) error {
	return nil
}

func (s *stubPrescriptions) ListReady(context.Context) ([]prescriptions.WithParties, error) {
	return []prescriptions.WithParties{}, nil
}

func (s *stubPrescriptions) Purchase(_ context.Context, _, id uuid.UUID) (*prescriptions.Prescription, error) {
	return &prescriptions.Prescription{ID: id, Status: prescriptions.StatusPurchased}, nil
}

func (s *stubPrescriptions) History(context.Context, uuid.UUID) ([]prescriptions.WithParties, error) {
	return []prescriptions.WithParties{}, nil
}

func (s *stubPrescriptions) ListForPatient(context.Context, uuid.UUID) ([]prescriptions.WithDoctor, error) {
	return []prescriptions.WithDoctor{}, nil
}

func (s *stubPrescriptions) GetByAppointmentForPatient(context.Context, uuid.UUID, uuid.UUID) (*prescriptions.WithDoctor, error) {
	return nil, prescriptions.ErrNotFound
}

func testSessions() *auth.SessionManager {
	return auth.NewSessionManager(auth.SessionConfig{
		DoctorSecret:     "doctor-secret",
		PatientSecret:    "patient-secret",
		PharmacistSecret: "pharmacist-secret",
		TTL:              time.Hour,
	}, nil)
}

func newTestRouter(t *testing.T) (http.Handler, *auth.SessionManager) {
	t.Helper()

	sessions := testSessions()
	svc := &stubScheduling{}
	cfg := &Config{
		Logger:         logging.New("error"),
		Sessions:       sessions,
		Scheduling:     scheduling.NewHandler(svc, svc, logging.New("error")),
		Prescriptions:  prescriptions.NewHandler(&stubPrescriptions{}, svc, logging.New("error")),
		MetricsHandler: promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{}),
	}
	return New(cfg), sessions
}

func roleCookie(t *testing.T, sessions *auth.SessionManager, role auth.Role) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	if _, err := sessions.Issue(rec, role, uuid.New()); err != nil {
		t.Fatalf("issue session: %v", err)
	}
	return rec.Result().Cookies()[0]
}

func patientCookie(t *testing.T, sessions *auth.SessionManager) *http.Cookie {
	t.Helper()
	return roleCookie(t, sessions, auth.RolePatient)
}

func TestRouterHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", resp["status"])
	}
}

func TestRouterMetricsEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
}

func TestRouterPatientRoutesRequireSession(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/patient/appointments", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rr.Code)
	}
}

func TestRouterPatientRoutesWithSession(t *testing.T) {
	router, sessions := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/patient/appointments", nil)
	req.AddCookie(patientCookie(t, sessions))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body)
	}
}

func TestRouterDoctorRoutesRejectPatientSession(t *testing.T) {
	router, sessions := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/doctor/appointments/"+uuid.NewString(), nil)
	req.AddCookie(patientCookie(t, sessions))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rr.Code)
	}
}

func TestRouterPurchaseIsPost(t *testing.T) {
	router, sessions := newTestRouter(t)
	target := "/pharmacist/prescriptions/" + uuid.NewString() + "/purchase"

	req := httptest.NewRequest(http.MethodPost, target, nil)
	req.AddCookie(roleCookie(t, sessions, auth.RolePharmacist))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("POST purchase: expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body)
	}

	var resp struct {
		Prescription prescriptions.Prescription `json:"prescription"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode purchase response: %v", err)
	}
	if resp.Prescription.Status != prescriptions.StatusPurchased {
		t.Errorf("expected status PURCHASED, got %q", resp.Prescription.Status)
	}

	req = httptest.NewRequest(http.MethodPatch, target, nil)
	req.AddCookie(roleCookie(t, sessions, auth.RolePharmacist))
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("PATCH purchase: expected status %d, got %d", http.StatusMethodNotAllowed, rr.Code)
	}
}

func TestRouterAdminDisabledWithoutToken(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	req.Header.Set("Authorization", "Bearer anything")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rr.Code)
	}
}
