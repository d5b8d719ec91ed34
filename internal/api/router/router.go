package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mediflow/clinic-platform/internal/auth"
	"github.com/mediflow/clinic-platform/internal/files"
	"github.com/mediflow/clinic-platform/internal/http/handlers"
	httpmiddleware "github.com/mediflow/clinic-platform/internal/http/middleware"
	"github.com/mediflow/clinic-platform/internal/prescriptions"
	"github.com/mediflow/clinic-platform/internal/scheduling"
	"github.com/mediflow/clinic-platform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger   *logging.Logger
	Sessions *auth.SessionManager

	Auth          *auth.Handler
	Scheduling    *scheduling.Handler
	Prescriptions *prescriptions.Handler
	Files         *files.Handler
	Directory     *handlers.DirectoryHandler
	PlatformStats *handlers.PlatformStatsHandler

	// Bearer token guarding /admin. Empty disables the admin surface.
	AdminToken string

	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints
	r.Get("/health", healthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.Auth != nil {
		r.Route("/auth", func(a chi.Router) {
			a.Route("/doctor", func(d chi.Router) {
				d.Post("/signup", cfg.Auth.DoctorSignup)
				d.Post("/login", cfg.Auth.DoctorLogin)
				d.Post("/logout", cfg.Auth.DoctorLogout)
			})
			a.Route("/patient", func(p chi.Router) {
				p.Post("/google-auth", cfg.Auth.PatientGoogleAuth)
				p.Post("/login", cfg.Auth.PatientLogin)
				p.Post("/logout", cfg.Auth.PatientLogout)
			})
			a.Route("/pharmacist", func(ph chi.Router) {
				ph.Post("/signup", cfg.Auth.PharmacistSignup)
				ph.Post("/login", cfg.Auth.PharmacistLogin)
				ph.Post("/logout", cfg.Auth.PharmacistLogout)
			})
		})
	}

	// Patient surface: browsing doctors, booking, prescriptions, documents.
	r.Route("/patient", func(p chi.Router) {
		p.Use(httpmiddleware.RequireRole(cfg.Sessions, auth.RolePatient))
		if cfg.Directory != nil {
			p.Get("/doctors", cfg.Directory.ListDoctors)
		}
		if cfg.Scheduling != nil {
			p.Get("/doctors/{doctorID}/timings", cfg.Scheduling.GetDoctorTimings)
			p.Get("/appointments", cfg.Scheduling.ListMyAppointments)
			p.Post("/appointments", cfg.Scheduling.BookAppointment)
		}
		if cfg.Prescriptions != nil {
			p.Get("/prescriptions", cfg.Prescriptions.ListMyPrescriptions)
			p.Get("/prescriptions/{appointmentID}", cfg.Prescriptions.GetPrescriptionByAppointment)
		}
		if cfg.Files != nil {
			p.Post("/files/upload", cfg.Files.Upload)
			p.Get("/files", cfg.Files.List)
			p.Delete("/files/{fileID}", cfg.Files.Delete)
		}
	})

	// Doctor surface: patient roster, appointment detail, issuing prescriptions.
	r.Route("/doctor", func(d chi.Router) {
		d.Use(httpmiddleware.RequireRole(cfg.Sessions, auth.RoleDoctor))
		if cfg.Directory != nil {
			d.Get("/patients", cfg.Directory.ListMyPatients)
			d.Get("/patients/{patientID}", cfg.Directory.GetPatientDetail)
		}
		if cfg.Scheduling != nil {
			d.Get("/appointments/{appointmentID}", cfg.Scheduling.GetAppointmentForDoctor)
		}
		if cfg.Prescriptions != nil {
			d.Post("/prescriptions", cfg.Prescriptions.CreatePrescription)
			d.Patch("/prescriptions/{prescriptionID}/finalize", cfg.Prescriptions.FinalizePrescription)
			d.Delete("/prescriptions/{prescriptionID}", cfg.Prescriptions.DeletePrescription)
		}
	})

	// Pharmacist surface: fulfillment queue and purchase history.
	r.Route("/pharmacist", func(ph chi.Router) {
		ph.Use(httpmiddleware.RequireRole(cfg.Sessions, auth.RolePharmacist))
		if cfg.Prescriptions != nil {
			ph.Get("/prescriptions/ready", cfg.Prescriptions.ListReadyPrescriptions)
			ph.Post("/prescriptions/{prescriptionID}/purchase", cfg.Prescriptions.MarkPurchased)
			ph.Get("/prescriptions/history", cfg.Prescriptions.PurchaseHistory)
		}
	})

	if cfg.PlatformStats != nil && cfg.AdminToken != "" {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.RequireAdminToken(cfg.AdminToken))
			admin.Get("/stats", cfg.PlatformStats.GetStats)
		})
	}

	return r
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
