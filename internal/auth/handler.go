package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/mediflow/clinic-platform/internal/identity"
	"github.com/mediflow/clinic-platform/pkg/logging"
)

// Accounts is the identity persistence surface the auth flows need.
// *identity.Repository satisfies it.
type Accounts interface {
	CreateDoctor(ctx context.Context, email, passwordHash, name string, specialization *string) (*identity.Doctor, error)
	GetDoctorByEmail(ctx context.Context, email string) (*identity.Doctor, error)
	CreatePatient(ctx context.Context, email string, passwordHash, googleID, name, avatarURL *string) (*identity.Patient, error)
	GetPatientByEmail(ctx context.Context, email string) (*identity.Patient, error)
	LinkGoogleIdentity(ctx context.Context, id uuid.UUID, profile identity.GoogleProfile) (*identity.Patient, error)
	CreatePharmacist(ctx context.Context, email, passwordHash, name string) (*identity.Pharmacist, error)
	GetPharmacistByEmail(ctx context.Context, email string) (*identity.Pharmacist, error)
}

// Handler serves signup, login, and logout for all three roles.
type Handler struct {
	accounts Accounts
	sessions *SessionManager
	google   GoogleVerifier
	logger   *logging.Logger
}

// NewHandler creates the auth handler.
func NewHandler(accounts Accounts, sessions *SessionManager, google GoogleVerifier, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{accounts: accounts, sessions: sessions, google: google, logger: logger}
}

type credentialsRequest struct {
	Email          string  `json:"email"`
	Password       string  `json:"password"`
	Name           string  `json:"name"`
	Specialization *string `json:"specialization"`
}

// DoctorSignup handles POST /auth/doctor/signup.
func (h *Handler) DoctorSignup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "email, password, and name are required")
		return
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		h.logger.Error("failed to hash password", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create account")
		return
	}

	doctor, err := h.accounts.CreateDoctor(r.Context(), req.Email, hash, req.Name, req.Specialization)
	if errors.Is(err, identity.ErrEmailTaken) {
		writeError(w, http.StatusConflict, "doctor with this email already exists")
		return
	}
	if err != nil {
		h.logger.Error("failed to create doctor account", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create account")
		return
	}

	if _, err := h.sessions.Issue(w, RoleDoctor, doctor.ID); err != nil {
		h.logger.Error("failed to issue doctor session", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create account")
		return
	}
	h.logger.Info("doctor account created", "doctor_id", doctor.ID)
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Doctor account created successfully", "doctor": doctor})
}

// DoctorLogin handles POST /auth/doctor/login.
func (h *Handler) DoctorLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password required")
		return
	}

	doctor, err := h.accounts.GetDoctorByEmail(r.Context(), req.Email)
	if errors.Is(err, identity.ErrDoctorNotFound) {
		writeError(w, http.StatusUnauthorized, ErrInvalidCredentials.Error())
		return
	}
	if err != nil {
		h.logger.Error("doctor login lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	if !CheckPassword(doctor.PasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, ErrInvalidCredentials.Error())
		return
	}

	if _, err := h.sessions.Issue(w, RoleDoctor, doctor.ID); err != nil {
		h.logger.Error("failed to issue doctor session", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Login successful", "doctor": doctor})
}

// DoctorLogout handles POST /auth/doctor/logout.
func (h *Handler) DoctorLogout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Clear(r.Context(), w, r, RoleDoctor)
	writeJSON(w, http.StatusOK, map[string]any{"message": "Logout successful"})
}

type googleAuthRequest struct {
	IDToken string `json:"id_token"`
}

// PatientGoogleAuth handles POST /auth/patient/google-auth. First sign-in
// creates the patient row; later sign-ins link the Google subject if the
// row predates it.
func (h *Handler) PatientGoogleAuth(w http.ResponseWriter, r *http.Request) {
	var req googleAuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.IDToken) == "" {
		writeError(w, http.StatusBadRequest, "ID token required")
		return
	}

	profile, err := h.google.Verify(r.Context(), req.IDToken)
	if errors.Is(err, ErrEmailNotVerified) {
		writeError(w, http.StatusBadRequest, ErrEmailNotVerified.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrInvalidIDToken.Error())
		return
	}

	patient, err := h.accounts.GetPatientByEmail(r.Context(), profile.Email)
	switch {
	case errors.Is(err, identity.ErrPatientNotFound):
		patient, err = h.accounts.CreatePatient(r.Context(), profile.Email, nil,
			nilIfEmpty(profile.Subject), nilIfEmpty(profile.Name), nilIfEmpty(profile.AvatarURL))
	case err == nil && patient.GoogleID == nil && profile.Subject != "":
		patient, err = h.accounts.LinkGoogleIdentity(r.Context(), patient.ID, profile)
	}
	if err != nil {
		h.logger.Error("google auth failed", "error", err)
		writeError(w, http.StatusInternalServerError, "authentication failed")
		return
	}

	if _, err := h.sessions.Issue(w, RolePatient, patient.ID); err != nil {
		h.logger.Error("failed to issue patient session", "error", err)
		writeError(w, http.StatusInternalServerError, "authentication failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Login successful", "patient": patient})
}

// PatientLogin handles POST /auth/patient/login for patients with a local
// credential. Google-only accounts must use the token exchange.
func (h *Handler) PatientLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "email required")
		return
	}

	patient, err := h.accounts.GetPatientByEmail(r.Context(), req.Email)
	if errors.Is(err, identity.ErrPatientNotFound) {
		writeError(w, http.StatusUnauthorized, ErrInvalidCredentials.Error())
		return
	}
	if err != nil {
		h.logger.Error("patient login lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	if patient.PasswordHash == nil || !CheckPassword(*patient.PasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, ErrInvalidCredentials.Error())
		return
	}

	if _, err := h.sessions.Issue(w, RolePatient, patient.ID); err != nil {
		h.logger.Error("failed to issue patient session", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Login successful", "patient": patient})
}

// PatientLogout handles POST /auth/patient/logout.
func (h *Handler) PatientLogout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Clear(r.Context(), w, r, RolePatient)
	writeJSON(w, http.StatusOK, map[string]any{"message": "Logout successful"})
}

// PharmacistSignup handles POST /auth/pharmacist/signup.
func (h *Handler) PharmacistSignup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "email, password, and name are required")
		return
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		h.logger.Error("failed to hash password", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create account")
		return
	}

	pharmacist, err := h.accounts.CreatePharmacist(r.Context(), req.Email, hash, req.Name)
	if errors.Is(err, identity.ErrEmailTaken) {
		writeError(w, http.StatusConflict, "pharmacist with this email already exists")
		return
	}
	if err != nil {
		h.logger.Error("failed to create pharmacist account", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create account")
		return
	}

	if _, err := h.sessions.Issue(w, RolePharmacist, pharmacist.ID); err != nil {
		h.logger.Error("failed to issue pharmacist session", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create account")
		return
	}
	h.logger.Info("pharmacist account created", "pharmacist_id", pharmacist.ID)
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Pharmacist account created successfully", "pharmacist": pharmacist})
}

// PharmacistLogin handles POST /auth/pharmacist/login.
func (h *Handler) PharmacistLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password required")
		return
	}

	pharmacist, err := h.accounts.GetPharmacistByEmail(r.Context(), req.Email)
	if errors.Is(err, identity.ErrPharmacistNotFound) {
		writeError(w, http.StatusUnauthorized, ErrInvalidCredentials.Error())
		return
	}
	if err != nil {
		h.logger.Error("pharmacist login lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	if !CheckPassword(pharmacist.PasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, ErrInvalidCredentials.Error())
		return
	}

	if _, err := h.sessions.Issue(w, RolePharmacist, pharmacist.ID); err != nil {
		h.logger.Error("failed to issue pharmacist session", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Login successful", "pharmacist": pharmacist})
}

// PharmacistLogout handles POST /auth/pharmacist/logout.
func (h *Handler) PharmacistLogout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Clear(r.Context(), w, r, RolePharmacist)
	writeJSON(w, http.StatusOK, map[string]any{"message": "Logout successful"})
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
