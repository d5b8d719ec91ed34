package identity

import (
	"time"

	"github.com/google/uuid"
)

// Doctor is a prescribing practitioner account.
type Doctor struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	Name           string    `json:"name"`
	Specialization *string   `json:"specialization,omitempty"`
	AvatarURL      *string   `json:"avatar_url,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// DoctorSummary is the patient-facing doctor listing row.
type DoctorSummary struct {
	ID               uuid.UUID `json:"id"`
	Email            string    `json:"email"`
	Name             string    `json:"name"`
	Specialization   *string   `json:"specialization,omitempty"`
	AvatarURL        *string   `json:"avatar_url,omitempty"`
	AppointmentCount int       `json:"appointment_count"`
}

// Patient is a care recipient account. Password is optional: patients
// created through Google sign-in carry no local credential.
type Patient struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash *string   `json:"-"`
	GoogleID     *string   `json:"-"`
	Name         *string   `json:"name,omitempty"`
	AvatarURL    *string   `json:"avatar_url,omitempty"`
	Phone        *string   `json:"phone,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Pharmacist is a dispensing pharmacy account.
type Pharmacist struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"created_at"`
}

// GoogleProfile carries verified claims from a Google ID token exchange.
type GoogleProfile struct {
	Subject   string
	Email     string
	Name      string
	AvatarURL string
}
