package prescriptions

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a prescription.
type Status string

const (
	StatusPending        Status = "PENDING"
	StatusReadyForPickup Status = "READY_FOR_PICKUP"
	StatusPurchased      Status = "PURCHASED"
	StatusExpired        Status = "EXPIRED"
)

// ReadyWindow is how long a finalized prescription stays pickable.
const ReadyWindow = 48 * time.Hour

// Prescription is a doctor-issued medication order for one patient.
// IssuedAt and ExpiresAt are stamped together at finalization;
// DispensedAt and PharmacyID at purchase.
type Prescription struct {
	ID            uuid.UUID  `json:"id"`
	PatientID     uuid.UUID  `json:"patient_id"`
	DoctorID      uuid.UUID  `json:"doctor_id"`
	AppointmentID *uuid.UUID `json:"appointment_id,omitempty"`
	PharmacyID    *uuid.UUID `json:"pharmacy_id,omitempty"`
	Content       string     `json:"content"`
	Status        Status     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	IssuedAt      *time.Time `json:"issued_at,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	DispensedAt   *time.Time `json:"dispensed_at,omitempty"`
}

// DoctorSummary is the issuing-doctor view embedded in prescription payloads.
type DoctorSummary struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Specialization *string   `json:"specialization,omitempty"`
}

// PatientSummary is the patient view embedded in pharmacist payloads.
type PatientSummary struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  *string   `json:"name,omitempty"`
	Phone *string   `json:"phone,omitempty"`
}

// AppointmentSummary is the linked-appointment view in patient payloads.
type AppointmentSummary struct {
	ScheduledAt time.Time `json:"scheduled_at"`
	Status      string    `json:"status"`
}

// WithDoctor is the patient-facing prescription row: the issuing doctor
// plus, when linked, the appointment it came out of.
type WithDoctor struct {
	Prescription
	Doctor      DoctorSummary       `json:"doctor"`
	Appointment *AppointmentSummary `json:"appointment,omitempty"`
}

// WithParties is the pharmacist-facing prescription row.
type WithParties struct {
	Prescription
	Patient PatientSummary `json:"patient"`
	Doctor  DoctorSummary  `json:"doctor"`
}
