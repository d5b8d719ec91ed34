package identity

import "errors"

var (
	// ErrDoctorNotFound is returned when a doctor lookup misses.
	ErrDoctorNotFound = errors.New("doctor not found")

	// ErrPatientNotFound is returned when a patient lookup misses.
	ErrPatientNotFound = errors.New("patient not found")

	// ErrPharmacistNotFound is returned when a pharmacist lookup misses.
	ErrPharmacistNotFound = errors.New("pharmacist not found")

	// ErrEmailTaken is returned when a signup collides with an existing account.
	ErrEmailTaken = errors.New("account with this email already exists")
)
