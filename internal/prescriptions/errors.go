package prescriptions

import "errors"

var (
	// ErrMissingFields is returned when a create request omits the patient
	// or the prescription content.
	ErrMissingFields = errors.New("patient id and content are required")

	// ErrPatientNotFound is returned when the referenced patient does not exist.
	ErrPatientNotFound = errors.New("patient not found")

	// ErrNotFound is returned when a prescription lookup misses.
	ErrNotFound = errors.New("prescription not found")

	// ErrNotIssuer is returned when a doctor acts on another doctor's
	// prescription.
	ErrNotIssuer = errors.New("prescription belongs to another doctor")

	// ErrNotPending is returned when finalize or delete targets a
	// prescription that has left PENDING.
	ErrNotPending = errors.New("only pending prescriptions can be modified")

	// ErrNotReady is returned when purchase targets a prescription that is
	// not READY_FOR_PICKUP.
	ErrNotReady = errors.New("only ready prescriptions can be marked as purchased")

	// ErrExpired is returned when purchase targets a prescription whose
	// pickup window has lapsed.
	ErrExpired = errors.New("prescription has expired")
)
