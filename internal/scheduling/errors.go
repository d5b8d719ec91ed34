package scheduling

import "errors"

var (
	// ErrMissingFields is returned when a booking request omits the doctor
	// or the requested start instant.
	ErrMissingFields = errors.New("doctor id and scheduled time required")

	// ErrDoctorNotFound is returned when the referenced doctor does not exist.
	ErrDoctorNotFound = errors.New("doctor not found")

	// ErrTimingNotFound is returned when a named override slot does not exist.
	ErrTimingNotFound = errors.New("time slot not found")

	// ErrSlotTaken is returned when the requested interval or override slot
	// is already booked.
	ErrSlotTaken = errors.New("this time slot is already booked")

	// ErrAppointmentNotFound is returned when an appointment lookup misses.
	ErrAppointmentNotFound = errors.New("appointment not found")
)
