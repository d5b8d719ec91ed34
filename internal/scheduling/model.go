package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// AppointmentStatus is the lifecycle state of an appointment.
type AppointmentStatus string

const (
	StatusBooked    AppointmentStatus = "BOOKED"
	StatusCompleted AppointmentStatus = "COMPLETED"
	StatusCancelled AppointmentStatus = "CANCELLED"
)

// Appointment is a booked visit between one patient and one doctor.
type Appointment struct {
	ID              uuid.UUID         `json:"id"`
	PatientID       uuid.UUID         `json:"patient_id"`
	DoctorID        uuid.UUID         `json:"doctor_id"`
	ScheduledAt     time.Time         `json:"scheduled_at"`
	DurationMinutes int               `json:"duration"`
	Status          AppointmentStatus `json:"status"`
	CreatedAt       time.Time         `json:"created_at"`
}

// End is the exclusive end instant of the appointment interval.
func (a Appointment) End() time.Time {
	return a.ScheduledAt.Add(time.Duration(a.DurationMinutes) * time.Minute)
}

// DoctorRef is the doctor summary embedded in appointment payloads.
type DoctorRef struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Specialization *string   `json:"specialization,omitempty"`
	AvatarURL      *string   `json:"avatar_url,omitempty"`
}

// PatientRef is the patient summary embedded in appointment payloads.
type PatientRef struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      *string   `json:"name,omitempty"`
	AvatarURL *string   `json:"avatar_url,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
}

// AppointmentWithDoctor is the patient-facing appointment row.
type AppointmentWithDoctor struct {
	Appointment
	Doctor DoctorRef `json:"doctor"`
}

// AppointmentWithPatient is the doctor-facing appointment row.
type AppointmentWithPatient struct {
	Appointment
	Patient PatientRef `json:"patient"`
}

// DoctorTiming is a persisted override slot superseding the generated
// default schedule for its day.
type DoctorTiming struct {
	ID        uuid.UUID `json:"id"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	IsBooked  bool      `json:"is_booked"`
	CreatedAt time.Time `json:"created_at"`
}

// TimeSlot is one bookable interval in an availability response. Generated
// slots carry a synthetic "default-" id; override slots carry the
// DoctorTiming row id.
type TimeSlot struct {
	ID        string    `json:"id"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	IsBooked  bool      `json:"is_booked"`
}

// overlaps reports strict interval overlap: [aStart,aEnd) and [bStart,bEnd)
// overlap iff aStart < bEnd and aEnd > bStart. Back-to-back intervals do
// not overlap.
func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}
