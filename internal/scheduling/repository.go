package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is satisfied by both the pool and a pgx.Tx, so repository calls
// can run inside or outside a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgxPool is the pool surface the repository needs; pgxpool.Pool and
// pgxmock both satisfy it.
type PgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists appointments and doctor override slots in Postgres.
type Repository struct {
	pool PgxPool
}

// NewRepository initializes a repo backed by pgxpool.
func NewRepository(pool PgxPool) *Repository {
	if pool == nil {
		panic("scheduling: pgx pool required")
	}
	return &Repository{pool: pool}
}

// Begin opens a transaction for multi-statement booking operations.
func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// DoctorExists reports whether a doctor row exists.
func (r *Repository) DoctorExists(ctx context.Context, doctorID uuid.UUID) (bool, error) {
	var one int
	err := r.pool.QueryRow(ctx, `SELECT 1 FROM doctors WHERE id = $1`, doctorID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("scheduling: doctor exists: %w", err)
	}
	return true, nil
}

// ListTimingsForDay returns override slots whose start falls in [from, to),
// ordered ascending by start.
func (r *Repository) ListTimingsForDay(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]DoctorTiming, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, doctor_id, start_time, end_time, is_booked, created_at
		FROM doctor_timings
		WHERE doctor_id = $1 AND start_time >= $2 AND start_time < $3
		ORDER BY start_time ASC`, doctorID, from, to)
	if err != nil {
		return nil, fmt.Errorf("scheduling: list timings: %w", err)
	}
	defer rows.Close()

	var out []DoctorTiming
	for rows.Next() {
		var t DoctorTiming
		if err := rows.Scan(&t.ID, &t.DoctorID, &t.StartTime, &t.EndTime, &t.IsBooked, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scheduling: scan timing: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetTiming fetches an override slot by id.
func (r *Repository) GetTiming(ctx context.Context, q Querier, id uuid.UUID) (*DoctorTiming, error) {
	if q == nil {
		q = r.pool
	}
	var t DoctorTiming
	err := q.QueryRow(ctx, `
		SELECT id, doctor_id, start_time, end_time, is_booked, created_at
		FROM doctor_timings WHERE id = $1`, id).
		Scan(&t.ID, &t.DoctorID, &t.StartTime, &t.EndTime, &t.IsBooked, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTimingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scheduling: select timing: %w", err)
	}
	return &t, nil
}

// ClaimTiming atomically flips an override slot to booked. Returns false
// when the slot was already booked (zero rows updated). The conditional
// update is what makes concurrent claims safe.
func (r *Repository) ClaimTiming(ctx context.Context, q Querier, id uuid.UUID) (bool, error) {
	if q == nil {
		q = r.pool
	}
	tag, err := q.Exec(ctx, `
		UPDATE doctor_timings SET is_booked = TRUE
		WHERE id = $1 AND is_booked = FALSE`, id)
	if err != nil {
		return false, fmt.Errorf("scheduling: claim timing: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListActiveAppointments returns BOOKED/COMPLETED appointments for the
// doctor whose start falls in [from, to), ordered ascending.
func (r *Repository) ListActiveAppointments(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, patient_id, doctor_id, scheduled_at, duration_minutes, status, created_at
		FROM appointments
		WHERE doctor_id = $1 AND scheduled_at >= $2 AND scheduled_at < $3
		  AND status IN ('BOOKED', 'COMPLETED')
		ORDER BY scheduled_at ASC`, doctorID, from, to)
	if err != nil {
		return nil, fmt.Errorf("scheduling: list active appointments: %w", err)
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		var a Appointment
		if err := rows.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.ScheduledAt, &a.DurationMinutes, &a.Status, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scheduling: scan appointment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// CreateAppointment inserts a BOOKED appointment. The appointments table
// carries an exclusion constraint over (doctor_id, interval) for active
// rows; a violation surfaces as ErrSlotTaken.
func (r *Repository) CreateAppointment(ctx context.Context, q Querier, patientID, doctorID uuid.UUID, scheduledAt time.Time, durationMinutes int) (*Appointment, error) {
	if q == nil {
		q = r.pool
	}
	a := &Appointment{
		ID:              uuid.New(),
		PatientID:       patientID,
		DoctorID:        doctorID,
		ScheduledAt:     scheduledAt,
		DurationMinutes: durationMinutes,
		Status:          StatusBooked,
	}
	err := q.QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, scheduled_at, duration_minutes, status)
		VALUES ($1, $2, $3, $4, $5, 'BOOKED')
		RETURNING created_at`,
		a.ID, a.PatientID, a.DoctorID, a.ScheduledAt, a.DurationMinutes,
	).Scan(&a.CreatedAt)
	if err != nil {
		if isExclusionViolation(err) {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("scheduling: insert appointment: %w", err)
	}
	return a, nil
}

// ListPatientAppointments returns all of a patient's appointments with
// doctor summaries, newest first.
func (r *Repository) ListPatientAppointments(ctx context.Context, patientID uuid.UUID) ([]AppointmentWithDoctor, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id, a.patient_id, a.doctor_id, a.scheduled_at, a.duration_minutes, a.status, a.created_at,
		       d.id, d.name, d.email, d.specialization, d.avatar_url
		FROM appointments a
		JOIN doctors d ON d.id = a.doctor_id
		WHERE a.patient_id = $1
		ORDER BY a.scheduled_at DESC`, patientID)
	if err != nil {
		return nil, fmt.Errorf("scheduling: list patient appointments: %w", err)
	}
	defer rows.Close()

	out := []AppointmentWithDoctor{}
	for rows.Next() {
		var a AppointmentWithDoctor
		if err := rows.Scan(
			&a.ID, &a.PatientID, &a.DoctorID, &a.ScheduledAt, &a.DurationMinutes, &a.Status, &a.CreatedAt,
			&a.Doctor.ID, &a.Doctor.Name, &a.Doctor.Email, &a.Doctor.Specialization, &a.Doctor.AvatarURL,
		); err != nil {
			return nil, fmt.Errorf("scheduling: scan patient appointment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListDoctorBookedAppointments returns a doctor's BOOKED appointments with
// patient summaries, soonest first.
func (r *Repository) ListDoctorBookedAppointments(ctx context.Context, doctorID uuid.UUID) ([]AppointmentWithPatient, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id, a.patient_id, a.doctor_id, a.scheduled_at, a.duration_minutes, a.status, a.created_at,
		       p.id, p.email, p.name, p.avatar_url, p.phone
		FROM appointments a
		JOIN patients p ON p.id = a.patient_id
		WHERE a.doctor_id = $1 AND a.status = 'BOOKED'
		ORDER BY a.scheduled_at ASC`, doctorID)
	if err != nil {
		return nil, fmt.Errorf("scheduling: list doctor appointments: %w", err)
	}
	defer rows.Close()

	out := []AppointmentWithPatient{}
	for rows.Next() {
		var a AppointmentWithPatient
		if err := rows.Scan(
			&a.ID, &a.PatientID, &a.DoctorID, &a.ScheduledAt, &a.DurationMinutes, &a.Status, &a.CreatedAt,
			&a.Patient.ID, &a.Patient.Email, &a.Patient.Name, &a.Patient.AvatarURL, &a.Patient.Phone,
		); err != nil {
			return nil, fmt.Errorf("scheduling: scan doctor appointment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetAppointment fetches a bare appointment row.
func (r *Repository) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	var a Appointment
	err := r.pool.QueryRow(ctx, `
		SELECT id, patient_id, doctor_id, scheduled_at, duration_minutes, status, created_at
		FROM appointments WHERE id = $1`, id).
		Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.ScheduledAt, &a.DurationMinutes, &a.Status, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAppointmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scheduling: select appointment: %w", err)
	}
	return &a, nil
}

// GetAppointmentWithPatient fetches an appointment joined with its patient.
func (r *Repository) GetAppointmentWithPatient(ctx context.Context, id uuid.UUID) (*AppointmentWithPatient, error) {
	var a AppointmentWithPatient
	err := r.pool.QueryRow(ctx, `
		SELECT a.id, a.patient_id, a.doctor_id, a.scheduled_at, a.duration_minutes, a.status, a.created_at,
		       p.id, p.email, p.name, p.avatar_url, p.phone
		FROM appointments a
		JOIN patients p ON p.id = a.patient_id
		WHERE a.id = $1`, id).
		Scan(
			&a.ID, &a.PatientID, &a.DoctorID, &a.ScheduledAt, &a.DurationMinutes, &a.Status, &a.CreatedAt,
			&a.Patient.ID, &a.Patient.Email, &a.Patient.Name, &a.Patient.AvatarURL, &a.Patient.Phone,
		)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAppointmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scheduling: select appointment detail: %w", err)
	}
	return &a, nil
}

func isExclusionViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23P01"
}
