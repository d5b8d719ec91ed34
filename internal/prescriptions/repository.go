package prescriptions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the pool surface the repository needs; pgxpool.Pool and
// pgxmock both satisfy it.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists prescriptions in Postgres.
type Repository struct {
	pool PgxPool
}

func NewRepository(pool PgxPool) *Repository {
	if pool == nil {
		panic("prescriptions: pgx pool required")
	}
	return &Repository{pool: pool}
}

// PatientExists reports whether a patient row exists.
func (r *Repository) PatientExists(ctx context.Context, patientID uuid.UUID) (bool, error) {
	var one int
	err := r.pool.QueryRow(ctx, `SELECT 1 FROM patients WHERE id = $1`, patientID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("prescriptions: patient exists: %w", err)
	}
	return true, nil
}

// Create inserts a PENDING prescription and stamps CreatedAt from the row.
func (r *Repository) Create(ctx context.Context, p *Prescription) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO prescriptions (id, patient_id, doctor_id, appointment_id, content, status)
		VALUES ($1, $2, $3, $4, $5, 'PENDING')
		RETURNING created_at`,
		p.ID, p.PatientID, p.DoctorID, p.AppointmentID, p.Content,
	).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("prescriptions: insert: %w", err)
	}
	p.Status = StatusPending
	return nil
}

// GetByID fetches a bare prescription row.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	var p Prescription
	err := r.pool.QueryRow(ctx, `
		SELECT id, patient_id, doctor_id, appointment_id, pharmacy_id, content, status,
		       created_at, issued_at, expires_at, dispensed_at
		FROM prescriptions WHERE id = $1`, id).
		Scan(&p.ID, &p.PatientID, &p.DoctorID, &p.AppointmentID, &p.PharmacyID, &p.Content,
			&p.Status, &p.CreatedAt, &p.IssuedAt, &p.ExpiresAt, &p.DispensedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("prescriptions: select: %w", err)
	}
	return &p, nil
}

// Finalize conditionally moves a PENDING prescription to READY_FOR_PICKUP.
// Returns false when the row has already left PENDING.
func (r *Repository) Finalize(ctx context.Context, id uuid.UUID, issuedAt, expiresAt time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE prescriptions
		SET status = 'READY_FOR_PICKUP', issued_at = $2, expires_at = $3
		WHERE id = $1 AND status = 'PENDING'`, id, issuedAt, expiresAt)
	if err != nil {
		return false, fmt.Errorf("prescriptions: finalize: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// DeletePending hard-deletes a prescription while it is still PENDING.
func (r *Repository) DeletePending(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM prescriptions WHERE id = $1 AND status = 'PENDING'`, id)
	if err != nil {
		return false, fmt.Errorf("prescriptions: delete pending: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ExpireDue bulk-moves READY_FOR_PICKUP rows past their expiry to EXPIRED
// and returns how many it moved. Idempotent.
func (r *Repository) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE prescriptions SET status = 'EXPIRED'
		WHERE status = 'READY_FOR_PICKUP' AND expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("prescriptions: expire due: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// Expire moves a single row to EXPIRED regardless of expiry time.
func (r *Repository) Expire(ctx context.Context, id uuid.UUID) error {
	if _, err := r.pool.Exec(ctx, `
		UPDATE prescriptions SET status = 'EXPIRED' WHERE id = $1`, id); err != nil {
		return fmt.Errorf("prescriptions: expire: %w", err)
	}
	return nil
}

// Purchase conditionally moves a READY_FOR_PICKUP prescription to PURCHASED,
// recording the dispensing pharmacy. Returns false when the row has left
// READY_FOR_PICKUP.
func (r *Repository) Purchase(ctx context.Context, id, pharmacyID uuid.UUID, dispensedAt time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE prescriptions
		SET status = 'PURCHASED', dispensed_at = $2, pharmacy_id = $3
		WHERE id = $1 AND status = 'READY_FOR_PICKUP'`, id, dispensedAt, pharmacyID)
	if err != nil {
		return false, fmt.Errorf("prescriptions: purchase: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListReady returns non-expired READY_FOR_PICKUP prescriptions with patient
// and doctor summaries, newest issued first.
func (r *Repository) ListReady(ctx context.Context, now time.Time) ([]WithParties, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT pr.id, pr.patient_id, pr.doctor_id, pr.appointment_id, pr.pharmacy_id, pr.content,
		       pr.status, pr.created_at, pr.issued_at, pr.expires_at, pr.dispensed_at,
		       p.id, p.email, p.name, p.phone,
		       d.id, d.name, d.specialization
		FROM prescriptions pr
		JOIN patients p ON p.id = pr.patient_id
		JOIN doctors d ON d.id = pr.doctor_id
		WHERE pr.status = 'READY_FOR_PICKUP' AND pr.expires_at > $1
		ORDER BY pr.issued_at DESC`, now)
	if err != nil {
		return nil, fmt.Errorf("prescriptions: list ready: %w", err)
	}
	return scanWithParties(rows)
}

// ListPurchasedByPharmacy returns the prescriptions a pharmacy has
// dispensed, newest dispensed first.
func (r *Repository) ListPurchasedByPharmacy(ctx context.Context, pharmacyID uuid.UUID) ([]WithParties, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT pr.id, pr.patient_id, pr.doctor_id, pr.appointment_id, pr.pharmacy_id, pr.content,
		       pr.status, pr.created_at, pr.issued_at, pr.expires_at, pr.dispensed_at,
		       p.id, p.email, p.name, p.phone,
		       d.id, d.name, d.specialization
		FROM prescriptions pr
		JOIN patients p ON p.id = pr.patient_id
		JOIN doctors d ON d.id = pr.doctor_id
		WHERE pr.pharmacy_id = $1 AND pr.status = 'PURCHASED'
		ORDER BY pr.dispensed_at DESC`, pharmacyID)
	if err != nil {
		return nil, fmt.Errorf("prescriptions: list purchased: %w", err)
	}
	return scanWithParties(rows)
}

func scanWithParties(rows pgx.Rows) ([]WithParties, error) {
	defer rows.Close()
	out := []WithParties{}
	for rows.Next() {
		var p WithParties
		if err := rows.Scan(
			&p.ID, &p.PatientID, &p.DoctorID, &p.AppointmentID, &p.PharmacyID, &p.Content,
			&p.Status, &p.CreatedAt, &p.IssuedAt, &p.ExpiresAt, &p.DispensedAt,
			&p.Patient.ID, &p.Patient.Email, &p.Patient.Name, &p.Patient.Phone,
			&p.Doctor.ID, &p.Doctor.Name, &p.Doctor.Specialization,
		); err != nil {
			return nil, fmt.Errorf("prescriptions: scan row: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListForPatient returns all of a patient's prescriptions with the issuing
// doctor and, when linked, the appointment, newest created first.
func (r *Repository) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]WithDoctor, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT pr.id, pr.patient_id, pr.doctor_id, pr.appointment_id, pr.pharmacy_id, pr.content,
		       pr.status, pr.created_at, pr.issued_at, pr.expires_at, pr.dispensed_at,
		       d.id, d.name, d.specialization,
		       a.scheduled_at, a.status
		FROM prescriptions pr
		JOIN doctors d ON d.id = pr.doctor_id
		LEFT JOIN appointments a ON a.id = pr.appointment_id
		WHERE pr.patient_id = $1
		ORDER BY pr.created_at DESC`, patientID)
	if err != nil {
		return nil, fmt.Errorf("prescriptions: list for patient: %w", err)
	}
	defer rows.Close()

	out := []WithDoctor{}
	for rows.Next() {
		var p WithDoctor
		var scheduledAt *time.Time
		var apptStatus *string
		if err := rows.Scan(
			&p.ID, &p.PatientID, &p.DoctorID, &p.AppointmentID, &p.PharmacyID, &p.Content,
			&p.Status, &p.CreatedAt, &p.IssuedAt, &p.ExpiresAt, &p.DispensedAt,
			&p.Doctor.ID, &p.Doctor.Name, &p.Doctor.Specialization,
			&scheduledAt, &apptStatus,
		); err != nil {
			return nil, fmt.Errorf("prescriptions: scan patient row: %w", err)
		}
		if scheduledAt != nil && apptStatus != nil {
			p.Appointment = &AppointmentSummary{ScheduledAt: *scheduledAt, Status: *apptStatus}
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetByAppointmentForPatient fetches the prescription linked to an
// appointment, scoped to the owning patient.
func (r *Repository) GetByAppointmentForPatient(ctx context.Context, appointmentID, patientID uuid.UUID) (*WithDoctor, error) {
	var p WithDoctor
	err := r.pool.QueryRow(ctx, `
		SELECT pr.id, pr.patient_id, pr.doctor_id, pr.appointment_id, pr.pharmacy_id, pr.content,
		       pr.status, pr.created_at, pr.issued_at, pr.expires_at, pr.dispensed_at,
		       d.id, d.name, d.specialization
		FROM prescriptions pr
		JOIN doctors d ON d.id = pr.doctor_id
		WHERE pr.appointment_id = $1 AND pr.patient_id = $2`, appointmentID, patientID).
		Scan(
			&p.ID, &p.PatientID, &p.DoctorID, &p.AppointmentID, &p.PharmacyID, &p.Content,
			&p.Status, &p.CreatedAt, &p.IssuedAt, &p.ExpiresAt, &p.DispensedAt,
			&p.Doctor.ID, &p.Doctor.Name, &p.Doctor.Specialization,
		)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("prescriptions: select by appointment: %w", err)
	}
	return &p, nil
}

// ListForPatientByDoctor returns one doctor's prescriptions for a patient,
// newest created first, with the linked appointment when present.
func (r *Repository) ListForPatientByDoctor(ctx context.Context, patientID, doctorID uuid.UUID) ([]WithDoctor, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT pr.id, pr.patient_id, pr.doctor_id, pr.appointment_id, pr.pharmacy_id, pr.content,
		       pr.status, pr.created_at, pr.issued_at, pr.expires_at, pr.dispensed_at,
		       d.id, d.name, d.specialization,
		       a.scheduled_at, a.status
		FROM prescriptions pr
		JOIN doctors d ON d.id = pr.doctor_id
		LEFT JOIN appointments a ON a.id = pr.appointment_id
		WHERE pr.patient_id = $1 AND pr.doctor_id = $2
		ORDER BY pr.created_at DESC`, patientID, doctorID)
	if err != nil {
		return nil, fmt.Errorf("prescriptions: list for patient by doctor: %w", err)
	}
	defer rows.Close()

	out := []WithDoctor{}
	for rows.Next() {
		var p WithDoctor
		var scheduledAt *time.Time
		var apptStatus *string
		if err := rows.Scan(
			&p.ID, &p.PatientID, &p.DoctorID, &p.AppointmentID, &p.PharmacyID, &p.Content,
			&p.Status, &p.CreatedAt, &p.IssuedAt, &p.ExpiresAt, &p.DispensedAt,
			&p.Doctor.ID, &p.Doctor.Name, &p.Doctor.Specialization,
			&scheduledAt, &apptStatus,
		); err != nil {
			return nil, fmt.Errorf("prescriptions: scan doctor-patient row: %w", err)
		}
		if scheduledAt != nil && apptStatus != nil {
			p.Appointment = &AppointmentSummary{ScheduledAt: *scheduledAt, Status: *apptStatus}
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
