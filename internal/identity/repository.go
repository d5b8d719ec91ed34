package identity

import (
	"context"
	"errors"
	"fmt"

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

// Repository persists doctor, patient, and pharmacist accounts in Postgres.
type Repository struct {
	pool PgxPool
}

// NewRepository initializes a repo backed by pgxpool.
func NewRepository(pool PgxPool) *Repository {
	if pool == nil {
		panic("identity: pgx pool required")
	}
	return &Repository{pool: pool}
}

// CreateDoctor inserts a new doctor account.
func (r *Repository) CreateDoctor(ctx context.Context, email, passwordHash, name string, specialization *string) (*Doctor, error) {
	d := &Doctor{
		ID:             uuid.New(),
		Email:          email,
		PasswordHash:   passwordHash,
		Name:           name,
		Specialization: specialization,
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO doctors (id, email, password_hash, name, specialization)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		d.ID, d.Email, d.PasswordHash, d.Name, d.Specialization,
	).Scan(&d.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("identity: insert doctor: %w", err)
	}
	return d, nil
}

// GetDoctorByEmail fetches a doctor by login email.
func (r *Repository) GetDoctorByEmail(ctx context.Context, email string) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, name, specialization, avatar_url, created_at
		FROM doctors WHERE email = $1`, email)
	return scanDoctor(row)
}

// GetDoctorByID fetches a doctor by id.
func (r *Repository) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, name, specialization, avatar_url, created_at
		FROM doctors WHERE id = $1`, id)
	return scanDoctor(row)
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.Email, &d.PasswordHash, &d.Name, &d.Specialization, &d.AvatarURL, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrDoctorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("identity: select doctor: %w", err)
	}
	return &d, nil
}

// ListDoctors returns all doctors with their appointment counts, name ascending.
func (r *Repository) ListDoctors(ctx context.Context) ([]DoctorSummary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT d.id, d.email, d.name, d.specialization, d.avatar_url,
		       COUNT(a.id) AS appointment_count
		FROM doctors d
		LEFT JOIN appointments a ON a.doctor_id = d.id
		GROUP BY d.id
		ORDER BY d.name ASC`)
	if err != nil {
		return nil, fmt.Errorf("identity: list doctors: %w", err)
	}
	defer rows.Close()

	out := []DoctorSummary{}
	for rows.Next() {
		var s DoctorSummary
		if err := rows.Scan(&s.ID, &s.Email, &s.Name, &s.Specialization, &s.AvatarURL, &s.AppointmentCount); err != nil {
			return nil, fmt.Errorf("identity: scan doctor summary: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// CreatePatient inserts a patient row. Every field except email is optional.
func (r *Repository) CreatePatient(ctx context.Context, email string, passwordHash, googleID, name, avatarURL *string) (*Patient, error) {
	p := &Patient{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: passwordHash,
		GoogleID:     googleID,
		Name:         name,
		AvatarURL:    avatarURL,
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO patients (id, email, password_hash, google_id, name, avatar_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		p.ID, p.Email, p.PasswordHash, p.GoogleID, p.Name, p.AvatarURL,
	).Scan(&p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("identity: insert patient: %w", err)
	}
	return p, nil
}

// GetPatientByEmail fetches a patient by email.
func (r *Repository) GetPatientByEmail(ctx context.Context, email string) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, google_id, name, avatar_url, phone, created_at
		FROM patients WHERE email = $1`, email)
	return scanPatient(row)
}

// GetPatientByID fetches a patient by id.
func (r *Repository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, google_id, name, avatar_url, phone, created_at
		FROM patients WHERE id = $1`, id)
	return scanPatient(row)
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.Email, &p.PasswordHash, &p.GoogleID, &p.Name, &p.AvatarURL, &p.Phone, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("identity: select patient: %w", err)
	}
	return &p, nil
}

// LinkGoogleIdentity attaches a Google subject to an existing patient and
// backfills name/avatar when the profile has them and the row does not.
func (r *Repository) LinkGoogleIdentity(ctx context.Context, id uuid.UUID, profile GoogleProfile) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE patients
		SET google_id = $2,
		    name = COALESCE(name, NULLIF($3, '')),
		    avatar_url = COALESCE(avatar_url, NULLIF($4, ''))
		WHERE id = $1
		RETURNING id, email, password_hash, google_id, name, avatar_url, phone, created_at`,
		id, profile.Subject, profile.Name, profile.AvatarURL)
	return scanPatient(row)
}

// CreatePharmacist inserts a new pharmacist account.
func (r *Repository) CreatePharmacist(ctx context.Context, email, passwordHash, name string) (*Pharmacist, error) {
	ph := &Pharmacist{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO pharmacists (id, email, password_hash, name)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`,
		ph.ID, ph.Email, ph.PasswordHash, ph.Name,
	).Scan(&ph.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("identity: insert pharmacist: %w", err)
	}
	return ph, nil
}

// GetPharmacistByEmail fetches a pharmacist by email.
func (r *Repository) GetPharmacistByEmail(ctx context.Context, email string) (*Pharmacist, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, name, created_at
		FROM pharmacists WHERE email = $1`, email)
	return scanPharmacist(row)
}

// GetPharmacistByID fetches a pharmacist by id.
func (r *Repository) GetPharmacistByID(ctx context.Context, id uuid.UUID) (*Pharmacist, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, name, created_at
		FROM pharmacists WHERE id = $1`, id)
	return scanPharmacist(row)
}

func scanPharmacist(row pgx.Row) (*Pharmacist, error) {
	var ph Pharmacist
	err := row.Scan(&ph.ID, &ph.Email, &ph.PasswordHash, &ph.Name, &ph.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPharmacistNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("identity: select pharmacist: %w", err)
	}
	return &ph, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
