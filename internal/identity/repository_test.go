package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
)

func newTestRepo(t *testing.T) (*Repository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(mock.Close)
	return NewRepository(mock), mock
}

func TestCreateDoctor(t *testing.T) {
	repo, mock := newTestRepo(t)
	created := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery("INSERT INTO doctors").
		WithArgs(pgxmock.AnyArg(), "wu@clinic.test", "hash", "Dr. Wu", (*string)(nil)).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(created))

	doctor, err := repo.CreateDoctor(context.Background(), "wu@clinic.test", "hash", "Dr. Wu", nil)
	if err != nil {
		t.Fatalf("CreateDoctor: %v", err)
	}
	if doctor.Email != "wu@clinic.test" || !doctor.CreatedAt.Equal(created) {
		t.Fatalf("unexpected doctor %+v", doctor)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestCreateDoctorDuplicateEmail(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectQuery("INSERT INTO doctors").
		WithArgs(pgxmock.AnyArg(), "wu@clinic.test", "hash", "Dr. Wu", (*string)(nil)).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "doctors_email_key"})

	_, err := repo.CreateDoctor(context.Background(), "wu@clinic.test", "hash", "Dr. Wu", nil)
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("err = %v, want ErrEmailTaken", err)
	}
}

func TestGetDoctorByEmailNotFound(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectQuery("FROM doctors WHERE email").
		WithArgs("nobody@clinic.test").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetDoctorByEmail(context.Background(), "nobody@clinic.test")
	if !errors.Is(err, ErrDoctorNotFound) {
		t.Fatalf("err = %v, want ErrDoctorNotFound", err)
	}
}

func TestGetDoctorByID(t *testing.T) {
	repo, mock := newTestRepo(t)
	id := uuid.New()
	specialty := "dermatology"

	mock.ExpectQuery("FROM doctors WHERE id").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"id", "email", "password_hash", "name", "specialization", "avatar_url", "created_at"}).
			AddRow(id, "wu@clinic.test", "hash", "Dr. Wu", &specialty, (*string)(nil), time.Now()))

	doctor, err := repo.GetDoctorByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetDoctorByID: %v", err)
	}
	if doctor.Specialization == nil || *doctor.Specialization != "dermatology" {
		t.Fatalf("unexpected doctor %+v", doctor)
	}
}

func TestListDoctorsIncludesAppointmentCounts(t *testing.T) {
	repo, mock := newTestRepo(t)
	first, second := uuid.New(), uuid.New()

	mock.ExpectQuery("LEFT JOIN appointments").
		WillReturnRows(pgxmock.NewRows([]string{"id", "email", "name", "specialization", "avatar_url", "appointment_count"}).
			AddRow(first, "an@clinic.test", "Dr. An", (*string)(nil), (*string)(nil), 3).
			AddRow(second, "wu@clinic.test", "Dr. Wu", (*string)(nil), (*string)(nil), 0))

	doctors, err := repo.ListDoctors(context.Background())
	if err != nil {
		t.Fatalf("ListDoctors: %v", err)
	}
	if len(doctors) != 2 {
		t.Fatalf("len = %d, want 2", len(doctors))
	}
	if doctors[0].AppointmentCount != 3 || doctors[1].AppointmentCount != 0 {
		t.Fatalf("unexpected counts %+v", doctors)
	}
}

func TestCreatePatientGoogleOnly(t *testing.T) {
	repo, mock := newTestRepo(t)
	sub, name := "google-sub-1", "Pat Doe"

	mock.ExpectQuery("INSERT INTO patients").
		WithArgs(pgxmock.AnyArg(), "pat@clinic.test", (*string)(nil), &sub, &name, (*string)(nil)).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	patient, err := repo.CreatePatient(context.Background(), "pat@clinic.test", nil, &sub, &name, nil)
	if err != nil {
		t.Fatalf("CreatePatient: %v", err)
	}
	if patient.PasswordHash != nil {
		t.Fatal("google-only patient should have no password hash")
	}
	if patient.GoogleID == nil || *patient.GoogleID != sub {
		t.Fatalf("unexpected patient %+v", patient)
	}
}

func TestLinkGoogleIdentityBackfillsProfile(t *testing.T) {
	repo, mock := newTestRepo(t)
	id := uuid.New()
	sub, name := "google-sub-2", "Pat Doe"

	mock.ExpectQuery("UPDATE patients").
		WithArgs(id, sub, name, "https://lh3.example/pat.png").
		WillReturnRows(pgxmock.NewRows([]string{"id", "email", "password_hash", "google_id", "name", "avatar_url", "phone", "created_at"}).
			AddRow(id, "pat@clinic.test", (*string)(nil), &sub, &name, (*string)(nil), (*string)(nil), time.Now()))

	patient, err := repo.LinkGoogleIdentity(context.Background(), id, GoogleProfile{
		Subject:   sub,
		Email:     "pat@clinic.test",
		Name:      name,
		AvatarURL: "https://lh3.example/pat.png",
	})
	if err != nil {
		t.Fatalf("LinkGoogleIdentity: %v", err)
	}
	if patient.GoogleID == nil || *patient.GoogleID != sub {
		t.Fatalf("unexpected patient %+v", patient)
	}
}

func TestLinkGoogleIdentityMissingPatient(t *testing.T) {
	repo, mock := newTestRepo(t)
	id := uuid.New()

	mock.ExpectQuery("UPDATE patients").
		WithArgs(id, "google-sub-3", "", "").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.LinkGoogleIdentity(context.Background(), id, GoogleProfile{Subject: "google-sub-3"})
	if !errors.Is(err, ErrPatientNotFound) {
		t.Fatalf("err = %v, want ErrPatientNotFound", err)
	}
}

func TestGetPharmacistByEmail(t *testing.T) {
	repo, mock := newTestRepo(t)
	id := uuid.New()

	mock.ExpectQuery("FROM pharmacists WHERE email").
		WithArgs("rx@pharmacy.test").
		WillReturnRows(pgxmock.NewRows([]string{"id", "email", "password_hash", "name", "created_at"}).
			AddRow(id, "rx@pharmacy.test", "hash", "Central Pharmacy", time.Now()))

	pharmacist, err := repo.GetPharmacistByEmail(context.Background(), "rx@pharmacy.test")
	if err != nil {
		t.Fatalf("GetPharmacistByEmail: %v", err)
	}
	if pharmacist.ID != id {
		t.Fatalf("unexpected pharmacist %+v", pharmacist)
	}

	mock.ExpectQuery("FROM pharmacists WHERE email").
		WithArgs("nobody@pharmacy.test").
		WillReturnError(pgx.ErrNoRows)

	if _, err := repo.GetPharmacistByEmail(context.Background(), "nobody@pharmacy.test"); !errors.Is(err, ErrPharmacistNotFound) {
		t.Fatalf("err = %v, want ErrPharmacistNotFound", err)
	}
}

func TestCreatePharmacistDuplicateEmail(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectQuery("INSERT INTO pharmacists").
		WithArgs(pgxmock.AnyArg(), "rx@pharmacy.test", "hash", "Central Pharmacy").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := repo.CreatePharmacist(context.Background(), "rx@pharmacy.test", "hash", "Central Pharmacy")
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("err = %v, want ErrEmailTaken", err)
	}
}
