package files

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PatientFile is the metadata row for one uploaded document. The object
// itself lives in S3 under Key.
type PatientFile struct {
	ID          uuid.UUID `json:"id"`
	PatientID   uuid.UUID `json:"patient_id"`
	Key         string    `json:"-"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	UploadedAt  time.Time `json:"uploaded_at"`
	DownloadURL string    `json:"download_url,omitempty"`
}

// PgxPool is the pool surface the repository needs; pgxpool.Pool and
// pgxmock both satisfy it.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists patient file metadata in Postgres.
type Repository struct {
	pool PgxPool
}

func NewRepository(pool PgxPool) *Repository {
	if pool == nil {
		panic("files: pgx pool required")
	}
	return &Repository{pool: pool}
}

// Create inserts a metadata row and stamps UploadedAt from it.
func (r *Repository) Create(ctx context.Context, f *PatientFile) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO patient_files (id, patient_id, object_key, file_name, content_type, size_bytes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING uploaded_at`,
		f.ID, f.PatientID, f.Key, f.FileName, f.ContentType, f.SizeBytes,
	).Scan(&f.UploadedAt)
	if err != nil {
		return fmt.Errorf("files: insert: %w", err)
	}
	return nil
}

// GetByID fetches a metadata row.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*PatientFile, error) {
	var f PatientFile
	err := r.pool.QueryRow(ctx, `
		SELECT id, patient_id, object_key, file_name, content_type, size_bytes, uploaded_at
		FROM patient_files WHERE id = $1`, id).
		Scan(&f.ID, &f.PatientID, &f.Key, &f.FileName, &f.ContentType, &f.SizeBytes, &f.UploadedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("files: select: %w", err)
	}
	return &f, nil
}

// ListForPatient returns the patient's files, newest first.
func (r *Repository) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]PatientFile, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, patient_id, object_key, file_name, content_type, size_bytes, uploaded_at
		FROM patient_files
		WHERE patient_id = $1
		ORDER BY uploaded_at DESC`, patientID)
	if err != nil {
		return nil, fmt.Errorf("files: list: %w", err)
	}
	defer rows.Close()

	out := []PatientFile{}
	for rows.Next() {
		var f PatientFile
		if err := rows.Scan(&f.ID, &f.PatientID, &f.Key, &f.FileName, &f.ContentType, &f.SizeBytes, &f.UploadedAt); err != nil {
			return nil, fmt.Errorf("files: scan: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Delete removes a metadata row.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM patient_files WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("files: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrFileNotFound
	}
	return nil
}
