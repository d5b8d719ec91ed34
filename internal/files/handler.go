package files

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mediflow/clinic-platform/internal/auth"
	"github.com/mediflow/clinic-platform/pkg/logging"
)

// DefaultSizeLimit caps uploaded documents at 10 MiB.
const DefaultSizeLimit = 10 << 20

// Handler serves patient document upload, listing, and deletion. Documents
// are PDF prescriptions uploaded under the multipart field "prescription".
type Handler struct {
	repo      *Repository
	store     *ObjectStore
	logger    *logging.Logger
	sizeLimit int64
	now       func() time.Time
}

func NewHandler(repo *Repository, store *ObjectStore, sizeLimit int64, logger *logging.Logger) *Handler {
	if sizeLimit <= 0 {
		sizeLimit = DefaultSizeLimit
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, store: store, logger: logger, sizeLimit: sizeLimit, now: time.Now}
}

// Upload handles POST /patient/files/upload.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	// The extra byte lets an over-limit upload be told apart from one
	// exactly at the limit.
	r.Body = http.MaxBytesReader(w, r.Body, h.sizeLimit+1)
	if err := r.ParseMultipartForm(h.sizeLimit); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, http.StatusBadRequest, ErrTooLarge.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}

	file, header, err := r.FormFile("prescription")
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrNoFile.Error())
		return
	}
	defer file.Close()

	if !isPDF(header.Header.Get("Content-Type"), header.Filename) {
		writeError(w, http.StatusBadRequest, ErrNotPDF.Error())
		return
	}

	body, err := io.ReadAll(io.LimitReader(file, h.sizeLimit+1))
	if err != nil {
		h.logger.Error("read upload failed", "error", err, "patient_id", actor.ID)
		writeError(w, http.StatusInternalServerError, "failed to upload prescription")
		return
	}
	if int64(len(body)) > h.sizeLimit {
		writeError(w, http.StatusBadRequest, ErrTooLarge.Error())
		return
	}

	key := NewKey(actor.ID, h.now())
	if err := h.store.Put(r.Context(), key, body, "application/pdf"); err != nil {
		h.logger.Error("object upload failed", "error", err, "patient_id", actor.ID)
		writeError(w, http.StatusInternalServerError, "failed to upload prescription")
		return
	}

	f := &PatientFile{
		ID:          uuid.New(),
		PatientID:   actor.ID,
		Key:         key,
		FileName:    header.Filename,
		ContentType: "application/pdf",
		SizeBytes:   int64(len(body)),
	}
	if err := h.repo.Create(r.Context(), f); err != nil {
		h.logger.Error("file metadata insert failed", "error", err, "patient_id", actor.ID, "key", key)
		writeError(w, http.StatusInternalServerError, "failed to upload prescription")
		return
	}
	f.DownloadURL = h.store.URL(key)

	h.logger.Info("prescription uploaded", "file_id", f.ID, "patient_id", actor.ID, "size_bytes", f.SizeBytes)
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "prescription uploaded successfully",
		"file":    f,
	})
}

// List handles GET /patient/files.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	list, err := h.repo.ListForPatient(r.Context(), actor.ID)
	if err != nil {
		h.logger.Error("list files failed", "error", err, "patient_id", actor.ID)
		writeError(w, http.StatusInternalServerError, "failed to fetch files")
		return
	}
	for i := range list {
		list[i].DownloadURL = h.store.URL(list[i].Key)
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": list})
}

// Delete handles DELETE /patient/files/{fileID}. The stored object is
// removed first; the metadata row only goes once the object is gone.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "fileID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid file id")
		return
	}

	f, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrFileNotFound) {
			writeError(w, http.StatusNotFound, ErrFileNotFound.Error())
			return
		}
		h.logger.Error("file lookup failed", "error", err, "file_id", id)
		writeError(w, http.StatusInternalServerError, "failed to delete file")
		return
	}
	if f.PatientID != actor.ID {
		writeError(w, http.StatusForbidden, "file belongs to another patient")
		return
	}

	if err := h.store.Delete(r.Context(), f.Key); err != nil {
		h.logger.Error("object delete failed", "error", err, "file_id", id, "key", f.Key)
		writeError(w, http.StatusInternalServerError, "failed to delete file")
		return
	}
	if err := h.repo.Delete(r.Context(), id); err != nil && !errors.Is(err, ErrFileNotFound) {
		h.logger.Error("file metadata delete failed", "error", err, "file_id", id)
		writeError(w, http.StatusInternalServerError, "failed to delete file")
		return
	}

	h.logger.Info("file deleted", "file_id", id, "patient_id", actor.ID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "file deleted successfully"})
}

func isPDF(contentType, filename string) bool {
	if strings.EqualFold(contentType, "application/pdf") {
		return true
	}
	return contentType == "" && strings.HasSuffix(strings.ToLower(filename), ".pdf")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
