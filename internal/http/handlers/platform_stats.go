package handlers

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/mediflow/clinic-platform/pkg/logging"
)

// PlatformStatsHandler serves the admin operational overview.
type PlatformStatsHandler struct {
	db     *sql.DB
	logger *logging.Logger
}

func NewPlatformStatsHandler(db *sql.DB, logger *logging.Logger) *PlatformStatsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &PlatformStatsHandler{db: db, logger: logger}
}

// PlatformStatsResponse is the GET /admin/stats payload.
type PlatformStatsResponse struct {
	GeneratedAt   time.Time           `json:"generated_at"`
	Doctors       int                 `json:"doctors"`
	Patients      int                 `json:"patients"`
	Pharmacists   int                 `json:"pharmacists"`
	Appointments  AppointmentStats    `json:"appointments"`
	Prescriptions []PrescriptionCount `json:"prescriptions"`
	Files         FileStats           `json:"files"`
}

// AppointmentStats breaks appointments down by state.
type AppointmentStats struct {
	Total    int `json:"total"`
	Booked   int `json:"booked"`
	Upcoming int `json:"upcoming"`
}

// PrescriptionCount is one status bucket of the prescription table.
type PrescriptionCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// FileStats summarizes uploaded patient documents.
type FileStats struct {
	Total      int   `json:"total"`
	TotalBytes int64 `json:"total_bytes"`
}

// GetStats handles GET /admin/stats.
func (h *PlatformStatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := PlatformStatsResponse{GeneratedAt: time.Now().UTC(), Prescriptions: []PrescriptionCount{}}

	if err := h.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM doctors),
			(SELECT COUNT(*) FROM patients),
			(SELECT COUNT(*) FROM pharmacists)`).
		Scan(&resp.Doctors, &resp.Patients, &resp.Pharmacists); err != nil {
		h.logger.Error("stats identity counts failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}

	if err := h.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'BOOKED'),
		       COUNT(*) FILTER (WHERE status = 'BOOKED' AND scheduled_at > NOW())
		FROM appointments`).
		Scan(&resp.Appointments.Total, &resp.Appointments.Booked, &resp.Appointments.Upcoming); err != nil {
		h.logger.Error("stats appointment counts failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}

	rows, err := h.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM prescriptions GROUP BY status ORDER BY status`)
	if err != nil {
		h.logger.Error("stats prescription counts failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	defer rows.Close()
	for rows.Next() {
		var c PrescriptionCount
		if err := rows.Scan(&c.Status, &c.Count); err != nil {
			h.logger.Error("stats prescription scan failed", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to load stats")
			return
		}
		resp.Prescriptions = append(resp.Prescriptions, c)
	}
	if err := rows.Err(); err != nil {
		h.logger.Error("stats prescription rows failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}

	if err := h.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(size_bytes), 0) FROM patient_files`).
		Scan(&resp.Files.Total, &resp.Files.TotalBytes); err != nil {
		h.logger.Error("stats file counts failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
