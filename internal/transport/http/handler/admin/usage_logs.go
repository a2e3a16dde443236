package admin

import (
	"net/http"
	"strconv"
	"time"

	"github.com/modelgate/modelgate/internal/storage"
)

// GetRequestLogs returns the per-request audit trail (GET /api/admin/logs).
// Route, model, provider, status and date filters combine; results are paged
// with a default limit of 50.
func (h *Handlers) GetRequestLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := storage.LogFilter{
		Route:     q.Get("route"),
		Model:     q.Get("model"),
		Provider:  q.Get("provider"),
		StartDate: queryDate(q, "start_date"),
		EndDate:   queryDate(q, "end_date"),
		Limit:     50,
	}
	if code, err := strconv.Atoi(q.Get("status_code")); err == nil {
		filter.StatusCode = &code
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(q.Get("offset")); err == nil && offset >= 0 {
		filter.Offset = offset
	}

	logs, err := h.Storage.GetRequestLogs(filter)
	if err != nil {
		writeJSONError(w, "Failed to get request logs: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"logs":   logs,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	}, http.StatusOK)
}

// DeleteRequestLogs prunes logs older than a cutoff (DELETE /api/admin/logs).
// The before_date parameter is mandatory so a bare DELETE cannot wipe the
// whole table.
func (h *Handlers) DeleteRequestLogs(w http.ResponseWriter, r *http.Request) {
	beforeDate := r.URL.Query().Get("before_date")
	if beforeDate == "" {
		writeJSONError(w, "before_date query parameter is required (format: YYYY-MM-DD)", http.StatusBadRequest)
		return
	}
	if _, err := time.Parse(dayFormat, beforeDate); err != nil {
		writeJSONError(w, "Invalid date format. Use YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	deleted, err := h.Storage.DeleteRequestLogs(beforeDate)
	if err != nil {
		writeJSONError(w, "Failed to delete logs: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"deleted_count": deleted,
		"before_date":   beforeDate,
	}, http.StatusOK)
}
