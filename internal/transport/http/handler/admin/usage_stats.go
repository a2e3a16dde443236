package admin

import (
	"net/http"
	"net/url"
	"time"

	"github.com/modelgate/modelgate/internal/storage"
)

const dayFormat = "2006-01-02"

// queryDate parses an optional YYYY-MM-DD query parameter. Absent or
// malformed values come back nil.
func queryDate(q url.Values, name string) *time.Time {
	t, err := time.Parse(dayFormat, q.Get(name))
	if err != nil {
		return nil
	}
	return &t
}

// GetUsageStats returns aggregate usage (GET /api/admin/usage). Provider,
// model and date-range filters are optional.
func (h *Handlers) GetUsageStats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := storage.StatsFilter{
		Provider:  q.Get("provider"),
		Model:     q.Get("model"),
		StartDate: queryDate(q, "start_date"),
		EndDate:   queryDate(q, "end_date"),
	}

	stats, err := h.Storage.GetUsageStats(filter)
	if err != nil {
		writeJSONError(w, "Failed to get usage stats: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, stats, http.StatusOK)
}

// GetDailyUsage returns per-day rollups (GET /api/admin/usage/daily),
// defaulting to the trailing 30 days.
func (h *Handlers) GetDailyUsage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	startDate := q.Get("start_date")
	endDate := q.Get("end_date")
	if startDate == "" {
		startDate = time.Now().AddDate(0, 0, -30).Format(dayFormat)
	}
	if endDate == "" {
		endDate = time.Now().Format(dayFormat)
	}

	usage, err := h.Storage.GetDailyUsage(startDate, endDate)
	if err != nil {
		writeJSONError(w, "Failed to get daily usage: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"daily_usage": usage,
		"start_date":  startDate,
		"end_date":    endDate,
	}, http.StatusOK)
}
