package admin

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/modelgate/modelgate/internal/config"
	"github.com/modelgate/modelgate/internal/storage"
	"github.com/modelgate/modelgate/internal/version"
)

type healthResponse struct {
	Status    string `json:"status"`
	Database  string `json:"database"`
	Timestamp string `json:"timestamp"`
}

type infoStats struct {
	TotalCredentials int `json:"total_credentials"`
	TotalRequests    int `json:"total_requests"`
	TotalTokens      int `json:"total_tokens"`
}

type infoResponse struct {
	Version    string     `json:"version"`
	GoVersion  string     `json:"go_version"`
	Uptime     string     `json:"uptime"`
	UptimeSecs int64      `json:"uptime_secs"`
	DataDir    string     `json:"data_dir"`
	Stats      *infoStats `json:"stats,omitempty"`
}

// AdminHealth reports gateway and database health (GET /api/admin/health).
// The database probe is a cheap read; a failure degrades the status rather
// than failing the endpoint.
func (h *Handlers) AdminHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "healthy",
		Database:  "connected",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if _, err := h.Storage.ListCredentials(); err != nil {
		resp.Status = "degraded"
		resp.Database = "error: " + err.Error()
	}
	writeJSON(w, resp, http.StatusOK)
}

// AdminInfo reports build and runtime details plus quick usage totals
// (GET /api/admin/info). Stats are omitted when the rollup query fails.
func (h *Handlers) AdminInfo(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(h.StartTime)
	resp := infoResponse{
		Version:    version.Version,
		GoVersion:  runtime.Version(),
		Uptime:     uptime.String(),
		UptimeSecs: int64(uptime.Seconds()),
		DataDir:    config.DataDir(),
	}

	if stats, err := h.Storage.GetUsageStats(storage.StatsFilter{}); err == nil && stats != nil {
		creds, _ := h.Storage.ListCredentials()
		resp.Stats = &infoStats{
			TotalCredentials: len(creds),
			TotalRequests:    stats.TotalRequests,
			TotalTokens:      stats.TotalTokens,
		}
	}

	writeJSON(w, resp, http.StatusOK)
}

// ChangePasswordRequest is the body for PUT /api/admin/password.
type ChangePasswordRequest struct {
	NewPassword string `json:"new_password"`
}

// ChangeAdminPassword replaces the stored admin password hash
// (PUT /api/admin/password). Admin auth verifies the bearer password per
// request, so the change takes effect immediately.
func (h *Handlers) ChangeAdminPassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if !isValidAdminPassword(req.NewPassword) {
		writeJSONError(w, "password must be alphanumeric, min 8 characters", http.StatusBadRequest)
		return
	}

	hash, err := storage.HashPassword(req.NewPassword, storage.DefaultArgon2Params())
	if err != nil {
		writeJSONError(w, "failed to hash password", http.StatusInternalServerError)
		return
	}
	if err := h.Storage.SetAdminPasswordHash(hash); err != nil {
		writeJSONError(w, "failed to save password", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]string{"message": "password updated"}, http.StatusOK)
}
