package handler

import (
	"encoding/json"
	"net/http"

	"github.com/modelgate/modelgate/internal/passthrough"
	"github.com/modelgate/modelgate/internal/version"
)

// RootStatus returns JSON status and version information at /
func (h *Handler) RootStatus(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"name":        "modelgate",
		"version":     version.Version,
		"status":      "running",
		"api":         "/v1",
		"passthrough": "/passthrough",
		"admin":       "/api/admin",
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// HealthCheck handler returns the application health status and the
// provider surface the gateway exposes.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":      "active",
		"app":         "modelgate",
		"adapters":    h.Registry.Providers(),
		"passthrough": passthrough.Providers(),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
