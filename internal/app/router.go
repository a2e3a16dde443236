package app

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/modelgate/modelgate/internal/cache"
	"github.com/modelgate/modelgate/internal/credential"
	"github.com/modelgate/modelgate/internal/observability"
	"github.com/modelgate/modelgate/internal/storage"
	"github.com/modelgate/modelgate/internal/transport/http/handler"
	"github.com/modelgate/modelgate/internal/transport/http/handler/admin"
	"github.com/modelgate/modelgate/internal/transport/http/middleware"
	"github.com/modelgate/modelgate/internal/transport/http/middleware/auth"
	"github.com/modelgate/modelgate/internal/transport/http/middleware/ratelimit"
)

// RouterOptions configures the HTTP router behavior.
type RouterOptions struct {
	Logger      *slog.Logger
	Storage     storage.Storage
	APIKeyCache *cache.Cache[*storage.ClientAPIKey]
	Resolver    *credential.Resolver
}

// NewRouter creates and configures the HTTP router with all application routes.
// Returns an http.Handler with middleware applied.
// opts must not be nil - all routes require authentication configuration.
func NewRouter(h *handler.Handler, adminHandlers *admin.Handlers, opts *RouterOptions) http.Handler {
	mux := http.NewServeMux()

	// Public routes (no auth)
	mux.HandleFunc("GET /api/health", h.HealthCheck)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Create API key auth middleware for proxy routes (always required).
	// Rate limiting runs after auth so it can read the key's per-minute limit.
	apiKeyAuth := auth.APIKeyAuth(opts.Storage, opts.APIKeyCache)
	limit := ratelimit.Middleware(ratelimit.New())
	protect := func(next http.HandlerFunc) http.Handler {
		return apiKeyAuth(limit(next))
	}

	// Canonical completion route (requires API key auth)
	mux.Handle("POST /v1/chat/completions", protect(h.ChatCompletions))

	// Pass-through routes forward any method to the provider's native API
	mux.Handle("/passthrough/{provider}/{path...}", protect(h.PassthroughProxy))

	// Admin API routes (require admin auth)
	registerAdminRoutes(mux, adminHandlers, opts)

	// Root returns JSON status
	mux.HandleFunc("GET /", h.RootStatus)

	// Apply middleware chain (order: outer to inner)
	var root http.Handler = mux

	// Prometheus request metrics
	root = observability.Middleware(root)

	// Request logging (if logger provided)
	if opts.Logger != nil {
		root = middleware.RequestLogger(opts.Logger)(root)
	}

	// Request ID (always applied)
	root = middleware.RequestID(root)

	// CORS (always applied)
	root = middleware.CORS(root)

	return root
}

// registerAdminRoutes adds all admin API routes to the router.
func registerAdminRoutes(mux *http.ServeMux, adminHandlers *admin.Handlers, opts *RouterOptions) {
	// Create admin auth middleware using the stored password hash
	adminAuth := auth.AdminAuth(opts.Storage)

	// Helper to wrap handler with admin auth
	withAuth := func(h http.HandlerFunc) http.Handler {
		return adminAuth(h)
	}

	// Credential management
	mux.Handle("POST /api/admin/credentials", withAuth(adminHandlers.CreateCredential))
	mux.Handle("GET /api/admin/credentials", withAuth(adminHandlers.ListCredentials))
	mux.Handle("GET /api/admin/credentials/{id}", withAuth(adminHandlers.GetCredential))
	mux.Handle("PUT /api/admin/credentials/{id}", withAuth(adminHandlers.UpdateCredential))
	mux.Handle("DELETE /api/admin/credentials/{id}", withAuth(adminHandlers.DeleteCredential))
	mux.Handle("POST /api/admin/credentials/{id}/default", withAuth(adminHandlers.SetDefaultCredential))

	// API key management
	mux.Handle("POST /api/admin/apikeys", withAuth(adminHandlers.CreateAPIKey))
	mux.Handle("GET /api/admin/apikeys", withAuth(adminHandlers.ListAPIKeys))
	mux.Handle("GET /api/admin/apikeys/{id}", withAuth(adminHandlers.GetAPIKeyByID))
	mux.Handle("PUT /api/admin/apikeys/{id}", withAuth(adminHandlers.UpdateAPIKey))
	mux.Handle("DELETE /api/admin/apikeys/{id}", withAuth(adminHandlers.DeleteAPIKey))
	mux.Handle("POST /api/admin/apikeys/{id}/rotate", withAuth(adminHandlers.RotateAPIKey))

	// Password management
	mux.Handle("PUT /api/admin/password", withAuth(adminHandlers.ChangeAdminPassword))

	// Usage and logs
	mux.Handle("GET /api/admin/usage", withAuth(adminHandlers.GetUsageStats))
	mux.Handle("GET /api/admin/usage/daily", withAuth(adminHandlers.GetDailyUsage))
	mux.Handle("GET /api/admin/logs", withAuth(adminHandlers.GetRequestLogs))
	mux.Handle("DELETE /api/admin/logs", withAuth(adminHandlers.DeleteRequestLogs))

	// Cache management
	mux.Handle("GET /api/admin/cache/ping", withAuth(adminHandlers.CachePing))
	mux.Handle("POST /api/admin/cache/flush", withAuth(adminHandlers.CacheFlush))
	mux.Handle("POST /api/admin/cache/delete", withAuth(adminHandlers.CacheDelete))

	// System info
	mux.Handle("GET /api/admin/health", withAuth(adminHandlers.AdminHealth))
	mux.Handle("GET /api/admin/info", withAuth(adminHandlers.AdminInfo))
}
