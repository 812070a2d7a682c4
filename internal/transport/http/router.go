package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"realform/internal/platform/metrics"
	"realform/internal/registration"
	adminmw "realform/pkg/platform/middleware/admin"
	"realform/pkg/platform/middleware/cors"
	"realform/pkg/platform/middleware/metadata"
	"realform/pkg/platform/middleware/request"
	"realform/pkg/platform/middleware/requesttime"
)

// Config is what the router needs beyond the handlers.
type Config struct {
	AdminUser string
	AdminPass string
	CORS      *cors.Policy
}

// NewRouter wires the public and admin endpoints behind the shared
// middleware chain. Admin routes re-check credentials on every request.
func NewRouter(cfg Config, h *registration.Handler, m *metrics.Metrics, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(request.AccessLog(logger))
	r.Use(chimw.Recoverer)
	if m != nil {
		r.Use(m.LatencyMiddleware)
	}
	if cfg.CORS != nil {
		r.Use(cfg.CORS.Middleware)
	}

	r.Get("/test", handleLiveness)
	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	h.Register(r)
	r.Group(func(admin chi.Router) {
		admin.Use(adminmw.RequireBasicAuth(cfg.AdminUser, cfg.AdminPass, logger))
		h.RegisterAdmin(admin)
	})

	return r
}

func handleLiveness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Server is working!"))
}
