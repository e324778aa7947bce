package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	corslib "github.com/rs/cors"

	"hemolink/internal/platform/metrics"
	"hemolink/pkg/platform/httputil"
	"hemolink/pkg/platform/middleware/admin"
	"hemolink/pkg/platform/middleware/requesttime"
)

// Registrar mounts a bounded context's routes under /v1.
type Registrar interface {
	Register(r chi.Router)
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Deps are the router's collaborators. Protected routes sit behind the admin
// token when one is configured.
type Deps struct {
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
	CORSOrigins  []string
	AdminToken   string
	HealthChecks map[string]HealthCheck
	Public       []Registrar
	Protected    []Registrar
}

// NewRouter wires middleware, health, metrics and every /v1 route.
func NewRouter(d Deps) *chi.Mux {
	logger := d.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requesttime.Middleware)
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
	}
	c := corslib.New(corslib.Options{
		AllowedOrigins: d.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", requesttime.RequesterHeader, admin.TokenHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
	})
	r.Use(c.Handler)

	r.Get("/healthz", healthHandler(d.HealthChecks))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		for _, reg := range d.Public {
			reg.Register(r)
		}
		r.Group(func(r chi.Router) {
			r.Use(admin.RequireAdminToken(d.AdminToken, logger))
			for _, reg := range d.Protected {
				reg.Register(r)
			}
		})
	})
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(names))}
		status := http.StatusOK
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
