package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"assura/internal/platform/health"
	"assura/pkg/platform/middleware/auth"
	"assura/pkg/platform/middleware/metadata"
	"assura/pkg/platform/middleware/request"
	"assura/pkg/platform/middleware/requesttime"
)

// Registrar mounts a module's routes on the authenticated sub-router.
type Registrar interface {
	Register(r chi.Router)
}

// Deps carries what the router needs from main.
type Deps struct {
	Logger         *slog.Logger
	Health         *health.Handler
	Validator      auth.JWTValidator
	Metadata       *metadata.Middleware
	Metrics        *request.Metrics
	Gatherer       prometheus.Gatherer
	RequestTimeout time.Duration
	Modules        []Registrar
}

// NewRouter wires all public endpoints with middleware. Probes and
// /metrics are unauthenticated; every module route requires a bearer token.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(request.Recovery(d.Logger))
	r.Use(request.RequestID)
	r.Use(d.Metadata.Handler)
	r.Use(requesttime.Middleware)
	r.Use(request.Logger(d.Logger))
	r.Use(request.LatencyMiddleware(d.Metrics))
	if d.RequestTimeout > 0 {
		r.Use(request.Timeout(d.RequestTimeout))
	}
	r.Use(request.ContentTypeJSON)

	d.Health.Register(r)
	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(d.Validator, d.Logger))
		for _, m := range d.Modules {
			m.Register(r)
		}
	})

	return r
}
