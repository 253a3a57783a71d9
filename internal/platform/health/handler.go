// Package health serves the liveness, readiness and status probes.
package health

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"assura/pkg/platform/httputil"
)

// Version is set at build time via ldflags.
var Version = "dev"

// CheckFunc reports nil when a dependency is healthy.
type CheckFunc func(ctx context.Context) error

// checkTimeout bounds each readiness check.
const checkTimeout = 2 * time.Second

// Handler serves the probes for one process. Checks are registered at
// startup (cipher self-test, database ping) and run on every readiness call.
type Handler struct {
	startTime   time.Time
	environment string
	logger      *slog.Logger

	mu     sync.RWMutex
	checks map[string]CheckFunc
}

// New creates a health handler that logs failed checks to slog.Default.
func New(environment string) *Handler {
	return NewWithLogger(environment, slog.Default())
}

func NewWithLogger(environment string, logger *slog.Logger) *Handler {
	return &Handler{
		startTime:   time.Now(),
		environment: environment,
		logger:      logger,
		checks:      make(map[string]CheckFunc),
	}
}

// RegisterCheck adds a named check to the readiness probe.
func (h *Handler) RegisterCheck(name string, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

func (h *Handler) checkNames() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Register mounts health check routes on the given router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/health", h.HandleStatus)
	r.Get("/health/live", h.HandleLiveness)
	r.Get("/health/ready", h.HandleReadiness)
}

type LivenessResponse struct {
	Status string `json:"status"`
}

// HandleLiveness always returns 200 while the process serves requests.
func (h *Handler) HandleLiveness(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, LivenessResponse{Status: "alive"})
}

type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// HandleReadiness runs the registered checks concurrently and returns 503
// when any fails. Failure details go to the log only; the probe body says
// "down" so key-material or connection errors never leave the process.
func (h *Handler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	checks := make(map[string]CheckFunc, len(h.checks))
	for name, check := range h.checks {
		checks[name] = check
	}
	h.mu.RUnlock()

	var (
		mu      sync.Mutex
		results = make(map[string]string, len(checks))
		g       errgroup.Group
	)
	for name, check := range checks {
		g.Go(func() error {
			ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
			defer cancel()
			state := "up"
			if err := check(ctx); err != nil {
				state = "down"
				h.logger.WarnContext(r.Context(), "readiness check failed", "check", name, "error", err)
			}
			mu.Lock()
			results[name] = state
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	response := ReadinessResponse{Status: "ready", Checks: results}
	for _, state := range results {
		if state != "up" {
			response.Status = "not_ready"
			httputil.WriteJSON(w, http.StatusServiceUnavailable, response)
			return
		}
	}
	httputil.WriteJSON(w, http.StatusOK, response)
}

type StatusResponse struct {
	Status        string   `json:"status"`
	Version       string   `json:"version"`
	Environment   string   `json:"environment"`
	UptimeSeconds int64    `json:"uptime_seconds"`
	Checks        []string `json:"checks"`
	Timestamp     string   `json:"timestamp"`
}

// HandleStatus reports version, uptime and the names of the readiness checks.
func (h *Handler) HandleStatus(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{
		Status:        "healthy",
		Version:       Version,
		Environment:   h.environment,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Checks:        h.checkNames(),
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	})
}
