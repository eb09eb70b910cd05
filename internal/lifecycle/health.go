package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/Proton-105/studyhelper-bot/internal/health"
)

// HealthChecker exposes liveness and readiness probes.
type HealthChecker interface {
	Liveness(ctx context.Context) error
	Readiness(ctx context.Context) error
}

// ErrShuttingDown is reported by readiness once shutdown begins.
var ErrShuttingDown = errors.New("service is shutting down")

// Probes answers liveness from process state and readiness from the dependency checker.
type Probes struct {
	checker  *health.Checker
	draining atomic.Bool
	log      *slog.Logger
}

var _ HealthChecker = (*Probes)(nil)

// NewProbes creates a new Probes instance.
func NewProbes(checker *health.Checker, log *slog.Logger) *Probes {
	if log == nil {
		log = slog.Default()
	}
	return &Probes{checker: checker, log: log}
}

// Drain marks the service as not ready.
func (p *Probes) Drain() {
	p.draining.Store(true)
}

// Liveness reports success while the process runs.
func (p *Probes) Liveness(context.Context) error {
	return nil
}

// Readiness fails while draining or when any dependency is down.
func (p *Probes) Readiness(ctx context.Context) error {
	if p.draining.Load() {
		return ErrShuttingDown
	}
	if p.checker == nil {
		return nil
	}
	if _, healthy := p.checker.Check(ctx); !healthy {
		return errors.New("dependency check failed")
	}
	return nil
}

// Register mounts /healthz and /readyz on mux.
func (p *Probes) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, p.Liveness(r.Context()), nil)
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if p.draining.Load() {
			writeStatus(w, ErrShuttingDown, nil)
			return
		}

		var results []health.Result
		var err error
		if p.checker != nil {
			var healthy bool
			results, healthy = p.checker.Check(r.Context())
			if !healthy {
				err = errors.New("dependency check failed")
			}
		}
		writeStatus(w, err, results)
	})
}

func writeStatus(w http.ResponseWriter, err error, results []health.Result) {
	body := struct {
		Status     string          `json:"status"`
		Error      string          `json:"error,omitempty"`
		Components []health.Result `json:"components,omitempty"`
	}{Status: "ok", Components: results}

	code := http.StatusOK
	if err != nil {
		code = http.StatusServiceUnavailable
		body.Status = "unavailable"
		body.Error = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
