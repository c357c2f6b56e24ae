// Package server exposes acquisition cycles, health and metrics over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rickgao/vix-data/internal/gateway"
	"github.com/rickgao/vix-data/internal/model"
	"github.com/rickgao/vix-data/internal/pipeline"
	"github.com/rickgao/vix-data/internal/version"
)

// Pinger checks storage connectivity. *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// GatewayStatus reports the gateway session state.
type GatewayStatus interface {
	State() gateway.State
}

// CycleRunner runs cycles on demand and remembers the last completed one.
type CycleRunner interface {
	RunOnce(ctx context.Context) (*model.AcquisitionResult, error)
	Last() *model.AcquisitionResult
}

// Deps are the components the HTTP API reports on or drives. Nil fields are skipped.
type Deps struct {
	DB       Pinger
	Gateway  GatewayStatus
	Cycles   CycleRunner
	Gatherer prometheus.Gatherer
}

// Config holds server configuration.
type Config struct {
	Port        int
	MetricsPath string
}

// Server is the HTTP invocation boundary.
type Server struct {
	cfg    Config
	deps   Deps
	logger *slog.Logger
	srv    *http.Server
}

// New creates a Server.
func New(cfg Config, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	s := &Server{
		cfg:    cfg,
		deps:   deps,
		logger: logger.With("component", "server"),
	}
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle(s.cfg.MetricsPath, promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	// API routes sit on the root router so a method mismatch answers 405, not 404.
	r.Handle("/api/health", cors(s.handleAPIHealth)).Methods(http.MethodGet, http.MethodOptions)
	r.Handle("/api/cycles", cors(s.handleRunCycle)).Methods(http.MethodPost, http.MethodOptions)
	r.Handle("/api/cycles/latest", cors(s.handleLatestCycle)).Methods(http.MethodGet, http.MethodOptions)

	return r
}

// Start serves in the background.
func (s *Server) Start() {
	go func() {
		s.logger.Info("starting http server", "port", s.cfg.Port)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", "error", err)
		}
	}()
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func cors(h http.HandlerFunc) http.Handler {
	return corsMiddleware(h)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleAPIHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "API is operational",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := struct {
		Status     string         `json:"status"`
		Version    string         `json:"version"`
		Components map[string]any `json:"components"`
	}{
		Status:     "healthy",
		Version:    version.String(),
		Components: make(map[string]any),
	}

	// Check database
	if s.deps.DB != nil {
		if err := s.deps.DB.Ping(ctx); err != nil {
			health.Status = "unhealthy"
			health.Components["timescaledb"] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
		} else {
			health.Components["timescaledb"] = "connected"
		}
	}

	// The session reconnects on the next cycle, so a closed gateway only degrades.
	if s.deps.Gateway != nil {
		state := s.deps.Gateway.State()
		health.Components["gateway"] = state.String()
		if state != gateway.StateConnected && health.Status == "healthy" {
			health.Status = "degraded"
		}
	}

	if s.deps.Cycles != nil {
		if last := s.deps.Cycles.Last(); last != nil {
			health.Components["last_cycle"] = map[string]any{
				"cycle_id":    last.CycleID,
				"finished_at": last.FinishedAt,
				"futures":     len(last.Futures),
				"failures":    len(last.Failures),
			}
		}
	}

	status := http.StatusOK
	if health.Status == "unhealthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}

func (s *Server) handleRunCycle(w http.ResponseWriter, r *http.Request) {
	if s.deps.Cycles == nil {
		writeError(w, http.StatusServiceUnavailable, "cycles are not available")
		return
	}

	result, err := s.deps.Cycles.RunOnce(r.Context())
	if err != nil {
		var se *gateway.SessionError
		switch {
		case errors.Is(err, pipeline.ErrCycleInProgress):
			writeError(w, http.StatusConflict, err.Error())
		case errors.As(err, &se):
			writeError(w, http.StatusServiceUnavailable, err.Error())
		default:
			s.logger.Error("on-demand cycle failed", "error", err)
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleLatestCycle(w http.ResponseWriter, r *http.Request) {
	var last *model.AcquisitionResult
	if s.deps.Cycles != nil {
		last = s.deps.Cycles.Last()
	}
	if last == nil {
		writeError(w, http.StatusNotFound, "no completed cycle yet")
		return
	}
	writeJSON(w, http.StatusOK, last)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
