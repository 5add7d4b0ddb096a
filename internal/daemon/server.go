package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Nomadcxx/cinesync/internal/database"
	"github.com/Nomadcxx/cinesync/internal/logging"
	"github.com/Nomadcxx/cinesync/internal/scanner"
)

// StatsSource reports watch-mode counters.
type StatsSource interface {
	Stats() StatsSnapshot
}

// Reconciler starts a reconcile cycle in the background.
type Reconciler interface {
	Trigger() bool
	Status() scanner.SchedulerStatus
}

// Server is the optional status endpoint of watch mode
type Server struct {
	httpServer *http.Server
	stats      StatsSource
	reconciler Reconciler
	registry   *database.Registry
	startTime  time.Time
	mu         sync.RWMutex
	healthy    bool
	logger     *logging.Logger
}

type HealthResponse struct {
	Status    string                   `json:"status"`
	Uptime    string                   `json:"uptime"`
	Timestamp time.Time                `json:"timestamp"`
	Reconcile *scanner.SchedulerStatus `json:"reconcile,omitempty"`
}

type StatsResponse struct {
	Created       int64           `json:"created"`
	Updated       int64           `json:"updated"`
	Unchanged     int64           `json:"unchanged"`
	Unverified    int64           `json:"unverified"`
	Skipped       int64           `json:"skipped"`
	Deferred      int64           `json:"deferred"`
	Failed        int64           `json:"failed"`
	Removed       int64           `json:"removed"`
	Cycles        int64           `json:"cycles"`
	QueueLength   int             `json:"queue_length"`
	UptimeSeconds float64         `json:"uptime_seconds"`
	LastProcessed string          `json:"last_processed,omitempty"`
	LastCycle     string          `json:"last_cycle,omitempty"`
	Registry      *database.Stats `json:"registry,omitempty"`
}

func NewServer(addr string, stats StatsSource, reconciler Reconciler, registry *database.Registry, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.Nop()
	}
	s := &Server{
		stats:      stats,
		reconciler: reconciler,
		registry:   registry,
		startTime:  time.Now(),
		healthy:    true,
		logger:     logger,
	}

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the router
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.SetHeader("Content-Type", "application/json"))

	r.Get("/health", s.handleHealth)
	r.Get("/stats", s.handleStats)
	r.Post("/reconcile", s.handleReconcile)

	return r
}

func (s *Server) Start() error {
	s.logger.Info("server", "status server starting", logging.F("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("status server error: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) SetHealthy(healthy bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.healthy = healthy
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	healthy := s.healthy
	s.mu.RUnlock()

	reconcileHealthy := true
	var reconcile *scanner.SchedulerStatus
	if s.reconciler != nil {
		status := s.reconciler.Status()
		reconcile = &status
		reconcileHealthy = status.Healthy
	}

	response := HealthResponse{
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Timestamp: time.Now(),
		Reconcile: reconcile,
	}

	switch {
	case healthy && reconcileHealthy:
		response.Status = "healthy"
		w.WriteHeader(http.StatusOK)
	case healthy:
		// Degraded but still serving
		response.Status = "degraded"
		w.WriteHeader(http.StatusOK)
	default:
		response.Status = "unhealthy"
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	json.NewEncoder(w).Encode(response)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	var response StatsResponse
	if s.stats != nil {
		snap := s.stats.Stats()
		response = StatsResponse{
			Created:       snap.Created,
			Updated:       snap.Updated,
			Unchanged:     snap.Unchanged,
			Unverified:    snap.Unverified,
			Skipped:       snap.Skipped,
			Deferred:      snap.Deferred,
			Failed:        snap.Failed,
			Removed:       snap.Removed,
			Cycles:        snap.Cycles,
			QueueLength:   snap.QueueLength,
			UptimeSeconds: snap.Uptime.Seconds(),
		}
		if !snap.LastProcessed.IsZero() {
			response.LastProcessed = snap.LastProcessed.Format(time.RFC3339)
		}
		if !snap.LastCycle.IsZero() {
			response.LastCycle = snap.LastCycle.Format(time.RFC3339)
		}
	}

	if s.registry != nil {
		stats, err := s.registry.GetStats()
		if err != nil {
			s.logger.Error("server", "failed to read registry stats", err)
		} else {
			response.Registry = stats
		}
	}

	json.NewEncoder(w).Encode(response)
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	if s.reconciler == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
		return
	}

	if !s.reconciler.Trigger() {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"status": "busy"})
		return
	}

	s.logger.Info("server", "reconcile requested", logging.F("remote", r.RemoteAddr))
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"status": "started"})
}
