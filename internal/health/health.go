// Package health exposes the /health and /metrics HTTP endpoints every
// teacher service carries alongside its primary protocol, following
// stellar-postgres-ingester/go/health.go's ServeMux-plus-JSON-status
// pattern; /metrics here defers to the Prometheus handler instead of
// hand-formatted text since internal/metrics already registers real
// Prometheus collectors.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sqoove/ghostreaver/internal/metrics"
)

// Response is the JSON body /health returns.
type Response struct {
	Status          string            `json:"status"`
	Uptime          string            `json:"uptime"`
	TotalProcessed  uint64            `json:"total_processed"`
	ByEventType     map[string]uint64 `json:"by_event_type"`
	DroppedTotal    uint64            `json:"dropped_total,omitempty"`
}

// Server serves /health and /metrics on its own port, independent of
// the engine's main work loops.
type Server struct {
	port      int
	startTime time.Time
	agg       *metrics.Aggregator
	dropped   func() uint64
	server    *http.Server
}

// New builds a Server. dropped may be nil if no backpressure-drop
// counter is wired (e.g. the blocking strategy).
func New(port int, agg *metrics.Aggregator, dropped func() uint64) *Server {
	return &Server{port: port, startTime: time.Now(), agg: agg, dropped: dropped}
}

// Start launches the HTTP server in the background. Call Stop to shut
// it down cleanly.
func (s *Server) Start() {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	s.server = &http.Server{Addr: fmt.Sprintf(":%d", s.port), Handler: mux}
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("health server error: %v\n", err)
		}
	}()
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	total, byType := s.agg.Snapshot()
	resp := Response{
		Status:         "healthy",
		Uptime:         time.Since(s.startTime).String(),
		TotalProcessed: total,
		ByEventType:    byType,
	}
	if s.dropped != nil {
		resp.DroppedTotal = s.dropped()
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
