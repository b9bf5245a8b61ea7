// Package metrics runs the engine's metrics aggregator as a single
// actor goroutine receiving IncProcess/IncDropped messages over a bounded
// channel (spec §4.10), so concurrent decoder/processor goroutines never
// contend on a shared mutex for counters. It mirrors the same counters
// into Prometheus gauges/counters for scraping, following the teacher's
// EnterpriseMetrics struct in stellar-live-source/go/server/server.go
// (per-type counts, rolling latency, periodic print) combined with the
// health.go /metrics text-exposition pattern, now backed by
// github.com/prometheus/client_golang instead of hand-formatted text.
package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/sqoove/ghostreaver/internal/events"
)

const rollingWindow = 60 * time.Second

type message struct {
	eventType events.EventType
	protocol  events.Protocol
	handleMs  int64
	dropped   bool
}

// Aggregator owns all mutable metrics state behind a single goroutine.
type Aggregator struct {
	in     chan message
	logger *zap.Logger

	processedByType     *prometheus.CounterVec
	processedByProtocol *prometheus.CounterVec
	droppedTotal        prometheus.Counter
	handleLatencyMs     prometheus.Histogram

	mu          sync.Mutex
	totalCount  uint64
	byType      map[events.EventType]uint64
	recentTimes []time.Time
}

// New builds an Aggregator and registers its Prometheus collectors.
// registerer may be nil to skip Prometheus registration (tests).
func New(logger *zap.Logger, registerer prometheus.Registerer, channelCap int) *Aggregator {
	a := &Aggregator{
		in:     make(chan message, channelCap),
		logger: logger,
		byType: make(map[events.EventType]uint64),
		processedByType: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ghostreaver",
			Name:      "events_processed_total",
			Help:      "Decoded events processed, by event type.",
		}, []string{"event_type"}),
		processedByProtocol: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ghostreaver",
			Name:      "events_processed_by_protocol_total",
			Help:      "Decoded events processed, by protocol.",
		}, []string{"protocol"}),
		droppedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ghostreaver",
			Name:      "events_dropped_total",
			Help:      "Events dropped by the backpressure strategy.",
		}),
		handleLatencyMs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ghostreaver",
			Name:      "event_handle_latency_ms",
			Help:      "Time from program receipt to post-processing completion, in milliseconds.",
			Buckets:   []float64{1, 2, 5, 10, 20, 50, 100, 250, 500, 1000},
		}),
	}
	if registerer != nil {
		registerer.MustRegister(a.processedByType, a.processedByProtocol, a.droppedTotal, a.handleLatencyMs)
	}
	return a
}

// IncProcess records one successfully processed event. Safe to call
// from any goroutine; never blocks the caller beyond the channel send
// (the channel is sized to absorb bursts; a full channel means metrics
// are falling behind processing and is itself worth alerting on, so
// this intentionally does not drop silently -- a blocked send here is a
// visible backpressure signal, not a bug).
func (a *Aggregator) IncProcess(ev events.UnifiedEvent) {
	a.in <- message{eventType: ev.EventType(), protocol: ev.ProtocolName(), handleMs: ev.Metadata().ProgramHandleTimeConsumingMs}
}

// IncDropped records one event discarded by the stream backpressure
// strategy.
func (a *Aggregator) IncDropped() {
	a.in <- message{dropped: true}
}

// Run is the actor loop: it owns all counter state and the periodic
// print timer, and must run in exactly one goroutine.
func (a *Aggregator) Run(ctx context.Context, printInterval time.Duration) {
	ticker := time.NewTicker(printInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-a.in:
			a.apply(msg)
		case <-ticker.C:
			a.print()
		}
	}
}

func (a *Aggregator) apply(msg message) {
	if msg.dropped {
		a.droppedTotal.Inc()
		return
	}
	a.mu.Lock()
	a.totalCount++
	a.byType[msg.eventType]++
	now := time.Now()
	a.recentTimes = append(a.recentTimes, now)
	a.recentTimes = trimWindow(a.recentTimes, now)
	a.mu.Unlock()

	a.processedByType.WithLabelValues(msg.eventType.String()).Inc()
	a.processedByProtocol.WithLabelValues(msg.protocol.String()).Inc()
	if msg.handleMs > 0 {
		a.handleLatencyMs.Observe(float64(msg.handleMs))
	}
}

func trimWindow(times []time.Time, now time.Time) []time.Time {
	cut := 0
	for cut < len(times) && now.Sub(times[cut]) > rollingWindow {
		cut++
	}
	return times[cut:]
}

func (a *Aggregator) print() {
	a.mu.Lock()
	total := a.totalCount
	rate := float64(len(a.recentTimes)) / rollingWindow.Seconds()
	byType := make(map[string]uint64, len(a.byType))
	for t, c := range a.byType {
		byType[t.String()] = c
	}
	a.mu.Unlock()

	a.logger.Info("metrics snapshot",
		zap.Uint64("total_processed", total),
		zap.Float64("rate_per_sec_60s", rate),
		zap.Any("by_type", byType),
	)
}

// Snapshot returns the current total and per-type counts, for the
// health HTTP handler.
func (a *Aggregator) Snapshot() (total uint64, byType map[string]uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	byType = make(map[string]uint64, len(a.byType))
	for t, c := range a.byType {
		byType[t.String()] = c
	}
	return a.totalCount, byType
}
