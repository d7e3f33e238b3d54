// Package metrics provides a simple Prometheus-compatible metrics endpoint.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics holds runtime metrics for vidql
type Metrics struct {
	// Query pipeline
	Queries          atomic.Int64
	QueryErrors      atomic.Int64
	Clarifications   atomic.Int64
	IntentModelCalls atomic.Int64
	IntentFallbacks  atomic.Int64

	// Capability dispatch
	CapabilityCalls  atomic.Int64
	CapabilityErrors atomic.Int64

	// Streaming
	StreamQueries  atomic.Int64
	StreamMessages atomic.Int64

	// Sessions
	SessionsCreated atomic.Int64

	// Timing (last operation duration in ms)
	LastQueryDurationMs    atomic.Int64
	LastDispatchDurationMs atomic.Int64

	startTime time.Time
}

var (
	global     *Metrics
	globalOnce sync.Once
)

// Global returns the global metrics instance
func Global() *Metrics {
	globalOnce.Do(func() {
		global = &Metrics{
			startTime: time.Now(),
		}
	})
	return global
}

// RecordQuery records a completed query
func (m *Metrics) RecordQuery(success bool, durationMs int64) {
	m.Queries.Add(1)
	if !success {
		m.QueryErrors.Add(1)
	}
	m.LastQueryDurationMs.Store(durationMs)
}

// RecordClarification records a query that needed clarification
func (m *Metrics) RecordClarification() {
	m.Clarifications.Add(1)
}

// RecordIntent records an intent classification attempt
func (m *Metrics) RecordIntent(usedModel, fellBack bool) {
	if usedModel {
		m.IntentModelCalls.Add(1)
	}
	if fellBack {
		m.IntentFallbacks.Add(1)
	}
}

// RecordCapabilityCall records a capability provider call
func (m *Metrics) RecordCapabilityCall(success bool, durationMs int64) {
	m.CapabilityCalls.Add(1)
	if !success {
		m.CapabilityErrors.Add(1)
	}
	m.LastDispatchDurationMs.Store(durationMs)
}

// RecordStreamQuery records a streaming query start
func (m *Metrics) RecordStreamQuery() {
	m.StreamQueries.Add(1)
}

// RecordStreamMessage records one emitted stream update
func (m *Metrics) RecordStreamMessage() {
	m.StreamMessages.Add(1)
}

// RecordSessionCreated records a new session
func (m *Metrics) RecordSessionCreated() {
	m.SessionsCreated.Add(1)
}

// Handler returns an HTTP handler for /metrics endpoint
func (m *Metrics) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")

		uptime := time.Since(m.startTime).Seconds()

		fmt.Fprintf(w, "# HELP vidql_uptime_seconds Time since vidql started\n")
		fmt.Fprintf(w, "# TYPE vidql_uptime_seconds gauge\n")
		fmt.Fprintf(w, "vidql_uptime_seconds %.2f\n\n", uptime)

		fmt.Fprintf(w, "# HELP vidql_queries_total Total queries processed\n")
		fmt.Fprintf(w, "# TYPE vidql_queries_total counter\n")
		fmt.Fprintf(w, "vidql_queries_total %d\n\n", m.Queries.Load())

		fmt.Fprintf(w, "# HELP vidql_query_errors_total Total failed queries\n")
		fmt.Fprintf(w, "# TYPE vidql_query_errors_total counter\n")
		fmt.Fprintf(w, "vidql_query_errors_total %d\n\n", m.QueryErrors.Load())

		fmt.Fprintf(w, "# HELP vidql_clarifications_total Total queries that needed clarification\n")
		fmt.Fprintf(w, "# TYPE vidql_clarifications_total counter\n")
		fmt.Fprintf(w, "vidql_clarifications_total %d\n\n", m.Clarifications.Load())

		fmt.Fprintf(w, "# HELP vidql_intent_model_calls_total Total intent classifications sent to the model\n")
		fmt.Fprintf(w, "# TYPE vidql_intent_model_calls_total counter\n")
		fmt.Fprintf(w, "vidql_intent_model_calls_total %d\n\n", m.IntentModelCalls.Load())

		fmt.Fprintf(w, "# HELP vidql_intent_fallbacks_total Total keyword fallback classifications\n")
		fmt.Fprintf(w, "# TYPE vidql_intent_fallbacks_total counter\n")
		fmt.Fprintf(w, "vidql_intent_fallbacks_total %d\n\n", m.IntentFallbacks.Load())

		fmt.Fprintf(w, "# HELP vidql_capability_calls_total Total capability provider calls\n")
		fmt.Fprintf(w, "# TYPE vidql_capability_calls_total counter\n")
		fmt.Fprintf(w, "vidql_capability_calls_total %d\n\n", m.CapabilityCalls.Load())

		fmt.Fprintf(w, "# HELP vidql_capability_errors_total Total failed capability calls\n")
		fmt.Fprintf(w, "# TYPE vidql_capability_errors_total counter\n")
		fmt.Fprintf(w, "vidql_capability_errors_total %d\n\n", m.CapabilityErrors.Load())

		fmt.Fprintf(w, "# HELP vidql_stream_queries_total Total streaming queries\n")
		fmt.Fprintf(w, "# TYPE vidql_stream_queries_total counter\n")
		fmt.Fprintf(w, "vidql_stream_queries_total %d\n\n", m.StreamQueries.Load())

		fmt.Fprintf(w, "# HELP vidql_stream_messages_total Total stream updates emitted\n")
		fmt.Fprintf(w, "# TYPE vidql_stream_messages_total counter\n")
		fmt.Fprintf(w, "vidql_stream_messages_total %d\n\n", m.StreamMessages.Load())

		fmt.Fprintf(w, "# HELP vidql_sessions_created_total Total sessions created\n")
		fmt.Fprintf(w, "# TYPE vidql_sessions_created_total counter\n")
		fmt.Fprintf(w, "vidql_sessions_created_total %d\n\n", m.SessionsCreated.Load())

		fmt.Fprintf(w, "# HELP vidql_last_query_duration_ms Last query duration\n")
		fmt.Fprintf(w, "# TYPE vidql_last_query_duration_ms gauge\n")
		fmt.Fprintf(w, "vidql_last_query_duration_ms %d\n\n", m.LastQueryDurationMs.Load())

		fmt.Fprintf(w, "# HELP vidql_last_dispatch_duration_ms Last capability call duration\n")
		fmt.Fprintf(w, "# TYPE vidql_last_dispatch_duration_ms gauge\n")
		fmt.Fprintf(w, "vidql_last_dispatch_duration_ms %d\n", m.LastDispatchDurationMs.Load())
	}
}

// Server wraps the metrics HTTP server
type Server struct {
	srv *http.Server
}

// NewServer creates a metrics server on the given port
func NewServer(port int) *Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", Global().Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return &Server{
		srv: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
	}
}

// Start starts the metrics server in background
func (s *Server) Start() error {
	go s.srv.ListenAndServe()
	return nil
}

// Stop gracefully shuts down the metrics server
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
