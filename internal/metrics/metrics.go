// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prospection_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "prospection_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	flowRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prospection_flow_runs_total",
			Help: "Language model flow executions by outcome",
		},
		[]string{"flow", "outcome"},
	)

	flowDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "prospection_flow_duration_seconds",
			Help:    "Duration of language model flow executions",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40},
		},
		[]string{"flow"},
	)

	toolCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prospection_tool_calls_total",
			Help: "Tool invocations requested by the model",
		},
		[]string{"tool", "outcome"},
	)

	liveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "prospection_live_sessions",
			Help: "Number of connected live WebSocket sessions",
		},
	)

	statusUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prospection_status_updates_total",
			Help: "Prospect status writes by resulting status",
		},
		[]string{"status"},
	)
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController and the WebSocket upgrader reach the
// underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter { return rw.ResponseWriter }

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return h.Hijack()
}

// Middleware records request counts and latencies. The route label is the
// matched ServeMux pattern so path parameters do not explode cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// RecordFlow counts one flow execution.
func RecordFlow(flow, outcome string, d time.Duration) {
	flowRuns.WithLabelValues(flow, outcome).Inc()
	flowDuration.WithLabelValues(flow).Observe(d.Seconds())
}

// RecordToolCall counts one tool invocation.
func RecordToolCall(tool, outcome string) {
	toolCalls.WithLabelValues(tool, outcome).Inc()
}

// LiveSessionOpened and LiveSessionClosed track connected WebSocket clients.
func LiveSessionOpened() { liveSessions.Inc() }

func LiveSessionClosed() { liveSessions.Dec() }

// RecordStatusUpdate counts one persisted status change.
func RecordStatusUpdate(status string) {
	statusUpdates.WithLabelValues(status).Inc()
}
