// Package metrics provides Prometheus instrumentation for the decision engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// DecisionsTotal counts service runs by final status (ok / error).
	DecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "evergreen_decisions_total",
		Help: "Decision pipeline runs by status",
	}, []string{"status"})

	// StageDuration tracks latency per pipeline stage (agents, debate, total).
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "evergreen_stage_duration_seconds",
		Help:    "Decision pipeline stage latency in seconds",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
	}, []string{"stage"})

	// DebateOutcomes counts whether the debate revision was applied.
	DebateOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "evergreen_debate_outcomes_total",
		Help: "Debate rounds by outcome (applied / fallback)",
	}, []string{"outcome"})

	// ConsensusDirection counts consensus results by direction.
	ConsensusDirection = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "evergreen_consensus_direction_total",
		Help: "Consensus decisions by direction",
	}, []string{"direction"})

	// SinkFailures counts best-effort persistence/publish failures by sink.
	SinkFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "evergreen_sink_failures_total",
		Help: "Failed record/publish attempts by sink",
	}, []string{"sink"})

	// SelectionRuns counts market selection attempts by result.
	SelectionRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "evergreen_selection_runs_total",
		Help: "Market selection runs by result",
	}, []string{"result"})

	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "evergreen_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "evergreen_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "evergreen_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.005, 0.025, 0.1, 0.5, 1, 5, 15, 30, 60, 120},
	}, []string{"method", "path"})
)

// ObserveStage records the time elapsed since start for stage.
func ObserveStage(stage string, start time.Time) {
	StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// GinMiddleware records request metrics, labelling by route pattern to keep
// cardinality bounded.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
