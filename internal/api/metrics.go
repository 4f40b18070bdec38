package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sflowg/workflow-compiler/internal/compiler"
	"github.com/sflowg/workflow-compiler/internal/diagnostic"
)

// Metrics holds the Prometheus collectors scraped from /metrics. It also
// observes the compiler pipeline, so pass it to compiler.WithObserver.
type Metrics struct {
	compiler.NoopObserver

	registry     *prometheus.Registry
	requests     *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	compilations *prometheus.CounterVec
	stages       *prometheus.HistogramVec
}

// NewMetrics registers every collector on a private registry, together with
// the Go runtime and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "workflow_compiler_http_requests_total",
			Help: "HTTP requests by route, method and status",
		}, []string{"route", "method", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "workflow_compiler_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		compilations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "workflow_compiler_compilations_total",
			Help: "Compilations by outcome",
		}, []string{"outcome"}),
		stages: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "workflow_compiler_stage_duration_seconds",
			Help:    "Pipeline stage duration",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60},
		}, []string{"stage"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.latency, m.compilations, m.stages,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.latency.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) OnStageCompleted(ctx context.Context, stage compiler.State, err error, d time.Duration) {
	m.stages.WithLabelValues(stage.String()).Observe(d.Seconds())
}

func (m *Metrics) OnCompileCompleted(ctx context.Context, r *compiler.Result, err error) {
	m.compilations.WithLabelValues(outcome(r, err)).Inc()
}

func outcome(r *compiler.Result, err error) string {
	switch {
	case err != nil || r == nil:
		return "aborted"
	case r.Success:
		return "success"
	}
	for _, d := range r.Errors {
		if d.Phase == diagnostic.PhaseGeneration {
			return "failed"
		}
	}
	return "invalid"
}
