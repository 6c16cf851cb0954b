// Package metrics exposes Prometheus instruments for the HTTP surface and the
// report pipeline.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// Metrics captures service health signals.
type Metrics struct {
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	reportBuilds   *prometheus.CounterVec
	recordsSkipped *prometheus.CounterVec
	fxRefreshes    *prometheus.CounterVec
}

// New registers the service instruments on the given registerer.
func New(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "revport_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "revport_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		reportBuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "revport_report_builds_total",
			Help: "MRR report computations by outcome.",
		}, []string{"outcome"}),
		recordsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "revport_records_skipped_total",
			Help: "Billing records skipped with a warning, by aggregator.",
		}, []string{"aggregator"}),
		fxRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "revport_fx_refreshes_total",
			Help: "FX rate table refresh attempts by outcome.",
		}, []string{"outcome"}),
	}

	registerer.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.reportBuilds,
		m.recordsSkipped,
		m.fxRefreshes,
	)
	return m
}

func newDefault() *Metrics {
	return New(prometheus.DefaultRegisterer)
}

// RecordReportBuild counts a finished report computation.
func (m *Metrics) RecordReportBuild(outcome string) {
	if m == nil {
		return
	}
	m.reportBuilds.WithLabelValues(outcome).Inc()
}

// RecordSkippedRecord counts a warn-skipped billing record.
func (m *Metrics) RecordSkippedRecord(aggregator string) {
	if m == nil {
		return
	}
	m.recordsSkipped.WithLabelValues(aggregator).Inc()
}

// RecordFXRefresh counts an FX table refresh attempt.
func (m *Metrics) RecordFXRefresh(outcome string) {
	if m == nil {
		return
	}
	m.fxRefreshes.WithLabelValues(outcome).Inc()
}

// GinMiddleware records request counts and latency per route.
func GinMiddleware(m *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		method := c.Request.Method
		m.httpRequests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// Module provides the service metrics on the default registry.
var Module = fx.Module("metrics",
	fx.Provide(newDefault),
)
