// Package metrics exposes pgshimd's Prometheus metrics: connection counts,
// command throughput and latency, and error rates by SQLSTATE code.
// Grounded on the teacher pack's db-bouncer Collector, reshaped from
// per-tenant pool gauges to per-connection protocol counters.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds every Prometheus metric pgshimd reports.
type Collector struct {
	Registry *prometheus.Registry

	connectionsActive  prometheus.Gauge
	connectionsTotal   prometheus.Counter
	commandsTotal      *prometheus.CounterVec
	commandDuration    *prometheus.HistogramVec
	errorsTotal        *prometheus.CounterVec
	rowsStreamedTotal  prometheus.Counter
	authFailuresTotal  prometheus.Counter
}

// New creates and registers pgshimd's metrics against a fresh registry. Safe
// to call more than once (e.g. per test case); each call is independent.
func New() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		Registry: reg,
		connectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pgshim_connections_active",
			Help: "Number of currently open client connections",
		}),
		connectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pgshim_connections_total",
			Help: "Total number of accepted client connections",
		}),
		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pgshim_commands_total",
			Help: "Frontend commands dispatched, by message type",
		}, []string{"type"}),
		commandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pgshim_command_duration_seconds",
			Help:    "Time spent handling one frontend command",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16),
		}, []string{"type"}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pgshim_errors_total",
			Help: "ErrorResponses sent to clients, by SQLSTATE code",
		}, []string{"code"}),
		rowsStreamedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pgshim_rows_streamed_total",
			Help: "Total DataRow messages written across all portals",
		}),
		authFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pgshim_auth_failures_total",
			Help: "Total failed authentication attempts",
		}),
	}

	reg.MustRegister(
		c.connectionsActive,
		c.connectionsTotal,
		c.commandsTotal,
		c.commandDuration,
		c.errorsTotal,
		c.rowsStreamedTotal,
		c.authFailuresTotal,
	)

	return c
}

// ConnectionOpened records a newly accepted connection.
func (c *Collector) ConnectionOpened() {
	c.connectionsActive.Inc()
	c.connectionsTotal.Inc()
}

// ConnectionClosed records a connection's teardown.
func (c *Collector) ConnectionClosed() {
	c.connectionsActive.Dec()
}

// CommandHandled records one dispatched frontend command and how long it
// took to produce its response.
func (c *Collector) CommandHandled(msgType string, d time.Duration) {
	c.commandsTotal.WithLabelValues(msgType).Inc()
	c.commandDuration.WithLabelValues(msgType).Observe(d.Seconds())
}

// ErrorSent records an ErrorResponse written to the client, labeled by its
// SQLSTATE code.
func (c *Collector) ErrorSent(code string) {
	c.errorsTotal.WithLabelValues(code).Inc()
}

// RowsStreamed adds n to the total row count streamed across all portals.
func (c *Collector) RowsStreamed(n int) {
	c.rowsStreamedTotal.Add(float64(n))
}

// AuthFailed records a failed authentication attempt.
func (c *Collector) AuthFailed() {
	c.authFailuresTotal.Inc()
}
