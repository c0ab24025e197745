// Package prometheus provides the Prometheus-backed metrics
// implementations. Importing it (usually blank) registers the
// constructors with pkg/metrics; the series only come alive once
// metrics.InitRegistry has been called.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marcomacias410/ferry/pkg/metrics"
)

func init() {
	metrics.RegisterTransferMetricsConstructor(NewTransferMetrics)
}

// transferMetrics is the Prometheus implementation of
// metrics.TransferMetrics.
type transferMetrics struct {
	commandsTotal     *prometheus.CounterVec
	commandDuration   *prometheus.HistogramVec
	bytesTransferred  *prometheus.CounterVec
	transferErrors    *prometheus.CounterVec
	activeSessions    prometheus.Gauge
	connectionsTotal  prometheus.Counter
	connectionsClosed prometheus.Counter
	forceClosedTotal  prometheus.Counter
}

// NewTransferMetrics creates a new Prometheus-backed TransferMetrics
// instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewTransferMetrics() metrics.TransferMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &transferMetrics{
		commandsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ferry_commands_total",
				Help: "Total number of commands processed by verb and status",
			},
			[]string{"verb", "status"},
		),
		commandDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "ferry_command_duration_milliseconds",
				Help: "Duration of command processing in milliseconds",
				Buckets: []float64{
					1,     // 1ms - LS over memory store
					10,    // 10ms - small objects
					50,    // 50ms
					100,   // 100ms
					500,   // 500ms
					1000,  // 1s - medium objects
					5000,  // 5s - large objects
					30000, // 30s - very large transfers
				},
			},
			[]string{"verb"},
		),
		bytesTransferred: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ferry_bytes_transferred_total",
				Help: "Total payload bytes transferred by direction",
			},
			[]string{"direction"},
		),
		transferErrors: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ferry_transfer_errors_total",
				Help: "Total number of failed operations by failure class",
			},
			[]string{"kind"},
		),
		activeSessions: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "ferry_active_sessions",
				Help: "Current number of connected client sessions",
			},
		),
		connectionsTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "ferry_connections_accepted_total",
				Help: "Total number of accepted client connections",
			},
		),
		connectionsClosed: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "ferry_connections_closed_total",
				Help: "Total number of closed client connections",
			},
		),
		forceClosedTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "ferry_connections_force_closed_total",
				Help: "Total number of connections cut after the shutdown timeout",
			},
		),
	}
}

func (m *transferMetrics) RecordCommand(verb string, duration time.Duration, status string) {
	if m == nil {
		return
	}
	m.commandsTotal.WithLabelValues(verb, status).Inc()
	m.commandDuration.WithLabelValues(verb).Observe(duration.Seconds() * 1000)
}

func (m *transferMetrics) RecordBytesTransferred(direction string, bytes int64) {
	if m == nil || bytes <= 0 {
		return
	}
	m.bytesTransferred.WithLabelValues(direction).Add(float64(bytes))
}

func (m *transferMetrics) RecordTransferError(kind string) {
	if m == nil {
		return
	}
	m.transferErrors.WithLabelValues(kind).Inc()
}

func (m *transferMetrics) SetActiveSessions(count int32) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(count))
}

func (m *transferMetrics) RecordConnectionAccepted() {
	if m == nil {
		return
	}
	m.connectionsTotal.Inc()
}

func (m *transferMetrics) RecordConnectionClosed() {
	if m == nil {
		return
	}
	m.connectionsClosed.Inc()
}

func (m *transferMetrics) RecordConnectionForceClosed() {
	if m == nil {
		return
	}
	m.forceClosedTotal.Inc()
}
