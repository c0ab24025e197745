package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marcomacias410/ferry/pkg/metrics"
	"github.com/marcomacias410/ferry/pkg/store/s3"
)

func init() {
	metrics.RegisterS3MetricsConstructor(NewS3Metrics)
}

// s3Metrics is the Prometheus implementation of s3.Metrics.
type s3Metrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	bytesTransferred  *prometheus.CounterVec
}

// NewS3Metrics creates a new Prometheus-backed s3.Metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewS3Metrics() s3.Metrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &s3Metrics{
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ferry_s3_operations_total",
				Help: "Total number of S3 calls by operation and status",
			},
			[]string{"operation", "status"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "ferry_s3_operation_duration_milliseconds",
				Help: "Duration of S3 calls in milliseconds",
				Buckets: []float64{
					10,    // 10ms - head calls
					50,    // 50ms - small objects
					100,   // 100ms
					500,   // 500ms
					1000,  // 1s - medium objects
					5000,  // 5s - large objects
					10000, // 10s
					30000, // 30s - very large transfers
				},
			},
			[]string{"operation"},
		),
		bytesTransferred: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ferry_s3_bytes_transferred_total",
				Help: "Total bytes moved to and from S3 by operation and direction",
			},
			[]string{"operation", "direction"},
		),
	}
}

func (m *s3Metrics) ObserveOperation(operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}

	status := "success"
	if err != nil {
		status = "error"
	}

	m.operationsTotal.WithLabelValues(operation, status).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds() * 1000)
}

func (m *s3Metrics) RecordBytes(operation string, bytes int64) {
	if m == nil || bytes <= 0 {
		return
	}

	direction := "upload"
	if operation == "GetObject" {
		direction = "download"
	}

	m.bytesTransferred.WithLabelValues(operation, direction).Add(float64(bytes))
}
