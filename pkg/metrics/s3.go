package metrics

import (
	"github.com/marcomacias410/ferry/pkg/store/s3"
)

// NewS3Metrics creates a new Prometheus-backed s3.Metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called) or
// if no implementation has been registered. A nil result is safe to
// pass to the S3 store and disables collection with zero overhead.
//
// Example usage:
//
//	// With metrics enabled
//	metrics.InitRegistry()
//	st := s3.New(client, s3.Config{Bucket: bucket, Metrics: metrics.NewS3Metrics()})
//
//	// Without metrics (zero overhead)
//	st := s3.New(client, s3.Config{Bucket: bucket})
func NewS3Metrics() s3.Metrics {
	if !IsEnabled() || newPrometheusS3Metrics == nil {
		return nil
	}
	return newPrometheusS3Metrics()
}

// newPrometheusS3Metrics is implemented in pkg/metrics/prometheus/s3.go.
// The indirection avoids an import cycle while keeping the API in this
// package.
var newPrometheusS3Metrics func() s3.Metrics

// RegisterS3MetricsConstructor registers the Prometheus S3 metrics
// constructor. Called by pkg/metrics/prometheus during package
// initialization.
func RegisterS3MetricsConstructor(constructor func() s3.Metrics) {
	newPrometheusS3Metrics = constructor
}
