package metrics

import (
	"time"
)

// TransferMetrics provides observability for the transfer server.
//
// Implementations can collect metrics about command processing,
// connection lifecycle, throughput, and errors. This interface is
// optional - pass nil to disable metrics collection with zero overhead.
//
// Example usage:
//
//	// With metrics enabled
//	metrics.InitRegistry()
//	m := metrics.NewTransferMetrics()
//	srv := server.New(cfg, st, m)
//
//	// Without metrics (pass nil for zero overhead)
//	srv := server.New(cfg, st, nil)
type TransferMetrics interface {
	// RecordCommand records a completed command with its verb, duration,
	// and outcome.
	//
	// Parameters:
	//   - verb: Command verb (e.g., "LS", "GET", "PUT", "QUIT")
	//   - duration: Time taken to process the command
	//   - status: "ok" on success, "error" on a recoverable failure
	RecordCommand(verb string, duration time.Duration, status string)

	// RecordBytesTransferred records payload bytes moved over the wire.
	//
	// Parameters:
	//   - direction: "upload" (client to server) or "download"
	//   - bytes: Number of payload bytes transferred
	RecordBytesTransferred(direction string, bytes int64)

	// RecordTransferError increments the error counter for a failure
	// class.
	//
	// Parameters:
	//   - kind: Failure class (e.g., "not_found", "backend", "protocol")
	RecordTransferError(kind string)

	// SetActiveSessions updates the current session count.
	SetActiveSessions(count int32)

	// RecordConnectionAccepted increments the total accepted connections
	// counter.
	RecordConnectionAccepted()

	// RecordConnectionClosed increments the total closed connections
	// counter.
	RecordConnectionClosed()

	// RecordConnectionForceClosed increments the force-closed counter.
	// Called when sessions are cut after the shutdown timeout expires.
	RecordConnectionForceClosed()
}

// NewTransferMetrics creates a new Prometheus-backed TransferMetrics
// instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called) or
// if no implementation has been registered.
func NewTransferMetrics() TransferMetrics {
	if !IsEnabled() || newPrometheusTransferMetrics == nil {
		return nil
	}
	return newPrometheusTransferMetrics()
}

// newPrometheusTransferMetrics is implemented in
// pkg/metrics/prometheus/transfer.go. The indirection avoids an import
// cycle while keeping the API in this package.
var newPrometheusTransferMetrics func() TransferMetrics

// RegisterTransferMetricsConstructor registers the Prometheus transfer
// metrics constructor. Called by pkg/metrics/prometheus during package
// initialization.
func RegisterTransferMetricsConstructor(constructor func() TransferMetrics) {
	newPrometheusTransferMetrics = constructor
}
