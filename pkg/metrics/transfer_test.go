package metrics_test

import (
	"errors"
	"testing"
	"time"

	"github.com/marcomacias410/ferry/pkg/metrics"
	_ "github.com/marcomacias410/ferry/pkg/metrics/prometheus"
)

func TestDisabledUntilInit(t *testing.T) {
	metrics.ResetForTesting()

	if metrics.IsEnabled() {
		t.Fatal("IsEnabled = true before InitRegistry")
	}
	if reg := metrics.GetRegistry(); reg != nil {
		t.Fatal("GetRegistry returned a registry before InitRegistry")
	}
	if m := metrics.NewTransferMetrics(); m != nil {
		t.Fatal("NewTransferMetrics returned an instance before InitRegistry")
	}
}

func TestTransferMetricsLifecycle(t *testing.T) {
	metrics.ResetForTesting()

	reg := metrics.InitRegistry()
	if reg == nil {
		t.Fatal("InitRegistry returned nil")
	}
	if !metrics.IsEnabled() {
		t.Fatal("IsEnabled = false after InitRegistry")
	}
	if again := metrics.InitRegistry(); again != reg {
		t.Fatal("second InitRegistry returned a different registry")
	}

	m := metrics.NewTransferMetrics()
	if m == nil {
		t.Fatal("NewTransferMetrics returned nil with registry initialized")
	}

	m.RecordConnectionAccepted()
	m.SetActiveSessions(1)
	m.RecordCommand("PUT", 5*time.Millisecond, "ok")
	m.RecordBytesTransferred("upload", 4096)
	m.RecordTransferError("not_found")
	m.RecordConnectionClosed()
	m.RecordConnectionForceClosed()
	m.SetActiveSessions(0)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}

	found := map[string]bool{}
	for _, mf := range families {
		found[mf.GetName()] = true
	}
	for _, name := range []string{
		"ferry_commands_total",
		"ferry_command_duration_milliseconds",
		"ferry_bytes_transferred_total",
		"ferry_transfer_errors_total",
		"ferry_active_sessions",
		"ferry_connections_accepted_total",
		"ferry_connections_closed_total",
		"ferry_connections_force_closed_total",
	} {
		if !found[name] {
			t.Errorf("registry is missing series %s", name)
		}
	}
}

func TestS3MetricsLifecycle(t *testing.T) {
	metrics.ResetForTesting()

	if m := metrics.NewS3Metrics(); m != nil {
		t.Fatal("NewS3Metrics returned an instance before InitRegistry")
	}

	reg := metrics.InitRegistry()
	m := metrics.NewS3Metrics()
	if m == nil {
		t.Fatal("NewS3Metrics returned nil with registry initialized")
	}

	m.ObserveOperation("PutObject", 12*time.Millisecond, nil)
	m.ObserveOperation("GetObject", 3*time.Millisecond, errors.New("backend down"))
	m.RecordBytes("PutObject", 2048)
	m.RecordBytes("GetObject", 1024)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}

	found := map[string]bool{}
	for _, mf := range families {
		found[mf.GetName()] = true
	}
	for _, name := range []string{
		"ferry_s3_operations_total",
		"ferry_s3_operation_duration_milliseconds",
		"ferry_s3_bytes_transferred_total",
	} {
		if !found[name] {
			t.Errorf("registry is missing series %s", name)
		}
	}
}
