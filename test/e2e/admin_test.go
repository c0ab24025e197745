//go:build e2e

package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcomacias410/ferry/internal/admin"
	"github.com/marcomacias410/ferry/internal/cli/health"
	"github.com/marcomacias410/ferry/pkg/metrics"
	"github.com/marcomacias410/ferry/pkg/server"

	// Import prometheus metrics to register init() functions
	_ "github.com/marcomacias410/ferry/pkg/metrics/prometheus"
)

// waitForAdmin polls until the admin listener answers.
func waitForAdmin(t *testing.T, url string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			return
		}
		time.Sleep(25 * time.Millisecond)
	}
	t.Fatalf("admin API did not come up at %s", url)
}

// TestAdminAPI runs the full operational surface beside a live transfer
// server: health, status counters, and the metrics exposition.
func TestAdminAPI(t *testing.T) {
	metrics.InitRegistry()
	m := metrics.NewTransferMetrics()
	require.NotNil(t, m, "metrics constructor should be registered")

	srv, st := startServer(t, server.Config{}, memoryBackend(), m)

	port := findFreePort(t)
	adminSrv := admin.NewServer(admin.Config{Port: port}, srv, st)

	ctx, cancel := context.WithCancel(context.Background())
	adminDone := make(chan error, 1)
	go func() { adminDone <- adminSrv.Start(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-adminDone:
			require.NoError(t, err, "admin API should shut down cleanly")
		case <-time.After(10 * time.Second):
			t.Fatal("admin API did not shut down")
		}
	})

	base := fmt.Sprintf("http://localhost:%d", port)
	waitForAdmin(t, base+"/healthz")

	// A live session so the counters have something to count.
	c := dialClient(t, srv.Addr())
	_, err := c.List()
	require.NoError(t, err)

	t.Run("healthz", func(t *testing.T) {
		resp, err := http.Get(base + "/healthz")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body health.Response
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "healthy", body.Status)
		assert.Equal(t, "ferry", body.Data.Service)
		assert.Equal(t, "healthy", body.Data.Store.Status)
		assert.NotEmpty(t, body.Data.StartedAt)
	})

	t.Run("status", func(t *testing.T) {
		resp, err := http.Get(base + "/v1/status")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body health.StatusResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "ok", body.Status)
		assert.Equal(t, srv.Addr(), body.Data.ListenAddress)
		assert.GreaterOrEqual(t, body.Data.ActiveSessions, int32(1))
		assert.GreaterOrEqual(t, body.Data.TotalConnections, uint64(1))
	})

	t.Run("metrics", func(t *testing.T) {
		resp, err := http.Get(base + "/metrics")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		exposition, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, string(exposition), "ferry_commands_total",
			"transfer series should appear after a handled command")
	})
}
