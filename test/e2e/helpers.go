//go:build e2e

// Package e2e exercises the full transfer path: a real server on a
// loopback port, storage backends resolved from configuration, and the
// client library on the other end of the wire.
package e2e

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/marcomacias410/ferry/pkg/client"
	"github.com/marcomacias410/ferry/pkg/config"
	"github.com/marcomacias410/ferry/pkg/metrics"
	"github.com/marcomacias410/ferry/pkg/server"
	"github.com/marcomacias410/ferry/pkg/store"
)

// startServer boots a transfer server over the given backend config.
// Shutdown runs as test cleanup and must be clean. The store is
// returned alongside the server for tests that probe it directly.
func startServer(t *testing.T, cfg server.Config, storageCfg config.StorageConfig, m metrics.TransferMetrics) (*server.Server, store.Store) {
	t.Helper()

	if cfg.ListenAddress == "" {
		cfg.ListenAddress = "127.0.0.1:0"
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	st, err := config.CreateStore(ctx, storageCfg)
	require.NoError(t, err, "storage backend should initialize")

	srv := server.New(cfg, st, m)

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			require.NoError(t, err, "server should shut down cleanly")
		case <-time.After(15 * time.Second):
			t.Fatal("server did not shut down")
		}
		require.NoError(t, st.Close(), "storage backend should close cleanly")
	})

	// Addr blocks until the listener is ready.
	_ = srv.Addr()
	return srv, st
}

// fsBackend returns a filesystem backend rooted in a fresh temporary
// directory.
func fsBackend(t *testing.T) config.StorageConfig {
	t.Helper()
	return config.StorageConfig{
		Backend: "fs",
		FS: config.FSStorageConfig{
			Root:      filepath.Join(t.TempDir(), "objects"),
			CreateDir: true,
		},
	}
}

func memoryBackend() config.StorageConfig {
	return config.StorageConfig{Backend: "memory"}
}

func badgerBackend(t *testing.T) config.StorageConfig {
	t.Helper()
	return config.StorageConfig{
		Backend: "badger",
		Badger:  config.BadgerStorageConfig{Dir: t.TempDir()},
	}
}

// dialClient connects the client library to the server. The connection
// is torn down as test cleanup; tests that QUIT explicitly make the
// cleanup close a no-op.
func dialClient(t *testing.T, addr string) *client.Client {
	t.Helper()
	c, err := client.DialTimeout(addr, 5*time.Second)
	require.NoError(t, err, "client should connect")
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// writeLocalFile creates a file for upload tests and returns its path.
func writeLocalFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0644))
	return path
}

// findFreePort reserves an ephemeral TCP port by binding to :0 and
// reading back the assignment.
func findFreePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err, "should bind an ephemeral port")
	defer func() { _ = l.Close() }()
	return l.Addr().(*net.TCPAddr).Port
}
