package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marcomacias410/ferry/internal/admin"
	"github.com/marcomacias410/ferry/internal/logger"
	"github.com/marcomacias410/ferry/internal/telemetry"
	"github.com/marcomacias410/ferry/pkg/config"
	"github.com/marcomacias410/ferry/pkg/metrics"
	"github.com/marcomacias410/ferry/pkg/server"

	// Import prometheus metrics to register init() functions
	_ "github.com/marcomacias410/ferry/pkg/metrics/prometheus"
)

var (
	foreground bool
	pidFile    string
	logFile    string
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the ferry server",
	Long: `Start the ferry transfer server with the specified configuration.

By default, the server runs in the background (daemon mode). Use --foreground
to run in the foreground for debugging or when managed by a process supervisor.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/ferry/config.yaml.

Examples:
  # Start in background (default)
  ferryd start

  # Start in foreground
  ferryd start --foreground

  # Start with custom config file
  ferryd start --config /etc/ferry/config.yaml

  # Start with environment variable overrides
  FERRY_LOGGING_LEVEL=DEBUG ferryd start --foreground`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().BoolVarP(&foreground, "foreground", "f", false, "Run in foreground (default: background/daemon mode)")
	startCmd.Flags().StringVar(&pidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/ferry/ferryd.pid)")
	startCmd.Flags().StringVar(&logFile, "log-file", "", "Path to log file for daemon mode (default: $XDG_STATE_HOME/ferry/ferryd.log)")
}

func runStart(cmd *cobra.Command, args []string) error {
	// Handle daemon mode (background)
	if !foreground {
		return startDaemon()
	}

	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	// Initialize the structured logger
	if err := InitLogger(cfg); err != nil {
		return err
	}

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry (if enabled)
	telemetryCfg := telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "ferry",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	}
	telemetryShutdown, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(ctx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}()

	// Initialize Pyroscope profiling (if enabled)
	profilingCfg := telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "ferry",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	}
	profilingShutdown, err := telemetry.InitProfiling(profilingCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", "error", err)
		}
	}()

	fmt.Println("Ferry - file transfer server")
	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	} else {
		logger.Info("Telemetry disabled")
	}
	if telemetry.IsProfilingEnabled() {
		logger.Info("Profiling enabled", "endpoint", cfg.Telemetry.Profiling.Endpoint, "profile_types", cfg.Telemetry.Profiling.ProfileTypes)
	} else {
		logger.Info("Profiling disabled")
	}

	// Re-apply the log level when the config file changes
	watchConfig()

	// Initialize metrics (if enabled)
	var transferMetrics metrics.TransferMetrics
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		transferMetrics = metrics.NewTransferMetrics()
		logger.Info("Metrics enabled", "endpoint", fmt.Sprintf(":%d/metrics", cfg.Admin.Port))
	} else {
		logger.Info("Metrics collection disabled")
	}

	// Initialize the storage backend
	st, err := config.CreateStore(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage backend: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("Storage backend close error", "error", err)
		}
	}()
	logger.Info("Storage backend ready", "backend", cfg.Storage.Backend)

	// Create the transfer server
	srv := server.New(server.Config{
		ListenAddress:   cfg.Server.ListenAddress,
		MaxConnections:  cfg.Server.MaxConnections,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		MaxLineLength:   int(cfg.Server.MaxLineLength),
		MaxObjectSize:   cfg.Server.MaxObjectSize.Int64(),
	}, st, transferMetrics)

	// Start the admin API (if enabled)
	var adminDone chan error
	if cfg.Admin.Enabled {
		adminSrv := admin.NewServer(admin.Config{
			Port:         cfg.Admin.Port,
			ReadTimeout:  cfg.Admin.ReadTimeout,
			WriteTimeout: cfg.Admin.WriteTimeout,
			IdleTimeout:  cfg.Admin.IdleTimeout,
		}, srv, st)

		adminDone = make(chan error, 1)
		go func() {
			adminDone <- adminSrv.Start(ctx)
		}()
	} else {
		logger.Info("Admin API disabled")
	}

	// Write PID file if specified
	if pidFile != "" {
		if err := os.WriteFile(pidFile, []byte(fmt.Sprintf("%d", os.Getpid())), 0644); err != nil {
			return fmt.Errorf("failed to write PID file: %w", err)
		}
		defer func() { _ = os.Remove(pidFile) }()
	}

	// Start the transfer server in background
	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Serve(ctx)
	}()

	// Wait for interrupt signal, server exit, or admin API failure
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Server is running. Press Ctrl+C to stop.")

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("Shutdown signal received, initiating graceful shutdown")
		cancel()

		// Wait for server to shut down gracefully
		if err := <-serverDone; err != nil {
			logger.Error("Server shutdown error", "error", err)
			return err
		}
		waitAdmin(adminDone)
		logger.Info("Server stopped gracefully")

	case err := <-serverDone:
		signal.Stop(sigChan)
		cancel()
		waitAdmin(adminDone)
		if err != nil {
			logger.Error("Server error", "error", err)
			return err
		}
		logger.Info("Server stopped")

	case err := <-adminDone:
		// A nil adminDone channel never fires. Reaching here before
		// shutdown means the admin listener failed.
		signal.Stop(sigChan)
		cancel()
		<-serverDone
		logger.Error("Admin API error", "error", err)
		return err
	}

	return nil
}

// waitAdmin waits for the admin API to finish its graceful shutdown.
func waitAdmin(adminDone chan error) {
	if adminDone == nil {
		return
	}
	if err := <-adminDone; err != nil {
		logger.Error("Admin API shutdown error", "error", err)
	}
}

// watchConfig starts the config file watcher that re-applies the log
// level on change. Running without a config file is fine; there is
// nothing to watch then.
func watchConfig() {
	if GetConfigFile() == "" && !config.DefaultConfigExists() {
		return
	}
	err := config.Watch(GetConfigFile(), func(next *config.Config, err error) {
		if err != nil {
			logger.Warn("Config reload rejected", "error", err)
			return
		}
		logger.SetLevel(next.Logging.Level)
		logger.Info("Log level reapplied from config", "level", next.Logging.Level)
	})
	if err != nil {
		logger.Debug("Config watch not started", "error", err)
	}
}

// getConfigSource returns a description of where the config was loaded from.
func getConfigSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return "defaults"
}
