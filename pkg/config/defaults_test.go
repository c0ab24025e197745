package config

import (
	"testing"
	"time"

	"github.com/marcomacias410/ferry/internal/bytesize"
)

func TestApplyDefaults_Logging(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default log level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default log format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Expected default log output 'stdout', got %q", cfg.Logging.Output)
	}
}

func TestApplyDefaults_Server(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Server.ListenAddress != DefaultListenAddress {
		t.Errorf("Expected default listen address %q, got %q", DefaultListenAddress, cfg.Server.ListenAddress)
	}
	if cfg.Server.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown timeout 30s, got %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Server.MaxLineLength != 4*bytesize.KiB {
		t.Errorf("Expected default max line length 4KiB, got %v", cfg.Server.MaxLineLength)
	}
	if cfg.Server.MaxConnections != 0 {
		t.Errorf("Expected default max connections 0 (unlimited), got %d", cfg.Server.MaxConnections)
	}
	if cfg.Server.MaxObjectSize != 0 {
		t.Errorf("Expected default max object size 0 (unlimited), got %v", cfg.Server.MaxObjectSize)
	}
}

func TestApplyDefaults_Storage(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Storage.Backend != "fs" {
		t.Errorf("Expected default backend 'fs', got %q", cfg.Storage.Backend)
	}
	if cfg.Storage.FS.Root != "./uploads" {
		t.Errorf("Expected default fs root './uploads', got %q", cfg.Storage.FS.Root)
	}
	if !cfg.Storage.FS.CreateDir {
		t.Error("Expected create_dir to default to true with the default root")
	}
}

func TestApplyDefaults_StorageExplicitRoot(t *testing.T) {
	// An explicit root keeps the user's create_dir choice
	cfg := &Config{
		Storage: StorageConfig{
			Backend: "fs",
			FS:      FSStorageConfig{Root: "/srv/ferry"},
		},
	}
	ApplyDefaults(cfg)

	if cfg.Storage.FS.Root != "/srv/ferry" {
		t.Errorf("Expected explicit root to be preserved, got %q", cfg.Storage.FS.Root)
	}
	if cfg.Storage.FS.CreateDir {
		t.Error("Expected create_dir to stay false with an explicit root")
	}
}

func TestApplyDefaults_StorageNonFSBackend(t *testing.T) {
	// The fs section is left alone when another backend is selected
	cfg := &Config{
		Storage: StorageConfig{Backend: "memory"},
	}
	ApplyDefaults(cfg)

	if cfg.Storage.Backend != "memory" {
		t.Errorf("Expected explicit backend 'memory' to be preserved, got %q", cfg.Storage.Backend)
	}
	if cfg.Storage.FS.Root != "" {
		t.Errorf("Expected fs root to stay empty for memory backend, got %q", cfg.Storage.FS.Root)
	}
}

func TestApplyDefaults_Admin(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Admin.Enabled {
		t.Error("Expected admin API to default to disabled")
	}
	if cfg.Admin.Port != 9090 {
		t.Errorf("Expected default admin port 9090, got %d", cfg.Admin.Port)
	}
	if cfg.Admin.ReadTimeout != 10*time.Second {
		t.Errorf("Expected default read timeout 10s, got %v", cfg.Admin.ReadTimeout)
	}
	if cfg.Admin.WriteTimeout != 10*time.Second {
		t.Errorf("Expected default write timeout 10s, got %v", cfg.Admin.WriteTimeout)
	}
	if cfg.Admin.IdleTimeout != 60*time.Second {
		t.Errorf("Expected default idle timeout 60s, got %v", cfg.Admin.IdleTimeout)
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Logging: LoggingConfig{
			Level:  "DEBUG",
			Format: "json",
			Output: "/var/log/ferry.log",
		},
		Server: ServerConfig{
			ListenAddress:   "127.0.0.1:6001",
			MaxConnections:  64,
			ShutdownTimeout: 60 * time.Second,
			MaxLineLength:   16 * bytesize.KiB,
		},
		Storage: StorageConfig{
			Backend: "s3",
			S3:      S3StorageConfig{Bucket: "ferry-objects"},
		},
	}

	ApplyDefaults(cfg)

	// Verify explicit values were preserved
	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected explicit level 'DEBUG' to be preserved, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Expected explicit format 'json' to be preserved, got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "/var/log/ferry.log" {
		t.Errorf("Expected explicit output to be preserved, got %q", cfg.Logging.Output)
	}
	if cfg.Server.ListenAddress != "127.0.0.1:6001" {
		t.Errorf("Expected explicit listen address to be preserved, got %q", cfg.Server.ListenAddress)
	}
	if cfg.Server.MaxConnections != 64 {
		t.Errorf("Expected explicit max connections to be preserved, got %d", cfg.Server.MaxConnections)
	}
	if cfg.Server.ShutdownTimeout != 60*time.Second {
		t.Errorf("Expected explicit timeout 60s to be preserved, got %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Server.MaxLineLength != 16*bytesize.KiB {
		t.Errorf("Expected explicit max line length to be preserved, got %v", cfg.Server.MaxLineLength)
	}
	if cfg.Storage.Backend != "s3" {
		t.Errorf("Expected explicit backend 's3' to be preserved, got %q", cfg.Storage.Backend)
	}
	if cfg.Storage.S3.Bucket != "ferry-objects" {
		t.Errorf("Expected explicit bucket to be preserved, got %q", cfg.Storage.S3.Bucket)
	}
}

func TestGetDefaultConfig_IsValid(t *testing.T) {
	cfg := GetDefaultConfig()

	// The default config should pass validation
	err := Validate(cfg)
	if err != nil {
		t.Errorf("Default config should be valid, got error: %v", err)
	}
}

func TestGetDefaultConfig_HasRequiredFields(t *testing.T) {
	cfg := GetDefaultConfig()

	// Check all required sections are present
	if cfg.Logging.Level == "" {
		t.Error("Default config missing logging level")
	}
	if cfg.Server.ListenAddress == "" {
		t.Error("Default config missing listen address")
	}
	if cfg.Server.ShutdownTimeout == 0 {
		t.Error("Default config missing shutdown timeout")
	}
	if cfg.Storage.Backend == "" {
		t.Error("Default config missing storage backend")
	}
	if cfg.Storage.FS.Root == "" {
		t.Error("Default config missing fs root")
	}
}
