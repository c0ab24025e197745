package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInitConfig_WritesStarterFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	written, err := InitConfig(path, false)
	if err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}
	if written != path {
		t.Errorf("Expected path %q, got %q", path, written)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read generated config: %v", err)
	}
	if !strings.HasPrefix(string(data), "# ferry server configuration") {
		t.Errorf("Expected orientation comment at top, got:\n%s", data)
	}

	// The generated file must round-trip through the loader.
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Generated config failed to load: %v", err)
	}
	if cfg.Server.ListenAddress != DefaultListenAddress {
		t.Errorf("Expected listen address %q, got %q", DefaultListenAddress, cfg.Server.ListenAddress)
	}
	if cfg.Storage.Backend != "fs" {
		t.Errorf("Expected fs backend, got %q", cfg.Storage.Backend)
	}
}

func TestInitConfig_RefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("backend: custom\n"), 0600); err != nil {
		t.Fatalf("Failed to seed config file: %v", err)
	}

	if _, err := InitConfig(path, false); err == nil {
		t.Fatal("Expected error when config exists without force")
	}

	data, _ := os.ReadFile(path)
	if string(data) != "backend: custom\n" {
		t.Error("Existing file was modified without force")
	}

	if _, err := InitConfig(path, true); err != nil {
		t.Fatalf("InitConfig with force failed: %v", err)
	}
	data, _ = os.ReadFile(path)
	if !strings.Contains(string(data), "listen_address") {
		t.Error("Forced init did not replace the file")
	}
}
