package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// initHeader tops the generated starter file. SaveConfig writes plain
// YAML; the starter file carries a short orientation comment.
const initHeader = `# ferry server configuration.
#
# Every value below can be overridden with a FERRY_-prefixed
# environment variable, e.g. FERRY_LOGGING_LEVEL=DEBUG or
# FERRY_STORAGE_BACKEND=s3.
#
# Sizes accept human-readable forms ("4KiB", "64KB"); durations accept
# Go syntax ("30s", "5m").

`

// InitConfig writes a starter configuration file populated with the
// default settings. An empty path selects the default location. An
// existing file is only replaced when force is set.
func InitConfig(path string, force bool) (string, error) {
	if path == "" {
		path = GetDefaultConfigPath()
	}

	if _, err := os.Stat(path); err == nil && !force {
		return path, fmt.Errorf("configuration file already exists: %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return path, fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(GetDefaultConfig())
	if err != nil {
		return path, fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, append([]byte(initHeader), data...), 0600); err != nil {
		return path, fmt.Errorf("failed to write config file: %w", err)
	}

	return path, nil
}
