package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is shared so validator caches struct metadata across calls.
var validate = validator.New()

// Validate checks the configuration for errors.
//
// Per-field constraints are declared as struct tags and checked with the
// validator package; rules spanning multiple fields are checked explicitly.
// Validate never mutates the configuration. Normalization (such as log
// level casing) happens in ApplyDefaults.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return err
	}

	if err := validateStorage(&cfg.Storage); err != nil {
		return err
	}

	return validateTelemetry(&cfg.Telemetry)
}

// validateStorage checks requirements of the selected backend. Settings
// under the non-selected backends are not inspected.
func validateStorage(cfg *StorageConfig) error {
	switch cfg.Backend {
	case "fs":
		if cfg.FS.Root == "" {
			return fmt.Errorf("storage: fs backend requires root to be set")
		}
	case "s3":
		if cfg.S3.Bucket == "" {
			return fmt.Errorf("storage: s3 backend requires bucket to be set")
		}
	case "badger":
		if cfg.Badger.Dir == "" && !cfg.Badger.InMemory {
			return fmt.Errorf("storage: badger backend requires dir to be set (or in_memory: true)")
		}
	}
	return nil
}

// validateTelemetry checks telemetry cross-field requirements.
func validateTelemetry(cfg *TelemetryConfig) error {
	if cfg.Enabled && cfg.Endpoint == "" {
		return fmt.Errorf("telemetry: endpoint is required when telemetry is enabled")
	}
	if cfg.Profiling.Enabled && cfg.Profiling.Endpoint == "" {
		return fmt.Errorf("telemetry: profiling endpoint is required when profiling is enabled")
	}
	return nil
}
