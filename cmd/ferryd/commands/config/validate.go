package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marcomacias410/ferry/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the ferry configuration file.

Checks for syntax errors, missing required fields, and invalid values.

Examples:
  # Validate default config
  ferryd config validate

  # Validate specific config file
  ferryd config validate --config /etc/ferry/config.yaml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	// Get config path from parent's persistent flag
	configPath, _ := cmd.Flags().GetString("config")

	// Load and validate configuration
	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	// Determine path for display
	displayPath := configPath
	if displayPath == "" {
		displayPath = config.GetDefaultConfigPath()
	}

	// Additional validation checks
	var warnings []string

	// Metrics are served by the admin API
	if cfg.Metrics.Enabled && !cfg.Admin.Enabled {
		warnings = append(warnings, "Metrics enabled but admin API disabled - /metrics will not be served")
	}

	// S3 needs a bucket before the server can start
	if cfg.Storage.Backend == "s3" && cfg.Storage.S3.Bucket == "" {
		warnings = append(warnings, "S3 backend selected but no bucket configured")
	}

	if cfg.Server.MaxObjectSize == 0 {
		warnings = append(warnings, "No upload size limit configured - clients can announce arbitrarily large uploads")
	}

	// Print results
	fmt.Printf("Configuration file: %s\n", displayPath)
	fmt.Println("Validation: OK")

	if len(warnings) > 0 {
		fmt.Println("\nWarnings:")
		for _, w := range warnings {
			fmt.Printf("  - %s\n", w)
		}
	}

	fmt.Printf("\nConfiguration summary:\n")
	fmt.Printf("  Storage backend: %s\n", cfg.Storage.Backend)
	fmt.Printf("  Listen address:  %s\n", cfg.Server.ListenAddress)
	fmt.Printf("  Log level:       %s\n", cfg.Logging.Level)

	return nil
}
