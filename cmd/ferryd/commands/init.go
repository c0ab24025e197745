package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marcomacias410/ferry/internal/cli/prompt"
	"github.com/marcomacias410/ferry/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample ferry configuration file.

By default, the configuration file is created at $XDG_CONFIG_HOME/ferry/config.yaml.
Use --config to specify a custom path.

Examples:
  # Initialize with default location
  ferryd init

  # Initialize with custom path
  ferryd init --config /etc/ferry/config.yaml

  # Force overwrite existing config
  ferryd init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	path := GetConfigFile()
	if path == "" {
		path = config.GetDefaultConfigPath()
	}

	force := initForce
	if _, err := os.Stat(path); err == nil && !force {
		ok, err := prompt.Confirm(fmt.Sprintf("Overwrite existing config at %s", path), false)
		if err != nil && !prompt.IsAborted(err) {
			return err
		}
		if !ok {
			fmt.Println("Aborted.")
			return nil
		}
		force = true
	}

	configPath, err := config.InitConfig(path, force)
	if err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Printf("Configuration file created at: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Edit the configuration file to customize your setup")
	fmt.Println("  2. Start the server with: ferryd start")
	fmt.Printf("  3. Or specify custom config: ferryd start --config %s\n", configPath)

	return nil
}
