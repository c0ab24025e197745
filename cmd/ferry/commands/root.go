// Package commands implements the ferry interactive client.
package commands

import (
	"time"

	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// Global flags.
	serverAddr  string
	dialTimeout time.Duration
	noColor     bool
)

// rootCmd starts the interactive shell when called without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "ferry",
	Short: "Ferry - File transfer client",
	Long: `Ferry is the interactive client for the ferry transfer server.

Running it without a subcommand connects to the server and opens a
command shell:

  ls                   list stored files
  get <file> [local]   download a file
  put <file>           upload a file
  exit                 end the session

Names containing spaces are written double-quoted: get "two words.txt"`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runShell,
}

// Execute runs the root command. Called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverAddr, "addr", "a", "localhost:5001", "Server address (host:port)")
	rootCmd.PersistentFlags().DurationVar(&dialTimeout, "timeout", 10*time.Second, "Connect timeout")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(versionCmd)
}
