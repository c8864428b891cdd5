// Package cli implements the gsweb command.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

type rootFlags struct {
	configPath string
	verbose    bool
}

// NewRootCmd returns the gsweb command tree.
func NewRootCmd() *cobra.Command {
	var flags rootFlags

	rootCmd := &cobra.Command{
		Use:   "gsweb",
		Short: "Typed client for JSON web services",
		Long: `gsweb loads resources from a JSON web service and keeps websocket
sessions, using the base address, credentials and limits from a YAML file.

Get started:
  gsweb get users/42         Load a resource and print its body
  gsweb listen               Print frames from the websocket endpoint
  gsweb refresh              Renew the stored bearer token`,
		Version:       fmt.Sprintf("%s (built %s)", version, buildTime),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "gsweb.yaml", "Path to configuration file")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(
		newGetCmd(&flags),
		newListenCmd(&flags),
		newRefreshCmd(&flags),
	)

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorColor("error: %v", err))
		os.Exit(1)
	}
}

// SetVersion sets the version info
func SetVersion(v, bt string) {
	version = v
	buildTime = bt
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
