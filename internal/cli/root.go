// Package cli implements the walletd command-line interface.
//
// This package uses global variables to manage CLI state, which is the
// standard pattern for Cobra-based applications. The globals are
// initialized in PersistentPreRunE and released in PersistentPostRun.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level state
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/votis/walletd/internal/config"
)

var (
	// Global flags
	configFile string
	logLevel   string

	// Global state initialized in PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "walletd",
	Short: "Session and signing broker for custodial key management",
	Long: `walletd brokers authenticated sessions and signed requests between
wallet clients and an external custodial key-management service.

It maintains short-lived credential sessions, stamps outbound requests
with the operator API key, and forwards client-stamped requests opaque.

Example:
  walletd keygen
  walletd serve --config /etc/walletd/config.yaml
  walletd chains resolve base`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		return initGlobals()
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		cleanup()
	},
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	return err
}

func initGlobals() error {
	path := configFile
	if path == "" {
		path = config.Path(config.DefaultHome())
	}

	loaded, err := config.Load(path)
	if err != nil {
		// Missing config is fine for keygen and chains commands;
		// serve validates what it needs.
		loaded = config.Defaults()
	}
	cfg = loaded
	config.ApplyEnvironment(cfg)

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	logger, err = config.NewLogger(cfg.Logging)
	if err != nil {
		return err
	}
	return nil
}

func cleanup() {
	if logger != nil {
		_ = logger.Sync()
	}
}

//nolint:gochecknoinits // Cobra command registration
func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
}
