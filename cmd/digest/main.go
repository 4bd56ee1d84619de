// -----------------------------------------------------------------------
// Last Modified: Saturday, 17th October 2026 5:02:41 pm
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/digest/internal/app"
	"github.com/ternarybob/digest/internal/common"
)

var (
	// Command-line flags
	configFiles []string // Multiple --config flags supported
	logLevel    string

	// Global state
	config *common.Config
	logger arbor.ILogger
)

var rootCmd = &cobra.Command{
	Use:           "digest",
	Short:         "Portfolio report delivery pipeline",
	Long:          `Digest builds per-subscriber portfolio reports, stores them on disk and emails them on a schedule.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		return loadConfig()
	},
}

func init() {
	rootCmd.PersistentFlags().StringArrayVarP(&configFiles, "config", "c", nil, "Configuration file path (can be specified multiple times, later files override earlier ones)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (overrides config)")

	rootCmd.AddCommand(runCmd, serveCmd, subscribeCmd, unsubscribeCmd, subscribersCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig runs the startup sequence:
// defaults -> file1 -> file2 -> ... -> env -> CLI, then logger and banner.
func loadConfig() error {
	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("digest.toml"); err == nil {
			configFiles = append(configFiles, "digest.toml")
		} else if _, err := os.Stat("deployments/local/digest.toml"); err == nil {
			configFiles = append(configFiles, "deployments/local/digest.toml")
		}
	}

	var err error
	config, err = common.LoadFromFiles(configFiles...)
	if err != nil {
		return fmt.Errorf("failed to load configuration %v: %w", configFiles, err)
	}

	common.ApplyFlagOverrides(config, logLevel)

	logger = common.SetupLogger(config)
	common.PrintBanner(common.GetVersion())

	logger.Debug().
		Strs("config_files", configFiles).
		Str("badger_path", config.Storage.Badger.Path).
		Str("log_level", config.Logging.Level).
		Strs("log_output", config.Logging.Output).
		Msg("Resolved configuration (sanitized)")

	return nil
}

// newApp validates configuration and initializes the application.
// Delivery commands need the full configuration; subscriber commands only need storage.
func newApp(requireDelivery bool) (*app.App, error) {
	if requireDelivery {
		if err := config.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
	}
	return app.New(config, logger)
}
