package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/strongdm/raven/pkg/config"
	"github.com/strongdm/raven/pkg/raven"
)

var (
	configPath string
	crashDir   string
)

var rootCmd = &cobra.Command{
	Use:   "ravenctl",
	Short: "Send events to a Sentry collector and manage persisted crashes",
	Long: "ravenctl exercises a raven client from the command line: it sends messages and errors, " +
		"and lists, replays, purges or simulates crashes in the local crash directory.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (environment variables override it)")
	rootCmd.PersistentFlags().StringVar(&crashDir, "crash-dir", "", "crash directory (default: $SENTRY_CRASH_DIR or the user cache dir)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads --config and the environment. --crash-dir wins over both.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return nil, err
	}
	if crashDir != "" {
		cfg.CrashDir = crashDir
	}
	return cfg, nil
}

// newClient builds a client from the loaded configuration. Building it
// replays any persisted crashes.
func newClient(cfg *config.Config) (*raven.Client, error) {
	logger := cfg.Logger(os.Stderr)
	return raven.New(cfg.DSN, cfg.Options(logger)...)
}

// resolveCrashDir picks the crash directory without requiring a DSN.
func resolveCrashDir() string {
	if crashDir != "" {
		return crashDir
	}
	if configPath != "" {
		if cfg, err := loadConfig(); err == nil && cfg.CrashDir != "" {
			return cfg.CrashDir
		}
	}
	if dir := os.Getenv("SENTRY_CRASH_DIR"); dir != "" {
		return dir
	}
	return raven.DefaultCrashDir()
}
