package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aqasim81/table-tracking/internal/config"
)

const version = "0.1.0"

// AppConfig holds the loaded configuration, set during PersistentPreRunE.
var AppConfig *config.Config //nolint:gochecknoglobals // standard Cobra pattern for shared config

// rootCmd is the base command for the tracking CLI.
var rootCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:     "tracking",
	Version: version,
	Short:   "Table change tracking for PostgreSQL",
	Long: `tracking records the DDL and DML statements run against tracked
PostgreSQL tables into numbered versions, and lets you review, filter,
export and replay that history from the command line or a web UI.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return loadConfig(cmd)
	},
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	rootCmd.PersistentFlags().String("config", "tracking.yml", "path to configuration file")
	rootCmd.PersistentFlags().String("database-url", "", "PostgreSQL connection string")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("format", "", "output format (text, json)")
}

// Execute runs the root command. Called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig loads configuration with precedence: flag > env > file.
func loadConfig(cmd *cobra.Command) error {
	configPath, _ := cmd.Flags().GetString("config")
	allowMissing := !cmd.Flags().Changed("config")

	cfg, err := config.Load(configPath, allowMissing)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	config.MergeEnv(cfg)

	if err := mergeFlags(cmd, cfg); err != nil {
		return err
	}

	AppConfig = cfg

	return nil
}

// mergeFlags overrides config with explicitly-set CLI flags.
func mergeFlags(cmd *cobra.Command, cfg *config.Config) error {
	if cmd.Flags().Changed("database-url") {
		cfg.DatabaseURL, _ = cmd.Flags().GetString("database-url")
	}

	if cmd.Flags().Changed("log-level") {
		lvl, _ := cmd.Flags().GetString("log-level")
		if _, err := config.ParseLevel(lvl); err != nil {
			return err //nolint:wrapcheck // config errors name the field
		}

		cfg.LogLevel = lvl
	}

	if cmd.Flags().Changed("format") {
		format, _ := cmd.Flags().GetString("format")
		if format != "text" && format != "json" {
			return fmt.Errorf("%w: format %q", config.ErrInvalidValue, format)
		}

		cfg.Format = format
	}

	return nil
}

// newLogger returns the configured logger writing to the command's error
// stream.
func newLogger(cmd *cobra.Command) *slog.Logger {
	return config.NewLogger(AppConfig, cmd.ErrOrStderr())
}
