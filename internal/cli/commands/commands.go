// Package commands implements the relineage subcommands.
package commands

import (
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/relineage/internal/cli/config"
)

// Shared command state, set once by the root command before any subcommand
// runs.
var (
	cfg    *config.Config
	logger *slog.Logger
)

// Configure installs the loaded configuration and logger for subcommands.
func Configure(c *config.Config, l *slog.Logger) {
	cfg = c
	logger = l
}

func getConfig() *config.Config {
	if cfg == nil {
		return &config.Config{LogLevel: config.DefaultLogLevel, Output: config.DefaultOutput}
	}
	return cfg
}

func getLogger() *slog.Logger {
	if logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return logger
}

// outputFormat validates the output flag/config value.
func outputFormat(flag string) (string, error) {
	format := flag
	if format == "" {
		format = getConfig().Output
	}
	switch format {
	case "text", "json":
		return format, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text or json)", format)
}
