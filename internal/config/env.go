package config

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"git.home.luguber.info/inful/sitebuilder/internal/errors"
)

// Environment variables that override configuration values.
const (
	EnvInputDir  = "SITEBUILDER_INPUT_DIR"
	EnvOutputDir = "SITEBUILDER_OUTPUT_DIR"
	EnvMarkdown  = "SITEBUILDER_MARKDOWN"
	EnvLogLevel  = "SITEBUILDER_LOG_LEVEL"
)

var envFiles = []string{".env", ".env.local"}

// loadEnvFile loads environment variables from the first readable .env file.
// Existing process environment variables are not overwritten.
func loadEnvFile() {
	for _, envPath := range envFiles {
		if _, err := os.Stat(envPath); err != nil {
			continue
		}
		if err := godotenv.Load(envPath); err != nil {
			slog.Warn("Failed to load env file", "path", envPath, "error", err)
			continue
		}
		slog.Debug("Loaded environment variables", "path", envPath)
		return
	}
}

// applyEnvOverrides lets the environment take precedence over file values.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv(EnvInputDir); v != "" {
		cfg.Input.Directory = v
	}
	if v := os.Getenv(EnvOutputDir); v != "" {
		cfg.Output.Directory = v
	}
	if v := os.Getenv(EnvMarkdown); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.ValidationFailed(EnvMarkdown, "not a boolean").WithContext("value", v)
		}
		cfg.Pages.Markdown = b
	}
	return nil
}
