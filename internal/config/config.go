package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/sitebuilder/internal/errors"
)

// DefaultPath is the configuration file looked up when none is given.
const DefaultPath = "config.yaml"

// Config represents the application configuration
type Config struct {
	Input   InputConfig   `yaml:"input"`
	Output  OutputConfig  `yaml:"output"`
	Pages   PagesConfig   `yaml:"pages"`
	Metrics MetricsConfig `yaml:"metrics,omitempty"`
}

// InputConfig describes the source tree layout.
type InputConfig struct {
	Directory string `yaml:"directory"`
	// Pages is the subdirectory mirrored into the output.
	Pages string `yaml:"pages"`
	// Content is reserved for structured content and is not read by builds.
	Content string `yaml:"content"`
}

// OutputConfig represents output configuration
type OutputConfig struct {
	Directory string   `yaml:"directory"`
	DirMode   FileMode `yaml:"dir_mode"`
	FileMode  FileMode `yaml:"file_mode"`
}

// PagesConfig controls how pages are collected and processed.
type PagesConfig struct {
	// Pattern is the glob applied at every directory level.
	Pattern       string `yaml:"pattern"`
	IncludeHidden bool   `yaml:"include_hidden"`
	// Markdown renders .md/.markdown pages to .html instead of copying them.
	Markdown bool `yaml:"markdown"`
}

// MetricsConfig controls metrics export for one-shot builds.
type MetricsConfig struct {
	// Textfile, when set, receives the build metrics in Prometheus text format.
	Textfile string `yaml:"textfile,omitempty"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	_ = applyDefaults(cfg)
	return cfg
}

// Load loads configuration from the specified file
func Load(configPath string) (*Config, error) {
	loadEnvFile()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, errors.ConfigNotFound(configPath)
	}

	// #nosec G304 - the config path is supplied by the operator
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, errors.ConfigInvalid(configPath, fmt.Errorf("failed to read config file: %w", err))
	}

	return parse(configPath, data)
}

// LoadOrDefault behaves like Load, except that a missing file at the default
// location yields the default configuration. An explicitly requested file
// must exist.
func LoadOrDefault(configPath string, explicit bool) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) && !explicit {
		loadEnvFile()
		cfg := Default()
		if err := applyEnvOverrides(cfg); err != nil {
			return nil, err
		}
		if err := ValidateConfig(cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return Load(configPath)
}

func parse(configPath string, data []byte) (*Config, error) {
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expandedData), &config); err != nil {
		return nil, errors.ConfigInvalid(configPath, fmt.Errorf("failed to unmarshal config: %w", err))
	}

	if err := applyDefaults(&config); err != nil {
		return nil, err
	}
	if err := applyEnvOverrides(&config); err != nil {
		return nil, err
	}
	if err := ValidateConfig(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// Init creates a new configuration file with example content
func Init(configPath string, force bool) error {
	return InitWith(configPath, Default(), force)
}

// InitWith writes cfg as a new configuration file after validating it.
func InitWith(configPath string, cfg *Config, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return errors.ValidationFailed("config", "configuration file already exists (use --force to overwrite)").
			WithContext("path", configPath)
	}
	if err := ValidateConfig(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.InternalError("failed to marshal config", err)
	}

	header := []byte("# SiteBuilder configuration. Paths are relative to the working directory.\n")
	if err := os.WriteFile(configPath, append(header, data...), 0o644); err != nil {
		return errors.FileSystemError("write", configPath, err)
	}

	return nil
}
