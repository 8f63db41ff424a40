package config

import "os"

const (
	DefaultInputDir   = "./input"
	DefaultOutputDir  = "./output"
	DefaultPagesDir   = "pages"
	DefaultContentDir = "content"
	DefaultPattern    = "*"

	DefaultDirMode  FileMode = 0o775
	DefaultFileMode FileMode = 0o644
)

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

// InputDefaultApplier handles Input configuration defaults.
type InputDefaultApplier struct{}

func (InputDefaultApplier) Domain() string { return "input" }

func (InputDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Input.Directory == "" {
		cfg.Input.Directory = DefaultInputDir
	}
	if cfg.Input.Pages == "" {
		cfg.Input.Pages = DefaultPagesDir
	}
	if cfg.Input.Content == "" {
		cfg.Input.Content = DefaultContentDir
	}
	return nil
}

// OutputDefaultApplier handles Output configuration defaults.
type OutputDefaultApplier struct{}

func (OutputDefaultApplier) Domain() string { return "output" }

func (OutputDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Output.Directory == "" {
		cfg.Output.Directory = DefaultOutputDir
	}
	if cfg.Output.DirMode == 0 {
		cfg.Output.DirMode = DefaultDirMode
	}
	if cfg.Output.FileMode == 0 {
		cfg.Output.FileMode = DefaultFileMode
	}
	return nil
}

// PagesDefaultApplier handles Pages configuration defaults.
type PagesDefaultApplier struct{}

func (PagesDefaultApplier) Domain() string { return "pages" }

func (PagesDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Pages.Pattern == "" {
		cfg.Pages.Pattern = DefaultPattern
	}
	return nil
}

func defaultAppliers() []DefaultApplier {
	return []DefaultApplier{
		InputDefaultApplier{},
		OutputDefaultApplier{},
		PagesDefaultApplier{},
	}
}

func applyDefaults(cfg *Config) error {
	for _, applier := range defaultAppliers() {
		if err := applier.ApplyDefaults(cfg); err != nil {
			return err
		}
	}
	return nil
}

// FileMode is a permission set written in YAML as an octal string ("0775").
type FileMode os.FileMode

// Perm returns the mode as os.FileMode permission bits.
func (m FileMode) Perm() os.FileMode { return os.FileMode(m).Perm() }
