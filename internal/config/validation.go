package config

import (
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/sitebuilder/internal/errors"
)

// ValidateConfig checks the complete configuration after defaults are applied.
func ValidateConfig(cfg *Config) error {
	if strings.TrimSpace(cfg.Input.Directory) == "" {
		return errors.ValidationFailed("input.directory", "must not be empty")
	}
	if strings.TrimSpace(cfg.Output.Directory) == "" {
		return errors.ValidationFailed("output.directory", "must not be empty")
	}
	if err := validateSubdir("input.pages", cfg.Input.Pages); err != nil {
		return err
	}
	if err := validateSubdir("input.content", cfg.Input.Content); err != nil {
		return err
	}
	if _, err := filepath.Match(cfg.Pages.Pattern, ""); err != nil {
		return errors.ValidationFailed("pages.pattern", err.Error())
	}
	if cfg.Output.DirMode.Perm()&0o700 != 0o700 {
		return errors.ValidationFailed("output.dir_mode", "owner needs rwx to populate directories").
			WithContext("value", cfg.Output.DirMode.String())
	}
	if cfg.Output.FileMode.Perm()&0o600 != 0o600 {
		return errors.ValidationFailed("output.file_mode", "owner needs rw to rebuild files").
			WithContext("value", cfg.Output.FileMode.String())
	}

	return ValidateLayout(cfg.Input.Directory, cfg.Output.Directory)
}

// ValidateLayout rejects an output directory that equals or contains the
// input directory, since cleaning it would destroy the sources.
func ValidateLayout(inputDir, outputDir string) error {
	if within(outputDir, inputDir) {
		return errors.ValidationFailed("output.directory", "must not contain or equal the input directory").
			WithContext("output", outputDir).
			WithContext("input", inputDir)
	}
	return nil
}

func validateSubdir(field, value string) error {
	if value == "" {
		return errors.ValidationFailed(field, "must not be empty")
	}
	clean := filepath.Clean(value)
	if filepath.IsAbs(clean) || clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return errors.ValidationFailed(field, "must be a relative path inside the input directory").
			WithContext("value", value)
	}
	return nil
}

// within reports whether child equals parent or lies below it.
func within(parent, child string) bool {
	p, err := filepath.Abs(parent)
	if err != nil {
		return false
	}
	c, err := filepath.Abs(child)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(p, c)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
