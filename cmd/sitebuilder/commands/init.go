package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/errors"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force bool `help:"Overwrite existing configuration file"`
}

func (i *InitCmd) Run(g *Global, root *CLI) error {
	cfg := config.Default()
	if root.Input != "" {
		cfg.Input.Directory = relativeToWorkdir(root.Input)
	}
	if root.Output != "" {
		cfg.Output.Directory = relativeToWorkdir(root.Output)
	}
	if root.MetricsFile != "" {
		cfg.Metrics.Textfile = relativeToWorkdir(root.MetricsFile)
	}
	return RunInit(g, root.Config, cfg, i.Force)
}

// RunInit writes cfg as the starter configuration and creates the pages and
// content directories it names, each holding a .gitkeep. Existing files in
// those directories are left alone.
func RunInit(g *Global, configPath string, cfg *config.Config, force bool) error {
	out := g.out()
	_, _ = fmt.Fprintln(out, "Initializing SiteBuilder project")
	_, _ = fmt.Fprintf(out, "Writing configuration to %s\n", configPath)
	if err := config.InitWith(configPath, cfg, force); err != nil {
		_, _ = fmt.Fprintln(out, "Initialization failed")
		return err
	}

	for _, sub := range []string{cfg.Input.Pages, cfg.Input.Content} {
		dir := filepath.Join(cfg.Input.Directory, sub)
		if err := os.MkdirAll(dir, cfg.Output.DirMode.Perm()); err != nil {
			return errors.FileSystemError("mkdir", dir, err)
		}
		keep := filepath.Join(dir, ".gitkeep")
		if _, err := os.Stat(keep); err == nil {
			continue
		}
		if err := os.WriteFile(keep, nil, cfg.Output.FileMode.Perm()); err != nil {
			return errors.FileSystemError("write", keep, err)
		}
	}

	_, _ = fmt.Fprintln(out, "initialized successfully")
	return nil
}

// relativeToWorkdir turns a flag path that kong made absolute back into a
// "./"-prefixed path when it lies below the working directory, keeping the
// written configuration portable.
func relativeToWorkdir(p string) string {
	wd, err := os.Getwd()
	if err != nil {
		return p
	}
	rel, err := filepath.Rel(wd, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return p
	}
	if rel == "." {
		return "."
	}
	return "./" + filepath.ToSlash(rel)
}
