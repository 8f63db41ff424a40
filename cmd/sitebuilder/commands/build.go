package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/build"
	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct{}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	return RunBuild(ctx, g, cfg)
}

// RunBuild performs one build and writes the metrics textfile when configured.
func RunBuild(ctx context.Context, g *Global, cfg *config.Config) error {
	m := newBuildMetrics(cfg)
	result, err := m.service().Run(ctx, build.BuildRequest{Config: cfg})

	if werr := m.flush(); werr != nil {
		if err == nil {
			return werr
		}
		slog.Warn("Failed to write metrics textfile", logfields.Path(m.textfile), logfields.Error(werr))
	}
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(g.out(), "Built %d page(s) into %s in %s\n",
		result.FilesProcessed(), result.OutputDir, result.Duration.Round(time.Millisecond))
	return nil
}
