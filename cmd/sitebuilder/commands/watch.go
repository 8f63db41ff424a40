package commands

import (
	"log/slog"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/build"
	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Debounce time.Duration `help:"Quiet period before a rebuild starts" default:"300ms"`
}

func (w *WatchCmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	return w.watcher(cfg).Run(ctx)
}

func (w *WatchCmd) watcher(cfg *config.Config) *watch.Watcher {
	m := newBuildMetrics(cfg)
	return watch.New(m.service(), build.BuildRequest{Config: cfg},
		watch.WithDebounce(w.Debounce),
		watch.WithBuildHook(func(result *build.BuildResult, err error) {
			if err == nil && result != nil {
				slog.Info("Site ready",
					logfields.BuildID(result.BuildID),
					logfields.Files(result.FilesProcessed()),
					logfields.Path(result.OutputDir))
			}
			m.afterBuild(result, err)
		}))
}
