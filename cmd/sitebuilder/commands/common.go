package commands

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/version"
)

// Global carries process-wide dependencies into subcommands.
type Global struct {
	Logger *slog.Logger
	// Out receives user-facing progress messages.
	Out io.Writer
}

// CLI definition & global flags - used by commands that need access to root config.
type CLI struct {
	Config      string           `short:"c" help:"Configuration file path" default:"config.yaml"`
	Verbose     bool             `short:"v" help:"Enable verbose logging"`
	Version     kong.VersionFlag `name:"version" help:"Show version and exit"`
	Input       string           `short:"i" help:"Input directory (overrides input.directory)" type:"path"`
	Output      string           `short:"o" help:"Output directory (overrides output.directory)" type:"path"`
	MetricsFile string           `name:"metrics-file" help:"Write build metrics in Prometheus text format to this file" type:"path"`

	Build    BuildCmd    `cmd:"" default:"withargs" help:"Build the site from the input pages (default command)"`
	Clean    CleanCmd    `cmd:"" help:"Empty the output directory"`
	Init     InitCmd     `cmd:"" help:"Write a starter configuration and input layout"`
	Watch    WatchCmd    `cmd:"" help:"Build, then rebuild whenever the input changes"`
	Schedule ScheduleCmd `cmd:"" help:"Build, then rebuild on an interval or cron schedule"`
}

// NewParser builds the kong parser shared by main and tests.
func NewParser(cli *CLI, opts ...kong.Option) (*kong.Kong, error) {
	base := []kong.Option{
		kong.Name("sitebuilder"),
		kong.Description("Static site build pipeline: mirrors input pages into an output tree."),
		kong.Vars{"version": version.String()},
		kong.UsageOnError(),
	}
	return kong.New(cli, append(base, opts...)...)
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(c.Verbose)}))
	slog.SetDefault(logger)
	return nil
}

// LoadConfig loads the configuration file and applies the global flag
// overrides. A missing file is only an error when -c names a non-default path.
func (c *CLI) LoadConfig() (*config.Config, error) {
	path := c.Config
	if path == "" {
		path = config.DefaultPath
	}
	cfg, err := config.LoadOrDefault(path, path != config.DefaultPath)
	if err != nil {
		return nil, err
	}
	if c.Input != "" {
		cfg.Input.Directory = c.Input
	}
	if c.Output != "" {
		cfg.Output.Directory = c.Output
	}
	if c.MetricsFile != "" {
		cfg.Metrics.Textfile = c.MetricsFile
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseLogLevel maps the verbose flag and SITEBUILDER_LOG_LEVEL to a level.
// The flag wins over the environment.
func parseLogLevel(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	switch strings.ToLower(strings.TrimSpace(os.Getenv(config.EnvLogLevel))) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func (g *Global) out() io.Writer {
	if g == nil || g.Out == nil {
		return io.Discard
	}
	return g.Out
}
