package commands

import (
	"log/slog"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/sitebuilder/internal/build"
	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
)

// buildMetrics is the Prometheus registry shared by every build a command
// runs. Long-running commands accumulate counters across rebuilds.
type buildMetrics struct {
	reg      *prom.Registry
	recorder *metrics.PrometheusRecorder
	textfile string
}

func newBuildMetrics(cfg *config.Config) *buildMetrics {
	reg := prom.NewRegistry()
	return &buildMetrics{
		reg:      reg,
		recorder: metrics.NewPrometheusRecorder(reg),
		textfile: cfg.Metrics.Textfile,
	}
}

// service returns a build service recording into the shared registry.
func (m *buildMetrics) service() *build.DefaultBuildService {
	return build.NewBuildService().WithRecorder(m.recorder)
}

// flush writes the textfile when one is configured.
func (m *buildMetrics) flush() error {
	if m.textfile == "" {
		return nil
	}
	return metrics.WriteTextfile(m.textfile, m.reg)
}

// afterBuild is a build hook that flushes metrics, logging any write failure.
func (m *buildMetrics) afterBuild(*build.BuildResult, error) {
	if err := m.flush(); err != nil {
		slog.Warn("Failed to write metrics textfile", logfields.Path(m.textfile), logfields.Error(err))
	}
}
