// Package metrics provides build metrics for SiteBuilder.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so metrics cost nothing unless a PrometheusRecorder is wired in:
//
//	reg := prometheus.NewRegistry()
//	svc := build.NewBuildService().WithRecorder(metrics.NewPrometheusRecorder(reg))
//
// One-shot CLI builds have no scrape endpoint; WriteTextfile dumps a registry
// in the Prometheus text format for node_exporter's textfile collector.
package metrics
