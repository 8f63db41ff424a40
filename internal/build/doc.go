// Package build provides the canonical build execution pipeline for SiteBuilder.
//
// A build cleans the output directory and then mirrors the pages tree into it
// through the page dispatcher. All execution paths (CLI build, watch mode,
// scheduled builds and tests) route through BuildService so metrics and
// logging stay uniform.
package build
