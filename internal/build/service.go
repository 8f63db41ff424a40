package build

import (
	"context"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/pages"
)

// Stage names used for logging and metrics.
const (
	StageClean    = "clean"
	StageDispatch = "dispatch"
)

// BuildService is the canonical interface for executing site builds.
type BuildService interface {
	// Run executes a complete build pipeline: clean → dispatch.
	// Returns a BuildResult with detailed outcomes and any error encountered.
	Run(ctx context.Context, req BuildRequest) (*BuildResult, error)
}

// BuildRequest contains all inputs required to execute a build.
type BuildRequest struct {
	// Config is the loaded configuration for this build.
	Config *config.Config

	// InputDir overrides Config.Input.Directory when non-empty.
	InputDir string

	// OutputDir overrides Config.Output.Directory when non-empty.
	OutputDir string
}

// BuildResult contains the outcome of a build execution.
type BuildResult struct {
	// BuildID uniquely identifies the run in logs.
	BuildID string

	// Status indicates overall build outcome.
	Status BuildStatus

	InputDir  string
	PagesDir  string
	OutputDir string

	// Files lists every page written, sorted by target path. On failure it
	// holds the pages written before the error.
	Files []pages.FileResult

	// Duration is the total build execution time.
	Duration time.Duration

	// StartTime is when the build started.
	StartTime time.Time

	// EndTime is when the build completed.
	EndTime time.Time
}

// FilesProcessed is the number of pages written.
func (r *BuildResult) FilesProcessed() int {
	return len(r.Files)
}

// BuildStatus represents the outcome of a build execution.
type BuildStatus string

const (
	// BuildStatusSuccess indicates the build completed successfully.
	BuildStatusSuccess BuildStatus = "success"

	// BuildStatusFailed indicates the build encountered an error.
	BuildStatusFailed BuildStatus = "failed"

	// BuildStatusCancelled indicates the build was cancelled.
	BuildStatusCancelled BuildStatus = "cancelled"
)

// IsTerminal returns true if the status represents a final state.
func (s BuildStatus) IsTerminal() bool {
	return s == BuildStatusSuccess || s == BuildStatusFailed || s == BuildStatusCancelled
}

// IsSuccess returns true if the build completed successfully.
func (s BuildStatus) IsSuccess() bool {
	return s == BuildStatusSuccess
}
