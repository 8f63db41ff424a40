package build

import (
	"context"
	stdErrors "errors"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/pages"
	"git.home.luguber.info/inful/sitebuilder/internal/tree"
)

// RegistryFactory builds the page handler registry for a configuration.
type RegistryFactory func(cfg *config.Config) *pages.Registry

// DefaultBuildService is the standard implementation of BuildService.
// It orchestrates the full pipeline: clean output → dispatch pages.
type DefaultBuildService struct {
	registryFactory RegistryFactory
	recorder        metrics.Recorder
	idFunc          func() string
	cleanFunc       func(path string, removeSelf bool) error
}

// NewBuildService creates a new DefaultBuildService with default factories.
func NewBuildService() *DefaultBuildService {
	return &DefaultBuildService{
		registryFactory: DefaultRegistry,
		recorder:        metrics.NoopRecorder{},
		idFunc:          uuid.NewString,
		cleanFunc:       tree.Clean,
	}
}

// DefaultRegistry returns the handlers enabled by cfg. With the default
// configuration it is empty and every page is copied verbatim.
func DefaultRegistry(cfg *config.Config) *pages.Registry {
	reg := pages.NewRegistry()
	if cfg != nil && cfg.Pages.Markdown {
		pages.RegisterMarkdown(reg)
	}
	return reg
}

// WithRegistryFactory allows injecting custom page handlers.
func (s *DefaultBuildService) WithRegistryFactory(factory RegistryFactory) *DefaultBuildService {
	if factory != nil {
		s.registryFactory = factory
	}
	return s
}

// WithRecorder sets the metrics recorder.
func (s *DefaultBuildService) WithRecorder(r metrics.Recorder) *DefaultBuildService {
	if r != nil {
		s.recorder = r
	}
	return s
}

// WithIDFunc overrides build ID generation (for testing).
func (s *DefaultBuildService) WithIDFunc(fn func() string) *DefaultBuildService {
	if fn != nil {
		s.idFunc = fn
	}
	return s
}

// Run executes the complete build pipeline.
func (s *DefaultBuildService) Run(ctx context.Context, req BuildRequest) (*BuildResult, error) {
	startTime := time.Now()

	result := &BuildResult{
		BuildID:   s.idFunc(),
		StartTime: startTime,
	}
	logger := slog.Default().With(logfields.BuildID(result.BuildID))

	if req.Config == nil {
		return s.fail(result, "", errors.InternalError("config required", nil))
	}

	result.InputDir = firstNonEmpty(req.InputDir, req.Config.Input.Directory)
	result.OutputDir = firstNonEmpty(req.OutputDir, req.Config.Output.Directory)
	if err := config.ValidateLayout(result.InputDir, result.OutputDir); err != nil {
		return s.fail(result, "", err)
	}

	dispatcher := pages.NewDispatcher(
		pages.NewProcessor(s.registryFactory(req.Config),
			pages.WithFileMode(req.Config.Output.FileMode.Perm())),
		pages.WithPagesDir(req.Config.Input.Pages),
		pages.WithDirMode(req.Config.Output.DirMode.Perm()),
		pages.WithPattern(req.Config.Pages.Pattern),
		pages.WithHiddenPages(req.Config.Pages.IncludeHidden),
	)
	result.PagesDir = dispatcher.PagesDir(result.InputDir)

	logger.Info("Starting site build",
		slog.String("input", result.InputDir),
		slog.String("output", result.OutputDir))

	// Stage 1: Clean output
	stageStart := time.Now()
	if err := ctx.Err(); err != nil {
		return s.fail(result, StageClean, err)
	}
	if err := s.cleanFunc(result.OutputDir, false); err != nil {
		return s.fail(result, StageClean, err)
	}
	s.recorder.ObserveStageDuration(StageClean, time.Since(stageStart))
	s.recorder.IncStageResult(StageClean, metrics.ResultSuccess)
	logger.Debug("Output cleaned", logfields.Stage(StageClean), logfields.Path(result.OutputDir))

	// Stage 2: Dispatch pages
	stageStart = time.Now()
	files, err := dispatcher.Dispatch(ctx, result.InputDir, result.OutputDir)
	result.Files = sortedByTarget(files)
	for _, f := range result.Files {
		s.recorder.IncPageProcessed(f.Handler, f.Bytes)
	}
	if err != nil {
		return s.fail(result, StageDispatch, err)
	}
	s.recorder.ObserveStageDuration(StageDispatch, time.Since(stageStart))
	s.recorder.IncStageResult(StageDispatch, metrics.ResultSuccess)

	result.Status = BuildStatusSuccess
	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)
	s.recorder.IncBuildOutcome(metrics.BuildOutcomeSuccess)
	s.recorder.ObserveBuildDuration(result.Duration)

	logger.Info("Site build completed",
		logfields.Files(len(result.Files)),
		logfields.DurationMS(float64(result.Duration.Microseconds())/1000))
	return result, nil
}

// fail finalises a failed or cancelled result. Cancellation is returned
// unchanged; anything else is wrapped as a build error naming the stage
// unless it already carries a category.
func (s *DefaultBuildService) fail(result *BuildResult, stage string, err error) (*BuildResult, error) {
	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)

	if stdErrors.Is(err, context.Canceled) || stdErrors.Is(err, context.DeadlineExceeded) {
		result.Status = BuildStatusCancelled
		if stage != "" {
			s.recorder.IncStageResult(stage, metrics.ResultCanceled)
		}
		s.recorder.IncBuildOutcome(metrics.BuildOutcomeCanceled)
		slog.Info("Site build cancelled", logfields.BuildID(result.BuildID), logfields.Stage(stage))
		return result, err
	}

	result.Status = BuildStatusFailed
	if stage != "" {
		s.recorder.IncStageResult(stage, metrics.ResultFatal)
	}
	s.recorder.IncBuildOutcome(metrics.BuildOutcomeFailed)
	s.recorder.ObserveBuildDuration(result.Duration)

	if _, ok := errors.As(err); !ok {
		err = errors.BuildFailed(stage, err)
	}
	slog.Error("Site build failed",
		logfields.BuildID(result.BuildID),
		logfields.Stage(stage),
		logfields.Files(len(result.Files)),
		logfields.Error(err))
	return result, err
}

func sortedByTarget(files []pages.FileResult) []pages.FileResult {
	out := append([]pages.FileResult(nil), files...)
	sort.Slice(out, func(i, j int) bool {
		return filepath.ToSlash(out[i].Target) < filepath.ToSlash(out[j].Target)
	})
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
