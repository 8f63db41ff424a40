// Package watch rebuilds the site whenever files under the input directory change.
package watch

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/sitebuilder/internal/build"
	"git.home.luguber.info/inful/sitebuilder/internal/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// DefaultDebounce is how long the watcher waits for events to settle before rebuilding.
const DefaultDebounce = 300 * time.Millisecond

// BuildHook is called after every build the watcher runs.
type BuildHook func(result *build.BuildResult, err error)

// Watcher runs a build, then rebuilds on input changes until its context ends.
// Builds never overlap: a change arriving mid-build cancels that build and
// queues exactly one follow-up.
type Watcher struct {
	service  build.BuildService
	req      build.BuildRequest
	debounce time.Duration
	hook     BuildHook
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithBuildHook registers fn to observe build outcomes.
func WithBuildHook(fn BuildHook) Option {
	return func(w *Watcher) { w.hook = fn }
}

// New creates a Watcher that runs req through service.
func New(service build.BuildService, req build.BuildRequest, opts ...Option) *Watcher {
	w := &Watcher{
		service:  service,
		req:      req,
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run blocks until ctx is done. Build failures are logged and reported to
// the hook; they do not stop the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	if w.req.Config == nil {
		return errors.InternalError("config required", nil)
	}
	inputDir, err := filepath.Abs(firstNonEmpty(w.req.InputDir, w.req.Config.Input.Directory))
	if err != nil {
		return errors.FileSystemError("resolve", w.req.InputDir, err)
	}
	outputDir, err := filepath.Abs(firstNonEmpty(w.req.OutputDir, w.req.Config.Output.Directory))
	if err != nil {
		return errors.FileSystemError("resolve", w.req.OutputDir, err)
	}
	if fi, statErr := os.Stat(inputDir); statErr != nil || !fi.IsDir() {
		return errors.ValidationFailed("input.directory", "must be an existing directory to watch").
			WithContext("path", inputDir)
	}

	fsw, err := setupFileWatcher(inputDir)
	if err != nil {
		return err
	}
	defer func() { _ = fsw.Close() }()

	var (
		mu            sync.Mutex
		cancelCurrent context.CancelFunc
	)
	supersede := func() {
		mu.Lock()
		defer mu.Unlock()
		if cancelCurrent != nil {
			cancelCurrent()
		}
	}

	rebuildReq, trigger := setupRebuildDebouncer(w.debounce, supersede)
	rebuildReq <- struct{}{}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-rebuildReq:
			}
			buildCtx, cancel := context.WithCancel(ctx)
			mu.Lock()
			cancelCurrent = cancel
			mu.Unlock()

			w.runBuild(buildCtx)

			mu.Lock()
			cancelCurrent = nil
			mu.Unlock()
			cancel()
		}
	}()

	slog.Info("Watching for changes", logfields.Path(inputDir))
	loopErr := w.loop(ctx, fsw, outputDir, trigger)
	supersede()
	wg.Wait()
	return loopErr
}

func (w *Watcher) runBuild(ctx context.Context) {
	result, err := w.service.Run(ctx, w.req)
	switch {
	case err == nil:
	case stdErrors.Is(err, context.Canceled):
		slog.Debug("Build superseded by newer changes")
	default:
		slog.Warn("Rebuild failed; waiting for further changes", logfields.Error(err))
	}
	if w.hook != nil {
		w.hook(result, err)
	}
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher, outputDir string, trigger func()) error {
	for {
		select {
		case <-ctx.Done():
			slog.Info("Stopping watcher")
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if within(outputDir, ev.Name) {
				continue
			}
			handleFileEvent(fsw, ev, trigger)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher error", logfields.Error(err))
		}
	}
}

// setupFileWatcher creates an fsnotify watcher covering every directory under root.
func setupFileWatcher(root string) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(fmt.Errorf("fsnotify: %w", err), errors.CategoryRuntime, errors.SeverityFatal, "file watcher unavailable")
	}
	if err := addDirsRecursive(watcher, root); err != nil {
		_ = watcher.Close()
		return nil, errors.FileSystemError("watch", root, err)
	}
	return watcher, nil
}

// setupRebuildDebouncer returns a rebuild channel and a trigger that fires it
// once events have been quiet for d. onFire runs just before the send.
func setupRebuildDebouncer(d time.Duration, onFire func()) (chan struct{}, func()) {
	var mu sync.Mutex
	var timer *time.Timer
	rebuildReq := make(chan struct{}, 1)

	trigger := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(d, func() {
			if onFire != nil {
				onFire()
			}
			select {
			case rebuildReq <- struct{}{}:
			default:
			}
		})
	}

	return rebuildReq, trigger
}

// handleFileEvent starts watching new directories and triggers a rebuild.
func handleFileEvent(fsw *fsnotify.Watcher, ev fsnotify.Event, trigger func()) {
	if shouldIgnoreEvent(ev.Name) {
		return
	}
	if ev.Op&fsnotify.Create == fsnotify.Create {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			_ = addDirsRecursive(fsw, ev.Name)
		}
	}
	slog.Debug("File change detected", logfields.Path(ev.Name), logfields.Op(ev.Op.String()))
	trigger()
}

func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.Add(path); err != nil {
			slog.Warn("watch add failed", logfields.Path(path), logfields.Error(err))
		}
		return nil
	})
}

// shouldIgnoreEvent returns true for filesystem events that should not trigger rebuilds.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)

	// Hidden files are never collected as pages.
	if strings.HasPrefix(base, ".") {
		return true
	}

	// Editor temp/swap files
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}

	return base == "Thumbs.db"
}

// within reports whether path equals dir or lies below it.
func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
