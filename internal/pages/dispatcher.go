package pages

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/sitebuilder/internal/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/tree"
)

const (
	// DefaultPagesDir is the subdirectory of the input root mirrored into the output.
	DefaultPagesDir = "pages"
	// DefaultDirMode is rwxrwxr-x, applied to every directory the dispatcher creates.
	DefaultDirMode os.FileMode = 0o775
)

// Dispatcher mirrors the pages tree into the output root, one file at a time.
type Dispatcher struct {
	processor *Processor
	pagesDir  string
	dirMode   os.FileMode
	pattern   string
	collect   tree.CollectOptions
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithPagesDir overrides the pages subdirectory name.
func WithPagesDir(name string) DispatcherOption {
	return func(d *Dispatcher) {
		if name != "" {
			d.pagesDir = name
		}
	}
}

// WithDirMode sets the permission bits of created directories.
func WithDirMode(mode os.FileMode) DispatcherOption {
	return func(d *Dispatcher) {
		if mode != 0 {
			d.dirMode = mode
		}
	}
}

// WithPattern sets the glob pattern used to collect pages.
func WithPattern(pattern string) DispatcherOption {
	return func(d *Dispatcher) {
		if pattern != "" {
			d.pattern = pattern
		}
	}
}

// WithHiddenPages makes dot-prefixed files and directories part of the site.
func WithHiddenPages(include bool) DispatcherOption {
	return func(d *Dispatcher) { d.collect.IncludeHidden = include }
}

// NewDispatcher creates a dispatcher that routes every page to processor.
func NewDispatcher(processor *Processor, opts ...DispatcherOption) *Dispatcher {
	if processor == nil {
		processor = NewProcessor(nil)
	}
	d := &Dispatcher{
		processor: processor,
		pagesDir:  DefaultPagesDir,
		dirMode:   DefaultDirMode,
		pattern:   tree.DefaultPattern,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// PagesDir returns the pages directory for an input root.
func (d *Dispatcher) PagesDir(inputRoot string) string {
	return filepath.Join(inputRoot, d.pagesDir)
}

// Dispatch processes every page under inputRoot/<pages> into outputRoot.
// A missing pages directory is not an error. Files are handled sequentially;
// on failure the results so far are returned along with the error and the
// files already written stay on disk.
func (d *Dispatcher) Dispatch(ctx context.Context, inputRoot, outputRoot string) ([]FileResult, error) {
	pagesDir := d.PagesDir(inputRoot)

	info, err := os.Stat(pagesDir)
	if err != nil || !info.IsDir() {
		slog.Info("No pages directory; nothing to process", logfields.Path(pagesDir))
		return nil, nil
	}

	files, err := tree.CollectWith(pagesDir, d.pattern, d.collect)
	if err != nil {
		return nil, err
	}
	slog.Debug("Collected pages", logfields.Path(pagesDir), logfields.Files(len(files)))

	results := make([]FileResult, 0, len(files))
	for _, source := range files {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		target, rel, err := TargetPath(pagesDir, outputRoot, source)
		if err != nil {
			return results, err
		}

		targetDir := filepath.Dir(target)
		if err := os.MkdirAll(targetDir, d.dirMode); err != nil {
			return results, errors.FileSystemError("mkdir", targetDir, err)
		}

		res, err := d.processor.ProcessPage(ctx, PageContext{
			SourcePath: source,
			TargetPath: target,
			RelPath:    rel,
		})
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// TargetPath maps a source file under pagesDir onto outputRoot by its path
// relative to pagesDir. It also returns that relative path in slash form.
func TargetPath(pagesDir, outputRoot, source string) (string, string, error) {
	rel, err := filepath.Rel(pagesDir, source)
	if err != nil {
		return "", "", errors.InternalError("page outside pages directory", err).
			WithContext("path", source)
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", "", errors.InternalError(
			"page outside pages directory",
			fmt.Errorf("%s is not below %s", source, pagesDir),
		).WithContext("path", source)
	}
	return filepath.Join(outputRoot, rel), filepath.ToSlash(rel), nil
}
