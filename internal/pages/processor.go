package pages

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/sitebuilder/internal/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// CopyHandlerName identifies the verbatim copy applied when no handler matches.
const CopyHandlerName = "copy"

// DefaultFileMode is the permission set used for written output files.
const DefaultFileMode os.FileMode = 0o644

// FileResult records what happened to one page.
type FileResult struct {
	Source    string `json:"source"`
	Target    string `json:"target"`
	Handler   string `json:"handler"`
	Extension string `json:"extension,omitempty"`
	Bytes     int64  `json:"bytes"`
}

// Processor writes one output file per source page, choosing the
// transformation by extension.
type Processor struct {
	registry *Registry
	fileMode os.FileMode
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithFileMode sets the permission bits of newly written files.
func WithFileMode(mode os.FileMode) ProcessorOption {
	return func(p *Processor) {
		if mode != 0 {
			p.fileMode = mode
		}
	}
}

// NewProcessor creates a processor over registry. A nil registry behaves as
// an empty one, so every file is copied.
func NewProcessor(registry *Registry, opts ...ProcessorOption) *Processor {
	if registry == nil {
		registry = NewRegistry()
	}
	p := &Processor{registry: registry, fileMode: DefaultFileMode}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process transforms source into target. An existing target is overwritten.
func (p *Processor) Process(ctx context.Context, source, target string) (FileResult, error) {
	return p.ProcessPage(ctx, PageContext{
		SourcePath: source,
		TargetPath: target,
		RelPath:    filepath.Base(source),
	})
}

// ProcessPage is Process with the full page context supplied by the caller.
func (p *Processor) ProcessPage(ctx context.Context, pc PageContext) (FileResult, error) {
	if err := ctx.Err(); err != nil {
		return FileResult{}, err
	}

	handler, ext, ok := p.registry.Lookup(pc.SourcePath)
	pc.Extension = ext
	if !ok {
		n, err := copyFile(pc.SourcePath, pc.TargetPath, p.fileMode)
		if err != nil {
			return FileResult{}, err
		}
		slog.Debug("Copied page",
			logfields.Source(pc.SourcePath),
			logfields.Target(pc.TargetPath),
			logfields.Bytes(n))
		return FileResult{
			Source:    pc.SourcePath,
			Target:    pc.TargetPath,
			Handler:   CopyHandlerName,
			Extension: ext,
			Bytes:     n,
		}, nil
	}

	if r, ok := handler.(TargetRenamer); ok {
		pc.TargetPath = replaceExtension(pc.TargetPath, ext, r.TargetExtension())
	}

	// #nosec G304 - source paths come from walking the configured pages directory
	src, err := os.ReadFile(pc.SourcePath)
	if err != nil {
		return FileResult{}, errors.FileSystemError("read", pc.SourcePath, err)
	}
	out, err := handler.Transform(src, pc)
	if err != nil {
		return FileResult{}, errors.RenderError(handler.Name(), pc.SourcePath, err)
	}
	if err := os.WriteFile(pc.TargetPath, out, p.fileMode); err != nil {
		return FileResult{}, errors.FileSystemError("write", pc.TargetPath, err)
	}

	slog.Debug("Rendered page",
		logfields.Handler(handler.Name()),
		logfields.Source(pc.SourcePath),
		logfields.Target(pc.TargetPath),
		logfields.Bytes(int64(len(out))))
	return FileResult{
		Source:    pc.SourcePath,
		Target:    pc.TargetPath,
		Handler:   handler.Name(),
		Extension: ext,
		Bytes:     int64(len(out)),
	}, nil
}

// copyFile copies src to dst byte for byte, truncating dst if it exists.
func copyFile(src, dst string, mode os.FileMode) (int64, error) {
	// #nosec G304 - source paths come from walking the configured pages directory
	in, err := os.Open(src)
	if err != nil {
		return 0, errors.FileSystemError("read", src, err)
	}
	defer func() {
		_ = in.Close()
	}()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return 0, errors.FileSystemError("copy", dst, err)
	}

	n, err := io.Copy(out, in)
	if err != nil {
		_ = out.Close()
		return n, errors.FileSystemError("copy", dst, err)
	}
	if err := out.Close(); err != nil {
		return n, errors.FileSystemError("copy", dst, err)
	}
	return n, nil
}

// replaceExtension swaps the trailing ".<from>" of path for ".<to>".
// from is compared case-insensitively since registry keys are lower-case.
func replaceExtension(path, from, to string) string {
	to = normalizeExt(to)
	if to == "" || from == "" {
		return path
	}
	suffix := "." + from
	if len(path) <= len(suffix) || !strings.EqualFold(path[len(path)-len(suffix):], suffix) {
		return path
	}
	return path[:len(path)-len(suffix)] + "." + to
}
