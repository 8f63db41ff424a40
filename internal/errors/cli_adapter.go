package errors

import (
	"context"
	stdErrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// CLIErrorAdapter handles error presentation and exit code determination for CLI applications.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
	out     io.Writer
	exit    func(int)
}

// NewCLIErrorAdapter creates a new CLI error adapter.
func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{
		verbose: verbose,
		logger:  logger,
		out:     os.Stderr,
		exit:    os.Exit,
	}
}

// ExitCodeFor determines the appropriate exit code for an error.
func (a *CLIErrorAdapter) ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}

	if sbe, ok := As(err); ok {
		return a.exitCodeFromSiteBuilder(sbe)
	}

	return 1
}

// exitCodeFromSiteBuilder maps SiteBuilderError to exit codes.
func (a *CLIErrorAdapter) exitCodeFromSiteBuilder(err *SiteBuilderError) int {
	switch err.Category {
	case CategoryValidation:
		return 2 // Invalid usage
	case CategoryConfig:
		return 7 // Configuration error
	case CategoryBuild, CategoryRender, CategoryFileSystem:
		return 11 // Build error
	case CategoryRuntime:
		return 12 // Runtime error
	case CategoryInternal:
		return 10 // Internal error
	default:
		return 1 // General error
	}
}

// FormatError formats an error for user-friendly display.
// Verbose output includes the cause chain and context fields.
func (a *CLIErrorAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}

	sbe, ok := As(err)
	if !ok {
		return fmt.Sprintf("Error: %v", err)
	}
	if a.verbose {
		return a.formatVerbose(sbe)
	}

	switch sbe.Category {
	case CategoryConfig, CategoryValidation:
		if ctx := sbe.ContextString(); ctx != "" {
			return fmt.Sprintf("%s (%s)", sbe.Message, ctx)
		}
		return sbe.Message
	default:
		if path, ok := sbe.Context["path"]; ok {
			return fmt.Sprintf("%s: %s: %v", sbe.Category, sbe.Message, path)
		}
		return fmt.Sprintf("%s: %s", sbe.Category, sbe.Message)
	}
}

func (a *CLIErrorAdapter) formatVerbose(err *SiteBuilderError) string {
	var b strings.Builder
	b.WriteString(err.Error())
	if ctx := err.ContextString(); ctx != "" {
		fmt.Fprintf(&b, "\n  context: %s", ctx)
	}
	depth := 0
	for cause := err.Cause; cause != nil; cause = stdErrors.Unwrap(cause) {
		depth++
		fmt.Fprintf(&b, "\n  cause[%d]: %v", depth, cause)
	}
	return b.String()
}

// HandleError processes an error and exits the program with appropriate code.
func (a *CLIErrorAdapter) HandleError(err error) {
	if err == nil {
		return
	}

	exitCode := a.ExitCodeFor(err)
	message := a.FormatError(err)

	if a.shouldLog(err) {
		a.logError(err)
	}

	_, _ = fmt.Fprintf(a.out, "%s\n", message)
	a.exit(exitCode)
}

// shouldLog determines if an error should be logged.
func (a *CLIErrorAdapter) shouldLog(err error) bool {
	if a.verbose {
		return true
	}

	if sbe, ok := As(err); ok {
		return sbe.Category == CategoryInternal ||
			sbe.Category == CategoryRuntime
	}

	return true
}

// logError logs an error with appropriate level and context.
func (a *CLIErrorAdapter) logError(err error) {
	if sbe, ok := As(err); ok {
		level := a.slogLevelFromSeverity(sbe.Severity)
		attrs := []slog.Attr{
			slog.String("category", string(sbe.Category)),
		}
		for k, v := range sbe.Context {
			attrs = append(attrs, slog.Any(k, v))
		}
		if sbe.Cause != nil {
			attrs = append(attrs, slog.String("cause", sbe.Cause.Error()))
		}

		a.logger.LogAttrs(context.Background(), level, sbe.Message, attrs...)
		return
	}

	a.logger.Error("Unclassified error", "error", err)
}

// slogLevelFromSeverity converts SiteBuilderError severity to slog level.
func (a *CLIErrorAdapter) slogLevelFromSeverity(severity ErrorSeverity) slog.Level {
	switch severity {
	case SeverityInfo:
		return slog.LevelInfo
	case SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
