// Package errors provides a lightweight structured error type (SiteBuilderError)
// for category-based classification of build failures and CLI exit codes.
package errors

import (
	stdErrors "errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorCategory represents the category of a SiteBuilder error for classification
type ErrorCategory string

const (
	// User-facing configuration and input errors
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"

	// Build and processing errors
	CategoryBuild      ErrorCategory = "build"
	CategoryRender     ErrorCategory = "render"
	CategoryFileSystem ErrorCategory = "filesystem"

	// Runtime errors
	CategoryRuntime  ErrorCategory = "runtime"
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops execution
	SeverityError   ErrorSeverity = "error"   // Error, but not fatal
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
	SeverityInfo    ErrorSeverity = "info"    // Informational, no impact
)

// SiteBuilderError is a structured error with category, severity, and context
type SiteBuilderError struct {
	Category ErrorCategory `json:"category"`
	Severity ErrorSeverity `json:"severity"`
	Message  string        `json:"message"`
	Cause    error         `json:"cause,omitempty"`
	Context  ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for SiteBuilderError
type ContextFields map[string]any

// Error implements the error interface
func (e *SiteBuilderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling
func (e *SiteBuilderError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *SiteBuilderError) WithContext(key string, value any) *SiteBuilderError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// ContextString renders context fields as sorted key=value pairs.
func (e *SiteBuilderError) ContextString() string {
	if len(e.Context) == 0 {
		return ""
	}
	keys := make([]string, 0, len(e.Context))
	for k := range e.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, e.Context[k]))
	}
	return strings.Join(parts, " ")
}

// New creates a new SiteBuilderError
func New(category ErrorCategory, severity ErrorSeverity, message string) *SiteBuilderError {
	return &SiteBuilderError{
		Category: category,
		Severity: severity,
		Message:  message,
	}
}

// Wrap creates a new SiteBuilderError that wraps an existing error
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *SiteBuilderError {
	return &SiteBuilderError{
		Category: category,
		Severity: severity,
		Message:  message,
		Cause:    err,
	}
}

// As extracts the outermost SiteBuilderError from an error chain.
func As(err error) (*SiteBuilderError, bool) {
	var sbe *SiteBuilderError
	if stdErrors.As(err, &sbe) {
		return sbe, true
	}
	return nil, false
}

// IsCategory checks if an error belongs to a specific category
func IsCategory(err error, category ErrorCategory) bool {
	if sbe, ok := As(err); ok {
		return sbe.Category == category
	}
	return false
}

// GetCategory extracts the category from an error, or returns CategoryInternal if not a SiteBuilderError
func GetCategory(err error) ErrorCategory {
	if sbe, ok := As(err); ok {
		return sbe.Category
	}
	return CategoryInternal
}
