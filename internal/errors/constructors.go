package errors

// Convenience functions for common error patterns

// Config errors

func ConfigNotFound(path string) *SiteBuilderError {
	return New(CategoryConfig, SeverityFatal, "configuration file not found").
		WithContext("path", path)
}

func ConfigInvalid(path string, cause error) *SiteBuilderError {
	return Wrap(cause, CategoryConfig, SeverityFatal, "configuration could not be parsed").
		WithContext("path", path)
}

func ValidationFailed(field, reason string) *SiteBuilderError {
	return New(CategoryValidation, SeverityFatal, "validation failed").
		WithContext("field", field).
		WithContext("reason", reason)
}

// Build pipeline errors

func BuildFailed(stage string, cause error) *SiteBuilderError {
	return Wrap(cause, CategoryBuild, SeverityFatal, "build failed").
		WithContext("stage", stage)
}

// FileSystemError reports a failed delete, copy, mkdir or read on path.
func FileSystemError(operation, path string, cause error) *SiteBuilderError {
	return Wrap(cause, CategoryFileSystem, SeverityFatal, operation+" failed").
		WithContext("operation", operation).
		WithContext("path", path)
}

func RenderError(handler, path string, cause error) *SiteBuilderError {
	return Wrap(cause, CategoryRender, SeverityFatal, "page handler failed").
		WithContext("handler", handler).
		WithContext("path", path)
}

// Internal errors

func InternalError(message string, cause error) *SiteBuilderError {
	return Wrap(cause, CategoryInternal, SeverityFatal, message)
}
