package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyPath       = "path"
	KeySource     = "source"
	KeyTarget     = "target"
	KeyHandler    = "handler"
	KeyExtension  = "extension"
	KeyFiles      = "files"
	KeyBytes      = "bytes"
	KeyOp         = "op"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr     { return slog.String(KeyBuildID, id) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Source(p string) slog.Attr       { return slog.String(KeySource, p) }
func Target(p string) slog.Attr       { return slog.String(KeyTarget, p) }
func Handler(name string) slog.Attr   { return slog.String(KeyHandler, name) }
func Extension(ext string) slog.Attr  { return slog.String(KeyExtension, ext) }
func Files(n int) slog.Attr           { return slog.Int(KeyFiles, n) }
func Bytes(n int64) slog.Attr         { return slog.Int64(KeyBytes, n) }
func Op(op string) slog.Attr          { return slog.String(KeyOp, op) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
