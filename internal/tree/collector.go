package tree

import (
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/sitebuilder/internal/errors"
)

// DefaultPattern matches every non-hidden entry of a directory.
const DefaultPattern = "*"

// CollectOptions tunes Collect.
type CollectOptions struct {
	// IncludeHidden also matches entries whose name starts with ".".
	// Shell globbing never does, so the default leaves them out.
	IncludeHidden bool
}

// Collect returns every regular file reachable under base whose path
// components match pattern at each level. Matched directories are descended
// into with the same pattern. The result order is filesystem dependent.
func Collect(base, pattern string) ([]string, error) {
	return CollectWith(base, pattern, CollectOptions{})
}

// CollectWith is Collect with explicit options.
func CollectWith(base, pattern string, opts CollectOptions) ([]string, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, errors.ValidationFailed("pattern", err.Error()).WithContext("pattern", pattern)
	}

	files := make([]string, 0)
	if err := collect(base, pattern, opts, &files); err != nil {
		return nil, err
	}
	return files, nil
}

func collect(dir, pattern string, opts CollectOptions, files *[]string) error {
	matches, err := filepath.Glob(filepath.Join(escapeMeta(dir), pattern))
	if err != nil {
		return errors.ValidationFailed("pattern", err.Error()).WithContext("pattern", pattern)
	}

	for _, match := range matches {
		if !opts.IncludeHidden && IsHidden(filepath.Base(match)) {
			continue
		}

		info, err := os.Stat(match)
		if err != nil {
			// Dangling symlinks and entries removed mid-walk are not files.
			if os.IsNotExist(err) {
				continue
			}
			return errors.FileSystemError("stat", match, err)
		}

		switch {
		case info.Mode().IsRegular():
			*files = append(*files, match)
		case info.IsDir():
			if err := collect(match, pattern, opts, files); err != nil {
				return err
			}
		}
	}
	return nil
}

// escapeMeta quotes glob metacharacters so a directory name such as
// "docs[v2]" is matched literally.
func escapeMeta(path string) string {
	if filepath.Separator == '\\' || !strings.ContainsAny(path, `*?[\\`) {
		return path
	}
	var b strings.Builder
	for _, r := range path {
		switch r {
		case '*', '?', '[', '\\':
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
