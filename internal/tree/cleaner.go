package tree

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/sitebuilder/internal/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// Clean deletes every non-hidden entry inside path, recursing into
// subdirectories. When removeSelf is true the directory itself is removed
// afterwards. A missing path, or one that is not a directory, is a no-op.
//
// Entries whose name starts with "." are neither deleted nor descended into.
// A directory that still holds one after its siblings are gone is left in
// place, together with its parents. Any other failure aborts the clean;
// nothing already deleted is restored.
func Clean(path string, removeSelf bool) error {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return nil
	}
	_, err = clean(path, removeSelf)
	return err
}

// clean reports whether anything hidden was kept below path.
func clean(path string, removeSelf bool) (bool, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return false, errors.FileSystemError("read directory", path, err)
	}

	kept := false
	for _, entry := range entries {
		fullPath := filepath.Join(path, entry.Name())

		if IsHidden(entry.Name()) {
			slog.Debug("Skipping hidden entry", logfields.Path(fullPath))
			kept = true
			continue
		}

		if isDir(entry) {
			childKept, err := clean(fullPath, true)
			if err != nil {
				return kept, err
			}
			kept = kept || childKept
			continue
		}

		if err := os.Remove(fullPath); err != nil {
			return kept, errors.FileSystemError("delete", fullPath, err)
		}
	}

	if !removeSelf {
		return kept, nil
	}
	if kept {
		slog.Debug("Keeping directory with hidden entries", logfields.Path(path))
		return true, nil
	}
	if err := os.Remove(path); err != nil {
		return false, errors.FileSystemError("remove directory", path, err)
	}
	return false, nil
}

// IsHidden reports whether a directory entry name is treated as hidden.
func IsHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// isDir uses the entry's own type, so a symlink to a directory is unlinked
// rather than emptied and Clean never reaches outside the tree it was given.
func isDir(entry os.DirEntry) bool {
	return entry.Type()&os.ModeSymlink == 0 && entry.IsDir()
}
