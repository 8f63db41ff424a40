package metrics

import (
	"os"
	"path/filepath"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/sitebuilder/internal/errors"
)

// WriteTextfile writes every metric gathered from g to path in the
// Prometheus text exposition format. The file is replaced atomically.
func WriteTextfile(path string, g prom.Gatherer) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return errors.FileSystemError("mkdir", dir, err)
		}
	}
	if err := prom.WriteToTextfile(path, g); err != nil {
		return errors.FileSystemError("write metrics", path, err)
	}
	return nil
}
