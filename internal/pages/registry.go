package pages

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// PageContext describes the file a Handler is transforming.
type PageContext struct {
	SourcePath string
	TargetPath string
	// RelPath is the slash-separated path relative to the pages directory.
	RelPath string
	// Extension is the registry key that selected the handler.
	Extension string
}

// Handler transforms the bytes of one page into its output bytes.
type Handler interface {
	Name() string
	Transform(src []byte, pc PageContext) ([]byte, error)
}

// TargetRenamer is implemented by handlers whose output uses a different
// extension than the source, e.g. Markdown rendered to HTML.
type TargetRenamer interface {
	TargetExtension() string
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc struct {
	HandlerName string
	Fn          func(src []byte, pc PageContext) ([]byte, error)
}

func (h HandlerFunc) Name() string { return h.HandlerName }

func (h HandlerFunc) Transform(src []byte, pc PageContext) ([]byte, error) {
	return h.Fn(src, pc)
}

// Registry maps file extensions to handlers. Keys are stored lower-case and
// without the leading dot; compound keys such as "blade.php" are allowed.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry returns an empty registry. Files with no registered handler are
// copied verbatim by the Processor.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds a handler to an extension, replacing any previous binding.
func (r *Registry) Register(ext string, h Handler) {
	key := normalizeExt(ext)
	if key == "" || h == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[key] = h
}

// Unregister removes the handler bound to ext, if any.
func (r *Registry) Unregister(ext string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, normalizeExt(ext))
}

// Lookup finds the handler for a file name, trying the longest compound
// extension first: "page.blade.php" checks "blade.php" then "php".
// The returned key is the extension that matched, or the simple extension
// when nothing did.
func (r *Registry) Lookup(name string) (Handler, string, bool) {
	candidates := Extensions(filepath.Base(name))

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, ext := range candidates {
		if h, ok := r.handlers[ext]; ok {
			return h, ext, true
		}
	}
	if len(candidates) == 0 {
		return nil, "", false
	}
	return nil, candidates[len(candidates)-1], false
}

// Extensions lists the candidate extension keys of a base name, longest first.
// A leading dot does not start an extension, so ".htaccess" has none.
func Extensions(base string) []string {
	trimmed := strings.TrimLeft(base, ".")
	parts := strings.Split(strings.ToLower(trimmed), ".")
	if len(parts) < 2 {
		return nil
	}
	out := make([]string, 0, len(parts)-1)
	for i := 1; i < len(parts); i++ {
		ext := strings.Join(parts[i:], ".")
		if ext == "" || strings.HasPrefix(ext, ".") || strings.HasSuffix(ext, ".") {
			continue
		}
		out = append(out, ext)
	}
	return out
}

// Extensions returns the registered keys in sorted order.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.handlers))
	for k := range r.handlers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}
