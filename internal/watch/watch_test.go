package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/build"
	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/testutil"
)

type countingService struct {
	mu   sync.Mutex
	runs int
}

func (s *countingService) Run(_ context.Context, _ build.BuildRequest) (*build.BuildResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs++
	return &build.BuildResult{Status: build.BuildStatusSuccess}, nil
}

func (s *countingService) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}

// blockingService blocks its first build until that build is cancelled.
type blockingService struct {
	mu        sync.Mutex
	runs      int
	cancelled int
	started   chan struct{}
}

func (s *blockingService) Run(ctx context.Context, _ build.BuildRequest) (*build.BuildResult, error) {
	s.mu.Lock()
	s.runs++
	first := s.runs == 1
	s.mu.Unlock()

	if !first {
		return &build.BuildResult{Status: build.BuildStatusSuccess}, nil
	}
	close(s.started)
	<-ctx.Done()
	s.mu.Lock()
	s.cancelled++
	s.mu.Unlock()
	return &build.BuildResult{Status: build.BuildStatusCancelled}, ctx.Err()
}

func (s *blockingService) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs, s.cancelled
}

func TestShouldIgnoreEvent(t *testing.T) {
	tests := []struct {
		path   string
		ignore bool
	}{
		{"/in/pages/index.html", false},
		{"/in/pages/x.blade.php", false},
		{"/in/pages/.gitkeep", true},
		{"/in/pages/index.html~", true},
		{"/in/pages/.index.html.swp", true},
		{"/in/pages/index.html.swx", true},
		{"/in/pages/#index.html#", true},
		{"/in/pages/Thumbs.db", true},
	}
	for _, tt := range tests {
		t.Run(filepath.Base(tt.path), func(t *testing.T) {
			assert.Equal(t, tt.ignore, shouldIgnoreEvent(tt.path))
		})
	}
}

func TestWithin(t *testing.T) {
	assert.True(t, within("/site/out", "/site/out"))
	assert.True(t, within("/site/out", "/site/out/a/b.html"))
	assert.False(t, within("/site/out", "/site/output/a.html"))
	assert.False(t, within("/site/out", "/site/in/pages"))
}

func TestDebouncer_CoalescesBursts(t *testing.T) {
	var fired atomic.Int32
	rebuildReq, trigger := setupRebuildDebouncer(20*time.Millisecond, func() { fired.Add(1) })

	for i := 0; i < 10; i++ {
		trigger()
	}

	select {
	case <-rebuildReq:
	case <-time.After(2 * time.Second):
		t.Fatal("debounced rebuild never fired")
	}
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
	assert.Empty(t, rebuildReq)
}

func TestRun_RequiresInputDirectory(t *testing.T) {
	cfg := config.Default()
	cfg.Input.Directory = filepath.Join(t.TempDir(), "missing")

	err := New(&countingService{}, build.BuildRequest{Config: cfg}).Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
}

func TestRun_RebuildsOnChange(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default()
	cfg.Input.Directory = filepath.Join(root, "input")
	cfg.Output.Directory = filepath.Join(root, "output")
	testutil.WriteTree(t, cfg.Input.Directory, map[string]string{"pages/index.html": "v1"})

	svc := &countingService{}
	var hooked atomic.Int32
	w := New(svc, build.BuildRequest{Config: cfg},
		WithDebounce(20*time.Millisecond),
		WithBuildHook(func(*build.BuildResult, error) { hooked.Add(1) }))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return svc.count() >= 1 }, 5*time.Second, 10*time.Millisecond)

	// Give the watcher a moment to register the input tree.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Input.Directory, "pages", "index.html"), []byte("v2"), 0o600))

	require.Eventually(t, func() bool { return svc.count() >= 2 }, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop after cancel")
	}
	assert.Equal(t, int32(svc.count()), hooked.Load())
}

func TestRun_ChangeDuringBuildCancelsItAndQueuesOneFollowUp(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default()
	cfg.Input.Directory = filepath.Join(root, "input")
	cfg.Output.Directory = filepath.Join(root, "output")
	testutil.WriteTree(t, cfg.Input.Directory, map[string]string{"pages/index.html": "v1"})

	svc := &blockingService{started: make(chan struct{})}
	var errs []error
	var errsMu sync.Mutex
	w := New(svc, build.BuildRequest{Config: cfg},
		WithDebounce(50*time.Millisecond),
		WithBuildHook(func(_ *build.BuildResult, err error) {
			errsMu.Lock()
			errs = append(errs, err)
			errsMu.Unlock()
		}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	select {
	case <-svc.started:
	case <-time.After(5 * time.Second):
		t.Fatal("initial build never started")
	}

	pagesDir := filepath.Join(cfg.Input.Directory, "pages")
	require.NoError(t, os.WriteFile(filepath.Join(pagesDir, "index.html"), []byte("v2"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(pagesDir, "about.html"), []byte("about"), 0o600))

	require.Eventually(t, func() bool {
		runs, cancelled := svc.counts()
		return runs == 2 && cancelled == 1
	}, 5*time.Second, 10*time.Millisecond)

	// The burst is coalesced: no further builds follow.
	time.Sleep(300 * time.Millisecond)
	runs, cancelled := svc.counts()
	assert.Equal(t, 2, runs)
	assert.Equal(t, 1, cancelled)

	cancel()
	require.NoError(t, <-done)

	errsMu.Lock()
	defer errsMu.Unlock()
	require.Len(t, errs, 2)
	assert.ErrorIs(t, errs[0], context.Canceled)
	assert.NoError(t, errs[1])
}

func TestRun_RealBuildServiceMirrorsChanges(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default()
	cfg.Input.Directory = filepath.Join(root, "input")
	cfg.Output.Directory = filepath.Join(root, "output")
	testutil.WriteTree(t, cfg.Input.Directory, map[string]string{"pages/index.html": "v1"})

	w := New(build.NewBuildService(), build.BuildRequest{Config: cfg}, WithDebounce(20*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	target := filepath.Join(cfg.Output.Directory, "index.html")
	contentIs := func(want string) func() bool {
		return func() bool {
			// #nosec G304 - test reads its own temp output
			data, err := os.ReadFile(target)
			return err == nil && string(data) == want
		}
	}
	require.Eventually(t, contentIs("v1"), 5*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(cfg.Input.Directory, "pages", "index.html"), []byte("v2"), 0o600))
	require.Eventually(t, contentIs("v2"), 5*time.Second, 10*time.Millisecond)

	testutil.WriteTree(t, cfg.Input.Directory, map[string]string{"pages/blog/new.html": "new"})
	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(cfg.Output.Directory, "blog", "new.html"))
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
