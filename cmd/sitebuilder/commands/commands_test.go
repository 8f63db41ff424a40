package commands

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/testutil"
)

// run parses args and executes the selected command inside dir.
func run(t *testing.T, dir string, args ...string) (string, string, error) {
	t.Helper()
	chdir(t, dir)

	cli := &CLI{}
	parser, err := NewParser(cli, kong.Exit(func(int) { t.Fatal("unexpected exit") }))
	require.NoError(t, err)
	kctx, err := parser.Parse(args)
	require.NoError(t, err)

	var out bytes.Buffer
	err = kctx.Run(&Global{Logger: slog.Default(), Out: &out}, cli)
	return kctx.Command(), out.String(), err
}

func TestBareInvocationBuilds(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{
		"input/pages/a/b.txt":      "hi",
		"input/pages/x.blade.php":  "{{ $x }}",
		"output/stale/removed.txt": "old",
	})

	cmd, out, err := run(t, dir)
	require.NoError(t, err)

	assert.Equal(t, "build", cmd)
	assert.Contains(t, out, "Built 2 page(s)")
	assert.Equal(t, map[string]string{
		"a/b.txt":     "hi",
		"x.blade.php": "{{ $x }}",
	}, testutil.Snapshot(t, filepath.Join(dir, "output")))
}

func TestBuildFlagsOverrideConfig(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{
		"src/pages/index.html": "<p>x</p>",
		"config.yaml":          "input:\n  directory: ./nowhere\n",
	})

	_, _, err := run(t, dir, "build", "--input", "src", "--output", "public", "--metrics-file", "metrics/build.prom")
	require.NoError(t, err)

	testutil.NewFileAssertions(t, dir).
		AssertFileContent("public/index.html", "<p>x</p>").
		AssertFileExists("metrics/build.prom")
	// #nosec G304 - test reads its own temp file
	prom, err := os.ReadFile(filepath.Join(dir, "metrics", "build.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(prom), `sitebuilder_pages_processed_total{handler="copy"} 1`)
}

func TestBuildWithMarkdownFromConfig(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{
		"input/pages/readme.md": "# Readme",
		"site.yaml":             "pages:\n  markdown: true\n",
	})

	_, _, err := run(t, dir, "-c", "site.yaml", "build")
	require.NoError(t, err)

	testutil.NewFileAssertions(t, filepath.Join(dir, "output")).
		AssertFileExists("readme.html").
		AssertNotExists("readme.md")
}

func TestExplicitMissingConfigFails(t *testing.T) {
	_, _, err := run(t, t.TempDir(), "-c", "missing.yaml", "build")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfig))
}

func TestBuildRejectsOverlappingOutput(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{"input/pages/a.txt": "a"})

	_, _, err := run(t, dir, "--output", ".")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
	testutil.NewFileAssertions(t, dir).AssertFileContent("input/pages/a.txt", "a")
}

func TestCleanCommand(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{
		"output/a/b.txt":   "b",
		"output/.htaccess": "deny",
	})

	cmd, out, err := run(t, dir, "clean")
	require.NoError(t, err)
	assert.Equal(t, "clean", cmd)
	assert.Contains(t, out, "Cleaned")
	assert.Equal(t, map[string]string{".htaccess": "deny"}, testutil.Snapshot(t, filepath.Join(dir, "output")))
}

func TestCleanRemoveSelf(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{"output/a/b.txt": "b"})

	_, _, err := run(t, dir, "clean", "--remove-self")
	require.NoError(t, err)
	testutil.NewFileAssertions(t, dir).AssertNotExists("output")
}

func TestInitCommand(t *testing.T) {
	dir := t.TempDir()

	_, out, err := run(t, dir, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "initialized successfully")

	testutil.NewFileAssertions(t, dir).
		AssertFileExists("config.yaml").
		AssertFileContent("input/pages/.gitkeep", "").
		AssertFileContent("input/content/.gitkeep", "")

	cfg, err := config.Load(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)

	_, _, err = run(t, dir, "init")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))

	_, _, err = run(t, dir, "init", "--force")
	require.NoError(t, err)
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		env     string
		verbose bool
		want    slog.Level
	}{
		{"", false, slog.LevelInfo},
		{"", true, slog.LevelDebug},
		{"debug", false, slog.LevelDebug},
		{"WARN", false, slog.LevelWarn},
		{"error", false, slog.LevelError},
		{"error", true, slog.LevelDebug},
		{"bogus", false, slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			t.Setenv(config.EnvLogLevel, tt.env)
			assert.Equal(t, tt.want, parseLogLevel(tt.verbose))
		})
	}
}

func TestScheduleRequiresTrigger(t *testing.T) {
	err := (&ScheduleCmd{}).register(nil, func() {})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
}

func TestInitRecordsChosenInputDirectory(t *testing.T) {
	dir := t.TempDir()

	_, _, err := run(t, dir, "-i", "site", "init")
	require.NoError(t, err)

	cfg, err := config.Load(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "./site", cfg.Input.Directory)
	testutil.NewFileAssertions(t, dir).
		AssertFileContent("site/pages/.gitkeep", "").
		AssertFileContent("site/content/.gitkeep", "").
		AssertNotExists("input")

	testutil.WriteTree(t, dir, map[string]string{"site/pages/index.html": "home"})
	_, _, err = run(t, dir)
	require.NoError(t, err)
	testutil.NewFileAssertions(t, dir).AssertFileContent("output/index.html", "home")
}

func TestScheduledBuildWritesMetricsTextfile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	testutil.WriteTree(t, dir, map[string]string{"input/pages/a.txt": "a"})
	metricsPath := filepath.Join(dir, "metrics", "schedule.prom")

	cli := &CLI{Config: config.DefaultPath, MetricsFile: metricsPath}
	cfg, err := cli.LoadConfig()
	require.NoError(t, err)

	task := (&ScheduleCmd{}).task(context.Background(), cfg)
	task()
	task()

	// #nosec G304 - test reads its own temp file
	data, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `sitebuilder_build_outcomes_total{outcome="success"} 2`)
	testutil.NewFileAssertions(t, dir).AssertFileContent("output/a.txt", "a")
}

func TestWatchBuildHookWritesMetricsTextfile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	testutil.WriteTree(t, dir, map[string]string{"input/pages/a.txt": "a"})
	metricsPath := filepath.Join(dir, "watch.prom")

	cli := &CLI{Config: config.DefaultPath, MetricsFile: metricsPath}
	cfg, err := cli.LoadConfig()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- (&WatchCmd{Debounce: 20 * time.Millisecond}).watcher(cfg).Run(ctx) }()

	require.Eventually(t, func() bool {
		_, err := os.Stat(metricsPath)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	// #nosec G304 - test reads its own temp file
	data, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `sitebuilder_pages_processed_total{handler="copy"} 1`)
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
