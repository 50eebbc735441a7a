package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"vidshelf/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.YouTube.APIKey = "test"
	cfgVal.YouTube.BackoffBaseMS = 1
	cfgVal.Paths.VideoDir = filepath.Join(base, "videos")
	cfgVal.Paths.LibraryDir = filepath.Join(base, "library")
	cfgVal.Paths.TrackerPath = filepath.Join(base, "state", "processed_files.txt")
	cfgVal.Paths.CachePath = filepath.Join(base, "state", "metadata_cache.db")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	if err := os.MkdirAll(builder.cfg.Paths.VideoDir, 0o755); err != nil {
		t.Fatalf("create video dir: %v", err)
	}
	return builder.cfg
}

// WithYouTube points the remote metadata client at baseURL.
func WithYouTube(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.YouTube.BaseURL = baseURL
	}
}

// WithQuota sets the per-run remote call budget.
func WithQuota(calls int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.YouTube.Quota = calls
	}
}

// WithRetentionDays enables a global retention window.
func WithRetentionDays(days int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Retention.DefaultDays = &days
	}
}

// WithKnownChannels sets the canonical channel list.
func WithKnownChannels(names ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Channels.Known = names
	}
}

// WithWorkers overrides the worker pool size.
func WithWorkers(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workflow.Workers = n
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.VideoDir)
}
