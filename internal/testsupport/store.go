package testsupport

import (
	"testing"

	"vidshelf/internal/config"
	"vidshelf/internal/metacache"
)

// MustOpenCache opens the metadata cache configured in cfg and registers cleanup.
func MustOpenCache(t testing.TB, cfg *config.Config, opts ...metacache.Option) *metacache.Store {
	t.Helper()

	store, err := metacache.Open(cfg.Paths.CachePath, cfg.CacheTTL(), opts...)
	if err != nil {
		t.Fatalf("metacache.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
