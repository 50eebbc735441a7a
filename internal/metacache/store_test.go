package metacache_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"vidshelf/internal/metacache"
	"vidshelf/internal/metadata"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func openStore(t *testing.T, ttl time.Duration, clock *fakeClock) *metacache.Store {
	t.Helper()
	store, err := metacache.Open(filepath.Join(t.TempDir(), "cache", "metadata.db"), ttl, metacache.WithClock(clock.Now))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestGetMissingReturnsAbsent(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	store := openStore(t, time.Hour, clock)

	if _, ok, err := store.Get(context.Background(), "missing"); err != nil || ok {
		t.Fatalf("Get missing = ok:%v err:%v, want absent", ok, err)
	}
}

func TestTTLBoundary(t *testing.T) {
	ctx := context.Background()
	ttl := 30 * 24 * time.Hour
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	store := openStore(t, ttl, clock)

	meta := metadata.Metadata{Title: "Ep Title", Channel: "Chan", PublishedAt: "2024-01-02T00:00:00Z"}
	if err := store.Put(ctx, "abc123", meta); err != nil {
		t.Fatalf("Put: %v", err)
	}

	clock.Advance(ttl)
	got, ok, err := store.Get(ctx, "abc123")
	if err != nil || !ok {
		t.Fatalf("Get at TTL = ok:%v err:%v, want hit", ok, err)
	}
	if got != meta {
		t.Fatalf("Get = %#v, want %#v", got, meta)
	}

	clock.Advance(time.Second)
	if _, ok, err := store.Get(ctx, "abc123"); err != nil || ok {
		t.Fatalf("Get past TTL = ok:%v err:%v, want absent", ok, err)
	}
}

func TestPutUpsertsAndRefreshesTimestamp(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	store := openStore(t, time.Hour, clock)

	if err := store.Put(ctx, "abc123", metadata.Metadata{Title: "old"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	clock.Advance(50 * time.Minute)
	if err := store.Put(ctx, "abc123", metadata.Metadata{Title: "new"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	clock.Advance(50 * time.Minute)

	got, ok, err := store.Get(ctx, "abc123")
	if err != nil || !ok {
		t.Fatalf("Get = ok:%v err:%v, want hit", ok, err)
	}
	if got.Title != "new" {
		t.Fatalf("title = %q, want new", got.Title)
	}
	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 1 {
		t.Fatalf("Count = %d, want 1", count)
	}
}

func TestPruneRemovesOnlyExpired(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	store := openStore(t, time.Hour, clock)

	if err := store.Put(ctx, "old", metadata.Metadata{Title: "old"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	clock.Advance(2 * time.Hour)
	if err := store.Put(ctx, "fresh", metadata.Metadata{Title: "fresh"}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	removed, err := store.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 1 {
		t.Fatalf("Prune removed %d, want 1", removed)
	}
	entries, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 || entries[0].VideoID != "fresh" {
		t.Fatalf("unexpected entries after prune: %#v", entries)
	}
}

func TestClearAndReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "metadata.db")
	store, err := metacache.Open(path, time.Hour)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.Put(ctx, "abc123", metadata.Metadata{Title: "T"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := metacache.Open(path, time.Hour)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if _, ok, err := reopened.Get(ctx, "abc123"); err != nil || !ok {
		t.Fatalf("Get after reopen = ok:%v err:%v", ok, err)
	}
	if err := reopened.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if count, _ := reopened.Count(ctx); count != 0 {
		t.Fatalf("Count after clear = %d, want 0", count)
	}
}

func TestConcurrentGetPut(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	store := openStore(t, time.Hour, clock)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			meta := metadata.Metadata{Title: "T", Channel: "C"}
			if err := store.Put(ctx, "shared", meta); err != nil {
				t.Errorf("Put: %v", err)
				return
			}
			got, ok, err := store.Get(ctx, "shared")
			if err != nil || !ok || got != meta {
				t.Errorf("Get = %#v ok:%v err:%v", got, ok, err)
			}
		}(i)
	}
	wg.Wait()
}

func TestOpenRejectsOtherSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := db.Exec("PRAGMA user_version = 7"); err != nil {
		t.Fatalf("stamp version: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	_, err = metacache.Open(path, time.Hour)
	if !errors.Is(err, metacache.ErrSchemaMismatch) {
		t.Fatalf("expected schema mismatch, got %v", err)
	}
}

func TestOpenStampsFreshDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.db")
	store, err := metacache.Open(path, time.Hour)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	defer db.Close()
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("read version: %v", err)
	}
	if version != 1 {
		t.Fatalf("user_version = %d, want 1", version)
	}
}
