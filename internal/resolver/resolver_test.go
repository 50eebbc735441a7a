package resolver_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"vidshelf/internal/metacache"
	"vidshelf/internal/metadata"
	"vidshelf/internal/resolver"
	"vidshelf/internal/retry"
	"vidshelf/internal/services"
	"vidshelf/internal/services/youtube"
)

type fakeFetcher struct {
	mu       sync.Mutex
	calls    [][]string
	known    map[string]metadata.Metadata
	failures []error
}

func (f *fakeFetcher) FetchVideos(_ context.Context, ids []string) (map[string]metadata.Metadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]string(nil), ids...))
	if len(f.failures) > 0 {
		err := f.failures[0]
		f.failures = f.failures[1:]
		if err != nil {
			return nil, err
		}
	}
	out := make(map[string]metadata.Metadata)
	for _, id := range ids {
		if meta, ok := f.known[id]; ok {
			out[id] = meta
		}
	}
	return out, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type memoryCache struct {
	entries map[string]metadata.Metadata
	getErr  error
}

func (c *memoryCache) Get(_ context.Context, id string) (metadata.Metadata, bool, error) {
	if c.getErr != nil {
		return metadata.Metadata{}, false, c.getErr
	}
	meta, ok := c.entries[id]
	return meta, ok, nil
}

func (c *memoryCache) Put(_ context.Context, id string, meta metadata.Metadata) error {
	if c.entries == nil {
		c.entries = make(map[string]metadata.Metadata)
	}
	c.entries[id] = meta
	return nil
}

func noSleepPolicy() retry.Policy {
	policy := resolver.DefaultPolicy()
	policy.Sleep = func(context.Context, time.Duration) error { return nil }
	return policy
}

func knownIDs(n int) ([]string, map[string]metadata.Metadata) {
	ids := make([]string, n)
	known := make(map[string]metadata.Metadata, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("id%03d", i)
		known[ids[i]] = metadata.Metadata{Title: "Video " + ids[i], Channel: "Chan"}
	}
	return ids, known
}

func TestQuotaAmortizedAcrossBatch(t *testing.T) {
	for _, n := range []int{1, 2, 17, 50} {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			ids, known := knownIDs(n)
			fetcher := &fakeFetcher{known: known}
			quota := resolver.NewQuota(10)
			r := resolver.New(&memoryCache{}, fetcher, quota, resolver.WithRetryPolicy(noSleepPolicy()))

			got, stats := r.ResolveAll(context.Background(), ids)
			if len(got) != n {
				t.Fatalf("resolved %d, want %d", len(got), n)
			}
			if quota.Used() != 1 || stats.Calls != 1 {
				t.Fatalf("quota used %d calls %d, want 1", quota.Used(), stats.Calls)
			}
		})
	}
}

func TestBatchesSplitAtConfiguredSize(t *testing.T) {
	ids, known := knownIDs(120)
	fetcher := &fakeFetcher{known: known}
	quota := resolver.NewQuota(10)
	r := resolver.New(nil, fetcher, quota, resolver.WithBatchSize(500), resolver.WithRetryPolicy(noSleepPolicy()))

	got, stats := r.ResolveAll(context.Background(), ids)
	if len(got) != 120 {
		t.Fatalf("resolved %d, want 120", len(got))
	}
	if stats.Calls != 3 || quota.Used() != 3 {
		t.Fatalf("calls=%d quota=%d, want 3", stats.Calls, quota.Used())
	}
	for _, call := range fetcher.calls {
		if len(call) > youtube.MaxBatchSize {
			t.Fatalf("batch of %d exceeds limit", len(call))
		}
	}
}

func TestDedupeAndCacheHits(t *testing.T) {
	cache := &memoryCache{entries: map[string]metadata.Metadata{"cached": {Title: "From cache"}}}
	fetcher := &fakeFetcher{known: map[string]metadata.Metadata{"fresh": {Title: "From API"}}}
	r := resolver.New(cache, fetcher, resolver.NewQuota(5), resolver.WithRetryPolicy(noSleepPolicy()))

	got, stats := r.ResolveAll(context.Background(), []string{"cached", "fresh", "fresh", "", "cached"})
	if stats.Requested != 2 || stats.CacheHits != 1 || stats.Fetched != 1 {
		t.Fatalf("unexpected stats %#v", stats)
	}
	if got["cached"].Title != "From cache" || got["fresh"].Title != "From API" {
		t.Fatalf("unexpected result %#v", got)
	}
	if len(fetcher.calls) != 1 || len(fetcher.calls[0]) != 1 || fetcher.calls[0][0] != "fresh" {
		t.Fatalf("expected a single call for the miss, got %#v", fetcher.calls)
	}
	if _, ok := cache.entries["fresh"]; !ok {
		t.Fatal("fetched metadata should be cached")
	}
}

func TestResolveKeepsIdentifiersVerbatim(t *testing.T) {
	fetcher := &fakeFetcher{known: map[string]metadata.Metadata{
		"pad ":  {Title: "Padded"},
		"plain": {Title: "Plain"},
	}}
	r := resolver.New(nil, fetcher, resolver.NewQuota(5), resolver.WithRetryPolicy(noSleepPolicy()))

	got, stats := r.ResolveAll(context.Background(), []string{"pad ", "plain", " "})
	if stats.Requested != 3 {
		t.Fatalf("Requested = %d, want 3", stats.Requested)
	}
	if got["pad "].Title != "Padded" || got["plain"].Title != "Plain" {
		t.Fatalf("results must be keyed by the requested ids, got %#v", got)
	}
	if _, ok := got["pad"]; ok {
		t.Fatal("ids must not be trimmed")
	}
	if len(stats.Unresolved) != 1 || stats.Unresolved[0] != " " {
		t.Fatalf("unexpected unresolved %#v", stats.Unresolved)
	}
	if stats.QuotaErr != nil {
		t.Fatalf("unexpected quota error %v", stats.QuotaErr)
	}
}

func TestAbsentIDsAreNotNegativelyCached(t *testing.T) {
	cache := &memoryCache{}
	fetcher := &fakeFetcher{known: map[string]metadata.Metadata{}}
	r := resolver.New(cache, fetcher, resolver.NewQuota(5), resolver.WithRetryPolicy(noSleepPolicy()))

	got, stats := r.ResolveAll(context.Background(), []string{"gone"})
	if len(got) != 0 {
		t.Fatalf("expected no results, got %#v", got)
	}
	if len(stats.Unresolved) != 1 || stats.Unresolved[0] != "gone" {
		t.Fatalf("unexpected unresolved %#v", stats.Unresolved)
	}
	if len(cache.entries) != 0 {
		t.Fatalf("absent ids must not be cached, got %#v", cache.entries)
	}
}

func TestQuotaExhaustionFailsRemainingBatches(t *testing.T) {
	ids, known := knownIDs(3)
	cache := &memoryCache{entries: map[string]metadata.Metadata{"cached": {Title: "Cached"}}}
	fetcher := &fakeFetcher{known: known}
	r := resolver.New(cache, fetcher, resolver.NewQuota(1), resolver.WithBatchSize(1), resolver.WithRetryPolicy(noSleepPolicy()))

	got, stats := r.ResolveAll(context.Background(), append(ids, "cached"))
	if !errors.Is(stats.QuotaErr, services.ErrQuotaExhausted) {
		t.Fatalf("expected quota exhaustion, got %v", stats.QuotaErr)
	}
	if stats.QuotaUsed != 1 {
		t.Fatalf("QuotaUsed = %d, want 1", stats.QuotaUsed)
	}
	if fetcher.callCount() != 1 {
		t.Fatalf("expected 1 remote call, got %d", fetcher.callCount())
	}
	if len(got) != 2 {
		t.Fatalf("expected cached + one fetched result, got %#v", got)
	}
	if _, ok := got["cached"]; !ok {
		t.Fatal("cached id must be unaffected by quota exhaustion")
	}
	if len(stats.Unresolved) != 2 {
		t.Fatalf("expected 2 unresolved, got %#v", stats.Unresolved)
	}
}

func TestZeroQuotaMakesNoCalls(t *testing.T) {
	fetcher := &fakeFetcher{}
	r := resolver.New(nil, fetcher, resolver.NewQuota(0))
	got, stats := r.ResolveAll(context.Background(), []string{"a"})
	if len(got) != 0 || fetcher.callCount() != 0 || !errors.Is(stats.QuotaErr, services.ErrQuotaExhausted) {
		t.Fatalf("got=%#v calls=%d stats=%#v", got, fetcher.callCount(), stats)
	}
}

func TestRetriesDoNotConsumeQuota(t *testing.T) {
	transient := services.Wrap(services.ErrTransient, "youtube", "fetch", "502", nil)
	fetcher := &fakeFetcher{
		known:    map[string]metadata.Metadata{"a": {Title: "A"}},
		failures: []error{transient, transient},
	}
	quota := resolver.NewQuota(5)
	r := resolver.New(nil, fetcher, quota, resolver.WithRetryPolicy(noSleepPolicy()))

	got, stats := r.ResolveAll(context.Background(), []string{"a"})
	if got["a"].Title != "A" {
		t.Fatalf("expected success on third attempt, got %#v", got)
	}
	if fetcher.callCount() != 3 {
		t.Fatalf("expected 3 attempts, got %d", fetcher.callCount())
	}
	if quota.Used() != 1 || stats.Calls != 1 {
		t.Fatalf("quota used %d, want 1", quota.Used())
	}
}

func TestExhaustedRetriesDegradeBatch(t *testing.T) {
	transient := errors.New("connection reset")
	fetcher := &fakeFetcher{failures: []error{transient, transient, transient}}
	r := resolver.New(nil, fetcher, resolver.NewQuota(5), resolver.WithRetryPolicy(noSleepPolicy()))

	got, stats := r.ResolveAll(context.Background(), []string{"a", "b"})
	if len(got) != 0 || len(stats.Unresolved) != 2 {
		t.Fatalf("got=%#v stats=%#v", got, stats)
	}
	if fetcher.callCount() != 3 {
		t.Fatalf("expected 3 attempts, got %d", fetcher.callCount())
	}
}

func TestPermanentErrorIsNotRetried(t *testing.T) {
	permanent := services.Wrap(services.ErrExternalTool, "youtube", "fetch", "", &youtube.StatusError{Code: 403})
	fetcher := &fakeFetcher{failures: []error{permanent}}
	r := resolver.New(nil, fetcher, resolver.NewQuota(5), resolver.WithRetryPolicy(noSleepPolicy()))

	_, stats := r.ResolveAll(context.Background(), []string{"a"})
	if fetcher.callCount() != 1 || len(stats.Unresolved) != 1 {
		t.Fatalf("calls=%d stats=%#v", fetcher.callCount(), stats)
	}
}

func TestCacheReadErrorCountsAsMiss(t *testing.T) {
	cache := &memoryCache{getErr: errors.New("disk I/O error")}
	fetcher := &fakeFetcher{known: map[string]metadata.Metadata{"a": {Title: "A"}}}
	r := resolver.New(cache, fetcher, resolver.NewQuota(5), resolver.WithRetryPolicy(noSleepPolicy()))

	got, stats := r.ResolveAll(context.Background(), []string{"a"})
	if got["a"].Title != "A" || stats.CacheHits != 0 || stats.Fetched != 1 {
		t.Fatalf("got=%#v stats=%#v", got, stats)
	}
}

func TestCacheTTLTriggersRefetch(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	clock := func() time.Time { return now }
	ttl := 30 * 24 * time.Hour
	store, err := metacache.Open(filepath.Join(t.TempDir(), "metadata.db"), ttl, metacache.WithClock(clock))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	fetcher := &fakeFetcher{known: map[string]metadata.Metadata{"a": {Title: "A"}}}
	r := resolver.New(store, fetcher, resolver.NewQuota(10), resolver.WithRetryPolicy(noSleepPolicy()))

	r.ResolveAll(ctx, []string{"a"})
	if fetcher.callCount() != 1 {
		t.Fatalf("expected initial fetch, got %d calls", fetcher.callCount())
	}

	now = now.Add(ttl)
	if _, stats := r.ResolveAll(ctx, []string{"a"}); stats.CacheHits != 1 || fetcher.callCount() != 1 {
		t.Fatalf("expected cache hit at TTL, stats=%#v calls=%d", stats, fetcher.callCount())
	}

	now = now.Add(time.Second)
	if _, stats := r.ResolveAll(ctx, []string{"a"}); stats.CacheHits != 0 || fetcher.callCount() != 2 {
		t.Fatalf("expected refetch past TTL, stats=%#v calls=%d", stats, fetcher.callCount())
	}
}
