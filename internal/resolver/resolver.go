package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"vidshelf/internal/logging"
	"vidshelf/internal/metadata"
	"vidshelf/internal/retry"
	"vidshelf/internal/services"
	"vidshelf/internal/services/youtube"
)

// Cache is the metadata store consulted before any remote call.
type Cache interface {
	Get(ctx context.Context, id string) (metadata.Metadata, bool, error)
	Put(ctx context.Context, id string, meta metadata.Metadata) error
}

// Stats summarizes one ResolveAll call.
type Stats struct {
	Requested  int
	CacheHits  int
	Fetched    int
	Calls      int
	QuotaUsed  int
	Unresolved []string
	// QuotaErr is non-nil, marked services.ErrQuotaExhausted, when batches
	// were skipped for lack of quota.
	QuotaErr error
}

// Resolver resolves identifiers through the cache and the remote API.
type Resolver struct {
	cache     Cache
	fetcher   youtube.Fetcher
	quota     *Quota
	batchSize int
	policy    retry.Policy
	logger    *slog.Logger
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithBatchSize sets the maximum identifiers per remote call, clamped to 1..50.
func WithBatchSize(size int) Option {
	return func(r *Resolver) {
		r.batchSize = clampBatch(size)
	}
}

// WithRetryPolicy replaces the default retry policy.
func WithRetryPolicy(policy retry.Policy) Option {
	return func(r *Resolver) {
		r.policy = policy
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logging.NewComponentLogger(logger, "resolver")
	}
}

// DefaultPolicy returns three attempts with a one second doubling backoff
// and a ten second per-attempt timeout. Permanent API errors are not retried.
func DefaultPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts:    3,
		BaseDelay:      time.Second,
		AttemptTimeout: 10 * time.Second,
		Retryable:      Retryable,
	}
}

// Retryable reports whether a failed batch fetch may be attempted again.
func Retryable(err error) bool {
	return !youtube.IsPermanent(err) && services.IsRetryable(err)
}

// New constructs a Resolver. A nil cache disables caching.
func New(cache Cache, fetcher youtube.Fetcher, quota *Quota, opts ...Option) *Resolver {
	if quota == nil {
		quota = NewQuota(0)
	}
	r := &Resolver{
		cache:     cache,
		fetcher:   fetcher,
		quota:     quota,
		batchSize: youtube.MaxBatchSize,
		policy:    DefaultPolicy(),
		logger:    logging.NewComponentLogger(nil, "resolver"),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.policy.Retryable == nil {
		r.policy.Retryable = Retryable
	}
	return r
}

// Quota returns the budget shared across calls.
func (r *Resolver) Quota() *Quota { return r.quota }

// ResolveAll returns metadata for every identifier that could be resolved.
func (r *Resolver) ResolveAll(ctx context.Context, ids []string) (map[string]metadata.Metadata, Stats) {
	unique := dedupe(ids)
	stats := Stats{Requested: len(unique)}
	resolved := make(map[string]metadata.Metadata, len(unique))

	misses := make([]string, 0, len(unique))
	for _, id := range unique {
		if meta, ok := r.lookupCache(ctx, id); ok {
			resolved[id] = meta
			stats.CacheHits++
			continue
		}
		misses = append(misses, id)
	}

	batches := chunk(misses, r.batchSize)
	for i, batch := range batches {
		if !r.quota.Take() {
			if stats.QuotaErr == nil {
				skipped := countIDs(batches[i:])
				stats.QuotaErr = services.Wrap(services.ErrQuotaExhausted, "resolver", "fetch",
					fmt.Sprintf("%d videos skipped after %d calls", skipped, r.quota.Used()), nil)
				logging.WarnWithContext(r.logger, "youtube quota exhausted", "quota_exhausted",
					logging.Int("remaining_ids", skipped),
					logging.Error(stats.QuotaErr),
					logging.String(logging.FieldErrorHint, "raise youtube.quota or wait for the next run"),
					logging.String(logging.FieldImpact, "remaining videos stay in the download directory"))
			}
			stats.Unresolved = append(stats.Unresolved, batch...)
			continue
		}
		stats.Calls++
		fetched, err := r.fetchBatch(ctx, batch)
		if err != nil {
			logging.WarnWithContext(r.logger, "metadata batch failed", "resolver_batch_failed",
				logging.Int("batch_size", len(batch)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check network access and the youtube api key"),
				logging.String(logging.FieldImpact, "videos in this batch are skipped until the next run"))
			stats.Unresolved = append(stats.Unresolved, batch...)
			continue
		}
		for _, id := range batch {
			meta, ok := fetched[id]
			if !ok {
				stats.Unresolved = append(stats.Unresolved, id)
				continue
			}
			resolved[id] = meta
			stats.Fetched++
			r.storeCache(ctx, id, meta)
		}
	}

	sort.Strings(stats.Unresolved)
	stats.QuotaUsed = r.quota.Used()
	r.logger.Info("metadata resolved",
		logging.Int("requested", stats.Requested),
		logging.Int("cache_hits", stats.CacheHits),
		logging.Int("fetched", stats.Fetched),
		logging.Int("calls", stats.Calls),
		logging.Int("unresolved", len(stats.Unresolved)),
		logging.Int("quota_used", stats.QuotaUsed),
		logging.Int("quota_remaining", r.quota.Remaining()))
	return resolved, stats
}

func (r *Resolver) fetchBatch(ctx context.Context, batch []string) (map[string]metadata.Metadata, error) {
	if r.fetcher == nil {
		return nil, services.Wrap(services.ErrConfiguration, "resolver", "fetch", "no remote fetcher configured", nil)
	}
	var fetched map[string]metadata.Metadata
	attempts, err := r.policy.Do(ctx, func(attemptCtx context.Context) error {
		result, fetchErr := r.fetcher.FetchVideos(attemptCtx, batch)
		if fetchErr != nil {
			if errors.Is(fetchErr, context.DeadlineExceeded) && ctx.Err() == nil {
				return services.Wrap(services.ErrTimeout, "resolver", "fetch", "attempt timed out", fetchErr)
			}
			return fetchErr
		}
		fetched = result
		return nil
	})
	if attempts > 1 {
		r.logger.Debug("metadata batch retried", logging.Int("attempts", attempts), logging.Int("batch_size", len(batch)))
	}
	return fetched, err
}

func (r *Resolver) lookupCache(ctx context.Context, id string) (metadata.Metadata, bool) {
	if r.cache == nil {
		return metadata.Metadata{}, false
	}
	meta, ok, err := r.cache.Get(ctx, id)
	if err != nil {
		logging.WarnWithContext(r.logger, "metadata cache read failed", "metacache_read_failed",
			logging.String(logging.FieldVideoID, id),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run vidshelf cache clear if the error persists"),
			logging.String(logging.FieldImpact, "video is fetched remotely instead"))
		return metadata.Metadata{}, false
	}
	return meta, ok
}

func (r *Resolver) storeCache(ctx context.Context, id string, meta metadata.Metadata) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Put(ctx, id, meta); err != nil {
		logging.WarnWithContext(r.logger, "metadata cache write failed", "metacache_write_failed",
			logging.String(logging.FieldVideoID, id),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions on the cache database"),
			logging.String(logging.FieldImpact, "video will be fetched again next run"))
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func chunk(ids []string, size int) [][]string {
	size = clampBatch(size)
	var batches [][]string
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		batches = append(batches, ids[start:end])
	}
	return batches
}

func clampBatch(size int) int {
	switch {
	case size < 1:
		return 1
	case size > youtube.MaxBatchSize:
		return youtube.MaxBatchSize
	default:
		return size
	}
}

func countIDs(batches [][]string) int {
	total := 0
	for _, batch := range batches {
		total += len(batch)
	}
	return total
}
