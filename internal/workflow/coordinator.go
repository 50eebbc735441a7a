package workflow

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"vidshelf/internal/config"
	"vidshelf/internal/logging"
	"vidshelf/internal/metrics"
	"vidshelf/internal/notifications"
	"vidshelf/internal/resolver"
	"vidshelf/internal/retry"
	"vidshelf/internal/services/refresh"
	"vidshelf/internal/services/youtube"
)

// Coordinator wires the organizer pipeline together for a single run.
type Coordinator struct {
	cfg       *config.Config
	cache     resolver.Cache
	fetcher   youtube.Fetcher
	base      *slog.Logger
	logger    *slog.Logger
	notifier  notifications.Service
	refresher refresh.Trigger
	metrics   *metrics.Recorder
	now       func() time.Time
	newRunID  func() string
}

// Option configures optional Coordinator behavior.
type Option func(*Coordinator)

// WithNotifier replaces the ntfy service built from config.
func WithNotifier(n notifications.Service) Option {
	return func(c *Coordinator) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithRefresher replaces the refresh trigger built from config.
func WithRefresher(r refresh.Trigger) Option {
	return func(c *Coordinator) {
		if r != nil {
			c.refresher = r
		}
	}
}

// WithMetrics records into rec instead of a fresh recorder.
func WithMetrics(rec *metrics.Recorder) Option {
	return func(c *Coordinator) {
		if rec != nil {
			c.metrics = rec
		}
	}
}

// WithClock overrides the time source used for retention cutoffs and run timing.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// WithRunIDs overrides run ID generation.
func WithRunIDs(next func() string) Option {
	return func(c *Coordinator) {
		if next != nil {
			c.newRunID = next
		}
	}
}

// New constructs a Coordinator. cache and fetcher back the metadata resolver.
func New(cfg *config.Config, cache resolver.Cache, fetcher youtube.Fetcher, logger *slog.Logger, opts ...Option) *Coordinator {
	if logger == nil {
		logger = logging.NewNop()
	}
	c := &Coordinator{
		cfg:       cfg,
		cache:     cache,
		fetcher:   fetcher,
		base:      logger,
		logger:    logging.NewComponentLogger(logger, "workflow"),
		notifier:  notifications.NewService(cfg),
		refresher: refresh.NewConfigured(cfg),
		metrics:   metrics.New(),
		now:       time.Now,
		newRunID:  func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Metrics returns the recorder the coordinator writes to.
func (c *Coordinator) Metrics() *metrics.Recorder {
	return c.metrics
}

func (c *Coordinator) retryPolicy() retry.Policy {
	policy := resolver.DefaultPolicy()
	if c.cfg.YouTube.MaxAttempts > 0 {
		policy.MaxAttempts = c.cfg.YouTube.MaxAttempts
	}
	if base := c.cfg.YouTubeBackoffBase(); base > 0 {
		policy.BaseDelay = base
	}
	if timeout := c.cfg.YouTubeRequestTimeout(); timeout > 0 {
		policy.AttemptTimeout = timeout
	}
	return policy
}

func (c *Coordinator) newResolver() *resolver.Resolver {
	return resolver.New(c.cache, c.fetcher, resolver.NewQuota(c.cfg.YouTube.Quota),
		resolver.WithBatchSize(c.cfg.YouTube.BatchSize),
		resolver.WithRetryPolicy(c.retryPolicy()),
		resolver.WithLogger(c.base),
	)
}
