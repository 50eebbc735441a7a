package metacache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"vidshelf/internal/logging"
	"vidshelf/internal/metadata"
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Entry is a cached metadata record.
type Entry struct {
	VideoID   string
	Metadata  metadata.Metadata
	FetchedAt time.Time
}

// Age returns how long ago the entry was fetched relative to now.
func (e Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.FetchedAt)
}

// Store is the SQLite-backed metadata cache.
type Store struct {
	db     *sql.DB
	path   string
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// Option customizes a Store.
type Option func(*Store)

// WithClock overrides the time source used for freshness checks and stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger attaches a logger to the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logging.NewComponentLogger(logger, "metacache")
	}
}

// Open initializes or connects to the cache database at path.
func Open(path string, ttl time.Duration, opts ...Option) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("cache path is required")
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{
		db:     db,
		path:   path,
		ttl:    ttl,
		now:    time.Now,
		logger: logging.NewComponentLogger(nil, "metacache"),
	}
	for _, opt := range opts {
		opt(store)
	}
	if err := store.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// TTL returns the freshness window applied by Get.
func (s *Store) TTL() time.Duration { return s.ttl }

// Get returns cached metadata for id. The boolean is false when no entry
// exists or the stored entry is older than the TTL.
func (s *Store) Get(ctx context.Context, id string) (metadata.Metadata, bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return metadata.Metadata{}, false, nil
	}
	var (
		raw       string
		fetchedAt int64
	)
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx,
			`SELECT response, fetched_at FROM metadata_cache WHERE video_id = ?`, id,
		).Scan(&raw, &fetchedAt)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return metadata.Metadata{}, false, nil
	}
	if err != nil {
		return metadata.Metadata{}, false, fmt.Errorf("get cache entry: %w", err)
	}
	if !s.fresh(fetchedAt) {
		return metadata.Metadata{}, false, nil
	}
	meta, err := metadata.Decode(raw)
	if err != nil {
		return metadata.Metadata{}, false, err
	}
	return meta, true, nil
}

// Put upserts metadata for id stamped with the current time.
func (s *Store) Put(ctx context.Context, id string, meta metadata.Metadata) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.New("video id cannot be empty")
	}
	raw, err := metadata.Encode(meta)
	if err != nil {
		return err
	}
	fetchedAt := s.now().Unix()
	err = retryOnBusy(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx,
			`INSERT INTO metadata_cache (video_id, response, fetched_at) VALUES (?, ?, ?)
             ON CONFLICT(video_id) DO UPDATE SET response = excluded.response, fetched_at = excluded.fetched_at`,
			id, raw, fetchedAt)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("put cache entry: %w", err)
	}
	s.logger.Debug("cached video metadata",
		logging.String(logging.FieldVideoID, id),
		logging.String("title", meta.Title))
	return nil
}

// List returns every stored entry, newest first, including expired ones.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT video_id, response, fetched_at FROM metadata_cache ORDER BY fetched_at DESC, video_id`)
	if err != nil {
		return nil, fmt.Errorf("list cache entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			id        string
			raw       string
			fetchedAt int64
		)
		if err := rows.Scan(&id, &raw, &fetchedAt); err != nil {
			return nil, fmt.Errorf("scan cache entry: %w", err)
		}
		meta, err := metadata.Decode(raw)
		if err != nil {
			s.logger.Warn("skipping unreadable cache entry",
				logging.String(logging.FieldEventType, "metacache_decode_failed"),
				logging.String(logging.FieldVideoID, id),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "run vidshelf cache clear to rebuild the cache"),
				logging.String(logging.FieldImpact, "entry will be refetched on next use"))
			continue
		}
		entries = append(entries, Entry{VideoID: id, Metadata: meta, FetchedAt: time.Unix(fetchedAt, 0)})
	}
	return entries, rows.Err()
}

// Prune deletes entries older than the TTL and returns how many were removed.
func (s *Store) Prune(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.ttl).Unix()
	var res sql.Result
	err := retryOnBusy(ctx, func() error {
		var execErr error
		res, execErr = s.db.ExecContext(ctx, `DELETE FROM metadata_cache WHERE fetched_at < ?`, cutoff)
		return execErr
	})
	if err != nil {
		return 0, fmt.Errorf("prune cache: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes all entries.
func (s *Store) Clear(ctx context.Context) error {
	err := retryOnBusy(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx, `DELETE FROM metadata_cache`)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}

// Count returns the number of stored entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM metadata_cache`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count cache entries: %w", err)
	}
	return count, nil
}

func (s *Store) fresh(fetchedAt int64) bool {
	age := s.now().Sub(time.Unix(fetchedAt, 0))
	return age <= s.ttl
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
