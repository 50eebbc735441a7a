// Package retention deletes library content older than a per-destination
// window and prunes the directories it leaves empty.
package retention

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"vidshelf/internal/logging"
)

// Policy resolves the retention window for a destination directory.
type Policy struct {
	// DefaultDays applies to destinations without their own entry. Nil
	// disables deletion for them.
	DefaultDays *int
	// Destinations maps a destination directory name to its window in days.
	Destinations map[string]int
}

// Window returns the window for dest and whether deletion is enabled.
// Lookup order is the destination entry, then DefaultDays, then disabled.
func (p Policy) Window(dest string) (time.Duration, bool) {
	if days, ok := p.Destinations[dest]; ok {
		if days <= 0 {
			return 0, false
		}
		return time.Duration(days) * 24 * time.Hour, true
	}
	if p.DefaultDays != nil && *p.DefaultDays > 0 {
		return time.Duration(*p.DefaultDays) * 24 * time.Hour, true
	}
	return 0, false
}

// Enabled reports whether any destination can have content deleted.
func (p Policy) Enabled() bool {
	if p.DefaultDays != nil && *p.DefaultDays > 0 {
		return true
	}
	for _, days := range p.Destinations {
		if days > 0 {
			return true
		}
	}
	return false
}

// Record lists the files deleted from one destination.
type Record struct {
	Destination string
	Files       []string
}

// Cleaner sweeps a library root.
type Cleaner struct {
	logger *slog.Logger
	now    func() time.Time
}

// Option customizes a Cleaner.
type Option func(*Cleaner)

// WithClock overrides the time source used to compute cutoffs.
func WithClock(now func() time.Time) Option {
	return func(c *Cleaner) {
		if now != nil {
			c.now = now
		}
	}
}

// New constructs a Cleaner.
func New(logger *slog.Logger, opts ...Option) *Cleaner {
	c := &Cleaner{
		logger: logging.NewComponentLogger(logger, "retention"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Clean applies policy to every top-level directory under root. Per-file
// failures are logged and skipped; directory removal failures are ignored.
func (c *Cleaner) Clean(ctx context.Context, root string, policy Policy) []Record {
	if !policy.Enabled() {
		c.logger.Debug("retention disabled")
		return nil
	}
	logger := logging.WithContext(ctx, c.logger)
	entries, err := os.ReadDir(root)
	if err != nil {
		logging.WarnWithContext(logger, "library root unreadable", "retention_root_failed",
			logging.String("root", root),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions on paths.library_dir"),
			logging.String(logging.FieldImpact, "no content was retired this run"))
		return nil
	}

	now := c.now()
	var records []Record
	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		window, ok := policy.Window(name)
		if !ok {
			continue
		}
		deleted := c.sweep(logger, filepath.Join(root, name), now.Add(-window))
		if len(deleted) > 0 {
			sort.Strings(deleted)
			records = append(records, Record{Destination: name, Files: deleted})
			logger.Info("retention sweep removed files",
				logging.String(logging.FieldChannel, name),
				logging.Int("deleted", len(deleted)),
				logging.Duration("window", window))
		}
	}
	return records
}

func (c *Cleaner) sweep(logger *slog.Logger, dir string, cutoff time.Time) []string {
	var (
		deleted []string
		dirs    []string
	)
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				logging.WarnWithContext(logger, "retention walk error", "retention_walk_failed",
					logging.String("path", path),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check directory permissions"),
					logging.String(logging.FieldImpact, "entries below this path were skipped"))
			}
			if d != nil && d.IsDir() && path != dir {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			dirs = append(dirs, path)
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if !info.ModTime().Before(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logging.WarnWithContext(logger, "retention remove failed; file remains", "retention_remove_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check file permissions in the library"),
				logging.String(logging.FieldImpact, "expired file remains on disk"))
			return nil
		}
		deleted = append(deleted, d.Name())
		return nil
	})

	for i := len(dirs) - 1; i >= 0; i-- {
		_ = os.Remove(dirs[i])
	}
	return deleted
}
