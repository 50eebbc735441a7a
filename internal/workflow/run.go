package workflow

import (
	"context"
	"log/slog"
	"path/filepath"

	"vidshelf/internal/destination"
	"vidshelf/internal/logging"
	"vidshelf/internal/mediafile"
	"vidshelf/internal/organizer"
	"vidshelf/internal/preflight"
	"vidshelf/internal/report"
	"vidshelf/internal/retention"
	"vidshelf/internal/services"
	"vidshelf/internal/tracker"
	"vidshelf/internal/workerpool"
)

const defaultWorkers = 4

// task is one identifier group with its precomputed destination.
type task struct {
	group group
	dest  destination.Info
}

// groupOutcome is what a worker reports back for one task.
type groupOutcome struct {
	ran       bool
	title     string
	channel   string
	organized []organizer.Result
	failed    []string
}

// Run executes one organizer pass and returns its summary. The returned error
// is non-nil only when the run could not start.
func (c *Coordinator) Run(ctx context.Context) (report.Summary, error) {
	runID := c.newRunID()
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, c.logger)
	started := c.now()
	summary := report.New(runID)

	if err := c.runPreflight(logger); err != nil {
		c.notifyFailure(ctx, logger, err, "preflight")
		return summary, err
	}

	lock, err := acquireLock(c.cfg.Paths.TrackerPath)
	if err != nil {
		return summary, err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Debug("run lock release failed", logging.Error(err))
		}
	}()

	tr, err := tracker.Load(c.cfg.Paths.TrackerPath)
	if err != nil {
		err = services.Wrap(services.ErrConfiguration, "workflow", "load tracker", "Processed files tracker unreadable", err)
		c.notifyFailure(ctx, logger, err, "tracker")
		return summary, err
	}

	candidates, err := discover(logger, c.cfg.Paths.VideoDir, tr, c.cfg.Paths.LibraryDir)
	if err != nil {
		err = services.Wrap(services.ErrConfiguration, "workflow", "discover", "Video directory unreadable", err)
		c.notifyFailure(ctx, logger, err, "discovery")
		return summary, err
	}
	logger.Info("run started",
		logging.Int("candidates", len(candidates)),
		logging.Int("tracked", tr.Len()),
		logging.String(logging.FieldEventType, "run_started"))

	if len(candidates) > 0 {
		c.organizeAll(ctx, logger, tr, candidates, &summary)
	} else {
		logger.Info("no new downloads", logging.String(logging.FieldEventType, "run_idle"))
	}

	records := retention.New(c.base, retention.WithClock(c.now)).Clean(ctx, c.cfg.Paths.LibraryDir, c.retentionPolicy())
	summary.AddDeletions(records)
	for _, record := range records {
		c.metrics.FilesDeleted.WithLabelValues(record.Destination).Add(float64(len(record.Files)))
	}

	c.finish(ctx, logger, summary, started)
	return summary, nil
}

func (c *Coordinator) runPreflight(logger *slog.Logger) error {
	results := preflight.RunAll(c.cfg)
	for _, r := range results {
		if r.Passed {
			logger.Debug("preflight check passed",
				logging.String("check", r.Name),
				logging.String("detail", r.Detail),
				logging.String(logging.FieldEventType, "preflight_passed"))
			continue
		}
		logging.ErrorWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", r.Name),
			logging.String("detail", r.Detail),
			logging.String(logging.FieldErrorHint, "fix the reported path and rerun"))
	}
	return preflight.Err(results)
}

func (c *Coordinator) organizeAll(ctx context.Context, logger *slog.Logger, tr *tracker.Tracker, candidates []candidate, summary *report.Summary) {
	groups := groupByIdentifier(candidates)

	resolvable := groups[:0:0]
	for _, g := range groups {
		if g.id == "" {
			for _, f := range g.files {
				logging.WarnWithContext(logger, "file has no identifier", "identifier_missing",
					logging.String("source", f.path),
					logging.String(logging.FieldErrorHint, "rename the file to <video id>.<ext>"),
					logging.String(logging.FieldImpact, "file stays in the download directory"))
				summary.Failed = append(summary.Failed, f.path)
				c.metrics.FilesFailed.Inc()
			}
			continue
		}
		resolvable = append(resolvable, g)
	}

	res := c.newResolver()
	metas, stats := res.ResolveAll(ctx, groupIDs(resolvable))
	summary.Unresolved = stats.Unresolved
	c.metrics.APICalls.Add(float64(stats.Calls))
	c.metrics.CacheHits.Add(float64(stats.CacheHits))
	c.metrics.Unresolved.Add(float64(len(stats.Unresolved)))
	c.metrics.QuotaRemaining.Set(float64(res.Quota().Remaining()))
	if stats.QuotaErr != nil {
		c.notifyFailure(ctx, logger, stats.QuotaErr, "quota")
	}

	// Destinations are computed here, before dispatch, so workers only read them.
	dests := destination.NewResolver(destination.NewMapper(c.cfg.Paths.LibraryDir, destination.Mapping{
		Known:         c.cfg.Channels.Known,
		DefaultBucket: c.cfg.Channels.DefaultBucket,
	}), c.base)
	tasks := make([]task, 0, len(resolvable))
	for _, g := range resolvable {
		meta, ok := metas[g.id]
		if !ok {
			continue
		}
		info, err := dests.Prepare(g.id, meta)
		if err != nil {
			logging.WarnWithContext(logger, "destination unavailable", "destination_failed",
				logging.String(logging.FieldVideoID, g.id),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check permissions on paths.library_dir"),
				logging.String(logging.FieldImpact, "files for this video stay in the download directory"))
			for _, f := range g.files {
				summary.Failed = append(summary.Failed, f.path)
				c.metrics.FilesFailed.Inc()
			}
			continue
		}
		tasks = append(tasks, task{group: g, dest: info})
	}

	workers := c.cfg.Workflow.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	org := organizer.New(c.base)
	outcomes := workerpool.Run(ctx, workers, tasks, func(ctx context.Context, t task) groupOutcome {
		return c.organizeGroup(ctx, org, t)
	})

	var tracked []string
	for i, outcome := range outcomes {
		if !outcome.ran {
			// Never dispatched; the context ended first.
			for _, f := range tasks[i].group.files {
				summary.Failed = append(summary.Failed, f.path)
			}
			continue
		}
		if len(outcome.organized) > 0 {
			summary.AddOrganized(outcome.channel, outcome.title)
		}
		for _, r := range outcome.organized {
			tracked = append(tracked, filepath.Base(r.Source))
			c.metrics.FilesOrganized.WithLabelValues(r.Kind.String()).Inc()
		}
		summary.Failed = append(summary.Failed, outcome.failed...)
		c.metrics.FilesFailed.Add(float64(len(outcome.failed)))
	}

	if err := tr.Append(tracked); err != nil {
		logging.ErrorWithContext(logger, "tracker append failed", "tracker_append_failed",
			logging.String("tracker", tr.Path()),
			logging.Int("files", len(tracked)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions on paths.tracker_path"))
		return
	}
	summary.Tracked = tracked
}

// organizeGroup moves every file of one identifier. Auxiliary files reuse the
// base name the primary file finally landed under.
func (c *Coordinator) organizeGroup(ctx context.Context, org *organizer.Organizer, t task) groupOutcome {
	ctx = services.WithVideoID(ctx, t.group.id)
	logger := logging.WithContext(ctx, c.logger)
	dest := t.dest
	outcome := groupOutcome{
		ran:     true,
		title:   dest.BaseName,
		channel: dest.Channel,
	}
	pinned := false
	for _, f := range t.group.files {
		if f.kind.Auxiliary() && !pinned {
			logger.Debug("auxiliary file without a primary in this run",
				logging.String("source", f.path),
				logging.String("kind", f.kind.String()))
		}
		result, err := org.Organize(ctx, f.path, dest)
		if err != nil {
			logging.WarnWithContext(logger, "file not organized", "organize_failed",
				logging.String("source", f.path),
				logging.String("kind", f.kind.String()),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "inspect the source file and destination directory"),
				logging.String(logging.FieldImpact, "file stays in the download directory and is retried next run"))
			outcome.failed = append(outcome.failed, f.path)
			continue
		}
		if f.kind == mediafile.KindPrimary && !pinned {
			dest.BaseName = result.BaseName
			dest.Descriptor = result.Descriptor
			outcome.title = result.BaseName
			pinned = true
		}
		outcome.organized = append(outcome.organized, result)
	}
	if len(outcome.failed) > 0 {
		logger.Debug("group partially organized",
			logging.Int("organized", len(outcome.organized)),
			logging.Int("failed", len(outcome.failed)))
	}
	return outcome
}

func (c *Coordinator) retentionPolicy() retention.Policy {
	policy := retention.Policy{DefaultDays: c.cfg.Retention.DefaultDays}
	if len(c.cfg.Retention.Channels) > 0 {
		policy.Destinations = make(map[string]int, len(c.cfg.Retention.Channels))
		for name, days := range c.cfg.Retention.Channels {
			policy.Destinations[destination.Sanitize(name)] = days
		}
	}
	return policy
}

func (c *Coordinator) notifyFailure(ctx context.Context, logger *slog.Logger, runErr error, label string) {
	if err := c.notifier.NotifyError(ctx, runErr, label); err != nil {
		logger.Debug("error notification failed", logging.Error(err), logging.String("context", label))
	}
}
