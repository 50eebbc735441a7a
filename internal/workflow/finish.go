package workflow

import (
	"context"
	"log/slog"
	"time"

	"vidshelf/internal/logging"
	"vidshelf/internal/report"
)

// finish reports the run. Each step is best effort.
func (c *Coordinator) finish(ctx context.Context, logger *slog.Logger, summary report.Summary, started time.Time) {
	logger.Info("run completed",
		logging.Int("organized", summary.OrganizedCount()),
		logging.Int("deleted", summary.DeletedCount()),
		logging.Int("failed", len(summary.Failed)),
		logging.Int("unresolved", len(summary.Unresolved)),
		logging.String(logging.FieldEventType, "run_completed"))

	if !summary.Empty() {
		if err := c.notifier.NotifyRunSummary(ctx, summary); err != nil {
			logging.WarnWithContext(logger, "run summary notification failed", "notification_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
				logging.String(logging.FieldImpact, "run summary was not delivered"))
		}
		if err := c.refresher.Refresh(ctx); err != nil {
			logging.WarnWithContext(logger, "library refresh failed", "refresh_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check refresh.url and refresh.api_key"),
				logging.String(logging.FieldImpact, "media server picks up changes on its next scheduled scan"))
		}
	}

	c.metrics.ObserveRun(started, c.now())
	if err := c.metrics.WriteTextfile(c.cfg.Metrics.TextfilePath); err != nil {
		logging.WarnWithContext(logger, "metrics export failed", "metrics_write_failed",
			logging.String("path", c.cfg.Metrics.TextfilePath),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check metrics.textfile_path"),
			logging.String(logging.FieldImpact, "metrics for this run are unavailable"))
	}
}
