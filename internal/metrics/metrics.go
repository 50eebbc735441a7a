package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "vidshelf"

// Recorder holds the collectors for one run.
type Recorder struct {
	registry *prometheus.Registry

	FilesOrganized   *prometheus.CounterVec
	FilesFailed      prometheus.Counter
	FilesDeleted     *prometheus.CounterVec
	APICalls         prometheus.Counter
	CacheHits        prometheus.Counter
	Unresolved       prometheus.Counter
	QuotaRemaining   prometheus.Gauge
	RunDuration      prometheus.Gauge
	LastRunTimestamp prometheus.Gauge
}

// New registers a fresh set of collectors on a private registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		FilesOrganized: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "files_organized_total",
				Help:      "Files moved into the library",
			},
			[]string{"kind"},
		),
		FilesFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_failed_total",
			Help:      "Files that could not be organized",
		}),
		FilesDeleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "files_deleted_total",
				Help:      "Files removed by retention",
			},
			[]string{"destination"},
		),
		APICalls: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_calls_total",
			Help:      "Remote metadata requests issued, retries included",
		}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Identifiers served from the metadata cache",
		}),
		Unresolved: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unresolved_total",
			Help:      "Identifiers without metadata after resolution",
		}),
		QuotaRemaining: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "quota_remaining",
			Help:      "Remote request units left at the end of the run",
		}),
		RunDuration: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run",
		}),
		LastRunTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished",
		}),
	}
}

// Registry exposes the underlying registry for tests and custom exporters.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveRun stamps the duration and completion time of a run.
func (r *Recorder) ObserveRun(started, finished time.Time) {
	r.RunDuration.Set(finished.Sub(started).Seconds())
	r.LastRunTimestamp.Set(float64(finished.Unix()))
}

// WriteTextfile writes all collected metrics to path. An empty path is a no-op.
func (r *Recorder) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
