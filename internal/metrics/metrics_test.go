package metrics_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"vidshelf/internal/metrics"
)

func TestRecorderCounters(t *testing.T) {
	rec := metrics.New()
	rec.FilesOrganized.WithLabelValues("primary").Add(2)
	rec.FilesOrganized.WithLabelValues("subtitle").Inc()
	rec.FilesDeleted.WithLabelValues("Chan").Add(3)
	rec.APICalls.Add(4)
	rec.QuotaRemaining.Set(996)

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"primary", testutil.ToFloat64(rec.FilesOrganized.WithLabelValues("primary")), 2},
		{"subtitle", testutil.ToFloat64(rec.FilesOrganized.WithLabelValues("subtitle")), 1},
		{"deleted", testutil.ToFloat64(rec.FilesDeleted.WithLabelValues("Chan")), 3},
		{"api calls", testutil.ToFloat64(rec.APICalls), 4},
		{"quota", testutil.ToFloat64(rec.QuotaRemaining), 996},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Fatalf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestRecordersAreIndependent(t *testing.T) {
	a := metrics.New()
	b := metrics.New()
	a.FilesFailed.Inc()
	if got := testutil.ToFloat64(b.FilesFailed); got != 0 {
		t.Fatalf("expected separate registries, got %v", got)
	}
}

func TestObserveRun(t *testing.T) {
	rec := metrics.New()
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	rec.ObserveRun(start, start.Add(90*time.Second))
	if got := testutil.ToFloat64(rec.RunDuration); got != 90 {
		t.Fatalf("duration = %v", got)
	}
	if got := testutil.ToFloat64(rec.LastRunTimestamp); got != float64(start.Add(90*time.Second).Unix()) {
		t.Fatalf("timestamp = %v", got)
	}
}

func TestWriteTextfile(t *testing.T) {
	rec := metrics.New()
	rec.CacheHits.Add(7)
	path := filepath.Join(t.TempDir(), "nested", "vidshelf.prom")
	if err := rec.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	if !strings.Contains(string(data), "vidshelf_cache_hits_total 7") {
		t.Fatalf("textfile missing counter:\n%s", data)
	}
	if err := rec.WriteTextfile(""); err != nil {
		t.Fatalf("empty path should be a no-op, got %v", err)
	}
}
