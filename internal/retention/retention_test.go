package retention_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"vidshelf/internal/retention"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func writeAged(t *testing.T, path string, age time.Duration) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	stamp := now.Add(-age)
	if err := os.Chtimes(path, stamp, stamp); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
}

func days(n int) time.Duration { return time.Duration(n) * 24 * time.Hour }

func intPtr(v int) *int { return &v }

func TestPolicyWindowFallbackOrder(t *testing.T) {
	policy := retention.Policy{DefaultDays: intPtr(30), Destinations: map[string]int{"News": 7}}
	if w, ok := policy.Window("News"); !ok || w != days(7) {
		t.Fatalf("News window = %v %v", w, ok)
	}
	if w, ok := policy.Window("Other"); !ok || w != days(30) {
		t.Fatalf("Other window = %v %v", w, ok)
	}
	if _, ok := (retention.Policy{}).Window("Other"); ok {
		t.Fatal("expected disabled window without defaults")
	}
	if (retention.Policy{}).Enabled() {
		t.Fatal("empty policy should be disabled")
	}
}

func TestCleanDeletesExpiredFiles(t *testing.T) {
	root := t.TempDir()
	dest := filepath.Join(root, "Chan")
	writeAged(t, filepath.Join(dest, "three.mp4"), days(3))
	writeAged(t, filepath.Join(dest, "eight.mp4"), days(8))
	writeAged(t, filepath.Join(dest, "ten.mp4"), days(10))

	cleaner := retention.New(nil, retention.WithClock(func() time.Time { return now }))
	records := cleaner.Clean(context.Background(), root, retention.Policy{Destinations: map[string]int{"Chan": 7}})

	if len(records) != 1 || records[0].Destination != "Chan" {
		t.Fatalf("unexpected records %#v", records)
	}
	if got := records[0].Files; len(got) != 2 || got[0] != "eight.mp4" || got[1] != "ten.mp4" {
		t.Fatalf("deleted = %v", got)
	}
	if _, err := os.Stat(filepath.Join(dest, "three.mp4")); err != nil {
		t.Fatalf("recent file should remain: %v", err)
	}
	if _, err := os.Stat(dest); err != nil {
		t.Fatalf("non-empty destination must remain: %v", err)
	}
}

func TestCleanRemovesEmptyDirectories(t *testing.T) {
	root := t.TempDir()
	dest := filepath.Join(root, "Chan")
	writeAged(t, filepath.Join(dest, "nested", "old.mp4"), days(10))
	writeAged(t, filepath.Join(dest, "old.nfo"), days(10))

	cleaner := retention.New(nil, retention.WithClock(func() time.Time { return now }))
	records := cleaner.Clean(context.Background(), root, retention.Policy{DefaultDays: intPtr(7)})

	if len(records) != 1 || len(records[0].Files) != 2 {
		t.Fatalf("unexpected records %#v", records)
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Fatalf("expected emptied destination removed, stat err = %v", err)
	}
	if _, err := os.Stat(root); err != nil {
		t.Fatalf("library root must remain: %v", err)
	}
}

func TestCleanSkipsDisabledDestinations(t *testing.T) {
	root := t.TempDir()
	writeAged(t, filepath.Join(root, "Keep", "old.mp4"), days(100))
	writeAged(t, filepath.Join(root, "Drop", "old.mp4"), days(100))

	cleaner := retention.New(nil, retention.WithClock(func() time.Time { return now }))
	records := cleaner.Clean(context.Background(), root, retention.Policy{Destinations: map[string]int{"Drop": 1}})

	if len(records) != 1 || records[0].Destination != "Drop" {
		t.Fatalf("unexpected records %#v", records)
	}
	if _, err := os.Stat(filepath.Join(root, "Keep", "old.mp4")); err != nil {
		t.Fatalf("disabled destination touched: %v", err)
	}
}

func TestCleanContinuesPastUnremovableFiles(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}
	root := t.TempDir()
	locked := filepath.Join(root, "A")
	writeAged(t, filepath.Join(locked, "old.mp4"), days(10))
	writeAged(t, filepath.Join(root, "B", "old.mp4"), days(10))
	if err := os.Chmod(locked, 0o555); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	cleaner := retention.New(nil, retention.WithClock(func() time.Time { return now }))
	records := cleaner.Clean(context.Background(), root, retention.Policy{DefaultDays: intPtr(7)})

	if len(records) != 1 || records[0].Destination != "B" {
		t.Fatalf("expected sweep to continue past locked directory, got %#v", records)
	}
}
