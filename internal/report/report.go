// Package report accumulates the outcome of a run and renders it for people.
package report

import (
	"fmt"
	"sort"
	"strings"

	"vidshelf/internal/retention"
)

// Summary is the aggregated outcome of one run. Deletion records are kept as
// returned by the retention cleaner; rendering never feeds back into them.
type Summary struct {
	RunID string
	// Organized maps a destination to the titles organized into it.
	Organized map[string][]string
	// Deleted maps a destination to the file names retention removed.
	Deleted map[string][]string
	// Failed lists source files that could not be organized.
	Failed []string
	// Unresolved lists identifiers without metadata this run.
	Unresolved []string
	// Tracked lists source file names appended to the tracker.
	Tracked []string
}

// New returns an empty Summary for runID.
func New(runID string) Summary {
	return Summary{
		RunID:     runID,
		Organized: make(map[string][]string),
		Deleted:   make(map[string][]string),
	}
}

// AddOrganized records a title organized into destination.
func (s *Summary) AddOrganized(destination, title string) {
	if s.Organized == nil {
		s.Organized = make(map[string][]string)
	}
	s.Organized[destination] = append(s.Organized[destination], title)
}

// AddDeletions merges retention records.
func (s *Summary) AddDeletions(records []retention.Record) {
	if s.Deleted == nil {
		s.Deleted = make(map[string][]string)
	}
	for _, record := range records {
		if len(record.Files) == 0 {
			continue
		}
		s.Deleted[record.Destination] = append(s.Deleted[record.Destination], record.Files...)
	}
}

// OrganizedCount returns the number of organized titles.
func (s Summary) OrganizedCount() int {
	return countAll(s.Organized)
}

// DeletedCount returns the number of deleted files.
func (s Summary) DeletedCount() int {
	return countAll(s.Deleted)
}

// Empty reports whether nothing was organized or deleted.
func (s Summary) Empty() bool {
	return s.OrganizedCount() == 0 && s.DeletedCount() == 0
}

// Title returns a one-line headline.
func (s Summary) Title() string {
	if len(s.Failed) > 0 {
		return "vidshelf - Library Updated (with errors)"
	}
	return "vidshelf - Library Updated"
}

// Text renders the multi-line body sent to notification targets.
func (s Summary) Text() string {
	var b strings.Builder
	if n := s.OrganizedCount(); n > 0 {
		fmt.Fprintf(&b, "Organized %d %s:\n", n, plural(n, "video", "videos"))
		writeSection(&b, s.Organized)
	}
	if n := s.DeletedCount(); n > 0 {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "Deleted %d %s:\n", n, plural(n, "file", "files"))
		writeSection(&b, s.Deleted)
	}
	if n := len(s.Failed); n > 0 {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "Failed to organize %d %s\n", n, plural(n, "file", "files"))
	}
	return strings.TrimRight(b.String(), "\n")
}

// Destinations returns every destination mentioned in the summary, sorted.
func (s Summary) Destinations() []string {
	seen := make(map[string]struct{}, len(s.Organized)+len(s.Deleted))
	for dest := range s.Organized {
		seen[dest] = struct{}{}
	}
	for dest := range s.Deleted {
		seen[dest] = struct{}{}
	}
	return sortedKeys(seen)
}

func writeSection(b *strings.Builder, entries map[string][]string) {
	for _, dest := range sortedKeys(entries) {
		items := append([]string(nil), entries[dest]...)
		sort.Strings(items)
		fmt.Fprintf(b, "- %s (%d): %s\n", dest, len(items), strings.Join(items, ", "))
	}
}

func countAll(entries map[string][]string) int {
	total := 0
	for _, items := range entries {
		total += len(items)
	}
	return total
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
