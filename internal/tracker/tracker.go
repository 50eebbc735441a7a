// Package tracker persists the names of files that have already been
// organized so later runs skip them.
//
// The file is newline-delimited, read once at run start, and only ever
// appended to.
package tracker

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Tracker is the set of processed file names backed by a file on disk.
type Tracker struct {
	path  string
	names map[string]struct{}
}

// Load reads the tracker at path. A missing file is an empty tracker.
func Load(path string) (*Tracker, error) {
	t := &Tracker{path: path, names: make(map[string]struct{})}
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return t, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open tracker: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if name := strings.TrimRight(scanner.Text(), "\r"); name != "" {
			t.names[name] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read tracker: %w", err)
	}
	return t, nil
}

// Path returns the backing file location.
func (t *Tracker) Path() string { return t.path }

// Contains reports whether name was processed by an earlier run.
func (t *Tracker) Contains(name string) bool {
	_, ok := t.names[name]
	return ok
}

// Len returns the number of tracked names.
func (t *Tracker) Len() int { return len(t.names) }

// Append records names on disk and in memory. Names already tracked are
// skipped. The write is synced before returning.
func (t *Tracker) Append(names []string) error {
	var pending []string
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || strings.ContainsAny(name, "\r\n") || t.Contains(name) {
			continue
		}
		t.names[name] = struct{}{}
		pending = append(pending, name)
	}
	if len(pending) == 0 {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return fmt.Errorf("ensure tracker directory: %w", err)
	}
	file, err := os.OpenFile(t.path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open tracker: %w", err)
	}
	defer file.Close()

	prefix, err := needsLeadingNewline(file)
	if err != nil {
		return err
	}
	var b strings.Builder
	if prefix {
		b.WriteByte('\n')
	}
	for _, name := range pending {
		b.WriteString(name)
		b.WriteByte('\n')
	}
	if _, err := file.WriteString(b.String()); err != nil {
		return fmt.Errorf("append tracker: %w", err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("sync tracker: %w", err)
	}
	return file.Close()
}

func needsLeadingNewline(file *os.File) (bool, error) {
	info, err := file.Stat()
	if err != nil {
		return false, fmt.Errorf("stat tracker: %w", err)
	}
	if info.Size() == 0 {
		return false, nil
	}
	last := make([]byte, 1)
	if _, err := file.ReadAt(last, info.Size()-1); err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read tracker tail: %w", err)
	}
	return last[0] != '\n', nil
}
