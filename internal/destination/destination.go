package destination

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/text/cases"

	"vidshelf/internal/logging"
	"vidshelf/internal/metadata"
	"vidshelf/internal/services"
)

// DefaultBucket is the directory for channels outside the known list.
const DefaultBucket = "Other"

// Info describes where a piece of content lands in the library.
type Info struct {
	Metadata metadata.Metadata
	Channel  string
	Dir      string
	BaseName string
	// Descriptor is the descriptor already written for this identifier in
	// the current run. A converted sidecar updates it instead of placing a
	// new one.
	Descriptor string
}

// Mapping configures channel aliasing.
type Mapping struct {
	// Known lists canonical channel names. Empty disables aliasing.
	Known []string
	// DefaultBucket receives channels that match nothing in Known.
	DefaultBucket string
}

type alias struct {
	canonical string
	exact     string
	folded    string
}

// Mapper resolves destinations relative to a library root.
type Mapper struct {
	root    string
	bucket  string
	aliases []alias
}

// NewMapper builds a Mapper for root using mapping.
func NewMapper(root string, mapping Mapping) *Mapper {
	bucket := Sanitize(strings.TrimSpace(mapping.DefaultBucket))
	if bucket == "" {
		bucket = DefaultBucket
	}
	m := &Mapper{root: root, bucket: safeSegment(bucket)}
	for _, name := range mapping.Known {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		sanitized := Sanitize(name)
		m.aliases = append(m.aliases, alias{
			canonical: safeSegment(sanitized),
			exact:     sanitized,
			folded:    foldCase(sanitized),
		})
	}
	return m
}

// Resolve computes the destination for meta. It performs no I/O.
func (m *Mapper) Resolve(meta metadata.Metadata) Info {
	channel := m.channelDir(meta.Channel)
	base := safeSegment(TruncateBytes(Sanitize(FormatTitle(strings.TrimSpace(meta.Title))), MaxBaseNameBytes))
	return Info{
		Metadata: meta,
		Channel:  channel,
		Dir:      filepath.Join(m.root, channel),
		BaseName: base,
	}
}

func (m *Mapper) channelDir(owner string) string {
	sanitized := Sanitize(strings.TrimSpace(owner))
	if sanitized == "" {
		return m.bucket
	}
	if len(m.aliases) == 0 {
		return safeSegment(sanitized)
	}
	for _, a := range m.aliases {
		if a.exact == sanitized {
			return a.canonical
		}
	}
	folded := foldCase(sanitized)
	for _, a := range m.aliases {
		if a.folded == folded {
			return a.canonical
		}
	}
	return m.bucket
}

// foldCase builds a fresh Caser per call; Casers are stateful.
func foldCase(s string) string {
	return cases.Fold().String(s)
}

// safeSegment keeps a sanitized name from escaping its parent directory.
func safeSegment(name string) string {
	switch name {
	case "":
		return "_"
	case ".":
		return "_"
	case "..":
		return "__"
	default:
		return name
	}
}

// Resolver memoizes destinations per identifier and creates their directories.
type Resolver struct {
	mapper *Mapper
	logger *slog.Logger

	mu      sync.Mutex
	entries map[string]Info
}

// NewResolver wraps mapper with per-identifier memoization.
func NewResolver(mapper *Mapper, logger *slog.Logger) *Resolver {
	return &Resolver{
		mapper:  mapper,
		logger:  logging.NewComponentLogger(logger, "destination"),
		entries: make(map[string]Info),
	}
}

// Prepare returns the memoized destination for id, computing it and creating
// its directory on first use.
func (r *Resolver) Prepare(id string, meta metadata.Metadata) (Info, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if info, ok := r.entries[id]; ok {
		return info, nil
	}
	info := r.mapper.Resolve(meta)
	if err := ensureDir(info.Dir); err != nil {
		return Info{}, services.Wrap(services.ErrTransient, "destination", "prepare",
			fmt.Sprintf("create %s", info.Dir), err)
	}
	r.entries[id] = info
	r.logger.Debug("destination prepared",
		logging.String(logging.FieldVideoID, id),
		logging.String(logging.FieldChannel, info.Channel),
		logging.String("base_name", info.BaseName))
	return info, nil
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return errors.New("destination exists and is not a directory")
	}
	return nil
}
