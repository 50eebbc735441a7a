package workflow

import (
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"vidshelf/internal/logging"
	"vidshelf/internal/mediafile"
	"vidshelf/internal/tracker"
)

// candidate is one untracked download.
type candidate struct {
	path string
	name string
	id   string
	kind mediafile.Kind
}

// group is every candidate sharing an identifier, primary files first.
type group struct {
	id    string
	files []candidate
}

// discover walks root recursively and returns files that are primary media or
// auxiliary sidecars and whose names are not in tr. Directories listed in skip
// (such as a library nested inside the download directory) are not entered.
func discover(logger *slog.Logger, root string, tr *tracker.Tracker, skip ...string) ([]candidate, error) {
	skipped := make(map[string]struct{}, len(skip))
	for _, dir := range skip {
		if dir != "" {
			skipped[filepath.Clean(dir)] = struct{}{}
		}
	}

	var found []candidate
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			logging.WarnWithContext(logger, "download path unreadable", "discovery_walk_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check permissions under paths.video_dir"),
				logging.String(logging.FieldImpact, "files below this path are not organized this run"))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if _, ok := skipped[filepath.Clean(path)]; ok && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		name := d.Name()
		if strings.HasPrefix(name, ".") {
			return nil
		}
		kind := mediafile.Classify(name)
		if kind == mediafile.KindOther || tr.Contains(name) {
			return nil
		}
		found = append(found, candidate{
			path: path,
			name: name,
			id:   mediafile.Extract(name),
			kind: kind,
		})
		return nil
	})
	return found, err
}

// groupByIdentifier buckets candidates per identifier in identifier order.
// Within a group primary files come first, then subtitles, then info json.
func groupByIdentifier(candidates []candidate) []group {
	index := make(map[string]int)
	var groups []group
	for _, c := range candidates {
		i, ok := index[c.id]
		if !ok {
			i = len(groups)
			index[c.id] = i
			groups = append(groups, group{id: c.id})
		}
		groups[i].files = append(groups[i].files, c)
	}
	for i := range groups {
		files := groups[i].files
		sort.SliceStable(files, func(a, b int) bool {
			if files[a].kind != files[b].kind {
				return files[a].kind < files[b].kind
			}
			return files[a].path < files[b].path
		})
	}
	sort.Slice(groups, func(a, b int) bool { return groups[a].id < groups[b].id })
	return groups
}

func groupIDs(groups []group) []string {
	ids := make([]string, 0, len(groups))
	for _, g := range groups {
		ids = append(ids, g.id)
	}
	return ids
}
