// Package mediafile classifies downloaded files and derives the content
// identifier shared by a video and its sidecars.
package mediafile

import (
	"path/filepath"
	"strings"
)

// Kind classifies a downloaded file by its role.
type Kind int

const (
	KindOther Kind = iota
	KindPrimary
	KindSubtitle
	KindInfoJSON
)

func (k Kind) String() string {
	switch k {
	case KindPrimary:
		return "primary"
	case KindSubtitle:
		return "subtitle"
	case KindInfoJSON:
		return "info_json"
	default:
		return "other"
	}
}

// Auxiliary reports whether files of this kind travel alongside a primary file.
func (k Kind) Auxiliary() bool {
	return k == KindSubtitle || k == KindInfoJSON
}

var primaryExtensions = map[string]struct{}{
	".mp4":  {},
	".mkv":  {},
	".webm": {},
	".avi":  {},
	".mov":  {},
}

const langMarker = ".lang."

// Extract returns the identifier for a filename: the base name cut at its
// first dot. A name that starts with a dot yields an empty identifier.
func Extract(name string) string {
	base := filepath.Base(name)
	if idx := strings.IndexByte(base, '.'); idx >= 0 {
		return base[:idx]
	}
	return base
}

// Classify returns the Kind for name based on its extension.
func Classify(name string) Kind {
	ext := strings.ToLower(filepath.Ext(name))
	if _, ok := primaryExtensions[ext]; ok {
		return KindPrimary
	}
	switch ext {
	case ".vtt":
		return KindSubtitle
	case ".json":
		return KindInfoJSON
	default:
		return KindOther
	}
}

// LanguageTag returns the language segment following a ".lang." marker,
// e.g. "en" for "abc123.lang.en.vtt". It returns "" when no tag is present.
func LanguageTag(name string) string {
	base := filepath.Base(name)
	idx := strings.Index(base, langMarker)
	if idx < 0 {
		return ""
	}
	rest := strings.TrimSuffix(base[idx+len(langMarker):], filepath.Ext(base))
	if rest == "" {
		return ""
	}
	if dot := strings.IndexByte(rest, '.'); dot >= 0 {
		rest = rest[:dot]
	}
	return rest
}
