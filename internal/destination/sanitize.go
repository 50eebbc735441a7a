package destination

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MaxNameLength is the longest sanitized name, counted in characters.
const MaxNameLength = 255

// MaxNameBytes is the longest sanitized name in UTF-8 bytes, the file name
// limit of common filesystems.
const MaxNameBytes = 255

// MaxSuffixBytes is the room kept after a base name for an optional
// language tag and the extension, as in ".en-US.vtt".
const MaxSuffixBytes = 32

// MaxBaseNameBytes bounds base names so that a collision suffix and a file
// suffix still fit within MaxNameBytes.
const MaxBaseNameBytes = MaxNameBytes - len(" (1000)") - MaxSuffixBytes

const allowedPunctuation = "-_.()[], '\""

// Sanitize returns s in NFC form with every character outside letters,
// digits, and the allowed punctuation replaced by an underscore, truncated
// to MaxNameLength characters and MaxNameBytes bytes.
func Sanitize(s string) string {
	s = norm.NFC.String(s)
	var b strings.Builder
	b.Grow(len(s))
	count := 0
	for _, r := range s {
		if count == MaxNameLength {
			break
		}
		if !Allowed(r) {
			r = '_'
		}
		if b.Len()+utf8.RuneLen(r) > MaxNameBytes {
			break
		}
		b.WriteRune(r)
		count++
	}
	return b.String()
}

// TruncateBytes shortens s to at most n bytes without splitting a rune.
func TruncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := 0
	for cut < len(s) {
		_, size := utf8.DecodeRuneInString(s[cut:])
		if cut+size > n {
			break
		}
		cut += size
	}
	return s[:cut]
}

// Allowed reports whether r survives sanitization unchanged.
func Allowed(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune(allowedPunctuation, r)
}

var episodeTitlePattern = regexp.MustCompile(`^(.+?)-([^-]+)-([Ss]\d+(?:[Ee]\d+)?)$`)

// FormatTitle rewrites "<title>-<channel>-<episode>" as
// "<title> - <channel> (<episode>)" when the final segment is a season code
// such as S1 or S02E05. Any other title is returned unchanged.
func FormatTitle(title string) string {
	m := episodeTitlePattern.FindStringSubmatch(strings.TrimSpace(title))
	if m == nil {
		return title
	}
	name := strings.TrimSpace(m[1])
	channel := strings.TrimSpace(m[2])
	if name == "" || channel == "" {
		return title
	}
	return name + " - " + channel + " (" + m[3] + ")"
}
