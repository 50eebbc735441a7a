package destination_test

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"vidshelf/internal/destination"
	"vidshelf/internal/metadata"
)

func TestMapperResolve(t *testing.T) {
	root := "/library"
	mapper := destination.NewMapper(root, destination.Mapping{})

	info := mapper.Resolve(metadata.Metadata{Title: "Ep Title-Chan-S1", Channel: "Chan"})
	if info.Channel != "Chan" || info.Dir != filepath.Join(root, "Chan") {
		t.Fatalf("unexpected channel dir %#v", info)
	}
	if info.BaseName != "Ep Title - Chan (S1)" {
		t.Fatalf("BaseName = %q", info.BaseName)
	}
}

func TestMapperResolveBoundsBaseNameBytes(t *testing.T) {
	mapper := destination.NewMapper("/library", destination.Mapping{})
	info := mapper.Resolve(metadata.Metadata{Title: strings.Repeat("日", 100), Channel: strings.Repeat("字", 100)})
	if len(info.BaseName) > destination.MaxBaseNameBytes {
		t.Fatalf("BaseName is %d bytes, limit %d", len(info.BaseName), destination.MaxBaseNameBytes)
	}
	if info.BaseName != strings.Repeat("日", destination.MaxBaseNameBytes/3) {
		t.Fatalf("BaseName = %q", info.BaseName)
	}
	if len(info.Channel) > destination.MaxNameBytes {
		t.Fatalf("Channel is %d bytes, limit %d", len(info.Channel), destination.MaxNameBytes)
	}
}

func TestMapperChannelEdgeCases(t *testing.T) {
	mapper := destination.NewMapper("/library", destination.Mapping{})
	tests := []struct {
		channel string
		want    string
	}{
		{"", destination.DefaultBucket},
		{"   ", destination.DefaultBucket},
		{"..", "__"},
		{".", "_"},
		{"AC/DC", "AC_DC"},
	}
	for _, tc := range tests {
		if got := mapper.Resolve(metadata.Metadata{Title: "t", Channel: tc.channel}).Channel; got != tc.want {
			t.Errorf("channel %q -> %q, want %q", tc.channel, got, tc.want)
		}
	}
}

func TestMapperAliasing(t *testing.T) {
	mapper := destination.NewMapper("/library", destination.Mapping{
		Known:         []string{"Linus Tech Tips", "AC/DC Live"},
		DefaultBucket: "Misc",
	})
	tests := []struct {
		channel string
		want    string
	}{
		{"Linus Tech Tips", "Linus Tech Tips"},
		{"linus tech TIPS", "Linus Tech Tips"},
		{"AC/DC Live", "AC_DC Live"},
		{"ac:dc live", "AC_DC Live"},
		{"Unknown Channel", "Misc"},
		{"", "Misc"},
	}
	for _, tc := range tests {
		if got := mapper.Resolve(metadata.Metadata{Title: "t", Channel: tc.channel}).Channel; got != tc.want {
			t.Errorf("channel %q -> %q, want %q", tc.channel, got, tc.want)
		}
	}
}

func TestResolverPrepareIsIdempotent(t *testing.T) {
	root := t.TempDir()
	resolver := destination.NewResolver(destination.NewMapper(root, destination.Mapping{}), nil)
	meta := metadata.Metadata{Title: "Video", Channel: "Chan"}

	if err := os.MkdirAll(filepath.Join(root, "Chan"), 0o755); err != nil {
		t.Fatalf("seed dir: %v", err)
	}
	first, err := resolver.Prepare("abc", meta)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	second, err := resolver.Prepare("abc", metadata.Metadata{Title: "Changed", Channel: "Other"})
	if err != nil {
		t.Fatalf("Prepare again: %v", err)
	}
	if first != second {
		t.Fatalf("memoized destination changed: %#v vs %#v", first, second)
	}
	if info, err := os.Stat(first.Dir); err != nil || !info.IsDir() {
		t.Fatalf("expected directory %s: %v", first.Dir, err)
	}
}

func TestResolverConcurrentPrepare(t *testing.T) {
	root := t.TempDir()
	resolver := destination.NewResolver(destination.NewMapper(root, destination.Mapping{}), nil)
	ids := []string{"a", "b", "c", "d"}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			info, err := resolver.Prepare(id, metadata.Metadata{Title: "Title " + id, Channel: "Chan"})
			if err != nil || info.BaseName != "Title "+id {
				t.Errorf("Prepare(%s) = %#v, %v", id, info, err)
			}
		}(ids[i%len(ids)])
	}
	wg.Wait()

	for _, id := range ids {
		info, err := resolver.Prepare(id, metadata.Metadata{Title: "changed", Channel: "Other"})
		if err != nil || info.BaseName != "Title "+id {
			t.Fatalf("memoized destination for %s changed: %#v, %v", id, info, err)
		}
	}
}

func TestResolverPrepareFailsWhenPathIsFile(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "Chan"), []byte("x"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	resolver := destination.NewResolver(destination.NewMapper(root, destination.Mapping{}), nil)
	if _, err := resolver.Prepare("abc", metadata.Metadata{Title: "t", Channel: "Chan"}); err == nil {
		t.Fatal("expected error when destination is a file")
	}
}
