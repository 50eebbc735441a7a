package youtube_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"vidshelf/internal/services"
	"vidshelf/internal/services/youtube"
)

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := youtube.New("", "https://example.com")
	if err == nil {
		t.Fatal("expected error when api key missing")
	}
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestFetchVideosSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/videos" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("key") != "key" || q.Get("part") != "snippet" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		if q.Get("id") != "a1,b2,c3" {
			t.Errorf("expected comma-joined ids, got %q", q.Get("id"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[
			{"id":"a1","snippet":{"title":"First","description":"d","channelTitle":"Chan","publishedAt":"2024-01-02T03:04:05Z"}},
			{"id":"b2","snippet":{"title":"Second","channelTitle":"Chan"}},
			{"id":"zz","snippet":{"title":"Unrequested"}}
		]}`))
	}))
	t.Cleanup(server.Close)

	client, err := youtube.New("key", server.URL+"/")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	got, err := client.FetchVideos(context.Background(), []string{"a1", "b2", "c3"})
	if err != nil {
		t.Fatalf("FetchVideos returned error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %#v", got)
	}
	if got["a1"].Title != "First" || got["a1"].Channel != "Chan" || got["a1"].PublishedAt != "2024-01-02T03:04:05Z" {
		t.Fatalf("unexpected a1 metadata %#v", got["a1"])
	}
	if _, ok := got["c3"]; ok {
		t.Fatal("absent id should be omitted")
	}
}

func TestFetchVideosMissingItemsIsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(server.Close)

	client, err := youtube.New("key", server.URL)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	got, err := client.FetchVideos(context.Background(), []string{"gone"})
	if err != nil {
		t.Fatalf("FetchVideos returned error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %#v", got)
	}
}

func TestFetchVideosStatusClassification(t *testing.T) {
	tests := []struct {
		status    int
		permanent bool
	}{
		{http.StatusBadRequest, true},
		{http.StatusForbidden, true},
		{http.StatusNotFound, true},
		{http.StatusInternalServerError, false},
		{http.StatusServiceUnavailable, false},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprint(tc.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(`{"error":{"code":1}}`))
			}))
			t.Cleanup(server.Close)

			client, err := youtube.New("key", server.URL)
			if err != nil {
				t.Fatalf("New returned error: %v", err)
			}
			_, err = client.FetchVideos(context.Background(), []string{"a1"})
			if err == nil {
				t.Fatal("expected error for non-200 status")
			}
			if got := youtube.IsPermanent(err); got != tc.permanent {
				t.Fatalf("IsPermanent = %v, want %v (%v)", got, tc.permanent, err)
			}
		})
	}
}

func TestFetchVideosMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items":[`))
	}))
	t.Cleanup(server.Close)

	client, err := youtube.New("key", server.URL)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	_, err = client.FetchVideos(context.Background(), []string{"a1"})
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestFetchVideosRejectsOversizedBatch(t *testing.T) {
	client, err := youtube.New("key", "https://example.com")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ids := strings.Split(strings.Repeat("x,", youtube.MaxBatchSize), ",")
	if _, err := client.FetchVideos(context.Background(), ids); err == nil {
		t.Fatal("expected error for oversized batch")
	}
}

func TestFetchVideosHonorsConfiguredTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(200 * time.Millisecond):
		case <-r.Context().Done():
			return
		}
		_, _ = w.Write([]byte(`{"items":[{"id":"a1","snippet":{"title":"Slow"}}]}`))
	}))
	t.Cleanup(server.Close)

	tests := []struct {
		name    string
		opts    []youtube.Option
		wantErr bool
	}{
		{"longer than the response", []youtube.Option{youtube.WithTimeout(5 * time.Second)}, false},
		{"overrides a shorter client limit", []youtube.Option{
			youtube.WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}),
			youtube.WithTimeout(5 * time.Second),
		}, false},
		{"shorter than the response", []youtube.Option{youtube.WithTimeout(50 * time.Millisecond)}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client, err := youtube.New("key", server.URL, tc.opts...)
			if err != nil {
				t.Fatalf("New returned error: %v", err)
			}
			got, err := client.FetchVideos(context.Background(), []string{"a1"})
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected timeout error")
				}
				return
			}
			if err != nil {
				t.Fatalf("FetchVideos returned error: %v", err)
			}
			if got["a1"].Title != "Slow" {
				t.Fatalf("unexpected result %#v", got)
			}
		})
	}
}
