package workflow_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"vidshelf/internal/config"
	"vidshelf/internal/report"
	"vidshelf/internal/services/youtube"
	"vidshelf/internal/testsupport"
	"vidshelf/internal/workflow"
)

type snippet struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	ChannelTitle string `json:"channelTitle"`
	PublishedAt  string `json:"publishedAt"`
}

// fakeAPI serves /videos from a fixed catalogue and counts requests.
type fakeAPI struct {
	server  *httptest.Server
	calls   atomic.Int32
	catalog map[string]snippet
}

func newFakeAPI(t *testing.T, catalog map[string]snippet) *fakeAPI {
	t.Helper()
	api := &fakeAPI{catalog: catalog}
	api.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.calls.Add(1)
		type item struct {
			ID      string  `json:"id"`
			Snippet snippet `json:"snippet"`
		}
		var items []item
		for _, id := range strings.Split(r.URL.Query().Get("id"), ",") {
			if s, ok := api.catalog[id]; ok {
				items = append(items, item{ID: id, Snippet: s})
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"items": items})
	}))
	t.Cleanup(api.server.Close)
	return api
}

type recordingNotifier struct {
	mu        sync.Mutex
	summaries []report.Summary
	errors    []string
}

func (n *recordingNotifier) NotifyRunSummary(_ context.Context, s report.Summary) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.summaries = append(n.summaries, s)
	return nil
}

func (n *recordingNotifier) NotifyError(_ context.Context, _ error, label string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, label)
	return nil
}

func (n *recordingNotifier) TestNotification(context.Context) error { return nil }

type countingRefresher struct{ calls atomic.Int32 }

func (r *countingRefresher) Refresh(context.Context) error {
	r.calls.Add(1)
	return nil
}

type harness struct {
	cfg       *config.Config
	api       *fakeAPI
	notifier  *recordingNotifier
	refresher *countingRefresher
	coord     *workflow.Coordinator
}

func newHarness(t *testing.T, catalog map[string]snippet, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	api := newFakeAPI(t, catalog)
	opts = append([]testsupport.ConfigOption{testsupport.WithYouTube(api.server.URL)}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	cache := testsupport.MustOpenCache(t, cfg)
	client, err := youtube.New(cfg.YouTube.APIKey, cfg.YouTube.BaseURL)
	if err != nil {
		t.Fatalf("youtube.New: %v", err)
	}
	h := &harness{
		cfg:       cfg,
		api:       api,
		notifier:  &recordingNotifier{},
		refresher: &countingRefresher{},
	}
	h.coord = workflow.New(cfg, cache, client, nil,
		workflow.WithNotifier(h.notifier),
		workflow.WithRefresher(h.refresher),
	)
	return h
}
