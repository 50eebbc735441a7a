package refresh

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"vidshelf/internal/config"
	"vidshelf/internal/services"
)

// HTTPDoer describes the HTTP client used by the refresh trigger.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Trigger asks the media server to rescan its library.
type Trigger interface {
	Refresh(ctx context.Context) error
}

type httpTrigger struct {
	url    string
	apiKey string
	client HTTPDoer
}

// NewConfigured returns an HTTP trigger when a refresh URL is configured and
// a no-op otherwise.
func NewConfigured(cfg *config.Config) Trigger {
	if cfg == nil {
		return noopTrigger{}
	}
	url := strings.TrimSpace(cfg.Refresh.URL)
	if url == "" {
		return noopTrigger{}
	}
	timeout := time.Duration(cfg.Refresh.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return NewHTTP(url, cfg.Refresh.APIKey, &http.Client{Timeout: timeout})
}

// NewHTTP constructs an HTTP-backed trigger.
func NewHTTP(url, apiKey string, client HTTPDoer) Trigger {
	return &httpTrigger{
		url:    strings.TrimSpace(url),
		apiKey: strings.TrimSpace(apiKey),
		client: client,
	}
}

// Enabled reports whether t performs a request.
func Enabled(t Trigger) bool {
	_, noop := t.(noopTrigger)
	return t != nil && !noop
}

func (t *httpTrigger) Refresh(ctx context.Context) error {
	if t == nil || t.client == nil || t.url == "" {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, t.url, nil)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "refresh", "build request", "Invalid refresh URL", err)
	}
	if t.apiKey != "" {
		req.Header.Set("X-Emby-Token", t.apiKey)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "refresh", "request", "Library refresh request failed", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	if resp.StatusCode >= http.StatusMultipleChoices {
		return services.Wrap(services.ErrExternalTool, "refresh", "request",
			fmt.Sprintf("Library refresh returned %d", resp.StatusCode), nil)
	}
	return nil
}

type noopTrigger struct{}

func (noopTrigger) Refresh(context.Context) error { return nil }
