package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"vidshelf/internal/metadata"
	"vidshelf/internal/services"
)

// MaxBatchSize is the API limit on identifiers per videos.list call.
const MaxBatchSize = 50

// DefaultTimeout bounds a request when no timeout is configured.
const DefaultTimeout = 10 * time.Second

// Fetcher describes the remote lookup used by the resolver.
type Fetcher interface {
	FetchVideos(ctx context.Context, ids []string) (map[string]metadata.Metadata, error)
}

// Client provides access to the YouTube Data API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

var _ Fetcher = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the overall limit for one request, including reading the
// response body. It applies on top of any client passed to WithHTTPClient.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// New creates a YouTube client.
func New(apiKey, baseURL string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "youtube", "init", "api key required", nil)
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, "youtube", "init", "base url required", nil)
	}
	client := &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.timeout > 0 {
		httpClient := *client.httpClient
		httpClient.Timeout = client.timeout
		client.httpClient = &httpClient
	}
	return client, nil
}

type videoListResponse struct {
	Items []videoItem `json:"items"`
}

type videoItem struct {
	ID      string            `json:"id"`
	Snippet metadata.Metadata `json:"snippet"`
}

// StatusError reports a non-200 response from the API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("youtube api returned %d", e.Code)
	}
	return fmt.Sprintf("youtube api returned %d: %s", e.Code, e.Body)
}

// Permanent reports whether retrying the same request cannot succeed.
func (e *StatusError) Permanent() bool {
	switch e.Code {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return true
	default:
		return false
	}
}

// IsPermanent reports whether err carries a permanent API status.
func IsPermanent(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.Permanent()
}

// FetchVideos resolves ids through a single videos.list call. Ids absent from
// the response are omitted from the result.
func (c *Client) FetchVideos(ctx context.Context, ids []string) (map[string]metadata.Metadata, error) {
	if len(ids) == 0 {
		return map[string]metadata.Metadata{}, nil
	}
	if len(ids) > MaxBatchSize {
		return nil, services.Wrap(services.ErrValidation, "youtube", "fetch",
			fmt.Sprintf("batch of %d exceeds limit of %d", len(ids), MaxBatchSize), nil)
	}
	endpoint, err := url.Parse(c.baseURL + "/videos")
	if err != nil {
		return nil, fmt.Errorf("parse youtube url: %w", err)
	}
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("id", strings.Join(ids, ","))
	params.Set("key", c.apiKey)
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "youtube", "fetch",
			fmt.Sprintf("execute request (latency=%v)", latency), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, services.Wrap(services.ErrExternalTool, "youtube", "fetch", "",
			&StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))})
	}

	var payload videoListResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, services.Wrap(services.ErrTransient, "youtube", "fetch", "decode response", err)
	}

	requested := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		requested[id] = struct{}{}
	}
	out := make(map[string]metadata.Metadata, len(payload.Items))
	for _, item := range payload.Items {
		if _, ok := requested[item.ID]; !ok {
			continue
		}
		out[item.ID] = item.Snippet
	}
	return out, nil
}
