// Package metadata defines the resolved description of a piece of content.
package metadata

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Metadata is the subset of remote video details needed to organize a file.
type Metadata struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Channel     string `json:"channelTitle"`
	PublishedAt string `json:"publishedAt"`
}

// IsZero reports whether no field carries a value.
func (m Metadata) IsZero() bool {
	return m == Metadata{}
}

// Merge returns m with empty fields filled from fallback.
func (m Metadata) Merge(fallback Metadata) Metadata {
	if strings.TrimSpace(m.Title) == "" {
		m.Title = fallback.Title
	}
	if strings.TrimSpace(m.Description) == "" {
		m.Description = fallback.Description
	}
	if strings.TrimSpace(m.Channel) == "" {
		m.Channel = fallback.Channel
	}
	if strings.TrimSpace(m.PublishedAt) == "" {
		m.PublishedAt = fallback.PublishedAt
	}
	return m
}

// PublishedDate returns the calendar date portion of PublishedAt (YYYY-MM-DD).
func (m Metadata) PublishedDate() string {
	value := strings.TrimSpace(m.PublishedAt)
	if len(value) >= 10 {
		return value[:10]
	}
	return value
}

// Encode serializes m in the same shape as a remote snippet.
func Encode(m Metadata) (string, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	return string(data), nil
}

// Decode parses a serialized snippet.
func Decode(raw string) (Metadata, error) {
	var m Metadata
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return Metadata{}, fmt.Errorf("decode metadata: %w", err)
	}
	return m, nil
}
