package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// legacyConfig mirrors the flat YAML layout used by the original
// youtube-process script so existing installs can point at their old file.
type legacyConfig struct {
	VideoDirectory        string         `yaml:"video_directory"`
	ChannelsDirectory     string         `yaml:"channels_directory"`
	ProcessedFilesTracker string         `yaml:"processed_files_tracker"`
	YouTubeAPIKey         string         `yaml:"youtube_api_key"`
	AppriseURL            string         `yaml:"apprise_url"`
	DeleteAfter           any            `yaml:"delete_after"`
	KnownChannels         []string       `yaml:"known_channels"`
	ChannelRetention      map[string]int `yaml:"channel_retention"`
	Workers               int            `yaml:"workers"`
}

func loadLegacy(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	var legacy legacyConfig
	if err := yaml.Unmarshal(data, &legacy); err != nil {
		return fmt.Errorf("parse legacy config: %w", err)
	}
	return legacy.apply(cfg)
}

func (l legacyConfig) apply(cfg *Config) error {
	if v := strings.TrimSpace(l.VideoDirectory); v != "" {
		cfg.Paths.VideoDir = v
	}
	if v := strings.TrimSpace(l.ChannelsDirectory); v != "" {
		cfg.Paths.LibraryDir = v
	}
	if v := strings.TrimSpace(l.ProcessedFilesTracker); v != "" {
		cfg.Paths.TrackerPath = v
	}
	if v := strings.TrimSpace(l.YouTubeAPIKey); v != "" {
		cfg.YouTube.APIKey = v
	}
	if v := strings.TrimSpace(l.AppriseURL); v != "" {
		topic, err := ntfyTopicFromApprise(v)
		if err != nil {
			return err
		}
		cfg.Notifications.NtfyTopic = topic
	}
	days, set, err := parseLegacyDays(l.DeleteAfter)
	if err != nil {
		return err
	}
	if set {
		cfg.Retention.DefaultDays = &days
	}
	if len(l.KnownChannels) > 0 {
		cfg.Channels.Known = append([]string(nil), l.KnownChannels...)
	}
	if len(l.ChannelRetention) > 0 {
		cfg.Retention.Channels = make(map[string]int, len(l.ChannelRetention))
		for name, days := range l.ChannelRetention {
			cfg.Retention.Channels[name] = days
		}
	}
	if l.Workers > 0 {
		cfg.Workflow.Workers = l.Workers
	}
	return nil
}

// parseLegacyDays accepts delete_after as an integer or numeric string. An
// empty or missing value means retention is disabled.
func parseLegacyDays(value any) (int, bool, error) {
	switch v := value.(type) {
	case nil:
		return 0, false, nil
	case int:
		return v, v > 0, nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, false, nil
		}
		days, err := strconv.Atoi(trimmed)
		if err != nil {
			return 0, false, fmt.Errorf("delete_after: invalid value %q", v)
		}
		return days, days > 0, nil
	default:
		return 0, false, fmt.Errorf("delete_after: unsupported value %v", v)
	}
}

// ntfyTopicFromApprise converts an Apprise ntfy URL into a plain topic
// endpoint. ntfys:// maps to https and ntfy:// to http; http(s) URLs pass through.
func ntfyTopicFromApprise(raw string) (string, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("apprise_url: %w", err)
	}
	switch strings.ToLower(parsed.Scheme) {
	case "ntfys":
		parsed.Scheme = "https"
	case "ntfy":
		parsed.Scheme = "http"
	case "http", "https":
	default:
		return "", fmt.Errorf("apprise_url: only ntfy targets are supported, got scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("apprise_url: missing host in %q", raw)
	}
	return parsed.String(), nil
}
