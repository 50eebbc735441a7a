package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeYouTube()
	c.normalizeChannels()
	c.normalizeServices()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.VideoDir, err = expandPath(strings.TrimSpace(c.Paths.VideoDir)); err != nil {
		return fmt.Errorf("paths.video_dir: %w", err)
	}
	if c.Paths.LibraryDir, err = expandPath(strings.TrimSpace(c.Paths.LibraryDir)); err != nil {
		return fmt.Errorf("paths.library_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.TrackerPath) == "" {
		c.Paths.TrackerPath = defaultTrackerPath
	}
	if c.Paths.TrackerPath, err = expandPath(c.Paths.TrackerPath); err != nil {
		return fmt.Errorf("paths.tracker_path: %w", err)
	}
	if strings.TrimSpace(c.Paths.CachePath) == "" {
		c.Paths.CachePath = defaultCachePath
	}
	if c.Paths.CachePath, err = expandPath(c.Paths.CachePath); err != nil {
		return fmt.Errorf("paths.cache_path: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Metrics.TextfilePath, err = expandPath(strings.TrimSpace(c.Metrics.TextfilePath)); err != nil {
		return fmt.Errorf("metrics.textfile_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeYouTube() {
	c.YouTube.APIKey = strings.TrimSpace(c.YouTube.APIKey)
	if c.YouTube.APIKey == "" {
		if value, ok := os.LookupEnv("YOUTUBE_API_KEY"); ok {
			c.YouTube.APIKey = strings.TrimSpace(value)
		}
	}
	c.YouTube.BaseURL = strings.TrimSpace(c.YouTube.BaseURL)
	if c.YouTube.BaseURL == "" {
		c.YouTube.BaseURL = defaultYouTubeBaseURL
	}
	if c.YouTube.BatchSize > maxYouTubeBatchSize {
		c.YouTube.BatchSize = maxYouTubeBatchSize
	}
}

func (c *Config) normalizeChannels() {
	c.Channels.DefaultBucket = strings.TrimSpace(c.Channels.DefaultBucket)
	if c.Channels.DefaultBucket == "" {
		c.Channels.DefaultBucket = defaultChannelBucket
	}
	if len(c.Channels.Known) > 0 {
		known := make([]string, 0, len(c.Channels.Known))
		seen := make(map[string]struct{}, len(c.Channels.Known))
		for _, name := range c.Channels.Known {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			if _, exists := seen[name]; exists {
				continue
			}
			seen[name] = struct{}{}
			known = append(known, name)
		}
		c.Channels.Known = known
	}
}

func (c *Config) normalizeServices() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("VIDSHELF_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	c.Refresh.URL = strings.TrimSpace(c.Refresh.URL)
	c.Refresh.APIKey = strings.TrimSpace(c.Refresh.APIKey)
	if c.Refresh.APIKey == "" {
		if value, ok := os.LookupEnv("JELLYFIN_API_KEY"); ok {
			c.Refresh.APIKey = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
