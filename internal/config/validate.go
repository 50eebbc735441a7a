package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateYouTube(); err != nil {
		return err
	}
	if err := c.validateRetention(); err != nil {
		return err
	}
	return ensurePositiveMap(map[string]int{
		"cache.ttl_days":                c.Cache.TTLDays,
		"workflow.workers":              c.Workflow.Workers,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
		"refresh.timeout":               c.Refresh.Timeout,
	})
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.VideoDir) == "" {
		return errors.New("paths.video_dir is required")
	}
	if strings.TrimSpace(c.Paths.LibraryDir) == "" {
		return errors.New("paths.library_dir is required")
	}
	if c.Paths.VideoDir == c.Paths.LibraryDir {
		return errors.New("paths.video_dir and paths.library_dir must differ")
	}
	return nil
}

func (c *Config) validateYouTube() error {
	if c.YouTube.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/vidshelf/config.toml"
		}
		return fmt.Errorf("youtube.api_key is required. Set YOUTUBE_API_KEY env var or edit %s (create with 'vidshelf config init')", defaultPath)
	}
	if c.YouTube.Quota < 0 {
		return errors.New("youtube.quota must be >= 0")
	}
	return ensurePositiveMap(map[string]int{
		"youtube.batch_size":      c.YouTube.BatchSize,
		"youtube.request_timeout": c.YouTube.RequestTimeout,
		"youtube.max_attempts":    c.YouTube.MaxAttempts,
		"youtube.backoff_base_ms": c.YouTube.BackoffBaseMS,
	})
}

func (c *Config) validateRetention() error {
	if c.Retention.DefaultDays != nil && *c.Retention.DefaultDays <= 0 {
		return errors.New("retention.default_days must be positive when set (omit it to disable deletion)")
	}
	for name, days := range c.Retention.Channels {
		if days <= 0 {
			return fmt.Errorf("retention.channels.%q must be positive", name)
		}
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
