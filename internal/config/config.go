package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and state file locations.
type Paths struct {
	VideoDir    string `toml:"video_dir"`
	LibraryDir  string `toml:"library_dir"`
	TrackerPath string `toml:"tracker_path"`
	CachePath   string `toml:"cache_path"`
	LogDir      string `toml:"log_dir"`
}

// YouTube contains configuration for the YouTube Data API.
type YouTube struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	BatchSize      int    `toml:"batch_size"`
	RequestTimeout int    `toml:"request_timeout"`
	MaxAttempts    int    `toml:"max_attempts"`
	BackoffBaseMS  int    `toml:"backoff_base_ms"`
	Quota          int    `toml:"quota"`
}

// Cache contains configuration for the metadata cache.
type Cache struct {
	TTLDays int `toml:"ttl_days"`
}

// Channels controls how channel names map onto library directories.
type Channels struct {
	// Known lists canonical channel names. When non-empty, owners that do not
	// match any entry are placed in DefaultBucket.
	Known         []string `toml:"known"`
	DefaultBucket string   `toml:"default_bucket"`
}

// Retention controls age-based removal from the library. Lookup order is
// per-channel window, then DefaultDays, then disabled.
type Retention struct {
	DefaultDays *int           `toml:"default_days"`
	Channels    map[string]int `toml:"channels"`
}

// Workflow contains run coordinator settings.
type Workflow struct {
	Workers int `toml:"workers"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Refresh configures the media server library refresh trigger.
type Refresh struct {
	URL     string `toml:"url"`
	APIKey  string `toml:"api_key"`
	Timeout int    `toml:"timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Metrics configures the optional prometheus textfile export.
type Metrics struct {
	TextfilePath string `toml:"textfile_path"`
}

// Config encapsulates all configuration values for vidshelf.
//
// Configuration sections by subsystem:
//   - Paths: source, library, tracker, cache, and log locations
//   - YouTube: remote metadata API credentials, batching, and retry knobs
//   - Cache: metadata cache time-to-live
//   - Channels: optional canonical channel names and fallback bucket
//   - Retention: global and per-channel deletion windows
//   - Workflow: worker pool size
//   - Notifications: ntfy run summaries
//   - Refresh: library refresh trigger
//   - Logging: log format and level
//   - Metrics: prometheus textfile export
type Config struct {
	Paths         Paths         `toml:"paths"`
	YouTube       YouTube       `toml:"youtube"`
	Cache         Cache         `toml:"cache"`
	Channels      Channels      `toml:"channels"`
	Retention     Retention     `toml:"retention"`
	Workflow      Workflow      `toml:"workflow"`
	Notifications Notifications `toml:"notifications"`
	Refresh       Refresh       `toml:"refresh"`
	Logging       Logging       `toml:"logging"`
	Metrics       Metrics       `toml:"metrics"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/vidshelf/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. Paths ending in .yaml or .yml are read
// using the legacy flat layout.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		if isLegacyPath(resolvedPath) {
			if err := loadLegacy(resolvedPath, &cfg); err != nil {
				return nil, "", false, err
			}
		} else {
			file, err := os.Open(resolvedPath)
			if err != nil {
				return nil, "", false, fmt.Errorf("open config: %w", err)
			}
			defer file.Close()

			decoder := toml.NewDecoder(file)
			if err := decoder.Decode(&cfg); err != nil {
				return nil, "", false, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("vidshelf.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func isLegacyPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}

// EnsureDirectories creates directories the run needs for its own state.
// LibraryDir is created on a best-effort basis so a run can still report
// preflight failures cleanly when external storage is unavailable.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Paths.LogDir,
		filepath.Dir(c.Paths.TrackerPath),
		filepath.Dir(c.Paths.CachePath),
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.LibraryDir) != "" {
		_ = os.MkdirAll(c.Paths.LibraryDir, 0o755)
	}
	return nil
}

// CacheTTL returns the metadata cache time-to-live.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLDays) * 24 * time.Hour
}

// YouTubeRequestTimeout returns the per-attempt timeout for remote lookups.
func (c *Config) YouTubeRequestTimeout() time.Duration {
	return time.Duration(c.YouTube.RequestTimeout) * time.Second
}

// YouTubeBackoffBase returns the initial retry delay for remote lookups.
func (c *Config) YouTubeBackoffBase() time.Duration {
	return time.Duration(c.YouTube.BackoffBaseMS) * time.Millisecond
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}
