package config

const (
	defaultLogDir                = "~/.local/share/vidshelf/logs"
	defaultTrackerPath           = "~/.local/share/vidshelf/processed_files.txt"
	defaultCachePath             = "~/.cache/vidshelf/metadata.db"
	defaultYouTubeBaseURL        = "https://www.googleapis.com/youtube/v3"
	defaultYouTubeBatchSize      = 50
	defaultYouTubeRequestTimeout = 10
	defaultYouTubeMaxAttempts    = 3
	defaultYouTubeBackoffBaseMS  = 1000
	defaultYouTubeQuota          = 1000
	defaultCacheTTLDays          = 30
	defaultChannelBucket         = "Other"
	defaultWorkers               = 4
	defaultNotifyRequestTimeout  = 10
	defaultRefreshTimeout        = 10
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"

	// maxYouTubeBatchSize is the hard API limit on ids per videos.list call.
	maxYouTubeBatchSize = 50
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:      defaultLogDir,
			TrackerPath: defaultTrackerPath,
			CachePath:   defaultCachePath,
		},
		YouTube: YouTube{
			BaseURL:        defaultYouTubeBaseURL,
			BatchSize:      defaultYouTubeBatchSize,
			RequestTimeout: defaultYouTubeRequestTimeout,
			MaxAttempts:    defaultYouTubeMaxAttempts,
			BackoffBaseMS:  defaultYouTubeBackoffBaseMS,
			Quota:          defaultYouTubeQuota,
		},
		Cache: Cache{
			TTLDays: defaultCacheTTLDays,
		},
		Channels: Channels{
			DefaultBucket: defaultChannelBucket,
		},
		Workflow: Workflow{
			Workers: defaultWorkers,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
		},
		Refresh: Refresh{
			Timeout: defaultRefreshTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
