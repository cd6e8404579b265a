package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Sources   SourcesConfig   `mapstructure:"sources"`
	Import    ImportConfig    `mapstructure:"import"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // sqlite
	DSN    string `mapstructure:"dsn"`    // Connection string
}

// ImportConfig holds pipeline-wide import settings. These are the named
// defaults previously duplicated across every import script.
type ImportConfig struct {
	HTTPTimeoutSeconds int    `mapstructure:"http_timeout_seconds"`
	MaxRetries         int    `mapstructure:"max_retries"`
	RetryBaseDelayMS   int    `mapstructure:"retry_base_delay_ms"`
	SourcePauseSeconds int    `mapstructure:"source_pause_seconds"` // pause between sources in multi-source runs
	StaleRunMinutes    int    `mapstructure:"stale_run_minutes"`    // running logs older than this are taken over
	DefaultStatus      string `mapstructure:"default_status"`       // pending or approved, by source trust
}

// SourcesConfig holds all platform source configurations
type SourcesConfig struct {
	Reddit  RedditConfig  `mapstructure:"reddit"`
	Imgur   ImgurConfig   `mapstructure:"imgur"`
	Pexels  PexelsConfig  `mapstructure:"pexels"`
	Imgflip ImgflipConfig `mapstructure:"imgflip"`
	YouTube YouTubeConfig `mapstructure:"youtube"`
	NineGag NineGagConfig `mapstructure:"ninegag"`
	TikTok  TikTokConfig  `mapstructure:"tiktok"`
	RSS     RSSConfig     `mapstructure:"rss"`
}

// RedditConfig holds Reddit listing API settings. ClientID/ClientSecret are
// optional: with them requests go through the OAuth endpoint, without them
// through the public JSON listings.
type RedditConfig struct {
	Enabled           bool     `mapstructure:"enabled"`
	ClientID          string   `mapstructure:"client_id"`
	ClientSecret      string   `mapstructure:"client_secret"`
	UserAgent         string   `mapstructure:"user_agent"`
	Subreddits        []string `mapstructure:"subreddits"`
	Limit             int      `mapstructure:"limit"`
	Sort              string   `mapstructure:"sort"`       // hot, new, top, rising
	TimeRange         string   `mapstructure:"time_range"` // hour, day, week, month, year, all
	RequestsPerMinute int      `mapstructure:"requests_per_minute"`
	ViralThreshold    int      `mapstructure:"viral_threshold"` // upvotes
}

// ImgurConfig holds Imgur gallery search settings
type ImgurConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	ClientID          string `mapstructure:"client_id"`
	Query             string `mapstructure:"query"`
	Limit             int    `mapstructure:"limit"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute"`
	ViralThreshold    int    `mapstructure:"viral_threshold"` // points
}

// PexelsConfig holds Pexels photo/video search settings
type PexelsConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	APIKey            string `mapstructure:"api_key"`
	Query             string `mapstructure:"query"`
	PerPage           int    `mapstructure:"per_page"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute"`
}

// ImgflipConfig holds Imgflip settings (public API, no key)
type ImgflipConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	Limit             int  `mapstructure:"limit"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
}

// YouTubeConfig holds YouTube Data API settings
type YouTubeConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	APIKey            string `mapstructure:"api_key"`
	Query             string `mapstructure:"query"`
	MaxResults        int    `mapstructure:"max_results"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute"`
	ViralThreshold    int    `mapstructure:"viral_threshold"` // views
}

// NineGagConfig holds 9GAG scrape settings (no public API)
type NineGagConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	Tag               string `mapstructure:"tag"`
	Limit             int    `mapstructure:"limit"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute"`
}

// TikTokConfig holds TikTok scrape settings (no public API)
type TikTokConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	Tag               string `mapstructure:"tag"`
	Limit             int    `mapstructure:"limit"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute"`
	ViralThreshold    int    `mapstructure:"viral_threshold"` // likes
}

// RSSConfig holds RSS feed settings
type RSSConfig struct {
	Enabled           bool      `mapstructure:"enabled"`
	Feeds             []RSSFeed `mapstructure:"feeds"`
	RequestsPerMinute int       `mapstructure:"requests_per_minute"`
}

// RSSFeed represents a single RSS feed
type RSSFeed struct {
	Name string `mapstructure:"name"`
	URL  string `mapstructure:"url"`
}

// SchedulerConfig holds scheduler settings
type SchedulerConfig struct {
	ImportCron string `mapstructure:"import_cron"`
	HealthPort string `mapstructure:"health_port"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json or console
	Output string `mapstructure:"output"` // stdout or file path
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	// Load .env file if present (ignore errors if not found)
	_ = godotenv.Load()
	_ = godotenv.Load(".env.local")

	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config in current directory and configs folder
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")

		// Also check user's home directory
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".pizza-importer"))
		}
	}

	// Environment variables
	v.SetEnvPrefix("PIZZA")
	v.AutomaticEnv()

	// Explicit bindings for nested keys (Viper doesn't auto-bind underscored nested keys)
	v.BindEnv("database.driver", "PIZZA_DATABASE_DRIVER")
	v.BindEnv("database.dsn", "PIZZA_DATABASE_DSN")
	v.BindEnv("sources.reddit.client_id", "PIZZA_REDDIT_CLIENT_ID")
	v.BindEnv("sources.reddit.client_secret", "PIZZA_REDDIT_CLIENT_SECRET")
	v.BindEnv("sources.imgur.client_id", "PIZZA_IMGUR_CLIENT_ID")
	v.BindEnv("sources.pexels.api_key", "PIZZA_PEXELS_API_KEY")
	v.BindEnv("sources.youtube.api_key", "PIZZA_YOUTUBE_API_KEY")
	v.BindEnv("logging.level", "PIZZA_LOG_LEVEL")

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./data/pizzafeed.db")

	// Import defaults
	v.SetDefault("import.http_timeout_seconds", 10)
	v.SetDefault("import.max_retries", 3)
	v.SetDefault("import.retry_base_delay_ms", 1000)
	v.SetDefault("import.source_pause_seconds", 2)
	v.SetDefault("import.stale_run_minutes", 60)
	v.SetDefault("import.default_status", "pending")

	// Reddit defaults
	v.SetDefault("sources.reddit.enabled", true)
	v.SetDefault("sources.reddit.user_agent", "pizzafeed-importer/1.0")
	v.SetDefault("sources.reddit.subreddits", []string{"Pizza", "PizzaCrimes"})
	v.SetDefault("sources.reddit.limit", 50)
	v.SetDefault("sources.reddit.sort", "hot")
	v.SetDefault("sources.reddit.time_range", "week")
	v.SetDefault("sources.reddit.requests_per_minute", 60)
	v.SetDefault("sources.reddit.viral_threshold", 1000)

	// Imgur defaults
	v.SetDefault("sources.imgur.enabled", true)
	v.SetDefault("sources.imgur.query", "pizza")
	v.SetDefault("sources.imgur.limit", 50)
	v.SetDefault("sources.imgur.requests_per_minute", 30)
	v.SetDefault("sources.imgur.viral_threshold", 1000)

	// Pexels defaults
	v.SetDefault("sources.pexels.enabled", true)
	v.SetDefault("sources.pexels.query", "pizza")
	v.SetDefault("sources.pexels.per_page", 40)
	v.SetDefault("sources.pexels.requests_per_minute", 120)

	// Imgflip defaults
	v.SetDefault("sources.imgflip.enabled", true)
	v.SetDefault("sources.imgflip.limit", 100)
	v.SetDefault("sources.imgflip.requests_per_minute", 30)

	// YouTube defaults
	v.SetDefault("sources.youtube.enabled", false)
	v.SetDefault("sources.youtube.query", "pizza")
	v.SetDefault("sources.youtube.max_results", 25)
	v.SetDefault("sources.youtube.requests_per_minute", 60)
	v.SetDefault("sources.youtube.viral_threshold", 100000)

	// 9GAG defaults
	v.SetDefault("sources.ninegag.enabled", false)
	v.SetDefault("sources.ninegag.tag", "pizza")
	v.SetDefault("sources.ninegag.limit", 30)
	v.SetDefault("sources.ninegag.requests_per_minute", 10)

	// TikTok defaults
	v.SetDefault("sources.tiktok.enabled", false)
	v.SetDefault("sources.tiktok.tag", "pizza")
	v.SetDefault("sources.tiktok.limit", 30)
	v.SetDefault("sources.tiktok.requests_per_minute", 10)
	v.SetDefault("sources.tiktok.viral_threshold", 10000)

	// RSS defaults
	v.SetDefault("sources.rss.enabled", false)
	v.SetDefault("sources.rss.requests_per_minute", 60)

	// Scheduler defaults
	v.SetDefault("scheduler.import_cron", "0 */6 * * *") // Every 6 hours
	v.SetDefault("scheduler.health_port", "10000")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stdout")
}

// Validate validates settings every invocation needs
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	switch c.Import.DefaultStatus {
	case "pending", "approved":
	default:
		return fmt.Errorf("import.default_status must be pending or approved, got %q", c.Import.DefaultStatus)
	}
	return nil
}

// ValidateSource checks the credentials a specific platform needs, failing
// with a message that names where to register for the missing key.
func (c *Config) ValidateSource(platform string) error {
	switch platform {
	case "pexels":
		if c.Sources.Pexels.APIKey == "" {
			return fmt.Errorf("sources.pexels.api_key is required (register at https://www.pexels.com/api/)")
		}
	case "imgur":
		if c.Sources.Imgur.ClientID == "" {
			return fmt.Errorf("sources.imgur.client_id is required (register at https://api.imgur.com/oauth2/addclient)")
		}
	case "youtube":
		if c.Sources.YouTube.APIKey == "" {
			return fmt.Errorf("sources.youtube.api_key is required (enable the YouTube Data API at https://console.cloud.google.com/apis)")
		}
	case "rss":
		if len(c.Sources.RSS.Feeds) == 0 {
			return fmt.Errorf("sources.rss.feeds must list at least one feed")
		}
	}
	return nil
}
