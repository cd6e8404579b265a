package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := loadFromEmptyDir(t)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "./data/pizzafeed.db", cfg.Database.DSN)

	assert.Equal(t, 10, cfg.Import.HTTPTimeoutSeconds)
	assert.Equal(t, 3, cfg.Import.MaxRetries)
	assert.Equal(t, "pending", cfg.Import.DefaultStatus)
	assert.Equal(t, 60, cfg.Import.StaleRunMinutes)

	assert.True(t, cfg.Sources.Reddit.Enabled)
	assert.Equal(t, []string{"Pizza", "PizzaCrimes"}, cfg.Sources.Reddit.Subreddits)
	assert.Equal(t, "hot", cfg.Sources.Reddit.Sort)
	assert.Equal(t, 1000, cfg.Sources.Reddit.ViralThreshold)

	assert.Equal(t, "pizza", cfg.Sources.Imgur.Query)
	assert.False(t, cfg.Sources.YouTube.Enabled, "quota-billed sources are off by default")
	assert.False(t, cfg.Sources.TikTok.Enabled, "scrape-based sources are off by default")
	assert.Equal(t, 10000, cfg.Sources.TikTok.ViralThreshold)

	assert.Equal(t, "0 */6 * * *", cfg.Scheduler.ImportCron)
	assert.Equal(t, "info", cfg.Logging.Level)
}

// loadFromEmptyDir loads config with no file, picking up only defaults
func loadFromEmptyDir(t *testing.T) (*Config, error) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { os.Chdir(wd) })
	return Load("")
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  dsn: /tmp/test.db
sources:
  reddit:
    subreddits: ["CatsOnPizza"]
    sort: top
    time_range: month
import:
  default_status: approved
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/test.db", cfg.Database.DSN)
	assert.Equal(t, []string{"CatsOnPizza"}, cfg.Sources.Reddit.Subreddits)
	assert.Equal(t, "top", cfg.Sources.Reddit.Sort)
	assert.Equal(t, "month", cfg.Sources.Reddit.TimeRange)
	assert.Equal(t, "approved", cfg.Import.DefaultStatus)
	assert.Equal(t, 50, cfg.Sources.Reddit.Limit, "unset keys keep their defaults")
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("PIZZA_DATABASE_DSN", "/tmp/env.db")
	t.Setenv("PIZZA_REDDIT_CLIENT_ID", "env-client-id")
	t.Setenv("PIZZA_PEXELS_API_KEY", "env-pexels-key")

	cfg, err := loadFromEmptyDir(t)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/env.db", cfg.Database.DSN)
	assert.Equal(t, "env-client-id", cfg.Sources.Reddit.ClientID)
	assert.Equal(t, "env-pexels-key", cfg.Sources.Pexels.APIKey)
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	cfg.Database.DSN = "./data/test.db"
	cfg.Import.DefaultStatus = "pending"
	require.NoError(t, cfg.Validate())

	cfg.Import.DefaultStatus = "approved"
	require.NoError(t, cfg.Validate())

	cfg.Import.DefaultStatus = "featured"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default_status")

	cfg.Import.DefaultStatus = "pending"
	cfg.Database.DSN = ""
	require.Error(t, cfg.Validate())
}

func TestValidateSource(t *testing.T) {
	cfg := &Config{}

	err := cfg.ValidateSource("pexels")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pexels.com/api", "the error names where to register")

	err = cfg.ValidateSource("imgur")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "client_id")

	err = cfg.ValidateSource("youtube")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key")

	err = cfg.ValidateSource("rss")
	require.Error(t, err)

	// Keyless platforms always pass
	assert.NoError(t, cfg.ValidateSource("reddit"))
	assert.NoError(t, cfg.ValidateSource("imgflip"))
	assert.NoError(t, cfg.ValidateSource("9gag"))

	cfg.Sources.Pexels.APIKey = "key"
	assert.NoError(t, cfg.ValidateSource("pexels"))
	cfg.Sources.RSS.Feeds = []RSSFeed{{Name: "Blog", URL: "https://blog.example/feed"}}
	assert.NoError(t, cfg.ValidateSource("rss"))
}
