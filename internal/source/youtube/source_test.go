package youtube

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pizzafeed/importer/internal/config"
	"github.com/pizzafeed/importer/internal/models"
	"github.com/pizzafeed/importer/internal/source"
	"github.com/pizzafeed/importer/pkg/logger"
	"github.com/pizzafeed/importer/pkg/ratelimit"
)

func TestNewCarriesFetchTimeout(t *testing.T) {
	client := source.NewClient(ratelimit.NewMultiLimiter(), 10*time.Second, 0, time.Millisecond)
	cfg := config.YouTubeConfig{APIKey: "test-key", Query: "pizza"}

	src, err := New(context.Background(), cfg, client, logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, "youtube/pizza", src.Name())
	assert.Equal(t, models.PlatformYouTube, src.Platform())
}

func baseVideo() *Video {
	return &Video{
		ID:           "dQw4w9WgXcQ",
		Title:        "Making pizza dough from scratch",
		Description:  "Full neapolitan dough walkthrough.",
		ChannelTitle: "Dough Channel",
		ThumbnailURL: "https://i.ytimg.com/vi/dQw4w9WgXcQ/hqdefault.jpg",
		CategoryID:   "26",
		Tags:         []string{"Pizza", "Dough"},
		ViewCount:    50000,
	}
}

func TestNormalize(t *testing.T) {
	record := baseVideo().Normalize()
	require.NotNil(t, record)

	assert.Equal(t, models.ContentTypeVideo, record.Type)
	assert.Equal(t, "Making pizza dough from scratch", record.Title)
	assert.Equal(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", record.URL)
	assert.Equal(t, record.URL, record.SourceURL, "watch page doubles as the source link")
	assert.Equal(t, "https://i.ytimg.com/vi/dQw4w9WgXcQ/hqdefault.jpg", record.ThumbnailURL)
	assert.Equal(t, models.PlatformYouTube, record.Platform)
	assert.Equal(t, models.StringSlice{"pizza", "dough"}, record.Tags)
	assert.False(t, record.IsViral)
}

func TestNormalizeMusicCategory(t *testing.T) {
	video := baseVideo()
	video.CategoryID = musicCategoryID
	record := video.Normalize()
	require.NotNil(t, record)
	assert.Equal(t, models.ContentTypeMusic, record.Type)
}

func TestNormalizeKeywordFilter(t *testing.T) {
	video := baseVideo()
	video.Title = "My vlog"
	video.Description = "Just a day in the life"
	video.Tags = nil
	assert.Nil(t, video.Normalize(), "loose search results are filtered on keywords")

	// A matching tag is enough
	video.Tags = []string{"pizza review"}
	assert.NotNil(t, video.Normalize())
}

func TestNormalizeSkipsEmptyID(t *testing.T) {
	video := baseVideo()
	video.ID = ""
	assert.Nil(t, video.Normalize())
}

func TestNormalizeViralThreshold(t *testing.T) {
	video := baseVideo()
	video.ViralThreshold = 100000
	record := video.Normalize()
	require.NotNil(t, record)
	assert.False(t, record.IsViral)

	video.ViewCount = 250000
	record = video.Normalize()
	require.NotNil(t, record)
	assert.True(t, record.IsViral)
}

func TestNormalizeThumbnailFallback(t *testing.T) {
	video := baseVideo()
	video.ThumbnailURL = ""
	record := video.Normalize()
	require.NotNil(t, record)
	assert.Equal(t, record.URL, record.ThumbnailURL)
}
