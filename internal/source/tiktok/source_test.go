package tiktok

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pizzafeed/importer/internal/models"
)

const tagPageFixture = `<!DOCTYPE html>
<html>
<head><title>#pizza | TikTok</title></head>
<body>
<div id="app"></div>
<script id="SIGI_STATE" type="application/json">{
	"ItemModule": {
		"7234567890123456789": {
			"id": "7234567890123456789",
			"desc": "Neapolitan pizza at home #pizza #homemade",
			"author": "dough_daddy",
			"video": {
				"playAddr": "https://v16-webapp.tiktok.com/video1.mp4",
				"cover": "https://p16-sign.tiktokcdn.com/cover1.jpg"
			},
			"stats": {"diggCount": 25000, "playCount": 400000}
		},
		"7100000000000000001": {
			"id": "7100000000000000001",
			"desc": "POV: last slice #pizza",
			"author": "sliceguy",
			"video": {
				"playAddr": "https://v16-webapp.tiktok.com/video2.mp4",
				"cover": ""
			},
			"stats": {"diggCount": 120, "playCount": 900}
		}
	}
}</script>
</body>
</html>`

func TestParsePage(t *testing.T) {
	videos, err := ParsePage([]byte(tagPageFixture))
	require.NoError(t, err)
	require.Len(t, videos, 2)

	// Sorted by ID for reproducible order
	assert.Equal(t, "7100000000000000001", videos[0].ID)
	assert.Equal(t, "7234567890123456789", videos[1].ID)
	assert.Equal(t, "dough_daddy", videos[1].Author)
	assert.Equal(t, "https://v16-webapp.tiktok.com/video1.mp4", videos[1].Video.PlayAddr)
	assert.Equal(t, 25000, videos[1].Stats.DiggCount)
}

func TestParsePageMissingState(t *testing.T) {
	_, err := ParsePage([]byte(`<html><body><p>nothing here</p></body></html>`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SIGI_STATE")
}

func TestParsePageMalformedState(t *testing.T) {
	page := `<html><body><script id="SIGI_STATE">{not json</script></body></html>`
	_, err := ParsePage([]byte(page))
	require.Error(t, err)
}

func TestNormalize(t *testing.T) {
	videos, err := ParsePage([]byte(tagPageFixture))
	require.NoError(t, err)

	v := videos[1]
	v.ViralThreshold = 10000

	record := v.Normalize()
	require.NotNil(t, record)
	assert.Equal(t, models.ContentTypeVideo, record.Type)
	assert.Equal(t, "Neapolitan pizza at home #pizza #homemade", record.Title)
	assert.Equal(t, "https://v16-webapp.tiktok.com/video1.mp4", record.URL)
	assert.Equal(t, "https://p16-sign.tiktokcdn.com/cover1.jpg", record.ThumbnailURL)
	assert.Equal(t, "https://www.tiktok.com/@dough_daddy/video/7234567890123456789", record.SourceURL)
	assert.Equal(t, models.PlatformTikTok, record.Platform)
	assert.Equal(t, models.StringSlice{"pizza", "homemade"}, record.Tags)
	assert.True(t, record.IsViral, "25k likes clears a 10k threshold")
}

func TestNormalizeCoverFallback(t *testing.T) {
	videos, err := ParsePage([]byte(tagPageFixture))
	require.NoError(t, err)

	v := videos[0]
	record := v.Normalize()
	require.NotNil(t, record)
	assert.Equal(t, record.URL, record.ThumbnailURL, "missing cover falls back to the play address")
	assert.False(t, record.IsViral)
}

func TestNormalizeKeywordFilter(t *testing.T) {
	v := Video{ID: "1", Desc: "dance challenge", Author: "someone"}
	v.Video.PlayAddr = "https://v16-webapp.tiktok.com/video3.mp4"
	assert.Nil(t, v.Normalize())

	v.TopicScoped = true
	assert.NotNil(t, v.Normalize(), "topic-scoped tags skip the keyword filter")
}

func TestExtractHashtags(t *testing.T) {
	tags := extractHashtags("cheese pull #Pizza #FoodTok not#atag #")
	assert.Equal(t, []string{"pizza", "foodtok"}, tags)
}
