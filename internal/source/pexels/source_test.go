package pexels

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pizzafeed/importer/internal/models"
)

func TestNormalizePhoto(t *testing.T) {
	photo := &Photo{
		ID:           1824274,
		URL:          "https://www.pexels.com/photo/pizza-on-plate-1824274/",
		Photographer: "Narda Yescas",
		Alt:          "Pizza on brown wooden board",
	}
	photo.Src.Original = "https://images.pexels.com/photos/1824274/original.jpg"
	photo.Src.Medium = "https://images.pexels.com/photos/1824274/medium.jpg"

	record := photo.Normalize()
	require.NotNil(t, record)
	assert.Equal(t, models.ContentTypePhoto, record.Type)
	assert.Equal(t, "Pizza on brown wooden board", record.Title)
	assert.Equal(t, "https://images.pexels.com/photos/1824274/original.jpg", record.URL)
	assert.Equal(t, "https://images.pexels.com/photos/1824274/medium.jpg", record.ThumbnailURL)
	assert.Equal(t, "https://www.pexels.com/photo/pizza-on-plate-1824274/", record.SourceURL)
	assert.Equal(t, "Photo by Narda Yescas on Pexels", record.Description)
	assert.Equal(t, models.ContentStatusApproved, record.Status, "curated stock ships pre-approved")
}

func TestNormalizePhotoFallbacks(t *testing.T) {
	photo := &Photo{}
	assert.Nil(t, photo.Normalize(), "no original rendition means no record")

	photo.Src.Original = "https://images.pexels.com/photos/2/original.jpg"
	record := photo.Normalize()
	require.NotNil(t, record)
	assert.Equal(t, "Pizza photo", record.Title, "empty alt gets the default title")
	assert.Equal(t, photo.Src.Original, record.ThumbnailURL, "missing medium falls back to original")
	assert.Empty(t, record.Description)
}

func TestNormalizeVideoPrefersHD(t *testing.T) {
	video := &Video{
		ID:    857195,
		URL:   "https://www.pexels.com/video/pizza-oven-857195/",
		Image: "https://images.pexels.com/videos/857195/preview.jpg",
	}
	video.User.Name = "Taryn Elliott"
	video.VideoFiles = []struct {
		Link     string `json:"link"`
		Quality  string `json:"quality"`
		FileType string `json:"file_type"`
	}{
		{Link: "https://player.pexels.com/sd.mp4", Quality: "sd", FileType: "video/mp4"},
		{Link: "https://player.pexels.com/hd.mp4", Quality: "hd", FileType: "video/mp4"},
	}

	record := video.Normalize()
	require.NotNil(t, record)
	assert.Equal(t, models.ContentTypeVideo, record.Type)
	assert.Equal(t, "https://player.pexels.com/hd.mp4", record.URL)
	assert.Equal(t, "https://images.pexels.com/videos/857195/preview.jpg", record.ThumbnailURL)
	assert.Equal(t, "Video by Taryn Elliott on Pexels", record.Description)
	assert.Equal(t, models.ContentStatusApproved, record.Status)
}

func TestNormalizeVideoFallsBackToFirstFile(t *testing.T) {
	video := &Video{URL: "https://www.pexels.com/video/1/"}
	assert.Nil(t, video.Normalize(), "no renditions means no record")

	video.VideoFiles = []struct {
		Link     string `json:"link"`
		Quality  string `json:"quality"`
		FileType string `json:"file_type"`
	}{
		{Link: "https://player.pexels.com/sd.mp4", Quality: "sd", FileType: "video/mp4"},
	}
	record := video.Normalize()
	require.NotNil(t, record)
	assert.Equal(t, "https://player.pexels.com/sd.mp4", record.URL)
}
