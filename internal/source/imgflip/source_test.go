package imgflip

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pizzafeed/importer/internal/models"
)

func TestNormalize(t *testing.T) {
	meme := &Meme{
		ID:   "89370399",
		Name: "Pizza Time Stops",
		URL:  "https://i.imgflip.com/1h7in3.jpg",
	}

	record := meme.Normalize()
	require.NotNil(t, record)
	assert.Equal(t, models.ContentTypeMeme, record.Type)
	assert.Equal(t, "Pizza Time Stops", record.Title)
	assert.Equal(t, "https://i.imgflip.com/1h7in3.jpg", record.URL)
	assert.Equal(t, "https://imgflip.com/memetemplate/89370399", record.SourceURL)
	assert.Equal(t, models.PlatformImgflip, record.Platform)
	assert.Equal(t, models.StringSlice{"pizza", "meme", "template"}, record.Tags)
	assert.False(t, record.IsViral, "imgflip exposes no popularity metric")
}

func TestNormalizeKeywordFilter(t *testing.T) {
	meme := &Meme{
		ID:   "61579",
		Name: "One Does Not Simply",
		URL:  "https://i.imgflip.com/1bij.jpg",
	}
	assert.Nil(t, meme.Normalize(), "templates without a pizza angle are filtered")
}

func TestNormalizeInvalidURL(t *testing.T) {
	meme := &Meme{ID: "1", Name: "Pizza", URL: "not-a-url"}
	assert.Nil(t, meme.Normalize())
}
