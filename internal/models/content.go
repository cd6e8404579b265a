package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// ContentType classifies a piece of media. The set is closed: normalizers
// always emit one of these, never free text.
type ContentType string

const (
	ContentTypeGif   ContentType = "gif"
	ContentTypeMeme  ContentType = "meme"
	ContentTypeVideo ContentType = "video"
	ContentTypeMusic ContentType = "music"
	ContentTypePhoto ContentType = "photo"
	ContentTypeArt   ContentType = "art"
	ContentTypeGame  ContentType = "game"
)

// ContentStatus represents the moderation lifecycle of a record. This
// pipeline only ever creates records as pending or approved; the later
// transitions happen in moderation flows outside this codebase.
type ContentStatus string

const (
	ContentStatusPending       ContentStatus = "pending"
	ContentStatusApproved      ContentStatus = "approved"
	ContentStatusFeatured      ContentStatus = "featured"
	ContentStatusFlaggedBroken ContentStatus = "flagged_broken"
	ContentStatusFlaggedOffTopic ContentStatus = "flagged_not_pizza"
)

// Platform identifies which source adapter produced a record.
type Platform string

const (
	PlatformReddit  Platform = "reddit"
	PlatformImgur   Platform = "imgur"
	PlatformPexels  Platform = "pexels"
	PlatformImgflip Platform = "imgflip"
	PlatformYouTube Platform = "youtube"
	PlatformNineGag Platform = "9gag"
	PlatformTikTok  Platform = "tiktok"
	PlatformRSS     Platform = "rss"
)

// Length caps applied by normalizers before a record is ever constructed.
const (
	MaxTitleLen       = 200
	MaxDescriptionLen = 500
	MaxTags           = 10
)

// StringSlice is a custom type for storing string arrays as JSON
type StringSlice []string

func (s StringSlice) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	}
	return nil
}

// JSON is a custom type for storing arbitrary JSON data
type JSON map[string]interface{}

func (j JSON) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	}
	return nil
}

// Content is the canonical record every source adapter normalizes into.
// URL is the primary media URL and carries the uniqueness constraint the
// deduplication check relies on.
type Content struct {
	ID           uint          `gorm:"primaryKey" json:"id"`
	Type         ContentType   `gorm:"index;not null" json:"type"`
	Title        string        `gorm:"not null" json:"title"`
	URL          string        `gorm:"uniqueIndex;not null" json:"url"`
	ThumbnailURL string        `json:"thumbnail_url"`
	SourceURL    string        `gorm:"index" json:"source_url"`
	Platform     Platform      `gorm:"index;not null" json:"platform"`
	Description  string        `json:"description"`
	Tags         StringSlice   `gorm:"type:json" json:"tags"`
	IsViral      bool          `gorm:"default:false" json:"is_viral"`
	Status       ContentStatus `gorm:"index;default:'pending'" json:"status"`
	CreatedAt    time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}
