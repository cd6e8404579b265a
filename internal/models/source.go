package models

import (
	"time"
)

// ImportSource represents one configured (platform, identifier) pair, e.g.
// platform=reddit identifier=pizza. Created from configuration; the
// orchestrator only touches LastFetchAt, operators toggle Active.
type ImportSource struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Name        string     `gorm:"uniqueIndex;not null" json:"name"`
	Platform    Platform   `gorm:"index;not null" json:"platform"`
	Identifier  string     `json:"identifier"` // subreddit, search query, feed URL...
	Active      bool       `gorm:"default:true" json:"active"`
	Config      JSON       `gorm:"type:json" json:"config"`
	LastFetchAt *time.Time `json:"last_fetch_at"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
