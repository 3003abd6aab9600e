package model

import (
	"time"

	"gorm.io/datatypes"
)

// Video is a saved link to a video hosted on a third-party platform
type Video struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	UserID      uint              `gorm:"not null;uniqueIndex:idx_videos_user_url;index" json:"-"`
	Title       string            `gorm:"size:500;not null" json:"title"`
	Description string            `gorm:"type:text" json:"description"`
	URL         string            `gorm:"size:2048;not null" json:"url"`
	URLKey      string            `gorm:"size:64;not null;uniqueIndex:idx_videos_user_url" json:"-"`
	Thumbnail   string            `gorm:"size:2048" json:"thumbnail"`
	Duration    *int              `json:"duration,omitempty"`
	Platform    Platform          `gorm:"size:20;not null;default:other;index" json:"platform"`
	Tags        Tags              `gorm:"type:text" json:"tags"`
	CategoryID  *uint             `gorm:"index" json:"-"`
	Category    *Category         `gorm:"constraint:OnDelete:SET NULL" json:"category"`
	Metadata    datatypes.JSONMap `json:"metadata"`
	Views       int64             `gorm:"not null;default:0" json:"views"`
	CreatedAt   time.Time         `gorm:"index" json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// TableName returns the table name for Video
func (Video) TableName() string {
	return "videos"
}

// Metadata keys stored on Video.Metadata
const (
	MetaVideoID     = "videoId"
	MetaAuthor      = "author"
	MetaPublishedAt = "publishedAt"
)
