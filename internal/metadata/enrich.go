package metadata

import (
	"fmt"
	"time"

	"github.com/user/vidnest/internal/model"
)

// DefaultTitle is used when no title could be extracted
const DefaultTitle = "Untitled Video"

const youtubeThumbnailTemplate = "https://img.youtube.com/vi/%s/hqdefault.jpg"

var placeholderThumbnails = map[model.Platform]string{
	model.PlatformYouTube:   "https://placehold.co/640x360/FF0000/FFFFFF?text=YouTube",
	model.PlatformTikTok:    "https://placehold.co/640x360/000000/FFFFFF?text=TikTok",
	model.PlatformInstagram: "https://placehold.co/640x360/E1306C/FFFFFF?text=Instagram",
	model.PlatformFacebook:  "https://placehold.co/640x360/1877F2/FFFFFF?text=Facebook",
	model.PlatformTwitter:   "https://placehold.co/640x360/1DA1F2/FFFFFF?text=Twitter",
	model.PlatformVimeo:     "https://placehold.co/640x360/1AB7EA/FFFFFF?text=Vimeo",
	model.PlatformOther:     "https://placehold.co/640x360/6B7280/FFFFFF?text=Video",
}

// Metadata is the complete record produced by the pipeline. Title, Platform,
// Thumbnail, PublishedAt and SuggestedTags are always populated.
type Metadata struct {
	Title             string         `json:"title"`
	Description       string         `json:"description"`
	Thumbnail         string         `json:"thumbnail"`
	Platform          model.Platform `json:"platform"`
	Author            string         `json:"author"`
	Duration          *int           `json:"duration,omitempty"`
	PublishedAt       time.Time      `json:"publishedAt"`
	URL               string         `json:"url"`
	VideoID           string         `json:"videoId,omitempty"`
	SuggestedCategory string         `json:"suggestedCategory"`
	SuggestedTags     []string       `json:"suggestedTags"`
}

// YouTubeThumbnail returns the standard thumbnail URL for a YouTube video id
func YouTubeThumbnail(videoID string) string {
	return fmt.Sprintf(youtubeThumbnailTemplate, videoID)
}

// DefaultThumbnail returns the placeholder image for a platform.
// YouTube videos with a known id get their real thumbnail.
func DefaultThumbnail(platform model.Platform, videoID string) string {
	if platform == model.PlatformYouTube && videoID != "" {
		return YouTubeThumbnail(videoID)
	}
	if t, ok := placeholderThumbnails[platform]; ok {
		return t
	}
	return placeholderThumbnails[model.PlatformOther]
}

// BasicMetadata builds the platform-only record used when fetching fails
func BasicMetadata(pageURL string) *RawMetadata {
	platform := DetectPlatform(pageURL)
	videoID, _ := ExtractVideoID(pageURL, platform)
	return &RawMetadata{
		Title:     "Video from " + string(platform),
		Thumbnail: DefaultThumbnail(platform, videoID),
		Platform:  platform,
	}
}

// Enrich merges raw with computed defaults. raw may be nil.
func Enrich(raw *RawMetadata, pageURL string, now time.Time) Metadata {
	if raw == nil {
		raw = &RawMetadata{}
	}

	platform := raw.Platform
	if !platform.Valid() {
		platform = DetectPlatform(pageURL)
	}

	videoID, _ := ExtractVideoID(pageURL, platform)

	m := Metadata{
		Title:       raw.Title,
		Description: raw.Description,
		Thumbnail:   raw.Thumbnail,
		Platform:    platform,
		Author:      raw.Author,
		Duration:    raw.Duration,
		URL:         pageURL,
		VideoID:     videoID,
	}

	if m.Title == "" {
		m.Title = DefaultTitle
	}
	if m.Author == "" {
		m.Author = raw.Publisher
	}
	if m.Thumbnail == "" {
		m.Thumbnail = DefaultThumbnail(platform, videoID)
	}
	if raw.PublishedAt != nil && !raw.PublishedAt.IsZero() {
		m.PublishedAt = *raw.PublishedAt
	} else {
		m.PublishedAt = now
	}

	m.SuggestedCategory = SuggestCategory(m)
	m.SuggestedTags = SuggestTags(m)

	return m
}
