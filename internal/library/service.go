package library

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"github.com/user/vidnest/internal/metadata"
	"github.com/user/vidnest/internal/metrics"
	"github.com/user/vidnest/internal/model"
	"github.com/user/vidnest/internal/store"
)

const (
	// DefaultPageSize is used when a listing does not ask for a limit
	DefaultPageSize = 20
	// MaxPageSize bounds the limit of a listing
	MaxPageSize = 100

	maxTitleLength       = 500
	maxDescriptionLength = 5000
	maxURLLength         = 2048
	maxListPage          = 1000000
)

// Extractor produces complete metadata for a URL
type Extractor interface {
	Extract(ctx context.Context, rawURL string) metadata.Result
}

// Service implements the video library operations
type Service struct {
	store     store.Store
	extractor Extractor
}

// NewService creates a new library service
func NewService(store store.Store, extractor Extractor) *Service {
	return &Service{
		store:     store,
		extractor: extractor,
	}
}

// ImportInput is a request to save a video. Non-empty fields override the
// extracted metadata.
type ImportInput struct {
	URL         string   `json:"url" formam:"url"`
	Title       string   `json:"title" formam:"title"`
	Description string   `json:"description" formam:"description"`
	Tags        []string `json:"tags" formam:"tags"`
	CategoryID  *uint    `json:"categoryId" formam:"categoryId"`
	Category    string   `json:"category" formam:"category"`
}

// UpdateInput holds the owner-editable fields; nil means unchanged.
// A CategoryID of 0 removes the category.
type UpdateInput struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Tags        *[]string `json:"tags"`
	CategoryID  *uint     `json:"categoryId"`
}

// ListQuery are the query parameters of a video listing
type ListQuery struct {
	Search   string
	Platform string
	Category string // category id or "uncategorized"
	Tag      string
	Sort     string
	Page     int
	Limit    int
}

// Page is one page of a video listing
type Page struct {
	Videos []*model.Video `json:"videos"`
	Total  int64          `json:"total"`
	Page   int            `json:"page"`
	Pages  int            `json:"pages"`
}

// extract runs the metadata pipeline and records its outcome
func (s *Service) extract(ctx context.Context, rawURL string) metadata.Result {
	start := time.Now()
	res := s.extractor.Extract(ctx, rawURL)
	metrics.RecordExtraction(string(res.Metadata.Platform), res.Degraded, time.Since(start))
	return res
}

func validateURL(v validator, rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	v.check(rawURL != "", "url", "url is required")
	v.check(len(metadata.EnsureScheme(rawURL)) <= maxURLLength, "url", "url is too long")
	if rawURL != "" {
		v.check(metadata.Hostname(rawURL) != "", "url", "url is not valid")
	}
	return rawURL
}

// Import extracts metadata for a URL and saves it to the user's library
func (s *Service) Import(ctx context.Context, userID uint, in ImportInput) (*model.Video, error) {
	video, _, err := s.importVideo(ctx, userID, in)
	return video, err
}

func (s *Service) importVideo(ctx context.Context, userID uint, in ImportInput) (*model.Video, metadata.Result, error) {
	var res metadata.Result
	v := validator{}
	rawURL := validateURL(v, in.URL)
	v.check(len(in.Title) <= maxTitleLength, "title", "title is too long")
	v.check(len(in.Description) <= maxDescriptionLength, "description", "description is too long")
	if err := v.err(); err != nil {
		return nil, res, err
	}

	urlKey := metadata.URLKey(rawURL)
	if existing, err := s.store.FindVideoByURLKey(ctx, userID, urlKey); err == nil {
		metrics.RecordImport(string(existing.Platform), "duplicate")
		return nil, res, &DuplicateError{ExistingID: existing.ID}
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, res, err
	}

	res = s.extract(ctx, rawURL)
	meta := res.Metadata

	category, err := s.resolveCategory(ctx, in, meta.SuggestedCategory)
	if err != nil {
		return nil, res, err
	}

	video := &model.Video{
		UserID:      userID,
		Title:       firstNonEmpty(strings.TrimSpace(in.Title), meta.Title),
		Description: firstNonEmpty(strings.TrimSpace(in.Description), meta.Description),
		URL:         metadata.EnsureScheme(rawURL),
		URLKey:      urlKey,
		Thumbnail:   meta.Thumbnail,
		Duration:    meta.Duration,
		Platform:    meta.Platform,
		Tags:        model.NormalizeTags(meta.SuggestedTags),
		Metadata:    metadataMap(meta),
	}
	if in.Tags != nil {
		video.Tags = model.NormalizeTags(in.Tags)
	}
	video.Title = truncate(video.Title, maxTitleLength)
	if category != nil {
		video.CategoryID = &category.ID
		video.Category = category
	}

	if err := s.store.CreateVideo(ctx, video); err != nil {
		if errors.Is(err, store.ErrDuplicateVideo) {
			// lost a race with a concurrent save of the same URL
			metrics.RecordImport(string(meta.Platform), "duplicate")
			existingID := uint(0)
			if existing, ferr := s.store.FindVideoByURLKey(ctx, userID, urlKey); ferr == nil {
				existingID = existing.ID
			}
			return nil, res, &DuplicateError{ExistingID: existingID}
		}
		metrics.RecordImport(string(meta.Platform), "error")
		return nil, res, fmt.Errorf("failed to save video: %w", err)
	}

	metrics.RecordImport(string(meta.Platform), "saved")
	log.Info().
		Uint("userID", userID).
		Uint("videoID", video.ID).
		Str("platform", string(video.Platform)).
		Bool("degraded", res.Degraded).
		Msg("Video imported")

	return video, res, nil
}

// resolveCategory picks the explicit category, or the suggested one when a
// category with that name already exists. Categories are never created here.
func (s *Service) resolveCategory(ctx context.Context, in ImportInput, suggested string) (*model.Category, error) {
	switch {
	case in.CategoryID != nil && *in.CategoryID != 0:
		c, err := s.store.GetCategory(ctx, *in.CategoryID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, &ValidationError{Fields: map[string]string{"categoryId": "category does not exist"}}
		}
		return c, err
	case strings.TrimSpace(in.Category) != "":
		c, err := s.store.FindCategoryByName(ctx, in.Category)
		if errors.Is(err, store.ErrNotFound) {
			return nil, &ValidationError{Fields: map[string]string{"category": "category does not exist"}}
		}
		return c, err
	}

	c, err := s.store.FindCategoryByName(ctx, suggested)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return c, err
}

func metadataMap(m metadata.Metadata) map[string]interface{} {
	out := map[string]interface{}{
		model.MetaPublishedAt: m.PublishedAt.UTC().Format(time.RFC3339),
	}
	if m.VideoID != "" {
		out[model.MetaVideoID] = m.VideoID
	}
	if m.Author != "" {
		out[model.MetaAuthor] = m.Author
	}
	return out
}

// Get returns one of the user's videos and counts the view
func (s *Service) Get(ctx context.Context, userID, id uint) (*model.Video, error) {
	if err := s.store.IncrementViews(ctx, userID, id); err != nil {
		return nil, err
	}
	return s.store.GetVideo(ctx, userID, id)
}

// Update changes the title, description, tags or category of a video
func (s *Service) Update(ctx context.Context, userID, id uint, in UpdateInput) (*model.Video, error) {
	video, err := s.store.GetVideo(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	v := validator{}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		v.check(title != "", "title", "title cannot be empty")
		v.check(len(title) <= maxTitleLength, "title", "title is too long")
		video.Title = title
	}
	if in.Description != nil {
		v.check(len(*in.Description) <= maxDescriptionLength, "description", "description is too long")
		video.Description = strings.TrimSpace(*in.Description)
	}
	if in.Tags != nil {
		video.Tags = model.NormalizeTags(*in.Tags)
	}
	if in.CategoryID != nil {
		if *in.CategoryID == 0 {
			video.CategoryID = nil
			video.Category = nil
		} else {
			c, err := s.store.GetCategory(ctx, *in.CategoryID)
			switch {
			case errors.Is(err, store.ErrNotFound):
				v.check(false, "categoryId", "category does not exist")
			case err != nil:
				return nil, err
			default:
				video.CategoryID = &c.ID
				video.Category = c
			}
		}
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	if err := s.store.UpdateVideo(ctx, video); err != nil {
		return nil, err
	}
	return video, nil
}

// Delete removes one of the user's videos
func (s *Service) Delete(ctx context.Context, userID, id uint) error {
	return s.store.DeleteVideo(ctx, userID, id)
}

// List returns a filtered, sorted page of the user's videos
func (s *Service) List(ctx context.Context, userID uint, q ListQuery) (*Page, error) {
	v := validator{}
	filter := store.VideoFilter{
		Search: strings.TrimSpace(q.Search),
		Tag:    q.Tag,
		Sort:   q.Sort,
	}

	if q.Platform != "" {
		p := model.Platform(strings.ToLower(q.Platform))
		v.check(p.Valid(), "platform", "unknown platform")
		filter.Platform = p
	}

	switch q.Sort {
	case "", store.SortNewest, store.SortOldest, store.SortTitle, store.SortViews:
	default:
		v.check(false, "sort", "sort must be one of newest, oldest, title, views")
	}

	switch category := strings.TrimSpace(q.Category); category {
	case "":
	case "uncategorized", "none":
		filter.Uncategorized = true
	default:
		id, err := strconv.ParseUint(category, 10, 64)
		v.check(err == nil, "category", "category must be an id or \"uncategorized\"")
		cid := uint(id)
		filter.CategoryID = &cid
	}

	page := q.Page
	if page < 1 {
		page = 1
	}
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	v.check(limit <= MaxPageSize, "limit", fmt.Sprintf("limit must not exceed %d", MaxPageSize))
	v.check(page <= maxListPage, "page", fmt.Sprintf("page must not exceed %d", maxListPage))

	if err := v.err(); err != nil {
		return nil, err
	}

	filter.Limit = limit
	filter.Offset = (page - 1) * limit

	videos, total, err := s.store.ListVideos(ctx, userID, filter)
	if err != nil {
		return nil, err
	}
	if videos == nil {
		videos = []*model.Video{}
	}

	return &Page{
		Videos: videos,
		Total:  total,
		Page:   page,
		Pages:  int(math.Ceil(float64(total) / float64(limit))),
	}, nil
}

// Tags lists the user's tags with usage counts
func (s *Service) Tags(ctx context.Context, userID uint) ([]store.TagCount, error) {
	return s.store.ListTags(ctx, userID)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// truncate cuts s to at most n bytes without splitting a rune
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
