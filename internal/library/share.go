package library

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/user/vidnest/internal/metadata"
	"github.com/user/vidnest/internal/model"
	"github.com/user/vidnest/internal/store"
)

var sharedURLPattern = regexp.MustCompile(`https?://[^\s<>"']+`)

// ShareInput is what a share target receives from another app
type ShareInput struct {
	URL   string `json:"url" formam:"url"`
	Text  string `json:"text" formam:"text"`
	Title string `json:"title" formam:"title"`
	Save  bool   `json:"save" formam:"save"`
}

// ShareResult describes a shared URL before or after saving
type ShareResult struct {
	Metadata        metadata.Metadata `json:"metadata"`
	Degraded        bool              `json:"degraded"`
	AlreadySaved    bool              `json:"alreadySaved"`
	ExistingVideoID *uint             `json:"existingVideoId,omitempty"`
	MatchedCategory *model.Category   `json:"matchedCategory,omitempty"`
	Video           *model.Video      `json:"video,omitempty"`
}

// ExtractSharedURL returns the first http(s) URL found in the share fields,
// checked in order url, text, title
func ExtractSharedURL(in ShareInput) string {
	for _, field := range []string{in.URL, in.Text, in.Title} {
		if match := sharedURLPattern.FindString(field); match != "" {
			return strings.TrimRight(match, ".,;:!?)]}")
		}
	}
	return ""
}

// ShareMetadata previews a URL for the share screen without saving it
func (s *Service) ShareMetadata(ctx context.Context, userID uint, rawURL string) (*ShareResult, error) {
	v := validator{}
	rawURL = validateURL(v, rawURL)
	if err := v.err(); err != nil {
		return nil, err
	}

	res := s.extract(ctx, rawURL)
	out := &ShareResult{
		Metadata: res.Metadata,
		Degraded: res.Degraded,
	}

	existing, err := s.store.FindVideoByURLKey(ctx, userID, metadata.URLKey(rawURL))
	switch {
	case err == nil:
		out.AlreadySaved = true
		out.ExistingVideoID = &existing.ID
	case !errors.Is(err, store.ErrNotFound):
		return nil, err
	}

	category, err := s.store.FindCategoryByName(ctx, res.Metadata.SuggestedCategory)
	switch {
	case err == nil:
		out.MatchedCategory = category
	case !errors.Is(err, store.ErrNotFound):
		return nil, err
	}

	return out, nil
}

// ProcessShare finds the URL in shared content and previews it, saving it
// to the library when in.Save is set
func (s *Service) ProcessShare(ctx context.Context, userID uint, in ShareInput) (*ShareResult, error) {
	sharedURL := ExtractSharedURL(in)
	if sharedURL == "" {
		return nil, &ValidationError{Fields: map[string]string{"url": "no link found in shared content"}}
	}

	if !in.Save {
		return s.ShareMetadata(ctx, userID, sharedURL)
	}

	video, res, err := s.importVideo(ctx, userID, ImportInput{URL: sharedURL})
	if err != nil {
		return nil, err
	}

	return &ShareResult{
		Metadata:        res.Metadata,
		Degraded:        res.Degraded,
		AlreadySaved:    true,
		ExistingVideoID: &video.ID,
		MatchedCategory: video.Category,
		Video:           video,
	}, nil
}
