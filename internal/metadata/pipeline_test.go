package metadata

import (
	"context"
	"errors"
	"testing"

	"github.com/user/vidnest/internal/model"
)

type stubFetcher struct {
	raw   *RawMetadata
	err   error
	calls int
	panic bool
}

func (s *stubFetcher) Fetch(ctx context.Context, pageURL string) (*RawMetadata, error) {
	s.calls++
	if s.panic {
		panic("boom")
	}
	return s.raw, s.err
}

func TestPipeline_FetchFailureUsesYouTubeThumbnail(t *testing.T) {
	p := NewPipeline(&stubFetcher{err: errors.New("timeout")})

	res := p.Extract(context.Background(), "youtube.com/watch?v=dQw4w9WgXcQ")

	if !res.Degraded {
		t.Error("Degraded = false, want true")
	}
	if res.Metadata.Platform != model.PlatformYouTube {
		t.Errorf("Platform = %v, want %v", res.Metadata.Platform, model.PlatformYouTube)
	}
	if res.Metadata.VideoID != "dQw4w9WgXcQ" {
		t.Errorf("VideoID = %q, want %q", res.Metadata.VideoID, "dQw4w9WgXcQ")
	}
	want := "https://img.youtube.com/vi/dQw4w9WgXcQ/hqdefault.jpg"
	if res.Metadata.Thumbnail != want {
		t.Errorf("Thumbnail = %q, want %q", res.Metadata.Thumbnail, want)
	}
	if res.Metadata.Title != "Video from youtube" {
		t.Errorf("Title = %q, want %q", res.Metadata.Title, "Video from youtube")
	}
}

func TestPipeline_EmptyInput(t *testing.T) {
	f := &stubFetcher{}
	p := NewPipeline(f)

	res := p.Extract(context.Background(), "")

	if !res.Degraded || !errors.Is(res.Reason, ErrInvalidURL) {
		t.Errorf("Degraded = %v, Reason = %v, want invalid url", res.Degraded, res.Reason)
	}
	if f.calls != 0 {
		t.Errorf("fetcher called %d times for empty input", f.calls)
	}
	if res.Metadata.Platform != model.PlatformOther {
		t.Errorf("Platform = %v, want %v", res.Metadata.Platform, model.PlatformOther)
	}
	if res.Metadata.Title == "" || res.Metadata.Thumbnail == "" {
		t.Errorf("placeholder record incomplete: %+v", res.Metadata)
	}
}

func TestPipeline_Success(t *testing.T) {
	f := &stubFetcher{raw: &RawMetadata{
		Title:    "Lofi hip hop music mix",
		Platform: model.PlatformYouTube,
	}}
	p := NewPipeline(f)

	res := p.Extract(context.Background(), "https://youtu.be/jfKfPfyJRdk")

	if res.Degraded {
		t.Errorf("Degraded = true, reason %v", res.Reason)
	}
	if res.Metadata.Title != "Lofi hip hop music mix" {
		t.Errorf("Title = %q", res.Metadata.Title)
	}
	if res.Metadata.SuggestedCategory != "Music" {
		t.Errorf("SuggestedCategory = %q, want Music", res.Metadata.SuggestedCategory)
	}
	if res.Metadata.Thumbnail != YouTubeThumbnail("jfKfPfyJRdk") {
		t.Errorf("Thumbnail = %q", res.Metadata.Thumbnail)
	}
}

func TestPipeline_NilResultAndPanicDegrade(t *testing.T) {
	tests := []struct {
		name    string
		fetcher Fetcher
	}{
		{"nil fetcher", nil},
		{"nil result", &stubFetcher{}},
		{"panicking fetcher", &stubFetcher{panic: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewPipeline(tt.fetcher).Extract(context.Background(), "https://vimeo.com/1")
			if !res.Degraded {
				t.Error("Degraded = false, want true")
			}
			if res.Metadata.Platform != model.PlatformVimeo {
				t.Errorf("Platform = %v, want vimeo", res.Metadata.Platform)
			}
		})
	}
}
