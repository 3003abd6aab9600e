package metadata

import (
	"context"
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/user/vidnest/internal/model"
)

// Property: YouTube detection and id extraction
// For any id, watch and short-link URLs are detected as YouTube and yield that id.
func TestProperty_YouTubeIDRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("watch and short links resolve to the same id", prop.ForAll(
		func(id string) bool {
			for _, u := range []string{
				"https://www.youtube.com/watch?v=" + id,
				"https://youtu.be/" + id,
				"youtube.com/watch?v=" + id,
			} {
				if DetectPlatform(u) != model.PlatformYouTube {
					return false
				}
				got, ok := ExtractVideoID(u, model.PlatformYouTube)
				if !ok || got != id {
					return false
				}
			}
			return true
		},
		gen.Identifier(),
	))

	properties.Property("share variants normalize to one canonical form", prop.ForAll(
		func(id string, tracking string) bool {
			want := "https://youtube.com/watch?v=" + id
			return NormalizeURL("https://youtu.be/"+id+"?si="+tracking) == want &&
				NormalizeURL("https://www.youtube.com/watch?v="+id) == want &&
				NormalizeURL("https://m.youtube.com/watch?v="+id+"&feature="+tracking) == want
		},
		gen.Identifier(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

// Property: Extraction always yields a complete record
// For any string input, including malformed URLs, title, platform and
// thumbnail are populated and suggested tags number 3 to 5.
func TestProperty_ExtractAlwaysComplete(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	pipeline := NewPipeline(&stubFetcher{err: errors.New("unreachable")})

	complete := func(m Metadata) bool {
		return m.Title != "" &&
			m.Platform.Valid() &&
			m.Thumbnail != "" &&
			!m.PublishedAt.IsZero() &&
			len(m.SuggestedTags) >= 3 && len(m.SuggestedTags) <= 5
	}

	properties.Property("arbitrary strings degrade to a complete record", prop.ForAll(
		func(input string) bool {
			res := pipeline.Extract(context.Background(), input)
			return res.Degraded && complete(res.Metadata)
		},
		gen.AnyString(),
	))

	properties.Property("platform URLs degrade to a complete record", prop.ForAll(
		func(host string, path string) bool {
			res := pipeline.Extract(context.Background(), "https://"+host+"/"+path)
			return complete(res.Metadata) && res.Metadata.Platform == DetectPlatform("https://"+host)
		},
		gen.OneConstOf("youtube.com", "youtu.be", "tiktok.com", "instagram.com", "fb.watch", "x.com", "vimeo.com", "example.org"),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

// Property: Tag suggestions are bounded
// For any title, description and author, SuggestTags returns 3 to 5 unique tags.
func TestProperty_SuggestTagsBounded(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	words := gen.SliceOf(gen.OneConstOf(
		"music", "game", "recipe", "workout", "funny", "travel", "news",
		"trailer", "review", "coding", "vlog", "diy", "lorem", "ipsum",
	))

	properties.Property("between 3 and 5 unique tags", prop.ForAll(
		func(title []string, description string, author string) bool {
			m := Metadata{Description: description, Author: author}
			for _, w := range title {
				m.Title += w + " "
			}
			tags := SuggestTags(m)
			if len(tags) < 3 || len(tags) > 5 {
				return false
			}
			seen := make(map[string]bool)
			for _, tag := range tags {
				if seen[tag] {
					return false
				}
				seen[tag] = true
			}
			return true
		},
		words,
		gen.AnyString(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
