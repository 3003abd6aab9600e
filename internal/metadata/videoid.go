package metadata

import (
	"regexp"

	"github.com/user/vidnest/internal/model"
)

// videoIDPatterns are tried in order; the first capture group is the id
var videoIDPatterns = map[model.Platform][]*regexp.Regexp{
	model.PlatformYouTube: {
		regexp.MustCompile(`youtube\.com/watch\?(?:[^#]*&)?v=([A-Za-z0-9_-]+)`),
		regexp.MustCompile(`youtu\.be/([A-Za-z0-9_-]+)`),
		regexp.MustCompile(`/embed/([A-Za-z0-9_-]+)`),
		regexp.MustCompile(`m\.youtube\.com/watch\?(?:[^#]*&)?v=([A-Za-z0-9_-]+)`),
		regexp.MustCompile(`/shorts/([A-Za-z0-9_-]+)`),
		regexp.MustCompile(`/v/([A-Za-z0-9_-]+)`),
	},
	model.PlatformTikTok: {
		regexp.MustCompile(`/video/(\d+)`),
		regexp.MustCompile(`(?:vm|vt)\.tiktok\.com/([A-Za-z0-9]+)`),
	},
	model.PlatformInstagram: {
		regexp.MustCompile(`/(?:p|reel|tv)/([A-Za-z0-9_-]+)`),
	},
	model.PlatformFacebook: {
		regexp.MustCompile(`/videos/(\d+)`),
		regexp.MustCompile(`fb\.watch/([A-Za-z0-9_-]+)`),
		regexp.MustCompile(`/(?:reel|story)/(\d+)`),
	},
	model.PlatformTwitter: {
		regexp.MustCompile(`/status/(\d+)`),
	},
	model.PlatformVimeo: {
		regexp.MustCompile(`vimeo\.com/(?:video/)?(\d+)`),
	},
}

var fallbackIDPattern = regexp.MustCompile(`/(\d{6,})`)

// ExtractVideoID returns the platform-native content id found in rawURL
func ExtractVideoID(rawURL string, platform model.Platform) (string, bool) {
	if rawURL == "" {
		return "", false
	}

	patterns, ok := videoIDPatterns[platform]
	if !ok {
		patterns = []*regexp.Regexp{fallbackIDPattern}
	}

	for _, re := range patterns {
		if matches := re.FindStringSubmatch(rawURL); len(matches) > 1 && matches[1] != "" {
			return matches[1], true
		}
	}
	return "", false
}
