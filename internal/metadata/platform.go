package metadata

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/user/vidnest/internal/model"
	"golang.org/x/net/publicsuffix"
)

// platformDomains maps each platform to the registrable domains it serves from.
// Subdomains (m., www., vm., mobile.) resolve through their registrable domain.
var platformDomains = map[model.Platform][]string{
	model.PlatformYouTube:   {"youtube.com", "youtu.be", "youtube-nocookie.com"},
	model.PlatformTikTok:    {"tiktok.com"},
	model.PlatformInstagram: {"instagram.com", "instagr.am"},
	model.PlatformFacebook:  {"facebook.com", "fb.com", "fb.watch"},
	model.PlatformTwitter:   {"twitter.com", "x.com"},
	model.PlatformVimeo:     {"vimeo.com"},
}

var domainIndex = buildDomainIndex()

var schemePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.\-]*://`)

func buildDomainIndex() map[string]model.Platform {
	index := make(map[string]model.Platform)
	for platform, domains := range platformDomains {
		for _, d := range domains {
			index[d] = platform
		}
	}
	return index
}

// DetectPlatform maps any string to a platform by its hostname.
// Unparseable or empty input yields PlatformOther.
func DetectPlatform(rawURL string) model.Platform {
	host := Hostname(rawURL)
	if host == "" {
		return model.PlatformOther
	}

	if p, ok := domainIndex[host]; ok {
		return p
	}

	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return model.PlatformOther
	}
	if p, ok := domainIndex[domain]; ok {
		return p
	}

	return model.PlatformOther
}

// Hostname returns the lowercased host of rawURL, adding a scheme if missing.
// It returns "" when the input does not parse into a URL with a host.
func Hostname(rawURL string) string {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return ""
	}

	u, err := url.Parse(EnsureScheme(trimmed))
	if err != nil {
		return ""
	}

	return strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
}

// EnsureScheme prepends https:// when rawURL has no scheme
func EnsureScheme(rawURL string) string {
	if rawURL == "" || schemePattern.MatchString(rawURL) {
		return rawURL
	}
	if strings.HasPrefix(rawURL, "//") {
		return "https:" + rawURL
	}
	return "https://" + rawURL
}
