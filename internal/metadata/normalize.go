package metadata

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

var trackingParams = map[string]bool{
	"si":      true,
	"feature": true,
	"fbclid":  true,
	"gclid":   true,
	"ref":     true,
	"source":  true,
	"igshid":  true,
	"igsh":    true,
}

// NormalizeURL canonicalizes a URL for duplicate detection.
// It is never used for the URL shown to the user. Input that does not parse
// falls back to its trimmed, lowercased form.
func NormalizeURL(rawURL string) string {
	trimmed := strings.TrimSpace(rawURL)
	fallback := strings.ToLower(trimmed)
	if trimmed == "" {
		return ""
	}

	u, err := url.Parse(EnsureScheme(trimmed))
	if err != nil || u.Hostname() == "" {
		return fallback
	}

	scheme := strings.ToLower(u.Scheme)
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	host = strings.TrimPrefix(host, "www.")

	query := stripTracking(u.Query())
	path := strings.TrimRight(u.EscapedPath(), "/")

	switch {
	case host == "youtu.be":
		if id := firstSegment(path); id != "" {
			host, path, query = "youtube.com", "/watch", url.Values{"v": {id}}
		}
	case host == "youtube.com" || host == "m.youtube.com":
		host = "youtube.com"
		if id := youtubePathID(path); id != "" {
			path, query = "/watch", url.Values{"v": {id}}
		} else if path == "/watch" {
			if v := query.Get("v"); v != "" {
				query = url.Values{"v": {v}}
			}
		}
	case host == "tiktok.com" || strings.HasSuffix(host, ".tiktok.com"):
		host = "tiktok.com"
	case host == "instagr.am":
		host = "instagram.com"
	case host == "m.facebook.com":
		host = "facebook.com"
	case host == "mobile.twitter.com":
		host = "twitter.com"
	}

	if port := u.Port(); port != "" {
		host = host + ":" + port
	}

	canonical := scheme + "://" + host + path
	if len(query) > 0 {
		canonical += "?" + query.Encode()
	}
	return canonical
}

// URLKey returns the fixed-width duplicate key for a URL: the hex SHA-256 of
// its canonical form
func URLKey(rawURL string) string {
	sum := sha256.Sum256([]byte(NormalizeURL(rawURL)))
	return hex.EncodeToString(sum[:])
}

func stripTracking(q url.Values) url.Values {
	for key := range q {
		lower := strings.ToLower(key)
		if trackingParams[lower] || strings.HasPrefix(lower, "utm_") {
			q.Del(key)
		}
	}
	return q
}

func firstSegment(path string) string {
	path = strings.TrimPrefix(path, "/")
	if idx := strings.Index(path, "/"); idx != -1 {
		path = path[:idx]
	}
	return path
}

// youtubePathID returns the id from /shorts/<id> and /embed/<id> paths
func youtubePathID(path string) string {
	for _, prefix := range []string{"/shorts/", "/embed/"} {
		if strings.HasPrefix(path, prefix) {
			return firstSegment(strings.TrimPrefix(path, prefix))
		}
	}
	return ""
}
