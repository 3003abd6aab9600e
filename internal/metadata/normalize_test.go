package metadata

import (
	"strings"
	"testing"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected string
	}{
		{"youtube short link with tracking", "https://youtu.be/abc123?si=xyz", "https://youtube.com/watch?v=abc123"},
		{"youtube www", "https://www.youtube.com/watch?v=abc123", "https://youtube.com/watch?v=abc123"},
		{"youtube mobile keeps only v", "https://m.youtube.com/watch?v=abc123&feature=share&t=10", "https://youtube.com/watch?v=abc123"},
		{"youtube shorts", "https://www.youtube.com/shorts/abc123/", "https://youtube.com/watch?v=abc123"},
		{"youtube without scheme", "youtube.com/watch?v=abc123", "https://youtube.com/watch?v=abc123"},
		{"tiktok subdomain", "https://vm.tiktok.com/ZM123/", "https://tiktok.com/ZM123"},
		{"instagram tracking", "https://www.instagram.com/p/XYZ/?igshid=123", "https://instagram.com/p/XYZ"},
		{"instagram short domain", "instagr.am/p/XYZ", "https://instagram.com/p/XYZ"},
		{"facebook mobile", "https://m.facebook.com/watch/?v=1&fbclid=x", "https://facebook.com/watch?v=1"},
		{"twitter mobile", "https://mobile.twitter.com/u/status/1?ref=abc", "https://twitter.com/u/status/1"},
		{"utm params", "https://example.com/video?utm_source=a&utm_medium=b&b=2", "https://example.com/video?b=2"},
		{"case folding", "HTTPS://WWW.Example.COM/Path/", "https://example.com/Path"},
		{"port kept", "http://localhost:8080/v/1", "http://localhost:8080/v/1"},
		{"escaped slash kept", "https://example.com/a%2Fb/", "https://example.com/a%2Fb"},
		{"empty", "", ""},
		{"unparseable falls back", "  NOT A URL  ", "not a url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeURL(tt.url); got != tt.expected {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.url, got, tt.expected)
			}
		})
	}
}

func TestNormalizeURL_ShareVariantsCollide(t *testing.T) {
	variants := []string{
		"https://youtu.be/dQw4w9WgXcQ",
		"https://youtu.be/dQw4w9WgXcQ?si=abc",
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		"https://m.youtube.com/watch?v=dQw4w9WgXcQ&feature=youtu.be",
		"https://youtube.com/shorts/dQw4w9WgXcQ",
		"youtube.com/watch?v=dQw4w9WgXcQ&utm_source=share",
	}

	want := NormalizeURL(variants[0])
	for _, v := range variants[1:] {
		if got := NormalizeURL(v); got != want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", v, got, want)
		}
	}
}

func TestNormalizeURL_EscapedSlashIsDistinct(t *testing.T) {
	if NormalizeURL("https://example.com/a%2Fb") == NormalizeURL("https://example.com/a/b") {
		t.Error("NormalizeURL() folded an escaped slash into a path separator")
	}
}

func TestURLKey(t *testing.T) {
	key := URLKey("https://youtu.be/abc123?si=xyz")
	if len(key) != 64 {
		t.Errorf("len(URLKey()) = %d, want 64", len(key))
	}
	if key != URLKey("https://www.youtube.com/watch?v=abc123") {
		t.Error("URLKey() differs for URLs with the same canonical form")
	}
	if key == URLKey("https://youtu.be/abc124") {
		t.Error("URLKey() collides for different videos")
	}

	long := "https://example.com/" + strings.Repeat("a", 4000)
	if got := len(URLKey(long)); got != 64 {
		t.Errorf("len(URLKey(long)) = %d, want 64", got)
	}
}
