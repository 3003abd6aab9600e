package preview

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Preview is the Open Graph style summary of a web page
type Preview struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
	SiteName    string `json:"siteName"`
	Type        string `json:"type"`
	VideoURL    string `json:"videoUrl,omitempty"`
	Favicon     string `json:"favicon"`
}

// Empty reports whether no useful field was found
func (p *Preview) Empty() bool {
	return p.Title == "" && p.Description == "" && p.Image == ""
}

// Parse extracts a Preview from an HTML document served at pageURL
func Parse(html string, pageURL string) (*Preview, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	base, _ := url.Parse(pageURL)
	resolve := func(ref string) string { return resolveURL(base, ref) }

	p := &Preview{
		URL: pageURL,
		Title: firstNonEmpty(
			meta(doc, "og:title"),
			meta(doc, "twitter:title"),
			strings.TrimSpace(doc.Find("title").First().Text()),
		),
		Description: firstNonEmpty(
			meta(doc, "og:description"),
			meta(doc, "twitter:description"),
			meta(doc, "description"),
		),
		SiteName: meta(doc, "og:site_name"),
		Type:     meta(doc, "og:type"),
	}

	if canonical := meta(doc, "og:url"); canonical != "" {
		p.URL = resolve(canonical)
	}

	image := firstNonEmpty(
		meta(doc, "og:image:secure_url"),
		meta(doc, "og:image"),
		meta(doc, "og:image:url"),
		meta(doc, "twitter:image"),
		meta(doc, "twitter:image:src"),
	)
	if image == "" {
		image = extractImageURL(doc.Find("img").First())
	}
	p.Image = resolve(image)

	p.VideoURL = resolve(firstNonEmpty(
		meta(doc, "og:video:secure_url"),
		meta(doc, "og:video:url"),
		meta(doc, "og:video"),
		meta(doc, "twitter:player"),
	))

	p.Favicon = resolve(extractFavicon(doc))
	if p.SiteName == "" && base != nil {
		p.SiteName = strings.TrimPrefix(base.Hostname(), "www.")
	}

	return p, nil
}

// meta returns the content of a <meta> tag matched by property or name
func meta(doc *goquery.Document, key string) string {
	var content string
	doc.Find("meta").EachWithBreak(func(i int, s *goquery.Selection) bool {
		prop, _ := s.Attr("property")
		name, _ := s.Attr("name")
		if strings.EqualFold(prop, key) || strings.EqualFold(name, key) {
			if c, ok := s.Attr("content"); ok && strings.TrimSpace(c) != "" {
				content = strings.TrimSpace(c)
				return false
			}
		}
		return true
	})
	return content
}

// extractImageURL extracts the real image URL from an img element
func extractImageURL(img *goquery.Selection) string {
	if img.Length() == 0 {
		return ""
	}
	// Try multiple attributes in order of priority
	attrs := []string{"data-original", "data-lazy-src", "data-src", "srcset", "src"}

	for _, attr := range attrs {
		if u, exists := img.Attr(attr); exists && u != "" && !strings.HasPrefix(u, "data:") {
			// Handle srcset - take the first URL
			if attr == "srcset" {
				if parts := strings.Fields(u); len(parts) > 0 {
					u = parts[0]
				}
			}
			return u
		}
	}
	return ""
}

func extractFavicon(doc *goquery.Document) string {
	for _, rel := range []string{"icon", "shortcut icon", "apple-touch-icon"} {
		var href string
		doc.Find("link[rel][href]").EachWithBreak(func(i int, s *goquery.Selection) bool {
			if r, _ := s.Attr("rel"); strings.EqualFold(strings.TrimSpace(r), rel) {
				href, _ = s.Attr("href")
				return false
			}
			return true
		})
		if href != "" {
			return href
		}
	}
	return "/favicon.ico"
}

// resolveURL converts relative URLs to absolute URLs
func resolveURL(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || base == nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
