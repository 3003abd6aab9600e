package metadata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Jeffail/gabs/v2"
	"github.com/rs/zerolog/log"
	"github.com/user/vidnest/internal/model"
	"golang.org/x/time/rate"
)

const maxResponseBytes = 2 << 20

// ErrFetchFailed is returned when the link-unfurling API gives no usable answer
var ErrFetchFailed = errors.New("external metadata fetch failed")

// Fetcher retrieves raw metadata for a page from an external service
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (*RawMetadata, error)
}

// RawMetadata is the partial record a Fetcher produces; any field may be empty
type RawMetadata struct {
	Title       string
	Description string
	Thumbnail   string
	Author      string
	Publisher   string
	Duration    *int
	PublishedAt *time.Time
	Platform    model.Platform
}

// FetcherConfig holds configuration for the Microlink fetcher
type FetcherConfig struct {
	// APIURL is the base URL of the link-unfurling API
	APIURL string
	// APIKey is sent as x-api-key when set
	APIKey string
	// Timeout bounds one fetch including rate limiter wait
	Timeout time.Duration
	// UserAgent is the HTTP User-Agent header
	UserAgent string
	// RateLimit is the maximum requests per second
	RateLimit float64
}

// DefaultFetcherConfig returns default fetcher configuration
func DefaultFetcherConfig() *FetcherConfig {
	return &FetcherConfig{
		APIURL:    "https://api.microlink.io",
		Timeout:   10 * time.Second,
		UserAgent: "VidNest/1.0 (+https://github.com/user/vidnest)",
		RateLimit: 5,
	}
}

// MicrolinkFetcher implements Fetcher against the Microlink API
type MicrolinkFetcher struct {
	client  *http.Client
	limiter *rate.Limiter
	config  *FetcherConfig
}

// NewMicrolinkFetcher creates a new fetcher instance
func NewMicrolinkFetcher(cfg *FetcherConfig) *MicrolinkFetcher {
	if cfg == nil {
		cfg = DefaultFetcherConfig()
	}

	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	return &MicrolinkFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), int(math.Max(1, math.Ceil(cfg.RateLimit)))),
		config:  cfg,
	}
}

// Fetch calls the API for pageURL and extracts title, description, image,
// author, publisher, date and duration when present
func (f *MicrolinkFetcher) Fetch(ctx context.Context, pageURL string) (*RawMetadata, error) {
	ctx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	endpoint, err := f.endpoint(pageURL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request error: %w", err)
	}
	req.Header.Set("User-Agent", f.config.UserAgent)
	req.Header.Set("Accept", "application/json")
	if f.config.APIKey != "" {
		req.Header.Set("x-api-key", f.config.APIKey)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request error: %w", err)
	}
	defer resp.Body.Close()

	log.Debug().
		Int("status", resp.StatusCode).
		Str("url", pageURL).
		Msg("Metadata API response")

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP status %d", ErrFetchFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read body error: %w", err)
	}

	return parseMicrolink(body, pageURL)
}

func (f *MicrolinkFetcher) endpoint(pageURL string) (string, error) {
	base, err := url.Parse(strings.TrimRight(f.config.APIURL, "/") + "/")
	if err != nil {
		return "", fmt.Errorf("invalid metadata API URL: %w", err)
	}
	q := base.Query()
	q.Set("url", pageURL)
	base.RawQuery = q.Encode()
	return base.String(), nil
}

// parseMicrolink turns a Microlink JSON body into RawMetadata
func parseMicrolink(body []byte, pageURL string) (*RawMetadata, error) {
	parsed, err := gabs.ParseJSON(body)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", ErrFetchFailed, err)
	}

	if status, _ := parsed.Path("status").Data().(string); status != "success" {
		message, _ := parsed.Path("message").Data().(string)
		return nil, fmt.Errorf("%w: status %q %s", ErrFetchFailed, status, message)
	}
	if !parsed.Exists("data") {
		return nil, fmt.Errorf("%w: response has no data", ErrFetchFailed)
	}

	raw := &RawMetadata{
		Title:       stringAt(parsed, "data.title"),
		Description: stringAt(parsed, "data.description"),
		Thumbnail:   stringAt(parsed, "data.image.url"),
		Author:      stringAt(parsed, "data.author"),
		Publisher:   stringAt(parsed, "data.publisher"),
		Platform:    DetectPlatform(pageURL),
	}

	if seconds, ok := parsed.Path("data.video.duration").Data().(float64); ok && seconds > 0 {
		d := int(math.Round(seconds))
		raw.Duration = &d
	}

	if date := stringAt(parsed, "data.date"); date != "" {
		if t, err := time.Parse(time.RFC3339, date); err == nil {
			raw.PublishedAt = &t
		}
	}

	if raw.Thumbnail == "" && raw.Platform == model.PlatformYouTube {
		if id, ok := ExtractVideoID(pageURL, model.PlatformYouTube); ok {
			raw.Thumbnail = YouTubeThumbnail(id)
		}
	}

	return raw, nil
}

func stringAt(c *gabs.Container, path string) string {
	s, _ := c.Path(path).Data().(string)
	return strings.TrimSpace(s)
}
