package preview

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

	"github.com/rs/zerolog/log"
)

const maxPageBytes = 4 << 20

var (
	// ErrInvalidURL is returned for URLs that are not absolute http(s) URLs
	ErrInvalidURL = errors.New("invalid preview url")
	// ErrFetchFailed is returned when the page could not be loaded or parsed
	ErrFetchFailed = errors.New("preview fetch failed")
)

// Config holds configuration for the preview service
type Config struct {
	// Timeout bounds one preview request including retries
	Timeout time.Duration
	// UserAgent is the HTTP User-Agent header
	UserAgent string
	// MaxRetries is the number of retries after a failed fetch
	MaxRetries int
	// RetryBackoff is the base delay between retries
	RetryBackoff time.Duration
	// BrowserEnabled renders pages without metadata in headless Chrome
	BrowserEnabled bool
}

// DefaultConfig returns default preview configuration
func DefaultConfig() *Config {
	return &Config{
		Timeout:      10 * time.Second,
		UserAgent:    "Mozilla/5.0 (compatible; VidNestBot/1.0; +https://github.com/user/vidnest)",
		MaxRetries:   2,
		RetryBackoff: 250 * time.Millisecond,
	}
}

// Service fetches and parses link previews
type Service struct {
	client   *http.Client
	config   *Config
	renderer Renderer
}

// NewService creates a preview service. A nil renderer disables the
// browser fallback regardless of configuration.
func NewService(cfg *Config, renderer Renderer) *Service {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if !cfg.BrowserEnabled {
		renderer = nil
	}
	return &Service{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        50,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
			},
			Timeout: cfg.Timeout,
		},
		config:   cfg,
		renderer: renderer,
	}
}

// Fetch loads pageURL and returns its preview
func (s *Service) Fetch(ctx context.Context, pageURL string) (*Preview, error) {
	u, err := url.Parse(strings.TrimSpace(pageURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ErrInvalidURL
	}
	pageURL = u.String()

	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	html, finalURL, err := s.fetchWithRetry(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	p, err := Parse(html, finalURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	if p.Empty() && s.renderer != nil {
		log.Info().Str("url", pageURL).Msg("No metadata in static HTML, rendering with browser")
		rendered, rerr := s.renderer.RenderHTML(ctx, pageURL)
		if rerr != nil {
			log.Warn().Err(rerr).Str("url", pageURL).Msg("Browser render failed")
		} else if rp, perr := Parse(rendered, finalURL); perr == nil {
			p = rp
		}
	}

	return p, nil
}

// Close releases the browser, if any
func (s *Service) Close() error {
	if s.renderer != nil {
		return s.renderer.Close()
	}
	return nil
}

// fetchWithRetry fetches a URL with exponential backoff retry
func (s *Service) fetchWithRetry(ctx context.Context, targetURL string) (string, string, error) {
	var lastErr error

	for attempt := 0; attempt <= s.config.MaxRetries; attempt++ {
		html, finalURL, err := s.fetch(ctx, targetURL)
		if err == nil {
			return html, finalURL, nil
		}

		lastErr = err
		var status statusError
		if errors.As(err, &status) && status.code >= 400 && status.code < 500 {
			break
		}

		if attempt < s.config.MaxRetries {
			backoff := time.Duration(math.Pow(2, float64(attempt))) * s.config.RetryBackoff
			select {
			case <-ctx.Done():
				return "", "", ctx.Err()
			case <-time.After(backoff):
			}
		}
	}

	return "", "", fmt.Errorf("max retries exceeded: %w", lastErr)
}

type statusError struct {
	code int
}

func (e statusError) Error() string {
	return fmt.Sprintf("HTTP status %d", e.code)
}

// fetch performs a single HTTP request
func (s *Service) fetch(ctx context.Context, targetURL string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return "", "", fmt.Errorf("create request error: %w", err)
	}

	req.Header.Set("User-Agent", s.config.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("request error: %w", err)
	}
	defer resp.Body.Close()

	log.Debug().
		Int("status", resp.StatusCode).
		Str("url", targetURL).
		Str("finalURL", resp.Request.URL.String()).
		Msg("Preview response")

	if resp.StatusCode != http.StatusOK {
		return "", "", statusError{code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", "", fmt.Errorf("read body error: %w", err)
	}

	return string(body), resp.Request.URL.String(), nil
}
