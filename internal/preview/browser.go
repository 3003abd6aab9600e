package preview

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// DefaultPageLoadTimeout is the maximum time to wait for page load
const DefaultPageLoadTimeout = 20 * time.Second

// Renderer returns the HTML of a page after scripts have run
type Renderer interface {
	RenderHTML(ctx context.Context, url string) (string, error)
	Close() error
}

// Browser wraps a lazily launched headless Chrome
type Browser struct {
	userAgent string
	browser   *rod.Browser
	launcher  *launcher.Launcher
	mu        sync.Mutex
	closed    bool
}

// NewBrowser creates a Browser; Chrome starts on first use
func NewBrowser(userAgent string) *Browser {
	return &Browser{userAgent: userAgent}
}

func (b *Browser) connect() error {
	if b.browser != nil {
		return nil
	}

	l := launcher.New().
		Headless(true).
		Set("disable-gpu").
		Set("no-sandbox").
		Set("disable-dev-shm-usage").
		Set("disable-extensions").
		Set("mute-audio").
		Set("no-first-run")

	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return fmt.Errorf("failed to connect to browser: %w", err)
	}

	b.browser = browser
	b.launcher = l
	return nil
}

// RenderHTML loads url in a fresh tab and returns the rendered document
func (b *Browser) RenderHTML(ctx context.Context, url string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return "", fmt.Errorf("browser is closed")
	}
	if err := b.connect(); err != nil {
		return "", err
	}

	page, err := b.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return "", fmt.Errorf("failed to create page: %w", err)
	}
	defer page.Close()

	page = page.Context(ctx).Timeout(DefaultPageLoadTimeout)

	if b.userAgent != "" {
		_ = page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: b.userAgent})
	}

	if err := page.Navigate(url); err != nil {
		return "", fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return "", fmt.Errorf("failed to wait for page load: %w", err)
	}

	html, err := page.HTML()
	if err != nil {
		return "", fmt.Errorf("failed to get HTML: %w", err)
	}
	return html, nil
}

// Close closes the browser and releases all resources gracefully
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	var err error
	if b.browser != nil {
		if cerr := b.browser.Close(); cerr != nil {
			err = fmt.Errorf("failed to close browser: %w", cerr)
		}
	}
	if b.launcher != nil {
		b.launcher.Cleanup()
	}
	return err
}
