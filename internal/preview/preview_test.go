package preview

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

type fakeRenderer struct {
	html   string
	calls  int
	closed bool
}

func (f *fakeRenderer) RenderHTML(ctx context.Context, url string) (string, error) {
	f.calls++
	return f.html, nil
}

func (f *fakeRenderer) Close() error {
	f.closed = true
	return nil
}

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.Timeout = 2 * time.Second
	cfg.RetryBackoff = time.Millisecond
	return cfg
}

func TestService_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<meta property="og:title" content="Hello">`))
	}))
	defer srv.Close()

	p, err := NewService(testConfig(), nil).Fetch(context.Background(), srv.URL+"/page")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if p.Title != "Hello" {
		t.Errorf("Title = %q, want Hello", p.Title)
	}
}

func TestService_InvalidURL(t *testing.T) {
	s := NewService(testConfig(), nil)
	for _, u := range []string{"", "ftp://example.com", "example.com/no-scheme", "https://"} {
		if _, err := s.Fetch(context.Background(), u); !errors.Is(err, ErrInvalidURL) {
			t.Errorf("Fetch(%q) error = %v, want ErrInvalidURL", u, err)
		}
	}
}

func TestService_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`<title>Third time</title>`))
	}))
	defer srv.Close()

	p, err := NewService(testConfig(), nil).Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if p.Title != "Third time" || atomic.LoadInt32(&calls) != 3 {
		t.Errorf("Title = %q after %d calls", p.Title, calls)
	}
}

func TestService_ClientErrorNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewService(testConfig(), nil).Fetch(context.Background(), srv.URL)
	if !errors.Is(err, ErrFetchFailed) {
		t.Errorf("Fetch() error = %v, want ErrFetchFailed", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("server called %d times, want 1", n)
	}
}

func TestService_BrowserFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<div id="app"></div>`))
	}))
	defer srv.Close()

	renderer := &fakeRenderer{html: `<meta property="og:title" content="Rendered">`}

	cfg := testConfig()
	cfg.BrowserEnabled = true
	s := NewService(cfg, renderer)

	p, err := s.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if p.Title != "Rendered" || renderer.calls != 1 {
		t.Errorf("Title = %q, renderer calls = %d", p.Title, renderer.calls)
	}

	s.Close()
	if !renderer.closed {
		t.Error("Close() did not close renderer")
	}

	disabled := NewService(testConfig(), renderer)
	if _, err := disabled.Fetch(context.Background(), srv.URL); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if renderer.calls != 1 {
		t.Errorf("renderer used while browser disabled")
	}
}
