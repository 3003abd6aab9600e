package metadata

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrInvalidURL marks input that is empty or cannot be parsed as a URL
var ErrInvalidURL = errors.New("invalid url")

// Result is the outcome of one extraction. Metadata is always complete;
// Degraded is set when the record was built from platform defaults, with
// Reason holding the cause.
type Result struct {
	Metadata Metadata
	Degraded bool
	Reason   error
}

// Pipeline turns an arbitrary URL into a complete metadata record
type Pipeline struct {
	fetcher Fetcher
	now     func() time.Time
}

// NewPipeline creates a pipeline backed by f. A nil fetcher makes every
// extraction degrade to platform defaults.
func NewPipeline(f Fetcher) *Pipeline {
	return &Pipeline{
		fetcher: f,
		now:     time.Now,
	}
}

// Extract runs detection, fetching and enrichment for rawURL. It never
// fails: every error path yields a degraded record.
func (p *Pipeline) Extract(ctx context.Context, rawURL string) (result Result) {
	rawURL = strings.TrimSpace(rawURL)

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("url", rawURL).Msg("Metadata extraction panicked")
			result = p.degraded(rawURL, fmt.Errorf("unexpected failure: %v", r))
		}
	}()

	if err := validateURL(rawURL); err != nil {
		return p.degraded(rawURL, err)
	}

	if p.fetcher == nil {
		return p.degraded(rawURL, ErrFetchFailed)
	}

	raw, err := p.fetcher.Fetch(ctx, EnsureScheme(rawURL))
	if err != nil {
		return p.degraded(rawURL, err)
	}
	if raw == nil {
		return p.degraded(rawURL, ErrFetchFailed)
	}

	return Result{Metadata: Enrich(raw, rawURL, p.now())}
}

func (p *Pipeline) degraded(rawURL string, reason error) Result {
	log.Warn().
		Err(reason).
		Str("url", rawURL).
		Msg("Falling back to basic metadata")

	return Result{
		Metadata: Enrich(BasicMetadata(rawURL), rawURL, p.now()),
		Degraded: true,
		Reason:   reason,
	}
}

func validateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	u, err := url.Parse(EnsureScheme(rawURL))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Hostname() == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return nil
}
