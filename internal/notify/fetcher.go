package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPMediaFetcher resolves a source_ref that is already a directly
// downloadable URL. Provider-specific resolution (Meta Cloud API media IDs
// requiring a Graph API lookup, Twilio's auth-signed media URLs, Telegram's
// file-path indirection) lives in the provider HTTP adapters, which are
// external collaborators outside this module's scope; this fetcher is the
// generic path any of them can delegate to once they've resolved a source_ref
// into a plain URL.
type HTTPMediaFetcher struct {
	client *http.Client
}

// NewHTTPMediaFetcher builds a fetcher with a bounded per-request timeout.
func NewHTTPMediaFetcher(timeout time.Duration) *HTTPMediaFetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPMediaFetcher{client: &http.Client{Timeout: timeout}}
}

// Fetch implements MediaFetcher.
func (f *HTTPMediaFetcher) Fetch(ctx context.Context, provider, sourceRef string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceRef, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build media fetch request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch media from %s: %w", provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, "", fmt.Errorf("media fetch from %s returned status %d", provider, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20)) // 64MiB hard cap
	if err != nil {
		return nil, "", fmt.Errorf("read media body: %w", err)
	}

	return body, resp.Header.Get("Content-Type"), nil
}
