package file

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mohammadpnp/theme-setup/internal/domain/content"
)

const DefaultFetchTimeout = 120 * time.Second

// HTTPFetcher streams remote media into a writer. Non-200 answers are
// returned as a result, not an error, so callers decide what to keep.
type HTTPFetcher struct {
	client  *http.Client
	timeout time.Duration
}

func NewHTTPFetcher(client *http.Client, timeout time.Duration) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &HTTPFetcher{client: client, timeout: timeout}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string, w io.Writer) (content.FetchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return content.FetchResult{}, fmt.Errorf("build request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return content.FetchResult{}, err
	}
	defer resp.Body.Close()

	res := content.FetchResult{
		StatusCode:    resp.StatusCode,
		ContentLength: resp.ContentLength,
		ContentType:   resp.Header.Get("Content-Type"),
	}
	if resp.StatusCode != http.StatusOK {
		return res, nil
	}
	res.Written, err = io.Copy(w, resp.Body)
	if err != nil {
		return res, fmt.Errorf("read body: %w", err)
	}
	return res, nil
}
