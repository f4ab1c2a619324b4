package fragment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"strings"
)

// DefaultMaxBytes caps the size of a fetched resource.
const DefaultMaxBytes = 4 << 20

// ErrTooLarge is returned when a resource exceeds the fetcher limit.
var ErrTooLarge = errors.New("fragment: resource too large")

// Fetcher retrieves a resource by its page-relative path.
type Fetcher interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, path string) ([]byte, error)

// Fetch calls f(ctx, path).
func (f FetcherFunc) Fetch(ctx context.Context, path string) ([]byte, error) {
	return f(ctx, path)
}

// StatusError reports a non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fragment: GET %s: %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// HTTPFetcher issues plain GET requests relative to a base URL.
type HTTPFetcher struct {
	base     *url.URL
	client   *http.Client
	maxBytes int64
}

// NewHTTPFetcher returns a fetcher for paths relative to baseURL. The base
// is treated as a directory even without a trailing slash. A nil client
// uses http.DefaultClient.
func NewHTTPFetcher(baseURL string, client *http.Client) (*HTTPFetcher, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("fragment: base url: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("fragment: base url %q: scheme must be http or https", baseURL)
	}

	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}

	if client == nil {
		client = http.DefaultClient
	}

	return &HTTPFetcher{
		base:     u,
		client:   client,
		maxBytes: DefaultMaxBytes,
	}, nil
}

// Fetch GETs path resolved against the base URL.
func (f *HTTPFetcher) Fetch(ctx context.Context, p string) ([]byte, error) {
	ref, err := url.Parse(p)
	if err != nil {
		return nil, fmt.Errorf("fragment: path %q: %w", p, err)
	}

	target := f.base.ResolveReference(ref).String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("fragment: GET %s: %w", target, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fragment: GET %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: target, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("fragment: read %s: %w", target, err)
	}

	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("%w: %s", ErrTooLarge, target)
	}

	return body, nil
}

// FSFetcher reads resources from a file system, such as os.DirFS of the
// website root or an embed.FS.
type FSFetcher struct {
	FS fs.FS
}

// Fetch reads path from the file system. Leading slashes and "./" are
// ignored; paths escaping the root are rejected by fs.ValidPath.
func (f FSFetcher) Fetch(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := CleanPath(p)
	if !fs.ValidPath(name) {
		return nil, fmt.Errorf("fragment: read %s: %w", p, fs.ErrInvalid)
	}

	data, err := fs.ReadFile(f.FS, name)
	if err != nil {
		return nil, fmt.Errorf("fragment: read %s: %w", p, err)
	}

	return data, nil
}

// CleanPath normalizes a page-relative path: "./pages/a.html",
// "/pages/a.html" and "pages//a.html" all become "pages/a.html".
func CleanPath(p string) string {
	if p == "" {
		return ""
	}

	cleaned := path.Clean("/" + p)
	return strings.TrimPrefix(cleaned, "/")
}
