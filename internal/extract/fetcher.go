package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/hyperjump/kotae/internal/models"
)

const (
	// DefaultFetchTimeout bounds a single download.
	DefaultFetchTimeout = 60 * time.Second
	// DefaultMaxBytes caps a downloaded document (50 MiB).
	DefaultMaxBytes int64 = 50 << 20
)

// Payload is a fetched document before extraction.
type Payload struct {
	Content     []byte
	ContentType string
	// Name is the file name or last URL path segment, used for format detection.
	Name string
}

// Fetcher retrieves documents from http(s) URLs, file:// URLs, and local paths.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithHTTPClient replaces the HTTP client (its Timeout is kept as-is).
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) { f.client = c }
}

// WithMaxBytes caps the document size; larger documents fail with models.ErrExtraction.
func WithMaxBytes(n int64) FetcherOption {
	return func(f *Fetcher) { f.maxBytes = n }
}

// NewFetcher creates a fetcher whose downloads time out after timeout (DefaultFetchTimeout when <= 0).
func NewFetcher(timeout time.Duration, opts ...FetcherOption) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	f := &Fetcher{
		client:   &http.Client{Timeout: timeout},
		maxBytes: DefaultMaxBytes,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves source. Google Drive share links are rewritten to their direct download URL.
// Every failure wraps models.ErrExtraction.
func (f *Fetcher) Fetch(ctx context.Context, source string) (*Payload, error) {
	u, err := url.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid source %q: %w", models.ErrExtraction, source, err)
	}
	switch u.Scheme {
	case "http", "https":
		return f.fetchHTTP(ctx, source)
	case "file":
		return f.readFile(u.Path)
	case "":
		return f.readFile(source)
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", models.ErrExtraction, u.Scheme)
	}
}

func (f *Fetcher) fetchHTTP(ctx context.Context, source string) (*Payload, error) {
	target, err := DriveDownloadURL(source)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", models.ErrExtraction, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: download %s: %w", models.ErrExtraction, source, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: download %s: unexpected status %s", models.ErrExtraction, source, resp.Status)
	}
	content, err := f.readLimited(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: download %s: %w", models.ErrExtraction, source, err)
	}
	return &Payload{
		Content:     content,
		ContentType: resp.Header.Get("Content-Type"),
		Name:        path.Base(resp.Request.URL.Path),
	}, nil
}

func (f *Fetcher) readFile(p string) (*Payload, error) {
	file, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", models.ErrExtraction, p, err)
	}
	defer file.Close()
	content, err := f.readLimited(file)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", models.ErrExtraction, p, err)
	}
	return &Payload{Content: content, Name: filepath.Base(p)}, nil
}

var errTooLarge = errors.New("document exceeds size limit")

func (f *Fetcher) readLimited(r io.Reader) ([]byte, error) {
	if f.maxBytes <= 0 {
		return io.ReadAll(r)
	}
	b, err := io.ReadAll(io.LimitReader(r, f.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > f.maxBytes {
		return nil, fmt.Errorf("%w (%d bytes)", errTooLarge, f.maxBytes)
	}
	return b, nil
}

// DriveDownloadURL rewrites a Google Drive share link (".../file/d/<id>/..." or "...?id=<id>")
// to "https://drive.google.com/uc?export=download&id=<id>". Other URLs are returned unchanged.
// A Drive link without a file ID fails with models.ErrExtraction.
func DriveDownloadURL(raw string) (string, error) {
	if !strings.Contains(raw, "drive.google.com") {
		return raw, nil
	}
	var id string
	if _, rest, ok := strings.Cut(raw, "/file/d/"); ok {
		id, _, _ = strings.Cut(rest, "/")
		id, _, _ = strings.Cut(id, "?")
	} else if _, rest, ok := strings.Cut(raw, "id="); ok {
		id, _, _ = strings.Cut(rest, "&")
	}
	if id == "" {
		return "", fmt.Errorf("%w: could not extract file ID from Google Drive URL", models.ErrExtraction)
	}
	return "https://drive.google.com/uc?export=download&id=" + url.QueryEscape(id), nil
}
