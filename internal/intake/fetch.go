package intake

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// DefaultMaxBytes caps a single image read from disk or the network
const DefaultMaxBytes = 10 * 1024 * 1024

// Fetcher reads label images from local files and URLs
type Fetcher struct {
	HTTPClient *http.Client
	MaxBytes   int64
}

// NewFetcher creates a new image fetcher
func NewFetcher() *Fetcher {
	return &Fetcher{
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		MaxBytes: DefaultMaxBytes,
	}
}

// IsURL reports whether source should be downloaded rather than opened
func IsURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// Load reads source, which is a path or an http(s) URL, into an image payload
func (f *Fetcher) Load(ctx context.Context, source string) (Payload, error) {
	if IsURL(source) {
		return f.Download(ctx, source)
	}
	return f.ReadFile(source)
}

// ReadFile reads a local image
func (f *Fetcher) ReadFile(filename string) (Payload, error) {
	file, err := os.Open(filename)
	if err != nil {
		return Payload{}, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	data, err := f.readLimited(file)
	if err != nil {
		return Payload{}, fmt.Errorf("%s: %w", filename, err)
	}
	return NewPayload(filepath.Base(filename), data)
}

// Download fetches an image over HTTP
func (f *Fetcher) Download(ctx context.Context, imageURL string) (Payload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return Payload{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return Payload{}, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Payload{}, fmt.Errorf("failed to download image: HTTP %d", resp.StatusCode)
	}

	data, err := f.readLimited(resp.Body)
	if err != nil {
		return Payload{}, fmt.Errorf("%s: %w", imageURL, err)
	}

	slog.Debug("Downloaded image", "url", imageURL, "bytes", len(data))
	return NewPayload(filenameFromURL(imageURL), data)
}

func (f *Fetcher) readLimited(r io.Reader) ([]byte, error) {
	limit := f.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("image too large (max %d bytes)", limit)
	}
	return data, nil
}

func filenameFromURL(imageURL string) string {
	u, err := url.Parse(imageURL)
	if err != nil {
		return "image"
	}
	name := path.Base(u.Path)
	if name == "" || name == "/" || name == "." {
		return "image"
	}
	return name
}
