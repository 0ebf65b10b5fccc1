package webui

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"

	_ "golang.org/x/image/webp"
)

// ImageFetcher downloads and decodes an image by URL. The PDF export
// path uses it to pull generated slides back from the gateway's CDN.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) (image.Image, error)
}

// HTTPImageFetcher fetches images over HTTP. Decodes PNG, JPEG, and
// WebP, which covers every format the gateway's models emit.
type HTTPImageFetcher struct {
	client *http.Client
	// maxBytes caps the response size; generated slides are a few MB.
	maxBytes int64
}

// NewHTTPImageFetcher creates a fetcher with a 64MB response cap.
func NewHTTPImageFetcher(client *http.Client) *HTTPImageFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPImageFetcher{client: client, maxBytes: 64 << 20}
}

// Fetch downloads and decodes one image.
func (f *HTTPImageFetcher) Fetch(ctx context.Context, url string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating image request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching image %q: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching image %q: status %d", url, resp.StatusCode)
	}

	img, _, err := image.Decode(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("decoding image %q: %w", url, err)
	}
	return img, nil
}
