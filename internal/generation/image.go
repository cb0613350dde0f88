package generation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultFetchTimeout bounds a single image download.
	DefaultFetchTimeout = 30 * time.Second
	// MaxImageBytes is the largest image forwarded to the provider (10MB).
	MaxImageBytes = 10 * 1024 * 1024

	defaultImageMIMEType = "image/jpeg"
)

var (
	ErrImageEmpty    = errors.New("uploaded image is empty")
	ErrImageTooLarge = errors.New("uploaded image is too large for AI processing")
)

// Image is inline image data sent to the provider.
type Image struct {
	Data     []byte
	MIMEType string
}

// ImageFetcher loads the bytes behind an image URL.
type ImageFetcher interface {
	Fetch(ctx context.Context, imageURL string) (*Image, error)
}

// ImageDownloader fetches images over HTTP with a size cap.
type ImageDownloader struct {
	client  *http.Client
	timeout time.Duration
	maxSize int64
}

func NewImageDownloader() *ImageDownloader {
	return &ImageDownloader{
		client:  &http.Client{Timeout: DefaultFetchTimeout},
		timeout: DefaultFetchTimeout,
		maxSize: MaxImageBytes,
	}
}

func (d *ImageDownloader) WithTimeout(timeout time.Duration) *ImageDownloader {
	d.timeout = timeout
	d.client.Timeout = timeout
	return d
}

func (d *ImageDownloader) WithMaxSize(maxSize int64) *ImageDownloader {
	d.maxSize = maxSize
	return d
}

func (d *ImageDownloader) Fetch(ctx context.Context, imageURL string) (*Image, error) {
	reqCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("image download failed with status %d", resp.StatusCode)
	}

	if resp.ContentLength > d.maxSize {
		return nil, ErrImageTooLarge
	}

	// Content-Length may be absent or wrong.
	data, err := io.ReadAll(io.LimitReader(resp.Body, d.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrImageEmpty
	}
	if int64(len(data)) > d.maxSize {
		return nil, ErrImageTooLarge
	}

	return &Image{Data: data, MIMEType: imageMIMEType(resp.Header.Get("Content-Type"))}, nil
}

// imageMIMEType keeps the media type of an image/* header and falls back to JPEG otherwise.
func imageMIMEType(contentType string) string {
	mediaType := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	if strings.HasPrefix(mediaType, "image/") {
		return mediaType
	}
	return defaultImageMIMEType
}
