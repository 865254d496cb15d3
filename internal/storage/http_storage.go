package storage

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/anime-shed/image-descaler/internal/imaging"
)

const maxAttempts = 3

// ImageFetcher downloads and decodes input images.
type ImageFetcher interface {
	FetchImage(ctx context.Context, imageURL string) (*imaging.ARGBImage, error)
}

// retryingClient issues GETs with up to three attempts. Network errors and
// 5xx responses are retried; 4xx responses are final.
type retryingClient struct {
	client  *http.Client
	backoff time.Duration
	accept  string
}

func newRetryingClient(timeout time.Duration, accept string) *retryingClient {
	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		MaxResponseHeaderBytes: 4096,

		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}

	return &retryingClient{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
		backoff: time.Second,
		accept:  accept,
	}
}

// get returns a 200 response whose body the caller must close.
func (c *retryingClient) get(ctx context.Context, rawURL string) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, fmt.Errorf("invalid URL: %w", err)
		}
		req.Header.Set("Accept", c.accept)
		req.Header.Set("User-Agent", "Image-Descaler/1.0")

		resp, err := c.client.Do(req)
		switch {
		case err != nil:
			lastErr = err
		case resp.StatusCode == http.StatusOK:
			return resp, nil
		default:
			resp.Body.Close()
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return nil, &StatusError{Code: resp.StatusCode}
			}
			lastErr = &StatusError{Code: resp.StatusCode}
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt < maxAttempts-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt+1) * c.backoff):
			}
		}
	}
	return nil, fmt.Errorf("failed after %d attempts: %w", maxAttempts, lastErr)
}

// StatusError is a non-200 HTTP response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	if e.Code >= 400 && e.Code < 500 {
		return fmt.Sprintf("client error: status code %d", e.Code)
	}
	return fmt.Sprintf("server error: status code %d", e.Code)
}

// HTTPImageFetcher implements ImageFetcher over plain HTTP(S).
type HTTPImageFetcher struct {
	http    *retryingClient
	maxSize int64
}

// NewHTTPImageFetcher creates a fetcher that refuses bodies larger than maxSize bytes.
func NewHTTPImageFetcher(timeout time.Duration, maxSize int64) *HTTPImageFetcher {
	return &HTTPImageFetcher{
		http:    newRetryingClient(timeout, "image/jpeg, image/png, image/webp, image/gif, image/heic, */*"),
		maxSize: maxSize,
	}
}

func (h *HTTPImageFetcher) FetchImage(ctx context.Context, imageURL string) (*imaging.ARGBImage, error) {
	resp, err := h.http.get(ctx, imageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	body := io.Reader(resp.Body)
	if h.maxSize > 0 {
		body = io.LimitReader(resp.Body, h.maxSize+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if h.maxSize > 0 && int64(len(data)) > h.maxSize {
		return nil, fmt.Errorf("%w: image exceeds %d bytes", ErrTooLarge, h.maxSize)
	}

	img, _, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// HTTPAssetSource serves assets from a base URL.
type HTTPAssetSource struct {
	base *url.URL
	http *retryingClient
}

// NewHTTPAssetSource creates an asset source rooted at baseURL.
func NewHTTPAssetSource(baseURL string, timeout time.Duration) (*HTTPAssetSource, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("invalid asset base URL %q", baseURL)
	}
	return &HTTPAssetSource{
		base: u,
		http: newRetryingClient(timeout, "application/octet-stream, */*"),
	}, nil
}

// Open implements AssetSource.
func (s *HTTPAssetSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	target := s.base.JoinPath(name).String()
	resp, err := s.http.get(ctx, target)
	if err != nil {
		var se *StatusError
		if asStatus(err, &se) && se.Code == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, target)
		}
		return nil, fmt.Errorf("fetch asset %s: %w", target, err)
	}
	return resp.Body, nil
}

func (s *HTTPAssetSource) String() string {
	return "http:" + s.base.String()
}
