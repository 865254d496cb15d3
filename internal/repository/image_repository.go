package repository

import (
	"context"
	"fmt"

	"github.com/anime-shed/image-descaler/internal/imaging"
	"github.com/anime-shed/image-descaler/internal/storage"
)

// URLValidator checks input image URLs before they are fetched.
type URLValidator interface {
	ValidateImageURL(imageURL string) error
}

// ImageRepository loads input images to assess or descale.
type ImageRepository interface {
	FetchImage(ctx context.Context, imageURL string) (*imaging.ARGBImage, error)
}

// HTTPImageRepository implements ImageRepository using HTTP storage
type HTTPImageRepository struct {
	fetcher   storage.ImageFetcher
	validator URLValidator
}

// NewHTTPImageRepository creates a new HTTP-based image repository
func NewHTTPImageRepository(fetcher storage.ImageFetcher, validator URLValidator) ImageRepository {
	return &HTTPImageRepository{
		fetcher:   fetcher,
		validator: validator,
	}
}

// FetchImage validates the URL and downloads the image
func (r *HTTPImageRepository) FetchImage(ctx context.Context, imageURL string) (*imaging.ARGBImage, error) {
	if err := r.validator.ValidateImageURL(imageURL); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidImageURL, err)
	}
	return r.fetcher.FetchImage(ctx, imageURL)
}
