package repository

import (
	"errors"

	"github.com/anime-shed/image-descaler/internal/brisque"
)

var (
	// ErrModelUnavailable indicates no usable model could be produced
	ErrModelUnavailable = brisque.ErrModelUnavailable

	// ErrDigestMismatch indicates the cached model failed SHA-256 verification
	ErrDigestMismatch = errors.New("model digest mismatch")

	// ErrInvalidImageURL indicates an invalid image URL
	ErrInvalidImageURL = errors.New("invalid image URL")
)
