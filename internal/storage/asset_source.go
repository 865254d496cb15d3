package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrAssetNotFound is returned when a named asset does not exist.
	ErrAssetNotFound = errors.New("asset not found")
	// ErrTooLarge is returned when a download exceeds its size limit.
	ErrTooLarge = errors.New("payload too large")
)

// AssetSource opens named binary assets such as the BRISQUE model.
type AssetSource interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// FileSource serves assets from a local directory.
type FileSource struct {
	dir string
}

// NewFileSource creates a source rooted at dir.
func NewFileSource(dir string) *FileSource {
	return &FileSource{dir: dir}
}

// Open implements AssetSource. Names may not escape the root directory.
func (s *FileSource) Open(_ context.Context, name string) (io.ReadCloser, error) {
	if name == "" || strings.Contains(name, "..") {
		return nil, fmt.Errorf("invalid asset name %q", name)
	}
	f, err := os.Open(filepath.Join(s.dir, filepath.Clean("/"+name)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, name)
		}
		return nil, err
	}
	return f, nil
}

func (s *FileSource) String() string {
	return "file:" + s.dir
}

func asStatus(err error, target **StatusError) bool {
	return errors.As(err, target)
}
