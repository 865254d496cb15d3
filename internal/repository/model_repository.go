package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/sirupsen/logrus"

	"github.com/anime-shed/image-descaler/internal/brisque"
	"github.com/anime-shed/image-descaler/internal/logger"
	"github.com/anime-shed/image-descaler/internal/storage"
)

// ProductionModelDigest is the SHA-256 of the shipped brisque_model.bin.
const ProductionModelDigest = "fe4a6bcee5aa2357e34ce845133cfc2d707dcc2613627c38d4ef805bf81fc59b"

const compressedSuffix = ".zst"

// ModelRepository provides the process-wide BRISQUE model.
type ModelRepository interface {
	brisque.ModelProvider
	// Loaded reports whether a model is cached without triggering a load.
	Loaded() bool
	// Clear drops the cached model so the next call reloads it.
	Clear()
}

// ModelRepositoryConfig configures where the model comes from.
type ModelRepositoryConfig struct {
	// AssetName is the asset to request; a .zst suffix means zstd-compressed.
	AssetName string
	// CacheDir receives the materialized, uncompressed model file.
	CacheDir string
	// ExpectedDigest is the hex SHA-256 of the uncompressed model.
	ExpectedDigest string
}

type modelRepository struct {
	source storage.AssetSource
	cfg    ModelRepositoryConfig
	log    *logrus.Entry

	mu     sync.Mutex
	cached atomic.Pointer[brisque.Model]
}

// NewModelRepository creates a lazily loading repository over source.
func NewModelRepository(source storage.AssetSource, cfg ModelRepositoryConfig) ModelRepository {
	cfg.ExpectedDigest = strings.ToLower(strings.TrimSpace(cfg.ExpectedDigest))
	return &modelRepository{
		source: source,
		cfg:    cfg,
		log: logger.WithFields(logrus.Fields{
			"component": "model_repository",
			"asset":     cfg.AssetName,
		}),
	}
}

func (r *modelRepository) Loaded() bool {
	return r.cached.Load() != nil
}

func (r *modelRepository) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cached.Store(nil)
}

// Model returns the cached model, loading and verifying it on first use.
// Every failure wraps ErrModelUnavailable.
func (r *modelRepository) Model(ctx context.Context) (*brisque.Model, error) {
	if m := r.cached.Load(); m != nil {
		return m, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if m := r.cached.Load(); m != nil {
		return m, nil
	}

	start := time.Now()
	m, err := r.load(ctx)
	if err != nil {
		r.log.WithError(err).Error("Failed to load BRISQUE model")
		return nil, fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}
	r.cached.Store(m)
	r.log.WithFields(logrus.Fields{
		"support_vectors": m.NumSupportVectors,
		"elapsed_ms":      time.Since(start).Milliseconds(),
	}).Info("BRISQUE model loaded")
	return m, nil
}

func (r *modelRepository) cachePath() string {
	return filepath.Join(r.cfg.CacheDir, strings.TrimSuffix(filepath.Base(r.cfg.AssetName), compressedSuffix))
}

func (r *modelRepository) load(ctx context.Context) (*brisque.Model, error) {
	path := r.cachePath()
	if info, err := os.Stat(path); err != nil || info.Size() == 0 {
		if err := r.materialize(ctx, path); err != nil {
			return nil, err
		}
	}

	digest, err := fileDigest(path)
	if err != nil {
		return nil, err
	}
	if digest != r.cfg.ExpectedDigest {
		r.log.WithFields(logrus.Fields{
			"expected": r.cfg.ExpectedDigest,
			"actual":   digest,
		}).Error("BRISQUE model SHA-256 verification failed")
		if rmErr := os.Remove(path); rmErr != nil {
			r.log.WithError(rmErr).Warn("Failed to delete unverified model")
		}
		return nil, ErrDigestMismatch
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	return brisque.DecodeModel(data)
}

// materialize copies the asset into path through a temp file so a partial
// download never looks like a cached model.
func (r *modelRepository) materialize(ctx context.Context, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	rc, err := r.source.Open(ctx, r.cfg.AssetName)
	if err != nil {
		return fmt.Errorf("open asset: %w", err)
	}
	defer rc.Close()

	var src io.Reader = rc
	if strings.HasSuffix(r.cfg.AssetName, compressedSuffix) {
		dec, err := zstd.NewReader(rc, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return fmt.Errorf("zstd reader: %w", err)
		}
		defer dec.Close()
		src = dec
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".model-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return fmt.Errorf("copy asset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("install cached model: %w", err)
	}
	r.log.WithField("path", path).Debug("Model asset cached")
	return nil
}

func fileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open cached model: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash cached model: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
