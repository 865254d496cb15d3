package repository

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/klauspost/compress/zstd"

	"github.com/anime-shed/image-descaler/internal/brisque"
	"github.com/anime-shed/image-descaler/internal/storage"
)

// memorySource serves assets from memory and counts opens.
type memorySource struct {
	assets map[string][]byte
	opens  atomic.Int32
}

func (s *memorySource) Open(_ context.Context, name string) (io.ReadCloser, error) {
	s.opens.Add(1)
	data, ok := s.assets[name]
	if !ok {
		return nil, storage.ErrAssetNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func encodedModel(t *testing.T) []byte {
	t.Helper()
	m := &brisque.Model{
		Version:           1,
		NumFeatures:       brisque.FeatureCount,
		NumSupportVectors: 2,
		SupportVectors:    make([]float32, 2*brisque.FeatureCount),
		Alphas:            []float32{1.5, -0.5},
		Rho:               -20,
		Gamma:             0.1,
		RangeMin:          make([]float32, brisque.FeatureCount),
		RangeMax:          make([]float32, brisque.FeatureCount),
	}
	for i := range m.RangeMax {
		m.RangeMax[i] = 1
		m.SupportVectors[i] = 0.25
	}
	var buf bytes.Buffer
	if err := brisque.EncodeModel(&buf, m); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func digestOf(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func TestModelRepository_LoadsOnceAndCaches(t *testing.T) {
	blob := encodedModel(t)
	src := &memorySource{assets: map[string][]byte{"brisque_model.bin": blob}}
	cacheDir := t.TempDir()
	repo := NewModelRepository(src, ModelRepositoryConfig{
		AssetName:      "brisque_model.bin",
		CacheDir:       cacheDir,
		ExpectedDigest: digestOf(blob),
	})

	if repo.Loaded() {
		t.Fatal("Expected lazy loading")
	}
	first, err := repo.Model(context.Background())
	if err != nil {
		t.Fatalf("Model failed: %v", err)
	}
	second, _ := repo.Model(context.Background())
	if first != second {
		t.Error("Expected the same cached model instance")
	}
	if src.opens.Load() != 1 {
		t.Errorf("Expected 1 asset open, got %d", src.opens.Load())
	}
	if first.NumSupportVectors != 2 || first.Alphas[0] != 1.5 {
		t.Errorf("unexpected model %+v", first)
	}

	cached, err := os.ReadFile(filepath.Join(cacheDir, "brisque_model.bin"))
	if err != nil || !bytes.Equal(cached, blob) {
		t.Error("Expected the asset to be cached on disk")
	}

	// After Clear the on-disk cache is reused without touching the source.
	repo.Clear()
	if repo.Loaded() {
		t.Error("Expected Clear to drop the model")
	}
	third, err := repo.Model(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if third == first {
		t.Error("Expected a fresh model after Clear")
	}
	if src.opens.Load() != 1 {
		t.Errorf("Expected cached file reuse, got %d opens", src.opens.Load())
	}
}

func TestModelRepository_ConcurrentFirstUse(t *testing.T) {
	blob := encodedModel(t)
	src := &memorySource{assets: map[string][]byte{"m.bin": blob}}
	repo := NewModelRepository(src, ModelRepositoryConfig{
		AssetName:      "m.bin",
		CacheDir:       t.TempDir(),
		ExpectedDigest: digestOf(blob),
	})

	var wg sync.WaitGroup
	models := make([]*brisque.Model, 16)
	for i := range models {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			models[i], _ = repo.Model(context.Background())
		}(i)
	}
	wg.Wait()

	for i, m := range models {
		if m == nil || m != models[0] {
			t.Fatalf("goroutine %d got a different model", i)
		}
	}
	if src.opens.Load() != 1 {
		t.Errorf("Expected a single load, got %d", src.opens.Load())
	}
}

func TestModelRepository_DigestMismatchDeletesCache(t *testing.T) {
	blob := encodedModel(t)
	src := &memorySource{assets: map[string][]byte{"brisque_model.bin": blob}}
	cacheDir := t.TempDir()
	repo := NewModelRepository(src, ModelRepositoryConfig{
		AssetName:      "brisque_model.bin",
		CacheDir:       cacheDir,
		ExpectedDigest: ProductionModelDigest,
	})

	m, err := repo.Model(context.Background())
	if m != nil {
		t.Error("Expected no model")
	}
	if !errors.Is(err, ErrModelUnavailable) || !errors.Is(err, ErrDigestMismatch) {
		t.Errorf("Expected unavailable digest mismatch, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(cacheDir, "brisque_model.bin")); !os.IsNotExist(statErr) {
		t.Error("Expected the unverified cache file to be deleted")
	}
	if repo.Loaded() {
		t.Error("Expected nothing cached after a failed load")
	}
}

func TestModelRepository_MalformedBlob(t *testing.T) {
	blob := []byte("BRSQ\x01\x00")
	src := &memorySource{assets: map[string][]byte{"bad.bin": blob}}
	repo := NewModelRepository(src, ModelRepositoryConfig{
		AssetName:      "bad.bin",
		CacheDir:       t.TempDir(),
		ExpectedDigest: digestOf(blob),
	})

	_, err := repo.Model(context.Background())
	if !errors.Is(err, ErrModelUnavailable) || !errors.Is(err, brisque.ErrMalformedModel) {
		t.Errorf("Expected unavailable malformed model, got %v", err)
	}
}

func TestModelRepository_MissingAsset(t *testing.T) {
	repo := NewModelRepository(&memorySource{}, ModelRepositoryConfig{
		AssetName:      "brisque_model.bin",
		CacheDir:       t.TempDir(),
		ExpectedDigest: ProductionModelDigest,
	})
	_, err := repo.Model(context.Background())
	if !errors.Is(err, ErrModelUnavailable) || !errors.Is(err, storage.ErrAssetNotFound) {
		t.Errorf("Expected unavailable missing asset, got %v", err)
	}
}

func TestModelRepository_CompressedAsset(t *testing.T) {
	blob := encodedModel(t)
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatal(err)
	}
	compressed := enc.EncodeAll(blob, nil)
	enc.Close()

	cacheDir := t.TempDir()
	src := &memorySource{assets: map[string][]byte{"brisque_model.bin.zst": compressed}}
	repo := NewModelRepository(src, ModelRepositoryConfig{
		AssetName:      "brisque_model.bin.zst",
		CacheDir:       cacheDir,
		ExpectedDigest: digestOf(blob),
	})

	if _, err := repo.Model(context.Background()); err != nil {
		t.Fatalf("Model failed: %v", err)
	}
	cached, err := os.ReadFile(filepath.Join(cacheDir, "brisque_model.bin"))
	if err != nil || !bytes.Equal(cached, blob) {
		t.Error("Expected the decompressed model in the cache")
	}
}

func TestModelRepository_FileSource(t *testing.T) {
	blob := encodedModel(t)
	assets := t.TempDir()
	if err := os.WriteFile(filepath.Join(assets, "brisque_model.bin"), blob, 0o644); err != nil {
		t.Fatal(err)
	}
	repo := NewModelRepository(storage.NewFileSource(assets), ModelRepositoryConfig{
		AssetName:      "brisque_model.bin",
		CacheDir:       t.TempDir(),
		ExpectedDigest: "  " + digestOf(blob) + "\n",
	})
	a := brisque.NewAssessor(repo)
	if err := a.Ready(context.Background()); err != nil {
		t.Fatalf("Expected ready assessor, got %v", err)
	}
}
