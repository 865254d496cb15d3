package container

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anime-shed/image-descaler/internal/brisque"
	"github.com/anime-shed/image-descaler/internal/config"
	"github.com/anime-shed/image-descaler/internal/imaging"
	"github.com/anime-shed/image-descaler/internal/repository"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Port:               "8080",
		RequestTimeout:     time.Second,
		ImageFetchTimeout:  time.Second,
		DescaleTimeout:     time.Minute,
		MaxRequestBodySize: 1 << 20,
		ModelSource:        config.ModelSourceFile,
		ModelName:          "brisque_model.bin",
		ModelDir:           t.TempDir(),
		ModelCacheDir:      t.TempDir(),
		ModelSHA256:        repository.ProductionModelDigest,
		MaxConcurrentJobs:  1,
		JobRetention:       time.Hour,
		CoarseStep:         20,
		FineStep:           5,
		FineRange:          30,
		MinWidthRatio:      0.5,
		BrisqueWeight:      0.7,
		SharpnessWeight:    0.3,
	}
}

func TestNewContainer(t *testing.T) {
	c, err := NewContainer(testConfig(t))
	if err != nil {
		t.Fatalf("NewContainer failed: %v", err)
	}
	defer c.Close()

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 from /health, got %d", rec.Code)
	}
}

func TestNewContainer_MissingModelIsUnavailable(t *testing.T) {
	c, err := NewContainer(testConfig(t))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	got := c.Assessor().AssessImageQuality(context.Background(), imaging.Gradient(16, 16))
	if got != brisque.ScoreModelUnavailable {
		t.Errorf("Expected %v without a model asset, got %v", brisque.ScoreModelUnavailable, got)
	}
	if err := c.Assessor().Ready(context.Background()); !errors.Is(err, brisque.ErrModelUnavailable) {
		t.Errorf("Expected ErrModelUnavailable, got %v", err)
	}
}

func TestNewContainer_UnsupportedSource(t *testing.T) {
	cfg := testConfig(t)
	cfg.ModelSource = "ftp"
	if _, err := NewContainer(cfg); err == nil {
		t.Error("Expected error for an unsupported model source")
	}
}
