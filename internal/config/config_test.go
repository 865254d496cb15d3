package config

import (
	"strings"
	"testing"
	"time"

	"github.com/anime-shed/image-descaler/internal/descale"
	"github.com/anime-shed/image-descaler/internal/repository"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv failed: %v", err)
	}
	if cfg.ServerAddress() != "0.0.0.0:8080" {
		t.Errorf("unexpected address %s", cfg.ServerAddress())
	}
	if cfg.ModelSource != ModelSourceFile || cfg.ModelName != "brisque_model.bin" {
		t.Errorf("unexpected model source %s/%s", cfg.ModelSource, cfg.ModelName)
	}
	if cfg.ModelSHA256 != repository.ProductionModelDigest {
		t.Error("Expected production digest by default")
	}
	if cfg.DescaleOptions() != descale.DefaultOptions() {
		t.Errorf("Expected default descale options, got %+v", cfg.DescaleOptions())
	}
	if cfg.JobRetention != time.Hour || cfg.MaxConcurrentJobs != 0 {
		t.Errorf("unexpected job settings %v/%d", cfg.JobRetention, cfg.MaxConcurrentJobs)
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("PORT", " 9090 ")
	t.Setenv("DESCALE_COARSE_STEP", "30")
	t.Setenv("DESCALE_MIN_WIDTH_RATIO", "0.25")
	t.Setenv("DESCALE_TIMEOUT", "2m")
	t.Setenv("MODEL_SOURCE", "HTTP")
	t.Setenv("MODEL_URL", "https://assets.example.com/models")
	t.Setenv("MAX_CONCURRENT_JOBS", "3")
	t.Setenv("REQUEST_TIMEOUT", "garbage")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv failed: %v", err)
	}
	if cfg.Port != " 9090 " || !strings.HasSuffix(cfg.ServerAddress(), ":9090") {
		t.Errorf("unexpected address %s", cfg.ServerAddress())
	}
	opts := cfg.DescaleOptions()
	if opts.CoarseStep != 30 || opts.MinWidthRatio != 0.25 {
		t.Errorf("unexpected options %+v", opts)
	}
	if cfg.DescaleTimeout != 2*time.Minute || cfg.RequestTimeout != 30*time.Second {
		t.Errorf("unexpected timeouts %v/%v", cfg.DescaleTimeout, cfg.RequestTimeout)
	}
	if cfg.ModelSource != ModelSourceHTTP || cfg.MaxConcurrentJobs != 3 {
		t.Errorf("unexpected settings %s/%d", cfg.ModelSource, cfg.MaxConcurrentJobs)
	}
}

func TestLoadFromEnv_Invalid(t *testing.T) {
	testCases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"Port", map[string]string{"PORT": "70000"}, "invalid PORT"},
		{"BodySize", map[string]string{"MAX_REQUEST_BODY_SIZE": "-1"}, "MAX_REQUEST_BODY_SIZE"},
		{"Jobs", map[string]string{"MAX_CONCURRENT_JOBS": "-2"}, "MAX_CONCURRENT_JOBS"},
		{"Digest", map[string]string{"MODEL_SHA256": "abc"}, "MODEL_SHA256"},
		{"Source", map[string]string{"MODEL_SOURCE": "ftp"}, "unsupported MODEL_SOURCE"},
		{"HTTPWithoutURL", map[string]string{"MODEL_SOURCE": "http"}, "MODEL_URL"},
		{"AzureWithoutKey", map[string]string{"MODEL_SOURCE": "azure", "AZURE_STORAGE_ACCOUNT": "acct"}, "AZURE_STORAGE_KEY"},
		{"Descale", map[string]string{"DESCALE_FINE_STEP": "0"}, "descale defaults"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := LoadFromEnv()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("Expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}
