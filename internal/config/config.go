package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/anime-shed/image-descaler/internal/descale"
	"github.com/anime-shed/image-descaler/internal/repository"
)

// Model asset sources.
const (
	ModelSourceFile  = "file"
	ModelSourceHTTP  = "http"
	ModelSourceAzure = "azure"
)

type Config struct {
	Host               string
	Port               string
	LogLevel           string
	RequestTimeout     time.Duration
	ImageFetchTimeout  time.Duration
	DescaleTimeout     time.Duration
	MaxRequestBodySize int64

	// Model asset
	ModelSource         string
	ModelName           string
	ModelDir            string
	ModelURL            string
	ModelCacheDir       string
	ModelSHA256         string
	AzureAccount        string
	AzureKey            string
	AzureModelContainer string

	// Jobs
	MaxConcurrentJobs int
	JobRetention      time.Duration

	// Descale defaults
	CoarseStep      int
	FineStep        int
	FineRange       int
	MinWidthRatio   float64
	BrisqueWeight   float64
	SharpnessWeight float64
}

func (c *Config) ServerAddress() string {
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// DescaleOptions returns the configured default search options.
func (c *Config) DescaleOptions() descale.Options {
	return descale.DefaultOptions().
		WithCoarseStep(c.CoarseStep).
		WithFineStep(c.FineStep).
		WithFineRange(c.FineRange).
		WithMinWidthRatio(c.MinWidthRatio).
		WithWeights(c.BrisqueWeight, c.SharpnessWeight)
}

func LoadFromEnv() (*Config, error) {
	defaults := descale.DefaultOptions()
	cfg := &Config{
		Host:               getEnvOrDefault("HOST", "0.0.0.0"),
		Port:               getEnvOrDefault("PORT", "8080"),
		LogLevel:           getEnvOrDefault("LOG_LEVEL", "info"),
		RequestTimeout:     parseDurationOrDefault("REQUEST_TIMEOUT", 30*time.Second),
		ImageFetchTimeout:  parseDurationOrDefault("IMAGE_FETCH_TIMEOUT", 15*time.Second),
		DescaleTimeout:     parseDurationOrDefault("DESCALE_TIMEOUT", 10*time.Minute),
		MaxRequestBodySize: parseIntOrDefault("MAX_REQUEST_BODY_SIZE", 32*1024*1024), // 32MB

		ModelSource:         strings.ToLower(getEnvOrDefault("MODEL_SOURCE", ModelSourceFile)),
		ModelName:           getEnvOrDefault("MODEL_NAME", "brisque_model.bin"),
		ModelDir:            getEnvOrDefault("MODEL_DIR", "assets"),
		ModelURL:            os.Getenv("MODEL_URL"),
		ModelCacheDir:       getEnvOrDefault("MODEL_CACHE_DIR", filepath.Join(os.TempDir(), "image-descaler")),
		ModelSHA256:         getEnvOrDefault("MODEL_SHA256", repository.ProductionModelDigest),
		AzureAccount:        os.Getenv("AZURE_STORAGE_ACCOUNT"),
		AzureKey:            os.Getenv("AZURE_STORAGE_KEY"),
		AzureModelContainer: getEnvOrDefault("AZURE_MODEL_CONTAINER", "models"),

		MaxConcurrentJobs: int(parseIntOrDefault("MAX_CONCURRENT_JOBS", 0)),
		JobRetention:      parseDurationOrDefault("JOB_RETENTION", time.Hour),

		CoarseStep:      int(parseIntOrDefault("DESCALE_COARSE_STEP", int64(defaults.CoarseStep))),
		FineStep:        int(parseIntOrDefault("DESCALE_FINE_STEP", int64(defaults.FineStep))),
		FineRange:       int(parseIntOrDefault("DESCALE_FINE_RANGE", int64(defaults.FineRange))),
		MinWidthRatio:   parseFloatOrDefault("DESCALE_MIN_WIDTH_RATIO", defaults.MinWidthRatio),
		BrisqueWeight:   parseFloatOrDefault("DESCALE_BRISQUE_WEIGHT", defaults.BrisqueWeight),
		SharpnessWeight: parseFloatOrDefault("DESCALE_SHARPNESS_WEIGHT", defaults.SharpnessWeight),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that cannot be defaulted silently.
func (c *Config) Validate() error {
	p, err := strconv.Atoi(strings.TrimSpace(c.Port))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Port)
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", c.MaxRequestBodySize)
	}
	if c.RequestTimeout <= 0 || c.ImageFetchTimeout <= 0 || c.DescaleTimeout <= 0 {
		return fmt.Errorf("timeouts must be > 0 (got request=%s, fetch=%s, descale=%s)",
			c.RequestTimeout, c.ImageFetchTimeout, c.DescaleTimeout)
	}
	if c.MaxConcurrentJobs < 0 {
		return fmt.Errorf("MAX_CONCURRENT_JOBS must be >= 0 (got %d)", c.MaxConcurrentJobs)
	}
	if len(strings.TrimSpace(c.ModelSHA256)) != 64 {
		return fmt.Errorf("MODEL_SHA256 must be a hex SHA-256 digest")
	}

	switch c.ModelSource {
	case ModelSourceFile:
	case ModelSourceHTTP:
		if c.ModelURL == "" {
			return fmt.Errorf("MODEL_URL is required when MODEL_SOURCE=http")
		}
	case ModelSourceAzure:
		if c.AzureAccount == "" || c.AzureKey == "" {
			return fmt.Errorf("AZURE_STORAGE_ACCOUNT and AZURE_STORAGE_KEY are required when MODEL_SOURCE=azure")
		}
	default:
		return fmt.Errorf("unsupported MODEL_SOURCE: %q", c.ModelSource)
	}

	if err := c.DescaleOptions().Validate(); err != nil {
		return fmt.Errorf("descale defaults: %w", err)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func parseFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return f
		}
	}
	return defaultValue
}
