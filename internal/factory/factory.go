package factory

import (
	"fmt"

	"github.com/anime-shed/image-descaler/internal/config"
	"github.com/anime-shed/image-descaler/internal/repository"
	"github.com/anime-shed/image-descaler/internal/storage"
)

// SourceType selects where the model asset is read from
type SourceType string

const (
	// FileSource reads the asset bundle from a local directory
	FileSource SourceType = config.ModelSourceFile
	// HTTPSource downloads assets relative to a base URL
	HTTPSource SourceType = config.ModelSourceHTTP
	// AzureSource reads blobs from an Azure storage container
	AzureSource SourceType = config.ModelSourceAzure
)

// AssetSourceFactory creates model asset sources
type AssetSourceFactory interface {
	CreateAssetSource(sourceType SourceType) (storage.AssetSource, error)
}

// assetSourceFactory implements AssetSourceFactory
type assetSourceFactory struct {
	cfg *config.Config
}

// NewAssetSourceFactory creates a new asset source factory
func NewAssetSourceFactory(cfg *config.Config) AssetSourceFactory {
	return &assetSourceFactory{cfg: cfg}
}

// CreateAssetSource creates an asset source based on the specified type
func (f *assetSourceFactory) CreateAssetSource(sourceType SourceType) (storage.AssetSource, error) {
	switch sourceType {
	case FileSource:
		return storage.NewFileSource(f.cfg.ModelDir), nil
	case HTTPSource:
		src, err := storage.NewHTTPAssetSource(f.cfg.ModelURL, f.cfg.ImageFetchTimeout)
		if err != nil {
			return nil, err
		}
		return src, nil
	case AzureSource:
		return storage.NewAzureAssetSource(f.cfg.AzureAccount, f.cfg.AzureKey, f.cfg.AzureModelContainer)
	default:
		return nil, fmt.Errorf("unsupported model source: %s", sourceType)
	}
}

// ComponentFactory builds the repositories the service runs on
type ComponentFactory struct {
	AssetSources AssetSourceFactory
	cfg          *config.Config
}

// NewComponentFactory creates a new component factory
func NewComponentFactory(cfg *config.Config) *ComponentFactory {
	return &ComponentFactory{
		AssetSources: NewAssetSourceFactory(cfg),
		cfg:          cfg,
	}
}

// ModelRepository creates the lazily loading model repository over the
// configured asset source.
func (f *ComponentFactory) ModelRepository() (repository.ModelRepository, error) {
	source, err := f.AssetSources.CreateAssetSource(SourceType(f.cfg.ModelSource))
	if err != nil {
		return nil, fmt.Errorf("model source: %w", err)
	}
	return repository.NewModelRepository(source, repository.ModelRepositoryConfig{
		AssetName:      f.cfg.ModelName,
		CacheDir:       f.cfg.ModelCacheDir,
		ExpectedDigest: f.cfg.ModelSHA256,
	}), nil
}

// ImageRepository creates the validated HTTP image repository
func (f *ComponentFactory) ImageRepository(validator repository.URLValidator) repository.ImageRepository {
	fetcher := storage.NewHTTPImageFetcher(f.cfg.ImageFetchTimeout, f.cfg.MaxRequestBodySize)
	return repository.NewHTTPImageRepository(fetcher, validator)
}
