package container

import (
	"fmt"
	"net/http"

	"github.com/anime-shed/image-descaler/internal/brisque"
	"github.com/anime-shed/image-descaler/internal/config"
	"github.com/anime-shed/image-descaler/internal/factory"
	"github.com/anime-shed/image-descaler/internal/logger"
	"github.com/anime-shed/image-descaler/internal/observer"
	"github.com/anime-shed/image-descaler/internal/repository"
	"github.com/anime-shed/image-descaler/internal/service"
	"github.com/anime-shed/image-descaler/internal/transport"
	"github.com/anime-shed/image-descaler/pkg/validation"
)

// Container holds all application dependencies
type Container struct {
	config          *config.Config
	modelRepository repository.ModelRepository
	imageRepository repository.ImageRepository
	assessor        *brisque.Assessor
	events          *observer.EventPublisher
	stats           *observer.MetricsObserver
	qualityService  service.QualityService
	handler         http.Handler
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config) (*Container, error) {
	components := factory.NewComponentFactory(cfg)

	modelRepository, err := components.ModelRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to build model repository: %w", err)
	}
	imageRepository := components.ImageRepository(validation.NewURLValidator())
	assessor := brisque.NewAssessor(modelRepository)

	stats := observer.NewMetricsObserver()
	events := observer.NewEventPublisher()
	events.Subscribe(observer.NewLoggingObserver(logger.Logger))
	events.Subscribe(stats)

	qualityService := service.NewQualityService(assessor, imageRepository, events, service.Config{
		Workers:        cfg.MaxConcurrentJobs,
		DescaleTimeout: cfg.DescaleTimeout,
		JobRetention:   cfg.JobRetention,
	})
	handler := transport.NewHandler(qualityService, modelRepository, stats, cfg)

	return &Container{
		config:          cfg,
		modelRepository: modelRepository,
		imageRepository: imageRepository,
		assessor:        assessor,
		events:          events,
		stats:           stats,
		qualityService:  qualityService,
		handler:         handler,
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Service returns the quality service
func (c *Container) Service() service.QualityService {
	return c.qualityService
}

// Assessor returns the BRISQUE assessor backed by the model repository
func (c *Container) Assessor() *brisque.Assessor {
	return c.assessor
}

// Close stops background workers
func (c *Container) Close() {
	c.qualityService.Close()
}
