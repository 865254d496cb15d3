package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/anime-shed/image-descaler/internal/brisque"
	"github.com/anime-shed/image-descaler/internal/descale"
	apperrors "github.com/anime-shed/image-descaler/internal/errors"
	"github.com/anime-shed/image-descaler/internal/imaging"
	"github.com/anime-shed/image-descaler/internal/logger"
	"github.com/anime-shed/image-descaler/internal/observer"
	"github.com/anime-shed/image-descaler/internal/repository"
	"github.com/anime-shed/image-descaler/internal/storage"
	"github.com/anime-shed/image-descaler/pkg/validation"
)

// QualityAssessor scores rasters. brisque.Assessor is the production implementation.
type QualityAssessor interface {
	descale.Scorer
	AssessImageQuality(ctx context.Context, src imaging.PixelSource) float32
}

// Assessment is the outcome of scoring one image.
type Assessment struct {
	Score          float32
	Grade          validation.Grade
	Sharpness      float32
	SharpnessGrade validation.Grade
	Width          int
	Height         int
	Duration       time.Duration
}

// QualityService scores images and runs descale searches, synchronously or as
// async jobs.
type QualityService interface {
	Assess(ctx context.Context, img *imaging.ARGBImage) (*Assessment, error)
	AssessURL(ctx context.Context, imageURL string) (*Assessment, error)
	Descale(ctx context.Context, img *imaging.ARGBImage, opts descale.Options, onProgress descale.ProgressFunc) (*descale.Result, error)

	SubmitDescale(img *imaging.ARGBImage, opts descale.Options) (Job, error)
	Job(id string) (Job, error)
	CancelJob(id string) (Job, error)
	PoolStats() PoolStats

	// Close cancels outstanding jobs and stops the workers.
	Close()
}

// Config tunes the service.
type Config struct {
	// Workers is the async pool size; 0 derives it from physical memory.
	Workers        int
	// QueueSize bounds jobs waiting for a worker; zero means twice Workers.
	QueueSize      int
	DescaleTimeout time.Duration
	JobRetention   time.Duration
}

type qualityService struct {
	assessor QualityAssessor
	engine   *descale.Engine
	images   repository.ImageRepository
	events   observer.Subject
	cfg      Config

	pool *WorkerPool
	jobs *jobRegistry

	baseCtx context.Context
	stop    context.CancelFunc
	log     *logrus.Entry
}

// NewQualityService creates the service and starts its worker pool
func NewQualityService(
	assessor QualityAssessor,
	images repository.ImageRepository,
	events observer.Subject,
	cfg Config,
) QualityService {
	pool := NewWorkerPool(cfg.Workers, cfg.QueueSize)
	pool.Start()

	ctx, stop := context.WithCancel(context.Background())
	return &qualityService{
		assessor: assessor,
		engine:   descale.NewEngine(assessor),
		images:   images,
		events:   events,
		cfg:      cfg,
		pool:     pool,
		jobs:     newJobRegistry(cfg.JobRetention),
		baseCtx:  ctx,
		stop:     stop,
		log:      logger.WithField("component", "quality_service"),
	}
}

func (s *qualityService) publish(ctx context.Context, e observer.Event) {
	if s.events != nil {
		s.events.NotifyObservers(ctx, e)
	}
}

func checkImage(img *imaging.ARGBImage) error {
	if img == nil || img.Width() <= 0 || img.Height() <= 0 {
		return apperrors.NewValidationError("image is empty", imaging.ErrEmptyImage)
	}
	return nil
}

// Assess scores img and measures its sharpness
func (s *qualityService) Assess(ctx context.Context, img *imaging.ARGBImage) (*Assessment, error) {
	if err := checkImage(img); err != nil {
		return nil, err
	}

	start := time.Now()
	score := s.assessor.AssessImageQuality(ctx, img)
	elapsed := time.Since(start)

	switch score {
	case brisque.ScoreModelUnavailable:
		s.publish(ctx, observer.Event{EventType: observer.ModelUnavailable, Score: score, ProcessingTime: elapsed})
		return nil, apperrors.NewModelUnavailableError("BRISQUE model unavailable", brisque.ErrModelUnavailable)
	case brisque.ScoreError:
		s.publish(ctx, observer.Event{EventType: observer.AssessmentFailed, Score: score, ProcessingTime: elapsed})
		return nil, apperrors.NewProcessingError("quality assessment failed", nil)
	}

	sharp := imaging.Sharpness(img)
	elapsed = time.Since(start)
	s.publish(ctx, observer.Event{
		EventType:      observer.AssessmentCompleted,
		Success:        true,
		Score:          score,
		ProcessingTime: elapsed,
		Metadata: map[string]interface{}{
			"width":     img.Width(),
			"height":    img.Height(),
			"sharpness": sharp,
		},
	})

	return &Assessment{
		Score:          score,
		Grade:          validation.BrisqueGrade(score),
		Sharpness:      sharp,
		SharpnessGrade: validation.SharpnessGrade(sharp),
		Width:          img.Width(),
		Height:         img.Height(),
		Duration:       elapsed,
	}, nil
}

// AssessURL downloads an image and assesses it
func (s *qualityService) AssessURL(ctx context.Context, imageURL string) (*Assessment, error) {
	img, err := s.fetch(ctx, imageURL)
	if err != nil {
		return nil, err
	}
	return s.Assess(ctx, img)
}

func (s *qualityService) fetch(ctx context.Context, imageURL string) (*imaging.ARGBImage, error) {
	start := time.Now()
	img, err := s.images.FetchImage(ctx, imageURL)
	if err != nil {
		s.publish(ctx, observer.Event{
			EventType:      observer.ImageFetchFailed,
			Source:         imageURL,
			ProcessingTime: time.Since(start),
			ErrorMessage:   err.Error(),
		})
		switch {
		case errors.Is(err, repository.ErrInvalidImageURL):
			return nil, apperrors.NewValidationError("invalid image URL", err)
		case errors.Is(err, storage.ErrTooLarge):
			return nil, apperrors.NewTooLargeError("image exceeds size limit", err)
		case errors.Is(err, imaging.ErrEmptyImage):
			return nil, apperrors.NewValidationError("image is empty", err)
		case errors.Is(err, context.DeadlineExceeded):
			return nil, apperrors.NewTimeoutError("image fetch timed out", err)
		default:
			return nil, apperrors.NewNetworkError("failed to fetch image", err)
		}
	}
	s.publish(ctx, observer.Event{
		EventType:      observer.ImageFetched,
		Source:         imageURL,
		Success:        true,
		ProcessingTime: time.Since(start),
	})
	return img, nil
}

// Descale runs the search on the calling goroutine
func (s *qualityService) Descale(ctx context.Context, img *imaging.ARGBImage, opts descale.Options, onProgress descale.ProgressFunc) (*descale.Result, error) {
	return s.descale(ctx, "", img, opts, onProgress)
}

// ready fails fast, before any scanning, when no model can be loaded.
func (s *qualityService) ready(ctx context.Context, jobID string) error {
	if err := s.assessor.Ready(ctx); err != nil {
		s.publish(ctx, observer.Event{
			EventType:    observer.ModelUnavailable,
			JobID:        jobID,
			ErrorMessage: err.Error(),
		})
		return apperrors.NewModelUnavailableError("BRISQUE model unavailable", err)
	}
	return nil
}

func (s *qualityService) descale(ctx context.Context, jobID string, img *imaging.ARGBImage, opts descale.Options, onProgress descale.ProgressFunc) (*descale.Result, error) {
	if err := checkImage(img); err != nil {
		return nil, err
	}
	if err := validation.ValidateDescaleOptions(opts); err != nil {
		return nil, err
	}
	if err := s.ready(ctx, jobID); err != nil {
		return nil, err
	}

	if s.cfg.DescaleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.DescaleTimeout)
		defer cancel()
	}

	dims := map[string]interface{}{"width": img.Width(), "height": img.Height()}
	s.publish(ctx, observer.Event{EventType: observer.DescaleStarted, JobID: jobID, Metadata: dims})

	start := time.Now()
	res, err := s.engine.Descale(ctx, img, opts, func(u descale.ProgressUpdate) {
		s.publish(ctx, observer.Event{EventType: observer.DescaleProgress, JobID: jobID, Progress: &u})
		if onProgress != nil {
			onProgress(u)
		}
	})
	elapsed := time.Since(start)
	if err != nil {
		return nil, s.descaleError(ctx, jobID, err, elapsed)
	}

	s.publish(ctx, observer.Event{
		EventType:      observer.DescaleCompleted,
		JobID:          jobID,
		Success:        true,
		Score:          res.BestBrisqueScore,
		ProcessingTime: elapsed,
		Metadata: map[string]interface{}{
			"width":          res.DetectedOptimalWidth,
			"height":         res.DetectedOptimalHeight,
			"original_width": res.OriginalWidth,
			"combined_score": res.CombinedScore,
		},
	})
	return res, nil
}

func (s *qualityService) descaleError(ctx context.Context, jobID string, err error, elapsed time.Duration) error {
	event := observer.Event{
		EventType:      observer.DescaleFailed,
		JobID:          jobID,
		ProcessingTime: elapsed,
		ErrorMessage:   err.Error(),
	}

	var appErr *apperrors.AppError
	switch {
	case errors.Is(err, descale.ErrCancelled) && errors.Is(err, context.DeadlineExceeded):
		appErr = apperrors.NewTimeoutError("descale timed out", err)
	case errors.Is(err, descale.ErrCancelled):
		event.EventType = observer.DescaleCancelled
		appErr = apperrors.NewCancelledError("descale cancelled", err)
	case errors.Is(err, descale.ErrModelUnavailable):
		appErr = apperrors.NewModelUnavailableError("BRISQUE model unavailable", err)
	case errors.Is(err, descale.ErrInvalidOptions), errors.Is(err, imaging.ErrEmptyImage):
		appErr = apperrors.NewValidationError("invalid descale request", err)
	default:
		appErr = apperrors.NewProcessingError("descale failed", err)
	}

	// The run context is finished here; deliver on a fresh one.
	s.publish(context.WithoutCancel(ctx), event)
	return appErr
}

// SubmitDescale queues an async descale job and returns its initial snapshot
func (s *qualityService) SubmitDescale(img *imaging.ARGBImage, opts descale.Options) (Job, error) {
	if err := checkImage(img); err != nil {
		return Job{}, err
	}
	if err := validation.ValidateDescaleOptions(opts); err != nil {
		return Job{}, err
	}
	if err := s.ready(s.baseCtx, ""); err != nil {
		return Job{}, err
	}

	ctx, cancel := context.WithCancel(s.baseCtx)
	id := s.jobs.create(opts, cancel)
	job, _ := s.jobs.get(id)
	if !s.pool.Submit(func() { s.runJob(ctx, id, img, opts) }) {
		cancel()
		s.jobs.remove(id)
		return Job{}, apperrors.NewBusyError("descale queue is full", nil)
	}

	s.log.WithField("job_id", id).Info("Descale job queued")
	return job, nil
}

func (s *qualityService) runJob(ctx context.Context, id string, img *imaging.ARGBImage, opts descale.Options) {
	if !s.jobs.start(id) {
		return
	}

	res, err := s.descale(ctx, id, img, opts, func(u descale.ProgressUpdate) {
		s.jobs.progress(id, u)
	})
	switch {
	case err == nil:
		s.jobs.finish(id, JobCompleted, res, nil)
	case apperrors.IsType(err, apperrors.ErrorTypeCancelled):
		s.jobs.finish(id, JobCancelled, nil, err)
	default:
		s.log.WithError(err).WithField("job_id", id).Warn("Descale job failed")
		s.jobs.finish(id, JobFailed, nil, err)
	}
}

// Job returns a snapshot of job id
func (s *qualityService) Job(id string) (Job, error) {
	job, ok := s.jobs.get(id)
	if !ok {
		return Job{}, apperrors.NewNotFoundError("job not found", nil).WithDetails(id)
	}
	return job, nil
}

// CancelJob stops job id and returns its snapshot
func (s *qualityService) CancelJob(id string) (Job, error) {
	job, ok := s.jobs.cancel(id)
	if !ok {
		return Job{}, apperrors.NewNotFoundError("job not found", nil).WithDetails(id)
	}
	return job, nil
}

func (s *qualityService) PoolStats() PoolStats {
	return s.pool.GetStats()
}

func (s *qualityService) Close() {
	s.jobs.cancelAll()
	s.stop()
	s.pool.Close()
}
