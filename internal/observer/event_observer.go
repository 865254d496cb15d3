package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/anime-shed/image-descaler/internal/descale"
	"github.com/anime-shed/image-descaler/internal/metrics"
)

// Event is published for scoring and descale lifecycle changes
type Event struct {
	EventType      EventType               `json:"event_type"`
	Timestamp      time.Time               `json:"timestamp"`
	JobID          string                  `json:"job_id,omitempty"`
	Source         string                  `json:"source,omitempty"`
	ProcessingTime time.Duration           `json:"processing_time"`
	Success        bool                    `json:"success"`
	Score          float32                 `json:"score,omitempty"`
	Progress       *descale.ProgressUpdate `json:"progress,omitempty"`
	ErrorMessage   string                  `json:"error_message,omitempty"`
	Metadata       map[string]interface{}  `json:"metadata,omitempty"`
}

// EventType represents the type of event
type EventType string

const (
	AssessmentCompleted EventType = "assessment_completed"
	AssessmentFailed    EventType = "assessment_failed"
	// ModelUnavailable when scoring could not obtain a model
	ModelUnavailable EventType = "model_unavailable"

	DescaleStarted   EventType = "descale_started"
	DescaleProgress  EventType = "descale_progress"
	DescaleCompleted EventType = "descale_completed"
	DescaleFailed    EventType = "descale_failed"
	DescaleCancelled EventType = "descale_cancelled"

	ImageFetched     EventType = "image_fetched"
	ImageFetchFailed EventType = "image_fetch_failed"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event Event)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event Event)
}

// LoggingObserver logs events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event Event) {
	fields := logrus.Fields{
		"event_type":      event.EventType,
		"processing_time": event.ProcessingTime,
		"success":         event.Success,
	}
	if event.JobID != "" {
		fields["job_id"] = event.JobID
	}
	if event.Source != "" {
		fields["source"] = event.Source
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}
	if event.Progress != nil {
		fields["phase"] = event.Progress.Phase
		fields["step"] = event.Progress.CurrentStep
		fields["size"] = event.Progress.CurrentSize
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	entry := o.logger.WithFields(fields)
	switch event.EventType {
	case AssessmentCompleted:
		entry.WithField("score", event.Score).Info("Assessment completed")
	case AssessmentFailed, DescaleFailed, ImageFetchFailed:
		entry.Error("Operation failed")
	case ModelUnavailable:
		entry.Error("BRISQUE model unavailable")
	case DescaleStarted:
		entry.Info("Descale job started")
	case DescaleProgress, ImageFetched:
		entry.Debug("Progress")
	case DescaleCompleted:
		entry.Info("Descale job completed")
	case DescaleCancelled:
		entry.Warn("Descale job cancelled")
	default:
		entry.Info("Event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// MetricsObserver feeds events into the Prometheus collectors and keeps
// in-process totals for the health endpoint.
type MetricsObserver struct {
	mu                sync.RWMutex
	assessments       int64
	descales          int64
	completedDescales int64
	failedDescales    int64
	cancelledDescales int64
	totalDescaleTime  time.Duration
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{}
}

// OnEvent handles events by collecting metrics
func (o *MetricsObserver) OnEvent(ctx context.Context, event Event) {
	switch event.EventType {
	case AssessmentCompleted:
		metrics.RecordAssessment("success", event.Score)
	case AssessmentFailed:
		metrics.RecordAssessment("error", event.Score)
	case ModelUnavailable:
		metrics.RecordAssessment("model_unavailable", event.Score)
	case DescaleProgress:
		if event.Progress != nil {
			switch event.Progress.Phase {
			case descale.PhaseCoarse:
				metrics.RecordCandidate("coarse")
			case descale.PhaseFine:
				metrics.RecordCandidate("fine")
			}
		}
		return
	case DescaleCompleted:
		metrics.RecordDescale("success", event.ProcessingTime.Seconds())
	case DescaleFailed:
		metrics.RecordDescale("error", event.ProcessingTime.Seconds())
	case DescaleCancelled:
		metrics.RecordDescale("cancelled", event.ProcessingTime.Seconds())
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	switch event.EventType {
	case AssessmentCompleted, AssessmentFailed, ModelUnavailable:
		o.assessments++
	case DescaleStarted:
		o.descales++
	case DescaleCompleted:
		o.completedDescales++
		o.totalDescaleTime += event.ProcessingTime
	case DescaleFailed:
		o.failedDescales++
	case DescaleCancelled:
		o.cancelledDescales++
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// GetMetrics returns current totals
func (o *MetricsObserver) GetMetrics() map[string]interface{} {
	o.mu.RLock()
	defer o.mu.RUnlock()

	avg := time.Duration(0)
	if o.completedDescales > 0 {
		avg = o.totalDescaleTime / time.Duration(o.completedDescales)
	}

	return map[string]interface{}{
		"assessments":          o.assessments,
		"descales_started":     o.descales,
		"descales_completed":   o.completedDescales,
		"descales_failed":      o.failedDescales,
		"descales_cancelled":   o.cancelledDescales,
		"avg_descale_time_sec": avg.Seconds(),
	}
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() *EventPublisher {
	return &EventPublisher{
		observers: make([]Observer, 0),
	}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// Unsubscribe removes an observer
func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers delivers event to every observer in subscription order on
// the caller's goroutine, so progress events keep their order.
func (p *EventPublisher) NotifyObservers(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	for _, obs := range observers {
		notify(ctx, obs, event)
	}
}

func notify(ctx context.Context, obs Observer, event Event) {
	defer func() {
		if r := recover(); r != nil {
			// Log panic but don't crash the application
			logrus.WithField("observer", obs.GetObserverName()).
				WithField("panic", r).
				Error("Observer panicked while handling event")
		}
	}()
	obs.OnEvent(ctx, event)
}
