package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/anime-shed/image-descaler/internal/descale"
)

// JobStatus is the lifecycle state of an async descale job.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// Terminal reports whether the job can no longer change.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed || s == JobCancelled
}

// Job is a snapshot of an async descale job.
type Job struct {
	ID         string
	Status     JobStatus
	Options    descale.Options
	Progress   *descale.ProgressUpdate
	Result     *descale.Result
	Error      error
	CreatedAt  time.Time
	StartedAt  time.Time
	FinishedAt time.Time
}

type jobEntry struct {
	job    Job
	cancel context.CancelFunc
}

// jobRegistry tracks async jobs until their retention expires.
type jobRegistry struct {
	mu        sync.Mutex
	jobs      map[string]*jobEntry
	retention time.Duration
	now       func() time.Time
}

func newJobRegistry(retention time.Duration) *jobRegistry {
	return &jobRegistry{
		jobs:      make(map[string]*jobEntry),
		retention: retention,
		now:       time.Now,
	}
}

func (r *jobRegistry) create(opts descale.Options, cancel context.CancelFunc) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruneLocked()

	id := uuid.NewString()
	r.jobs[id] = &jobEntry{
		job: Job{
			ID:        id,
			Status:    JobQueued,
			Options:   opts,
			CreatedAt: r.now(),
		},
		cancel: cancel,
	}
	return id
}

func (r *jobRegistry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, id)
}

func (r *jobRegistry) get(id string) (Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruneLocked()

	e, ok := r.jobs[id]
	if !ok {
		return Job{}, false
	}
	return e.job, true
}

// start moves a queued job to running. It reports false when the job was
// cancelled or pruned while waiting.
func (r *jobRegistry) start(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.jobs[id]
	if !ok || e.job.Status != JobQueued {
		return false
	}
	e.job.Status = JobRunning
	e.job.StartedAt = r.now()
	return true
}

func (r *jobRegistry) progress(id string, u descale.ProgressUpdate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.jobs[id]; ok && !e.job.Status.Terminal() {
		e.job.Progress = &u
	}
}

// finish records the outcome unless the job already reached a terminal state.
func (r *jobRegistry) finish(id string, status JobStatus, res *descale.Result, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.jobs[id]
	if !ok || e.job.Status.Terminal() {
		return
	}
	e.job.Status = status
	e.job.Result = res
	e.job.Error = err
	e.job.FinishedAt = r.now()
	if e.cancel != nil {
		e.cancel()
	}
}

// cancel stops a job. Queued jobs become cancelled at once; running jobs are
// signalled and settle when the engine reaches its next candidate.
func (r *jobRegistry) cancel(id string) (Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.jobs[id]
	if !ok {
		return Job{}, false
	}
	if e.cancel != nil {
		e.cancel()
	}
	if e.job.Status == JobQueued {
		e.job.Status = JobCancelled
		e.job.FinishedAt = r.now()
	}
	return e.job, true
}

func (r *jobRegistry) cancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.jobs {
		if e.cancel != nil {
			e.cancel()
		}
	}
}

func (r *jobRegistry) pruneLocked() {
	if r.retention <= 0 {
		return
	}
	cutoff := r.now().Add(-r.retention)
	for id, e := range r.jobs {
		if e.job.Status.Terminal() && e.job.FinishedAt.Before(cutoff) {
			delete(r.jobs, id)
		}
	}
}
