package service

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/pbnjay/memory"

	"github.com/anime-shed/image-descaler/internal/metrics"
)

// bytesPerJob is a rough ceiling for one descale run: the source raster,
// one resampled candidate and the float planes of a BRISQUE pass.
const bytesPerJob = 512 << 20

// DefaultWorkerCount sizes the pool from physical memory, capped by CPU count.
func DefaultWorkerCount() int {
	return workersFor(memory.TotalMemory(), runtime.NumCPU())
}

func workersFor(totalMemory uint64, cpus int) int {
	n := int(totalMemory / bytesPerJob)
	return max(min(n, cpus), 1)
}

// PoolStats is a point-in-time view of the pool.
type PoolStats struct {
	Workers       int   `json:"workers"`
	Queued        int   `json:"queued"`
	ActiveWorkers int64 `json:"active_workers"`
	TotalJobs     int64 `json:"total_jobs"`
	CompletedJobs int64 `json:"completed_jobs"`
}

// WorkerPool runs descale jobs on a fixed set of goroutines with a bounded queue
type WorkerPool struct {
	workers   int
	jobQueue  chan func()
	wg        sync.WaitGroup
	startOnce sync.Once
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool

	active    atomic.Int64
	total     atomic.Int64
	completed atomic.Int64
}

// NewWorkerPool creates a new worker pool with the specified number of workers.
// queueSize bounds the number of accepted jobs waiting for a worker; zero or
// less means twice the worker count.
func NewWorkerPool(workers, queueSize int) *WorkerPool {
	if workers <= 0 {
		workers = DefaultWorkerCount()
	}
	if queueSize <= 0 {
		queueSize = workers * 2
	}

	return &WorkerPool{
		workers:  workers,
		jobQueue: make(chan func(), queueSize),
	}
}

// Start initializes and starts all workers in the pool
func (wp *WorkerPool) Start() {
	wp.startOnce.Do(func() {
		for i := 0; i < wp.workers; i++ {
			wp.wg.Add(1)
			go wp.worker()
		}
	})
}

// worker processes jobs from the job queue
func (wp *WorkerPool) worker() {
	defer wp.wg.Done()
	for job := range wp.jobQueue {
		wp.active.Add(1)
		wp.publish()
		job()
		wp.active.Add(-1)
		wp.completed.Add(1)
		wp.publish()
	}
}

// Submit queues job without blocking. It reports false when the queue is
// full or the pool is closed.
func (wp *WorkerPool) Submit(job func()) bool {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	if wp.closed {
		return false
	}

	select {
	case wp.jobQueue <- job:
		wp.total.Add(1)
		wp.publish()
		return true
	default:
		metrics.RecordJobRejected()
		return false
	}
}

// GetStats returns current counters
func (wp *WorkerPool) GetStats() PoolStats {
	return PoolStats{
		Workers:       wp.workers,
		Queued:        len(wp.jobQueue),
		ActiveWorkers: wp.active.Load(),
		TotalJobs:     wp.total.Load(),
		CompletedJobs: wp.completed.Load(),
	}
}

func (wp *WorkerPool) publish() {
	metrics.UpdateWorkerPoolMetrics(len(wp.jobQueue), int(wp.active.Load()))
}

// Close stops accepting jobs and waits for queued ones to finish
func (wp *WorkerPool) Close() {
	wp.closeOnce.Do(func() {
		wp.mu.Lock()
		wp.closed = true
		close(wp.jobQueue)
		wp.mu.Unlock()
	})
	wp.wg.Wait()
}
