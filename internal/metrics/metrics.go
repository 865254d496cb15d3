package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "descaler_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "descaler_http_request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// Scoring metrics
	AssessmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "descaler_assessments_total",
			Help: "Total number of BRISQUE assessments",
		},
		[]string{"outcome"}, // success, error, model_unavailable
	)

	BrisqueScores = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "descaler_brisque_score",
			Help:    "Distribution of successful BRISQUE scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	// Descale metrics
	DescalesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "descaler_descales_total",
			Help: "Total number of descale searches",
		},
		[]string{"outcome"}, // success, error, cancelled, model_unavailable
	)

	DescaleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "descaler_descale_duration_seconds",
			Help:    "Descale search duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	CandidatesEvaluated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "descaler_candidates_evaluated_total",
			Help: "Total number of candidate sizes scored",
		},
		[]string{"phase"}, // coarse, fine
	)

	// Job/Pool metrics
	ActiveJobs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "descaler_active_jobs",
			Help: "Current number of running descale jobs",
		},
	)

	QueuedJobs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "descaler_queued_jobs",
			Help: "Current number of descale jobs waiting for a worker",
		},
	)

	JobsRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "descaler_jobs_rejected_total",
			Help: "Total number of jobs rejected because the queue was full",
		},
	)
)

// RecordRequest records an HTTP request
func RecordRequest(method, endpoint, status string, duration float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(endpoint).Observe(duration)
}

// RecordAssessment records one scoring call; score is only observed on success
func RecordAssessment(outcome string, score float32) {
	AssessmentsTotal.WithLabelValues(outcome).Inc()
	if outcome == "success" {
		BrisqueScores.Observe(float64(score))
	}
}

// RecordDescale records a finished descale search
func RecordDescale(outcome string, durationSeconds float64) {
	DescalesTotal.WithLabelValues(outcome).Inc()
	DescaleDuration.Observe(durationSeconds)
}

// RecordCandidate records one evaluated candidate
func RecordCandidate(phase string) {
	CandidatesEvaluated.WithLabelValues(phase).Inc()
}

// UpdateWorkerPoolMetrics updates worker pool gauges
func UpdateWorkerPoolMetrics(queued, active int) {
	QueuedJobs.Set(float64(queued))
	ActiveJobs.Set(float64(active))
}

// RecordJobRejected records a queue-full rejection
func RecordJobRejected() {
	JobsRejected.Inc()
}
