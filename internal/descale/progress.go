package descale

// Progress phases.
const (
	PhaseInitialization = "initialization"
	PhaseCoarse         = "coarse scan"
	PhaseCoarseDone     = "coarse scan complete"
	PhaseFine           = "fine scan"
	PhaseFineDone       = "fine scan done"
	PhaseFinalizing     = "finalizing"
	PhaseComplete       = "complete"
)

// ProgressUpdate is an informational event emitted during Descale.
// CurrentStep is a percentage and never decreases within one run.
type ProgressUpdate struct {
	Phase       string `json:"phase"`
	CurrentStep int    `json:"current_step"`
	TotalSteps  int    `json:"total_steps"`
	CurrentSize string `json:"current_size"`
	Message     string `json:"message"`
}

// ProgressFunc receives progress updates. It runs on the scanning goroutine.
type ProgressFunc func(ProgressUpdate)
