package models

// AssessResponse is the quality report for one image
type AssessResponse struct {
	Score             float32 `json:"score"`
	Grade             string  `json:"grade"`
	Sharpness         float32 `json:"sharpness"`
	SharpnessGrade    string  `json:"sharpness_grade"`
	Width             int     `json:"width"`
	Height            int     `json:"height"`
	Source            string  `json:"source,omitempty"`
	Timestamp         string  `json:"timestamp"`
	ProcessingTimeSec float64 `json:"processing_time_sec"`
}

// ScanResult is one evaluated candidate size
type ScanResult struct {
	Width         int     `json:"width"`
	Height        int     `json:"height"`
	BrisqueScore  float32 `json:"brisque_score"`
	Sharpness     float32 `json:"sharpness"`
	CombinedScore float32 `json:"combined_score"`
}

// ScanSummary describes the score spread of one scan phase
type ScanSummary struct {
	Candidates      int     `json:"candidates"`
	MeanBrisque     float64 `json:"mean_brisque"`
	StdDevBrisque   float64 `json:"stddev_brisque"`
	MeanSharpness   float64 `json:"mean_sharpness"`
	StdDevSharpness float64 `json:"stddev_sharpness"`
}

// DescaleResponse summarizes a finished descale search
type DescaleResponse struct {
	OriginalWidth         int     `json:"original_width"`
	OriginalHeight        int     `json:"original_height"`
	OriginalBrisqueScore  float32 `json:"original_brisque_score"`
	OriginalSharpness     float32 `json:"original_sharpness"`
	DetectedOptimalWidth  int     `json:"detected_optimal_width"`
	DetectedOptimalHeight int     `json:"detected_optimal_height"`
	BestBrisqueScore      float32 `json:"best_brisque_score"`
	BestSharpness         float32 `json:"best_sharpness"`
	CombinedScore         float32 `json:"combined_score"`
	Grade                 string  `json:"grade"`
	SharpnessGrade        string  `json:"sharpness_grade"`
	ProcessingTimeSec     float64 `json:"processing_time_sec"`

	CoarseScan    []ScanResult `json:"coarse_scan"`
	FineScan      []ScanResult `json:"fine_scan"`
	CoarseSummary ScanSummary  `json:"coarse_summary"`
	FineSummary   ScanSummary  `json:"fine_summary"`
}

// ProgressResponse is the latest progress of a running job
type ProgressResponse struct {
	Phase       string `json:"phase"`
	CurrentStep int    `json:"current_step"`
	TotalSteps  int    `json:"total_steps"`
	CurrentSize string `json:"current_size"`
	Message     string `json:"message"`
}

// JobResponse is a snapshot of an async descale job
type JobResponse struct {
	ID         string            `json:"id"`
	Status     string            `json:"status"`
	Progress   *ProgressResponse `json:"progress,omitempty"`
	Result     *DescaleResponse  `json:"result,omitempty"`
	Error      *ErrorResponse    `json:"error,omitempty"`
	CreatedAt  string            `json:"created_at"`
	StartedAt  string            `json:"started_at,omitempty"`
	FinishedAt string            `json:"finished_at,omitempty"`
}
