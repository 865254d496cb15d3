package transport

import (
	"errors"
	"net/http"
	"time"

	"github.com/anime-shed/image-descaler/internal/descale"
	apperrors "github.com/anime-shed/image-descaler/internal/errors"
	"github.com/anime-shed/image-descaler/internal/service"
	"github.com/anime-shed/image-descaler/pkg/models"
	"github.com/anime-shed/image-descaler/pkg/validation"
)

func toAssessResponse(a *service.Assessment, source string) models.AssessResponse {
	return models.AssessResponse{
		Score:             a.Score,
		Grade:             string(a.Grade),
		Sharpness:         a.Sharpness,
		SharpnessGrade:    string(a.SharpnessGrade),
		Width:             a.Width,
		Height:            a.Height,
		Source:            source,
		Timestamp:         time.Now().UTC().Format(time.RFC3339),
		ProcessingTimeSec: a.Duration.Seconds(),
	}
}

func toScanResults(in []descale.ScanResult) []models.ScanResult {
	out := make([]models.ScanResult, len(in))
	for i, r := range in {
		out[i] = models.ScanResult(r)
	}
	return out
}

func toScanSummary(s service.ScanSummary) models.ScanSummary {
	return models.ScanSummary(s)
}

func toDescaleResponse(res *descale.Result) *models.DescaleResponse {
	return &models.DescaleResponse{
		OriginalWidth:         res.OriginalWidth,
		OriginalHeight:        res.OriginalHeight,
		OriginalBrisqueScore:  res.OriginalBrisqueScore,
		OriginalSharpness:     res.OriginalSharpness,
		DetectedOptimalWidth:  res.DetectedOptimalWidth,
		DetectedOptimalHeight: res.DetectedOptimalHeight,
		BestBrisqueScore:      res.BestBrisqueScore,
		BestSharpness:         res.BestSharpness,
		CombinedScore:         res.CombinedScore,
		Grade:                 string(validation.BrisqueGrade(res.BestBrisqueScore)),
		SharpnessGrade:        string(validation.SharpnessGrade(res.BestSharpness)),
		ProcessingTimeSec:     res.Duration.Seconds(),
		CoarseScan:            toScanResults(res.CoarseScanResults),
		FineScan:              toScanResults(res.FineScanResults),
		CoarseSummary:         toScanSummary(service.Summarize(res.CoarseScanResults)),
		FineSummary:           toScanSummary(service.Summarize(res.FineScanResults)),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func toJobResponse(job service.Job) models.JobResponse {
	resp := models.JobResponse{
		ID:         job.ID,
		Status:     string(job.Status),
		CreatedAt:  formatTime(job.CreatedAt),
		StartedAt:  formatTime(job.StartedAt),
		FinishedAt: formatTime(job.FinishedAt),
	}
	if p := job.Progress; p != nil {
		resp.Progress = &models.ProgressResponse{
			Phase:       p.Phase,
			CurrentStep: p.CurrentStep,
			TotalSteps:  p.TotalSteps,
			CurrentSize: p.CurrentSize,
			Message:     p.Message,
		}
	}
	if job.Result != nil {
		resp.Result = toDescaleResponse(job.Result)
	}
	if job.Error != nil {
		e := &models.ErrorResponse{Message: job.Error.Error()}
		var appErr *apperrors.AppError
		if errors.As(job.Error, &appErr) {
			e.Error = http.StatusText(appErr.StatusCode)
			e.Type = string(appErr.Type)
			e.Message = appErr.Message
			e.Details = appErr.Details
		}
		resp.Error = e
	}
	return resp
}
