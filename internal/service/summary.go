package service

import (
	"gonum.org/v1/gonum/stat"

	"github.com/anime-shed/image-descaler/internal/descale"
)

// ScanSummary describes the spread of scores across one scan phase.
type ScanSummary struct {
	Candidates      int     `json:"candidates"`
	MeanBrisque     float64 `json:"mean_brisque"`
	StdDevBrisque   float64 `json:"stddev_brisque"`
	MeanSharpness   float64 `json:"mean_sharpness"`
	StdDevSharpness float64 `json:"stddev_sharpness"`
}

// Summarize computes mean and sample standard deviation of the BRISQUE and
// sharpness columns. A single candidate reports a zero deviation.
func Summarize(results []descale.ScanResult) ScanSummary {
	s := ScanSummary{Candidates: len(results)}
	if len(results) == 0 {
		return s
	}

	brisque := make([]float64, len(results))
	sharp := make([]float64, len(results))
	for i, r := range results {
		brisque[i] = float64(r.BrisqueScore)
		sharp[i] = float64(r.Sharpness)
	}

	if len(results) == 1 {
		s.MeanBrisque, s.MeanSharpness = brisque[0], sharp[0]
		return s
	}
	s.MeanBrisque, s.StdDevBrisque = stat.MeanStdDev(brisque, nil)
	s.MeanSharpness, s.StdDevSharpness = stat.MeanStdDev(sharp, nil)
	return s
}
