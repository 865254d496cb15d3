package brisque

import (
	"math"

	"github.com/anime-shed/image-descaler/internal/imaging"
)

const mscnEpsilon = float32(1.0 / 255.0)

// ComputeMSCN returns the mean-subtracted contrast-normalized coefficients of f.
func ComputeMSCN(f imaging.Field) []float32 {
	w, h := f.Width, f.Height
	mu := gaussianBlur(f.Data, w, h)

	sq := make([]float32, len(f.Data))
	for i, v := range f.Data {
		sq[i] = v * v
	}
	muSq := gaussianBlur(sq, w, h)

	out := make([]float32, len(f.Data))
	for i, v := range f.Data {
		variance := muSq[i] - mu[i]*mu[i]
		if variance < 0 {
			variance = 0
		}
		sigma := float32(math.Sqrt(float64(variance)))
		out[i] = (v - mu[i]) / (sigma + mscnEpsilon)
	}
	return out
}
