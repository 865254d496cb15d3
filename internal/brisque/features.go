package brisque

import (
	"math"

	"github.com/anime-shed/image-descaler/internal/imaging"
)

const (
	// FeaturesPerScale is the number of features produced at one resolution.
	FeaturesPerScale = 18
	// FeatureCount is the length of a complete two-scale feature vector.
	FeatureCount = 2 * FeaturesPerScale
)

// FeatureVector holds the scale-1 features followed by the scale-2 features.
type FeatureVector [FeatureCount]float32

// pairShifts are (dy, dx) offsets: horizontal, vertical, main diagonal, anti-diagonal.
var pairShifts = [4][2]int{{0, 1}, {1, 0}, {1, 1}, {-1, 1}}

// ComputeFeaturesForScale derives the 18 per-scale features from an MSCN field.
func ComputeFeaturesForScale(mscn []float32, width, height int) [FeaturesPerScale]float32 {
	var features [FeaturesPerScale]float32

	p := FitAGGD(mscn[:width*height])
	features[0] = float32(p.Shape)
	features[1] = float32((p.LeftSigma*p.LeftSigma + p.RightSigma*p.RightSigma) / 2)

	for s, shift := range pairShifts {
		dy, dx := shift[0], shift[1]
		var acc aggdAccumulator
		for y := 0; y < height; y++ {
			ny := y + dy
			for x := 0; x < width; x++ {
				nx := x + dx
				// Out-of-bounds pairs still count towards the total.
				if ny < 0 || ny >= height || nx >= width {
					acc.add(0)
					continue
				}
				acc.add(mscn[y*width+x] * mscn[ny*width+nx])
			}
		}

		fit := acc.fit()
		g := fit.Shape
		g1 := Gamma(1 / g)
		meanParam := (fit.RightSigma - fit.LeftSigma) *
			(Gamma(2/g) / g1) *
			(math.Sqrt(g1) / math.Sqrt(Gamma(3/g)))

		base := 2 + s*4
		features[base] = float32(g)
		features[base+1] = float32(meanParam)
		features[base+2] = float32(fit.LeftSigma * fit.LeftSigma)
		features[base+3] = float32(fit.RightSigma * fit.RightSigma)
	}
	return features
}

// ExtractFeatures builds the two-scale feature vector of a [0,1] luminance field.
// The second scale is a 2×2 block average; when it is empty its features stay zero.
func ExtractFeatures(lum imaging.Field) FeatureVector {
	var fv FeatureVector
	if lum.Width == 0 || lum.Height == 0 {
		return fv
	}

	first := ComputeFeaturesForScale(ComputeMSCN(lum), lum.Width, lum.Height)
	copy(fv[:FeaturesPerScale], first[:])

	half := imaging.BlockAverage(lum)
	if half.Width == 0 || half.Height == 0 {
		return fv
	}
	second := ComputeFeaturesForScale(ComputeMSCN(half), half.Width, half.Height)
	copy(fv[FeaturesPerScale:], second[:])
	return fv
}
