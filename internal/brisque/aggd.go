package brisque

import (
	"math"
	"sync"
)

const (
	shapeSearchStart = 0.2
	shapeSearchEnd   = 10.0
	shapeSearchStep  = 0.001
)

// AGGDParams describes an asymmetric generalized Gaussian fit.
type AGGDParams struct {
	LeftSigma  float64
	RightSigma float64
	Shape      float64
}

// fallbackAGGD is returned when one side of the distribution is empty.
var fallbackAGGD = AGGDParams{LeftSigma: 1, RightSigma: 1, Shape: 1}

// shapeEntry pairs a candidate shape with its generalized Gaussian ratio
// r(γ) = Γ(2/γ)² / (Γ(1/γ)·Γ(3/γ)).
type shapeEntry struct {
	gamma float64
	ratio float64
}

// shapeTable is the scan grid, built once. The step is accumulated rather
// than multiplied so the candidate values match an incremental scan.
var shapeTable = sync.OnceValue(func() []shapeEntry {
	table := make([]shapeEntry, 0, int((shapeSearchEnd-shapeSearchStart)/shapeSearchStep)+1)
	for gam := shapeSearchStart; gam < shapeSearchEnd; gam += shapeSearchStep {
		g2 := Gamma(2 / gam)
		table = append(table, shapeEntry{
			gamma: gam,
			ratio: g2 * g2 / (Gamma(1/gam) * Gamma(3/gam)),
		})
	}
	return table
})

// aggdAccumulator collects one-pass moments of a sample stream.
type aggdAccumulator struct {
	posCount int64
	negCount int64
	total    int64
	posSq    float64
	negSq    float64
	absSum   float64
}

func (a *aggdAccumulator) add(v float32) {
	a.total++
	d := float64(v)
	switch {
	case v > 0:
		a.posCount++
		a.posSq += d * d
		a.absSum += d
	case v < 0:
		a.negCount++
		a.negSq += d * d
		a.absSum -= d
	}
}

func (a *aggdAccumulator) fit() AGGDParams {
	if a.posCount == 0 || a.negCount == 0 {
		return fallbackAGGD
	}

	sumSq := a.posSq + a.negSq
	leftSigma := math.Sqrt(a.negSq / float64(a.negCount))
	rightSigma := math.Sqrt(a.posSq / float64(a.posCount))

	gammaHat := leftSigma / rightSigma
	meanAbs := a.absSum / float64(a.total)
	rHat := meanAbs * meanAbs / (sumSq / float64(a.total))
	gh2 := gammaHat * gammaHat
	rHatNorm := rHat * (gh2*gammaHat + 1) * (gammaHat + 1) / ((gh2 + 1) * (gh2 + 1))

	// Greedy scan: stop at the first point where the distance grows.
	prevDiff := 1e10
	shape := 0.0
	for _, e := range shapeTable() {
		diff := math.Abs(e.ratio - rHatNorm)
		if diff > prevDiff {
			break
		}
		prevDiff = diff
		shape = e.gamma
	}

	return AGGDParams{LeftSigma: leftSigma, RightSigma: rightSigma, Shape: shape}
}

// FitAGGD fits an asymmetric generalized Gaussian to samples.
func FitAGGD(samples []float32) AGGDParams {
	var acc aggdAccumulator
	for _, v := range samples {
		acc.add(v)
	}
	return acc.fit()
}
