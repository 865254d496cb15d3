package brisque

import (
	"fmt"
	"math"
)

const (
	minScore = 0
	maxScore = 100
)

// Model is a trained RBF-kernel SVM regressor together with the per-feature
// training ranges used to scale its inputs. It is read-only once built.
type Model struct {
	Version           int32
	NumFeatures       int
	NumSupportVectors int
	// SupportVectors is a NumSupportVectors×NumFeatures row-major matrix.
	SupportVectors []float32
	Alphas         []float32
	Rho            float32
	Gamma          float32
	RangeMin       []float32
	RangeMax       []float32
}

// Validate checks the dimensional invariants of the model.
func (m *Model) Validate() error {
	switch {
	case m.NumFeatures != FeatureCount:
		return fmt.Errorf("%w: model has %d features, want %d", ErrMalformedModel, m.NumFeatures, FeatureCount)
	case m.NumSupportVectors <= 0:
		return fmt.Errorf("%w: no support vectors", ErrMalformedModel)
	case len(m.SupportVectors) != m.NumSupportVectors*m.NumFeatures:
		return fmt.Errorf("%w: support vector matrix has %d values, want %d",
			ErrMalformedModel, len(m.SupportVectors), m.NumSupportVectors*m.NumFeatures)
	case len(m.Alphas) != m.NumSupportVectors:
		return fmt.Errorf("%w: %d alphas for %d support vectors", ErrMalformedModel, len(m.Alphas), m.NumSupportVectors)
	case len(m.RangeMin) != m.NumFeatures || len(m.RangeMax) != m.NumFeatures:
		return fmt.Errorf("%w: feature ranges do not match feature count", ErrMalformedModel)
	}
	return nil
}

// ScaleFeatures maps each feature into [-1,1] using the training range.
// Features whose range is empty scale to 0.
func (m *Model) ScaleFeatures(fv FeatureVector) FeatureVector {
	var scaled FeatureVector
	for i, f := range fv {
		lo, hi := m.RangeMin[i], m.RangeMax[i]
		span := hi - lo
		if span == 0 {
			continue
		}
		scaled[i] = 2*(f-lo)/span - 1
	}
	return scaled
}

// Predict evaluates the SVM on already scaled features and clamps the
// result to [0,100].
func (m *Model) Predict(scaled FeatureVector) float32 {
	var sum float64
	for i := 0; i < m.NumSupportVectors; i++ {
		sv := m.SupportVectors[i*m.NumFeatures : (i+1)*m.NumFeatures]
		var distSq float64
		for j, v := range sv {
			d := float64(scaled[j]) - float64(v)
			distSq += d * d
		}
		preExp := float32(-float64(m.Gamma) * distSq)
		sum += float64(m.Alphas[i]) * math.Exp(float64(preExp))
	}
	raw := sum - float64(m.Rho)
	if math.IsNaN(raw) {
		return maxScore
	}
	return float32(math.Min(math.Max(raw, minScore), maxScore))
}

// Score runs feature scaling and prediction on a raw feature vector.
func (m *Model) Score(fv FeatureVector) float32 {
	return m.Predict(m.ScaleFeatures(fv))
}
