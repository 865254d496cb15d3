package brisque

import (
	"context"
	"errors"
	"fmt"

	"github.com/anime-shed/image-descaler/internal/imaging"
)

// Sentinel scores returned by AssessImageQuality.
const (
	ScoreError            float32 = -1
	ScoreModelUnavailable float32 = -2
)

// ErrModelUnavailable is returned when no usable model could be loaded.
var ErrModelUnavailable = errors.New("BRISQUE model unavailable")

// ModelProvider hands out the shared model, loading it on first use.
type ModelProvider interface {
	Model(ctx context.Context) (*Model, error)
}

// StaticModel serves an already decoded model.
type StaticModel struct {
	M *Model
}

// Model implements ModelProvider.
func (s StaticModel) Model(context.Context) (*Model, error) {
	if s.M == nil {
		return nil, ErrModelUnavailable
	}
	return s.M, nil
}

// Assessor scores pixel sources against the provided model.
type Assessor struct {
	models ModelProvider
}

// NewAssessor creates an assessor backed by models.
func NewAssessor(models ModelProvider) *Assessor {
	return &Assessor{models: models}
}

// Ready reports whether the model can be obtained.
func (a *Assessor) Ready(ctx context.Context) error {
	if _, err := a.model(ctx); err != nil {
		return err
	}
	return nil
}

func (a *Assessor) model(ctx context.Context) (*Model, error) {
	m, err := a.models.Model(ctx)
	if err != nil {
		if errors.Is(err, ErrModelUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}
	if m == nil {
		return nil, ErrModelUnavailable
	}
	return m, nil
}

// Score returns the BRISQUE score of src in [0,100].
func (a *Assessor) Score(ctx context.Context, src imaging.PixelSource) (float32, error) {
	m, err := a.model(ctx)
	if err != nil {
		return 0, err
	}
	return ScoreWithModel(m, src)
}

// AssessImageQuality never fails: errors map to ScoreError or
// ScoreModelUnavailable, including panics raised while scoring.
func (a *Assessor) AssessImageQuality(ctx context.Context, src imaging.PixelSource) (score float32) {
	defer func() {
		if r := recover(); r != nil {
			score = ScoreError
		}
	}()

	s, err := a.Score(ctx, src)
	switch {
	case errors.Is(err, ErrModelUnavailable):
		return ScoreModelUnavailable
	case err != nil:
		return ScoreError
	}
	return s
}

// ScoreWithModel runs the full pipeline: luminance, two-scale features,
// scaling and SVM prediction.
func ScoreWithModel(m *Model, src imaging.PixelSource) (float32, error) {
	if src.Width() <= 0 || src.Height() <= 0 {
		return 0, imaging.ErrEmptyImage
	}
	fv := ExtractFeatures(imaging.Luminance(src))
	return m.Score(fv), nil
}
