package descale

import (
	"errors"
	"fmt"
)

// ErrInvalidOptions is returned for options the scan cannot run with.
var ErrInvalidOptions = errors.New("invalid descale options")

// Options configures the coarse/fine resolution search.
type Options struct {
	// CoarseStep is the width decrement between coarse candidates, in pixels.
	CoarseStep int
	// FineStep is the width increment between fine candidates, in pixels.
	FineStep int
	// FineRange is the half-width of the fine window around the coarse best.
	FineRange int
	// MinWidthRatio bounds the smallest candidate as a fraction of the input width.
	MinWidthRatio float64

	BrisqueWeight   float64
	SharpnessWeight float64
}

// DefaultOptions returns the standard search configuration.
func DefaultOptions() Options {
	return Options{
		CoarseStep:      20,
		FineStep:        5,
		FineRange:       30,
		MinWidthRatio:   0.5,
		BrisqueWeight:   0.7,
		SharpnessWeight: 0.3,
	}
}

// WithCoarseStep sets the coarse scan step
func (o Options) WithCoarseStep(px int) Options {
	o.CoarseStep = px
	return o
}

// WithFineStep sets the fine scan step
func (o Options) WithFineStep(px int) Options {
	o.FineStep = px
	return o
}

// WithFineRange sets the fine scan window
func (o Options) WithFineRange(px int) Options {
	o.FineRange = px
	return o
}

// WithMinWidthRatio sets the lower bound of the coarse scan
func (o Options) WithMinWidthRatio(ratio float64) Options {
	o.MinWidthRatio = ratio
	return o
}

// WithWeights sets the ranking weights
func (o Options) WithWeights(brisque, sharpness float64) Options {
	o.BrisqueWeight = brisque
	o.SharpnessWeight = sharpness
	return o
}

// Validate checks the options are usable by the engine. Tighter product
// bounds live in pkg/validation.
func (o Options) Validate() error {
	switch {
	case o.CoarseStep < 1:
		return fmt.Errorf("%w: coarse step %d", ErrInvalidOptions, o.CoarseStep)
	case o.FineStep < 1:
		return fmt.Errorf("%w: fine step %d", ErrInvalidOptions, o.FineStep)
	case o.FineRange < 0:
		return fmt.Errorf("%w: fine range %d", ErrInvalidOptions, o.FineRange)
	case !(o.MinWidthRatio > 0 && o.MinWidthRatio <= 1):
		return fmt.Errorf("%w: min width ratio %v", ErrInvalidOptions, o.MinWidthRatio)
	case o.BrisqueWeight < 0 || o.SharpnessWeight < 0:
		return fmt.Errorf("%w: negative weight", ErrInvalidOptions)
	}
	return nil
}
