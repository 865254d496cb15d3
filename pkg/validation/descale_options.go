package validation

import (
	"fmt"

	"github.com/anime-shed/image-descaler/internal/descale"
	apperrors "github.com/anime-shed/image-descaler/internal/errors"
)

// OptionBounds are the accepted ranges for user supplied descale options.
type OptionBounds struct {
	MinCoarseStep, MaxCoarseStep int
	MinFineStep, MaxFineStep     int
	MinFineRange, MaxFineRange   int
	MinWidthRatio, MaxWidthRatio float64
	MinWeight, MaxWeight         float64
}

// DefaultOptionBounds returns the ranges exposed to clients.
func DefaultOptionBounds() OptionBounds {
	return OptionBounds{
		MinCoarseStep: 10, MaxCoarseStep: 50,
		MinFineStep: 1, MaxFineStep: 10,
		MinFineRange: 10, MaxFineRange: 100,
		MinWidthRatio: 0.1, MaxWidthRatio: 0.9,
		MinWeight: 0, MaxWeight: 1,
	}
}

// ValidateDescaleOptions checks opts against the default bounds
func ValidateDescaleOptions(opts descale.Options) error {
	return DefaultOptionBounds().Validate(opts)
}

// Validate reports the first option outside its bounds as a validation error
func (b OptionBounds) Validate(opts descale.Options) error {
	intChecks := []struct {
		name     string
		value    int
		min, max int
	}{
		{"coarse_step", opts.CoarseStep, b.MinCoarseStep, b.MaxCoarseStep},
		{"fine_step", opts.FineStep, b.MinFineStep, b.MaxFineStep},
		{"fine_range", opts.FineRange, b.MinFineRange, b.MaxFineRange},
	}
	for _, c := range intChecks {
		if c.value < c.min || c.value > c.max {
			return outOfRange(c.name, fmt.Sprintf("%d not in [%d, %d]", c.value, c.min, c.max))
		}
	}

	floatChecks := []struct {
		name     string
		value    float64
		min, max float64
	}{
		{"min_width_ratio", opts.MinWidthRatio, b.MinWidthRatio, b.MaxWidthRatio},
		{"brisque_weight", opts.BrisqueWeight, b.MinWeight, b.MaxWeight},
		{"sharpness_weight", opts.SharpnessWeight, b.MinWeight, b.MaxWeight},
	}
	for _, c := range floatChecks {
		if !(c.value >= c.min && c.value <= c.max) {
			return outOfRange(c.name, fmt.Sprintf("%g not in [%g, %g]", c.value, c.min, c.max))
		}
	}
	return nil
}

func outOfRange(name, details string) error {
	return apperrors.NewValidationError(name+" out of range", nil).WithDetails(details)
}
