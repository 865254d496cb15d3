package validation

// Grade is a human-readable quality band.
type Grade string

const (
	GradeExcellent Grade = "excellent"
	GradeFair      Grade = "fair"
	GradePoor      Grade = "poor"
	GradeBad       Grade = "bad"
	GradeHorrible  Grade = "horrible"

	GradeVerySharp Grade = "very sharp"
	GradeSharp     Grade = "sharp"
	GradeModerate  Grade = "moderate"
	GradeSoft      Grade = "soft"
	GradeBlurry    Grade = "blurry"

	GradeUnavailable Grade = "unavailable"
)

// BrisqueGrade buckets a BRISQUE score; lower scores are better.
// Negative sentinel scores grade as unavailable.
func BrisqueGrade(score float32) Grade {
	switch {
	case score < 0:
		return GradeUnavailable
	case score < 30:
		return GradeExcellent
	case score < 55:
		return GradeFair
	case score < 70:
		return GradePoor
	case score < 85:
		return GradeBad
	default:
		return GradeHorrible
	}
}

// SharpnessGrade buckets a 0-100 sharpness value; higher is sharper.
func SharpnessGrade(sharpness float32) Grade {
	switch {
	case sharpness >= 60:
		return GradeVerySharp
	case sharpness >= 45:
		return GradeSharp
	case sharpness >= 35:
		return GradeModerate
	case sharpness >= 10:
		return GradeSoft
	default:
		return GradeBlurry
	}
}
