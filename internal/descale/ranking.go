package descale

import "gonum.org/v1/gonum/floats"

// normalize min-max scales values into [0,1]. A zero range maps everything to 0.
func normalize(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	lo, hi := floats.Min(values), floats.Max(values)
	span := hi - lo
	if span == 0 {
		return out
	}
	for i, v := range values {
		out[i] = (v - lo) / span
	}
	return out
}

// rank fills CombinedScore for every candidate and returns the index of the
// lowest one. The first candidate wins ties.
func rank(results []ScanResult, brisqueWeight, sharpnessWeight float64) int {
	brisque := make([]float64, len(results))
	sharp := make([]float64, len(results))
	for i, r := range results {
		brisque[i] = float64(r.BrisqueScore)
		sharp[i] = float64(r.Sharpness)
	}
	bn, sn := normalize(brisque), normalize(sharp)

	best := 0
	bestScore := 0.0
	for i := range results {
		combined := brisqueWeight*bn[i] + sharpnessWeight*(1-sn[i])
		results[i].CombinedScore = float32(combined)
		if i == 0 || combined < bestScore {
			best, bestScore = i, combined
		}
	}
	return best
}
