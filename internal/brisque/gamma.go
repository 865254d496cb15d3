package brisque

import "math"

const lanczosG = 7.0

var lanczosCoefficients = [...]float64{
	0.99999999999980993,
	676.5203681218851,
	-1259.1392167224028,
	771.32342877765313,
	-176.61502916214059,
	12.507343278686905,
	-0.13857109526572012,
	9.9843695780195716e-6,
	1.5056327351493116e-7,
}

// Gamma evaluates the gamma function with the g=7 Lanczos approximation.
// Arguments below 0.5 go through the reflection formula. Poles yield NaN.
func Gamma(x float64) float64 {
	if x <= 0 && x == math.Floor(x) {
		return math.NaN()
	}
	if x < 0.5 {
		return math.Pi / (math.Sin(math.Pi*x) * Gamma(1-x))
	}

	z := x - 1
	ag := lanczosCoefficients[0]
	for i := 1; i < len(lanczosCoefficients); i++ {
		ag += lanczosCoefficients[i] / (z + float64(i))
	}
	t := z + lanczosG + 0.5
	return math.Sqrt(2*math.Pi) * math.Pow(t, z+0.5) * math.Exp(-t) * ag
}
