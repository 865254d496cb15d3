package brisque

import (
	"math"

	"github.com/anime-shed/image-descaler/internal/imaging"
)

const (
	kernelSize   = 7
	kernelRadius = kernelSize / 2
	kernelSigma  = 7.0 / 6.0
)

// gaussianKernel is normalized to sum 1.
var gaussianKernel = func() [kernelSize]float64 {
	var k [kernelSize]float64
	var sum float64
	for i := range k {
		d := float64(i - kernelRadius)
		k[i] = math.Exp(-d * d / (2 * kernelSigma * kernelSigma))
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}()

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// gaussianBlur convolves horizontally into a scratch plane, then vertically.
// Out-of-range taps clamp to the nearest edge sample.
func gaussianBlur(src []float32, width, height int) []float32 {
	tmp := make([]float32, len(src))
	for y := 0; y < height; y++ {
		row := src[y*width : (y+1)*width]
		out := tmp[y*width : (y+1)*width]
		for x := range out {
			var sum float64
			for k, w := range gaussianKernel {
				sum += float64(row[clampIndex(x+k-kernelRadius, width)]) * w
			}
			out[x] = float32(sum)
		}
	}

	dst := make([]float32, len(src))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var sum float64
			for k, w := range gaussianKernel {
				sum += float64(tmp[clampIndex(y+k-kernelRadius, height)*width+x]) * w
			}
			dst[y*width+x] = float32(sum)
		}
	}
	return dst
}

// Blur applies the 7-tap Gaussian (sigma 7/6) to a field.
func Blur(f imaging.Field) imaging.Field {
	return imaging.Field{Width: f.Width, Height: f.Height, Data: gaussianBlur(f.Data, f.Width, f.Height)}
}
