package imaging

import "math"

// sharpnessScale controls how quickly raw gradient energy saturates towards 100.
const sharpnessScale = 30.0

// Sharpness returns the Sobel gradient energy of src mapped into [0,100).
// The one pixel border is excluded.
func Sharpness(src PixelSource) float32 {
	return SharpnessOf(Brightness(src))
}

// SharpnessOf computes Sharpness over a [0,255] brightness field.
func SharpnessOf(f Field) float32 {
	w, h := f.Width, f.Height
	p := f.Data
	var sum float64
	n := 0
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			i := y*w + x
			gx := -p[i-w-1] + p[i-w+1] +
				-2*p[i-1] + 2*p[i+1] +
				-p[i+w-1] + p[i+w+1]
			gy := -p[i-w-1] - 2*p[i-w] - p[i-w+1] +
				p[i+w-1] + 2*p[i+w] + p[i+w+1]
			sum += float64(gx*gx + gy*gy)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	raw := math.Sqrt(sum / float64(n))
	return float32(100 * (1 - math.Exp(-raw/sharpnessScale)))
}
