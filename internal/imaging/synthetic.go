package imaging

import "github.com/valyala/fastrand"

const opaque = 0xFF000000

// Constant returns a raster filled with one pixel value.
func Constant(width, height int, argb uint32) *ARGBImage {
	m := NewARGBImage(width, height)
	for i := range m.Pix {
		m.Pix[i] = argb
	}
	return m
}

// Checkerboard returns an opaque black/white board with square cells.
func Checkerboard(width, height, cell int) *ARGBImage {
	if cell < 1 {
		cell = 1
	}
	m := NewARGBImage(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if (x/cell+y/cell)%2 == 0 {
				m.Pix[y*width+x] = opaque
			} else {
				m.Pix[y*width+x] = 0xFFFFFFFF
			}
		}
	}
	return m
}

// Gradient returns an opaque diagonal grey ramp.
func Gradient(width, height int) *ARGBImage {
	m := NewARGBImage(width, height)
	span := max(width+height-2, 1)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := uint8((x + y) * 255 / span)
			m.Pix[y*width+x] = PackARGB(0xFF, v, v, v)
		}
	}
	return m
}

// Noise returns opaque uniform colour noise. The same seed yields the same raster.
func Noise(width, height int, seed uint32) *ARGBImage {
	var rng fastrand.RNG
	rng.Seed(seed)
	m := NewARGBImage(width, height)
	for i := range m.Pix {
		m.Pix[i] = opaque | rng.Uint32n(1<<24)
	}
	return m
}
