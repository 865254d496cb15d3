package imaging

import "math"

// cubicA is the Catmull-Rom family parameter used by the bicubic kernel.
const cubicA = -0.75

// reflect101 mirrors an out-of-range index about the border without
// repeating the edge sample (-1 -> 1, n -> n-2).
func reflect101(index, length int) int {
	if length <= 1 {
		return 0
	}
	switch {
	case index < 0:
		return min(-index, length-1)
	case index >= length:
		return max(2*length-index-2, 0)
	default:
		return index
	}
}

func cubicWeight(x float64) float64 {
	ax := math.Abs(x)
	switch {
	case ax <= 1.0:
		return ((cubicA+2.0)*ax-(cubicA+3.0))*ax*ax + 1.0
	case ax < 2.0:
		return ((cubicA*ax-5.0*cubicA)*ax+8.0*cubicA)*ax - 4.0*cubicA
	default:
		return 0.0
	}
}

// cubicTaps holds four source indices and weights per destination sample.
type cubicTaps struct {
	index  []int
	weight []float64
}

func newCubicTaps(srcLen, dstLen int) cubicTaps {
	t := cubicTaps{
		index:  make([]int, dstLen*4),
		weight: make([]float64, dstLen*4),
	}
	scale := float64(srcLen) / float64(dstLen)
	for d := 0; d < dstLen; d++ {
		f := (float64(d)+0.5)*scale - 0.5
		s := int(math.Floor(f))
		frac := f - float64(s)
		base := d * 4
		t.weight[base] = cubicWeight(1.0 + frac)
		t.weight[base+1] = cubicWeight(frac)
		t.weight[base+2] = cubicWeight(1.0 - frac)
		t.weight[base+3] = cubicWeight(2.0 - frac)
		for n := 0; n < 4; n++ {
			t.index[base+n] = reflect101(s+n-1, srcLen)
		}
	}
	return t
}

// resamplePlane runs the horizontal pass into tmp, then the vertical pass,
// handing each destination sample to store.
func resamplePlane(src func(i int) float64, sw, sh, dw, dh int, xt, yt cubicTaps, tmp []float64, store func(i int, v float64)) {
	for y := 0; y < sh; y++ {
		srcRow := y * sw
		tmpRow := tmp[y*dw : (y+1)*dw]
		for dx := range tmpRow {
			base := dx * 4
			var sum float64
			for n := 0; n < 4; n++ {
				sum += src(srcRow+xt.index[base+n]) * xt.weight[base+n]
			}
			tmpRow[dx] = sum
		}
	}
	for dy := 0; dy < dh; dy++ {
		base := dy * 4
		dstRow := dy * dw
		for dx := 0; dx < dw; dx++ {
			var sum float64
			for m := 0; m < 4; m++ {
				sum += tmp[yt.index[base+m]*dw+dx] * yt.weight[base+m]
			}
			store(dstRow+dx, sum)
		}
	}
}

// ResampleField resizes a field with the bicubic kernel. Identical sizes
// return an exact copy.
func ResampleField(src Field, width, height int) Field {
	if src.Width == width && src.Height == height {
		return src.Clone()
	}
	dst := NewField(width, height)
	xt := newCubicTaps(src.Width, width)
	yt := newCubicTaps(src.Height, height)
	tmp := make([]float64, width*src.Height)
	resamplePlane(
		func(i int) float64 { return float64(src.Data[i]) },
		src.Width, src.Height, width, height, xt, yt, tmp,
		func(i int, v float64) { dst.Data[i] = float32(v) },
	)
	return dst
}

// ResampleARGB resizes every channel of a pixel source with the bicubic
// kernel, rounding to the nearest 8-bit value. Identical sizes return a copy.
func ResampleARGB(src PixelSource, width, height int) *ARGBImage {
	pixels := CopyPixels(src)
	if pixels.width == width && pixels.height == height {
		return pixels.Clone()
	}
	dst := NewARGBImage(width, height)
	xt := newCubicTaps(pixels.width, width)
	yt := newCubicTaps(pixels.height, height)
	tmp := make([]float64, width*pixels.height)
	for _, shift := range [...]uint{24, 16, 8, 0} {
		resamplePlane(
			func(i int) float64 { return float64((pixels.Pix[i] >> shift) & 0xFF) },
			pixels.width, pixels.height, width, height, xt, yt, tmp,
			func(i int, v float64) { dst.Pix[i] |= uint32(clampByte(v)) << shift },
		)
	}
	return dst
}

func clampByte(v float64) uint8 {
	r := math.Floor(v + 0.5)
	if r <= 0 {
		return 0
	}
	if r >= 255 {
		return 255
	}
	return uint8(r)
}

// BlockAverage halves a field by averaging 2×2 blocks; odd trailing
// rows and columns are dropped.
func BlockAverage(src Field) Field {
	w, h := src.Width/2, src.Height/2
	dst := NewField(w, h)
	for y := 0; y < h; y++ {
		top := src.Data[(2*y)*src.Width:]
		bottom := src.Data[(2*y+1)*src.Width:]
		for x := 0; x < w; x++ {
			sum := float64(top[2*x]) + float64(top[2*x+1]) + float64(bottom[2*x]) + float64(bottom[2*x+1])
			dst.Data[y*w+x] = float32(sum / 4)
		}
	}
	return dst
}
