package imaging

import (
	"image"

	"golang.org/x/image/draw"
)

// PixelSource exposes a raster as packed 8-bit-per-channel ARGB values.
type PixelSource interface {
	Width() int
	Height() int
	// ReadRegion fills dst with the w*h pixels of the region at (x, y), row-major.
	ReadRegion(x, y, w, h int, dst []uint32)
}

// ARGBImage is an owned packed-ARGB raster.
type ARGBImage struct {
	width  int
	height int
	Pix    []uint32
}

// NewARGBImage allocates a zeroed width×height raster.
func NewARGBImage(width, height int) *ARGBImage {
	return &ARGBImage{
		width:  width,
		height: height,
		Pix:    make([]uint32, width*height),
	}
}

func (m *ARGBImage) Width() int  { return m.width }
func (m *ARGBImage) Height() int { return m.height }

// ReadRegion implements PixelSource.
func (m *ARGBImage) ReadRegion(x, y, w, h int, dst []uint32) {
	for row := 0; row < h; row++ {
		srcOff := (y+row)*m.width + x
		copy(dst[row*w:(row+1)*w], m.Pix[srcOff:srcOff+w])
	}
}

// At returns the packed pixel at (x, y).
func (m *ARGBImage) At(x, y int) uint32 {
	return m.Pix[y*m.width+x]
}

// Set stores a packed pixel at (x, y).
func (m *ARGBImage) Set(x, y int, argb uint32) {
	m.Pix[y*m.width+x] = argb
}

// Clone returns a deep copy.
func (m *ARGBImage) Clone() *ARGBImage {
	out := &ARGBImage{width: m.width, height: m.height, Pix: make([]uint32, len(m.Pix))}
	copy(out.Pix, m.Pix)
	return out
}

// ToImage converts the raster into a non-premultiplied image.
func (m *ARGBImage) ToImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, m.width, m.height))
	for y := 0; y < m.height; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < m.width; x++ {
			p := m.Pix[y*m.width+x]
			i := x * 4
			row[i] = uint8(p >> 16)
			row[i+1] = uint8(p >> 8)
			row[i+2] = uint8(p)
			row[i+3] = uint8(p >> 24)
		}
	}
	return img
}

// PackARGB packs 8-bit channels into a single pixel.
func PackARGB(a, r, g, b uint8) uint32 {
	return uint32(a)<<24 | uint32(r)<<16 | uint32(g)<<8 | uint32(b)
}

// FromImage copies any image.Image into an ARGBImage.
func FromImage(img image.Image) *ARGBImage {
	bounds := img.Bounds()
	nrgba, ok := img.(*image.NRGBA)
	if !ok || bounds.Min != (image.Point{}) {
		nrgba = image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(nrgba, nrgba.Bounds(), img, bounds.Min, draw.Src)
	}

	w, h := bounds.Dx(), bounds.Dy()
	out := NewARGBImage(w, h)
	for y := 0; y < h; y++ {
		row := nrgba.Pix[y*nrgba.Stride:]
		for x := 0; x < w; x++ {
			i := x * 4
			out.Pix[y*w+x] = PackARGB(row[i+3], row[i], row[i+1], row[i+2])
		}
	}
	return out
}

// CopyPixels materializes a PixelSource. An *ARGBImage is returned as is.
func CopyPixels(src PixelSource) *ARGBImage {
	if m, ok := src.(*ARGBImage); ok {
		return m
	}
	w, h := src.Width(), src.Height()
	out := NewARGBImage(w, h)
	for y := 0; y < h; y += chunkRows {
		rows := min(chunkRows, h-y)
		src.ReadRegion(0, y, w, rows, out.Pix[y*w:(y+rows)*w])
	}
	return out
}
