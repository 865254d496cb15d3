package imaging

// chunkRows is the number of rows pulled from a PixelSource per read.
const chunkRows = 64

const (
	lumaR = 0.299
	lumaG = 0.587
	lumaB = 0.114
)

// Field is a row-major plane of float32 samples.
type Field struct {
	Width  int
	Height int
	Data   []float32
}

// NewField allocates a zeroed width×height field.
func NewField(width, height int) Field {
	return Field{Width: width, Height: height, Data: make([]float32, width*height)}
}

// Clone returns a deep copy of the field.
func (f Field) Clone() Field {
	out := Field{Width: f.Width, Height: f.Height, Data: make([]float32, len(f.Data))}
	copy(out.Data, f.Data)
	return out
}

// Luminance converts a pixel source into a [0,1] luma field.
func Luminance(src PixelSource) Field {
	return lumaField(src, 1.0/255.0, chunkRows)
}

// Brightness converts a pixel source into a [0,255] luma field.
func Brightness(src PixelSource) Field {
	return lumaField(src, 1.0, chunkRows)
}

func lumaField(src PixelSource, scale float64, rowsPerChunk int) Field {
	w, h := src.Width(), src.Height()
	out := NewField(w, h)
	buf := make([]uint32, w*min(rowsPerChunk, h))
	for y := 0; y < h; y += rowsPerChunk {
		rows := min(rowsPerChunk, h-y)
		chunk := buf[:rows*w]
		src.ReadRegion(0, y, w, rows, chunk)
		dst := out.Data[y*w : (y+rows)*w]
		for i, p := range chunk {
			dst[i] = luma(p, scale)
		}
	}
	return out
}

func luma(p uint32, scale float64) float32 {
	r := float64((p >> 16) & 0xFF)
	g := float64((p >> 8) & 0xFF)
	b := float64(p & 0xFF)
	return float32((lumaR*r + lumaG*g + lumaB*b) * scale)
}
