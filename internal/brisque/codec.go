package brisque

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// ModelMagic opens every serialized model.
const ModelMagic = "BRSQ"

// ErrMalformedModel reports a truncated or inconsistent model blob.
var ErrMalformedModel = errors.New("malformed BRISQUE model")

type modelReader struct {
	r   *bytes.Reader
	err error
}

func (mr *modelReader) int32() int32 {
	var v int32
	if mr.err == nil {
		mr.err = binary.Read(mr.r, binary.LittleEndian, &v)
	}
	return v
}

func (mr *modelReader) float32() float32 {
	var v float32
	if mr.err == nil {
		mr.err = binary.Read(mr.r, binary.LittleEndian, &v)
	}
	return v
}

func (mr *modelReader) floats(n int) []float32 {
	if mr.err != nil {
		return nil
	}
	if n < 0 || int64(n)*4 > int64(mr.r.Len()) {
		mr.err = fmt.Errorf("array of %d floats exceeds remaining %d bytes", n, mr.r.Len())
		return nil
	}
	out := make([]float32, n)
	mr.err = binary.Read(mr.r, binary.LittleEndian, out)
	return out
}

// counted reads a length prefix followed by that many floats.
func (mr *modelReader) counted() []float32 {
	n := mr.int32()
	return mr.floats(int(n))
}

// DecodeModel parses the little-endian BRSQ layout:
// magic, version, numFeatures, numSupportVectors, gamma, rho,
// counted support vectors, counted alphas, rangeMin, rangeMax.
func DecodeModel(data []byte) (*Model, error) {
	if len(data) < len(ModelMagic) || string(data[:len(ModelMagic)]) != ModelMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrMalformedModel)
	}
	mr := &modelReader{r: bytes.NewReader(data[len(ModelMagic):])}

	m := &Model{}
	m.Version = mr.int32()
	m.NumFeatures = int(mr.int32())
	m.NumSupportVectors = int(mr.int32())
	m.Gamma = mr.float32()
	m.Rho = mr.float32()
	m.SupportVectors = mr.counted()
	m.Alphas = mr.counted()
	if mr.err == nil && (m.NumFeatures < 0 || m.NumFeatures > math.MaxInt32/4) {
		mr.err = fmt.Errorf("invalid feature count %d", m.NumFeatures)
	}
	m.RangeMin = mr.floats(m.NumFeatures)
	m.RangeMax = mr.floats(m.NumFeatures)

	if mr.err != nil {
		if errors.Is(mr.err, io.EOF) || errors.Is(mr.err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: truncated", ErrMalformedModel)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedModel, mr.err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// EncodeModel writes m in the layout read by DecodeModel.
func EncodeModel(w io.Writer, m *Model) error {
	var buf bytes.Buffer
	buf.WriteString(ModelMagic)
	fields := []any{
		m.Version,
		int32(m.NumFeatures),
		int32(m.NumSupportVectors),
		m.Gamma,
		m.Rho,
		int32(len(m.SupportVectors)),
		m.SupportVectors,
		int32(len(m.Alphas)),
		m.Alphas,
		m.RangeMin,
		m.RangeMax,
	}
	for _, f := range fields {
		if err := binary.Write(&buf, binary.LittleEndian, f); err != nil {
			return fmt.Errorf("encode model: %w", err)
		}
	}
	_, err := w.Write(buf.Bytes())
	return err
}
