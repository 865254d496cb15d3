package brisque

import (
	"bytes"
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/anime-shed/image-descaler/internal/imaging"
)

// newTestModel builds a small deterministic model with the production feature count.
func newTestModel(numSV int, seed int64) *Model {
	rng := rand.New(rand.NewSource(seed))
	m := &Model{
		Version:           1,
		NumFeatures:       FeatureCount,
		NumSupportVectors: numSV,
		SupportVectors:    make([]float32, numSV*FeatureCount),
		Alphas:            make([]float32, numSV),
		Rho:               -40,
		Gamma:             0.05,
		RangeMin:          make([]float32, FeatureCount),
		RangeMax:          make([]float32, FeatureCount),
	}
	for i := range m.SupportVectors {
		m.SupportVectors[i] = float32(rng.Float64()*2 - 1)
	}
	for i := range m.Alphas {
		m.Alphas[i] = float32(rng.Float64()*20 - 5)
	}
	for i := range m.RangeMin {
		m.RangeMin[i] = 0
		m.RangeMax[i] = float32(1 + i%4)
	}
	return m
}

func TestGamma(t *testing.T) {
	testCases := []struct {
		name string
		x    float64
		want float64
	}{
		{"One", 1, 1},
		{"Two", 2, 1},
		{"Five", 5, 24},
		{"Half", 0.5, math.Sqrt(math.Pi)},
		{"OneAndHalf", 1.5, math.Sqrt(math.Pi) / 2},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Gamma(tc.x)
			if math.Abs(got-tc.want)/tc.want > 1e-6 {
				t.Errorf("Gamma(%v) = %v, want %v", tc.x, got, tc.want)
			}
		})
	}

	reflected := Gamma(0.3) * Gamma(0.7)
	want := math.Pi / math.Sin(0.3*math.Pi)
	if math.Abs(reflected-want)/want > 1e-10 {
		t.Errorf("Gamma(0.3)*Gamma(0.7) = %v, want %v", reflected, want)
	}
}

func TestGamma_MatchesMathGamma(t *testing.T) {
	for x := 0.01; x <= 20; x += 0.037 {
		want := math.Gamma(x)
		got := Gamma(x)
		if rel := math.Abs(got-want) / math.Abs(want); rel > 1e-10 {
			t.Fatalf("Gamma(%v) = %v, math.Gamma = %v (rel err %g)", x, got, want, rel)
		}
	}
}

func TestGamma_Poles(t *testing.T) {
	for _, x := range []float64{0, -1, -2} {
		if !math.IsNaN(Gamma(x)) {
			t.Errorf("Expected NaN at pole %v", x)
		}
	}
	if got, want := Gamma(-0.5), -2*math.Sqrt(math.Pi); math.Abs(got-want) > 1e-9 {
		t.Errorf("Gamma(-0.5) = %v, want %v", got, want)
	}
}

func TestGaussianKernel(t *testing.T) {
	var sum float64
	for i, w := range gaussianKernel {
		sum += w
		if w != gaussianKernel[kernelSize-1-i] {
			t.Errorf("kernel not symmetric at %d", i)
		}
	}
	if math.Abs(sum-1) > 1e-12 {
		t.Errorf("kernel sums to %v", sum)
	}
	if gaussianKernel[kernelRadius] <= gaussianKernel[kernelRadius-1] {
		t.Error("Expected centre tap to dominate")
	}
}

func TestBlur_EdgeClamp(t *testing.T) {
	// A single bright column at the left edge: clamping repeats it, so the
	// edge keeps more mass than the column one step inwards.
	f := imaging.NewField(9, 3)
	for y := 0; y < 3; y++ {
		f.Data[y*9] = 1
	}
	got := Blur(f)
	if got.Data[0] <= got.Data[1] {
		t.Errorf("Expected edge sample %v > neighbour %v", got.Data[0], got.Data[1])
	}
	// Rows are identical, so the vertical pass is a no-op.
	for x := 0; x < 9; x++ {
		if got.Data[x] != got.Data[9+x] || got.Data[x] != got.Data[18+x] {
			t.Errorf("column %d differs between rows", x)
		}
	}
}

func TestComputeMSCN_Constant(t *testing.T) {
	for _, v := range []float32{0, 0.25, 0.5, 1} {
		f := imaging.NewField(16, 12)
		for i := range f.Data {
			f.Data[i] = v
		}
		for i, m := range ComputeMSCN(f) {
			if m != 0 {
				t.Fatalf("value %v: MSCN[%d] = %v, want 0", v, i, m)
			}
		}
	}
}

func TestComputeMSCN_Finite(t *testing.T) {
	mscn := ComputeMSCN(imaging.Luminance(imaging.Checkerboard(20, 20, 3)))
	for i, v := range mscn {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			t.Fatalf("MSCN[%d] = %v", i, v)
		}
	}
}

func TestFitAGGD_Fallback(t *testing.T) {
	testCases := []struct {
		name    string
		samples []float32
	}{
		{"Empty", nil},
		{"Zeros", make([]float32, 10)},
		{"PositiveOnly", []float32{0.1, 0.2, 0, 3}},
		{"NegativeOnly", []float32{-0.1, -5}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := FitAGGD(tc.samples); got != fallbackAGGD {
				t.Errorf("Expected fallback, got %+v", got)
			}
		})
	}
}

func TestFitAGGD_GaussianShape(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	samples := make([]float32, 50000)
	for i := range samples {
		samples[i] = float32(rng.NormFloat64())
	}
	p := FitAGGD(samples)
	if math.Abs(p.Shape-2) > 0.15 {
		t.Errorf("Expected shape near 2 for Gaussian samples, got %v", p.Shape)
	}
	if math.Abs(p.LeftSigma-1) > 0.05 || math.Abs(p.RightSigma-1) > 0.05 {
		t.Errorf("Expected unit sigmas, got %+v", p)
	}
}

func TestFitAGGD_Asymmetric(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	samples := make([]float32, 50000)
	for i := range samples {
		v := rng.NormFloat64()
		if v > 0 {
			v *= 2
		}
		samples[i] = float32(v)
	}
	p := FitAGGD(samples)
	ratio := p.RightSigma / p.LeftSigma
	if math.Abs(ratio-2) > 0.1 {
		t.Errorf("Expected right/left sigma ratio near 2, got %v", ratio)
	}
}

func TestShapeTable(t *testing.T) {
	table := shapeTable()
	if len(table) < 9790 || len(table) > 9802 {
		t.Fatalf("unexpected table length %d", len(table))
	}
	if table[0].gamma != shapeSearchStart {
		t.Errorf("Expected first candidate %v, got %v", shapeSearchStart, table[0].gamma)
	}
	if last := table[len(table)-1].gamma; last >= shapeSearchEnd {
		t.Errorf("last candidate %v not below %v", last, shapeSearchEnd)
	}
	// r(2) = 2/π for the Gaussian.
	for _, e := range table {
		if math.Abs(e.gamma-2) < shapeSearchStep/2 {
			if math.Abs(e.ratio-2/math.Pi) > 1e-3 {
				t.Errorf("r(2) = %v, want %v", e.ratio, 2/math.Pi)
			}
		}
	}
}

func TestComputeFeaturesForScale_ConstantField(t *testing.T) {
	mscn := make([]float32, 10*8)
	got := ComputeFeaturesForScale(mscn, 10, 8)

	want := [FeaturesPerScale]float32{1, 1}
	for s := 0; s < 4; s++ {
		want[2+s*4] = 1
		want[2+s*4+1] = 0
		want[2+s*4+2] = 1
		want[2+s*4+3] = 1
	}
	if got != want {
		t.Errorf("Expected fallback features %v, got %v", want, got)
	}
}

func TestExtractFeatures(t *testing.T) {
	t.Run("ConstantImage", func(t *testing.T) {
		fv := ExtractFeatures(imaging.Luminance(imaging.Constant(12, 12, 0xFF404040)))
		for _, base := range []int{0, FeaturesPerScale} {
			if fv[base] != 1 || fv[base+1] != 1 {
				t.Errorf("scale at %d: expected fallback shape/variance, got %v %v", base, fv[base], fv[base+1])
			}
		}
	})

	t.Run("SingleColumnSkipsSecondScale", func(t *testing.T) {
		fv := ExtractFeatures(imaging.Luminance(imaging.Noise(1, 30, 2)))
		for i := FeaturesPerScale; i < FeatureCount; i++ {
			if fv[i] != 0 {
				t.Fatalf("feature %d = %v, want 0", i, fv[i])
			}
		}
		if fv[0] == 0 {
			t.Error("Expected first scale to be populated")
		}
	})

	t.Run("NoiseIsFinite", func(t *testing.T) {
		fv := ExtractFeatures(imaging.Luminance(imaging.Noise(40, 30, 9)))
		for i, v := range fv {
			if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
				t.Fatalf("feature %d = %v", i, v)
			}
		}
	})
}

func TestModel_ScaleFeatures(t *testing.T) {
	m := newTestModel(2, 1)
	m.RangeMin[3], m.RangeMax[3] = 5, 5

	var fv FeatureVector
	fv[0] = 0
	fv[1] = 2 // range [0,2]
	fv[2] = 1.5
	fv[3] = 7

	scaled := m.ScaleFeatures(fv)
	if scaled[0] != -1 || scaled[1] != 1 || scaled[2] != 0 {
		t.Errorf("unexpected scaling %v", scaled[:3])
	}
	if scaled[3] != 0 {
		t.Errorf("Expected degenerate range to scale to 0, got %v", scaled[3])
	}
}

func TestModel_PredictClamps(t *testing.T) {
	high := newTestModel(3, 2)
	high.Rho = -1e6
	if got := high.Score(FeatureVector{}); got != 100 {
		t.Errorf("Expected clamp to 100, got %v", got)
	}

	low := newTestModel(3, 2)
	low.Rho = 1e6
	if got := low.Score(FeatureVector{}); got != 0 {
		t.Errorf("Expected clamp to 0, got %v", got)
	}
}

func TestModel_PredictSingleVector(t *testing.T) {
	m := newTestModel(1, 3)
	for i := range m.SupportVectors {
		m.SupportVectors[i] = 0
	}
	m.Alphas[0] = 30
	m.Rho = -10
	m.Gamma = 1

	// Zero distance: 30*exp(0) + 10.
	if got := m.Predict(FeatureVector{}); got != 40 {
		t.Errorf("Expected 40, got %v", got)
	}
}

func TestModel_Validate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Model)
	}{
		{"FeatureCount", func(m *Model) { m.NumFeatures = 10 }},
		{"NoVectors", func(m *Model) { m.NumSupportVectors = 0; m.SupportVectors = nil; m.Alphas = nil }},
		{"MatrixSize", func(m *Model) { m.SupportVectors = m.SupportVectors[1:] }},
		{"Alphas", func(m *Model) { m.Alphas = append(m.Alphas, 1) }},
		{"Ranges", func(m *Model) { m.RangeMax = m.RangeMax[:5] }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := newTestModel(4, 1)
			tc.mutate(m)
			if err := m.Validate(); !errors.Is(err, ErrMalformedModel) {
				t.Errorf("Expected ErrMalformedModel, got %v", err)
			}
		})
	}
	if err := newTestModel(4, 1).Validate(); err != nil {
		t.Errorf("Expected valid model, got %v", err)
	}
}

func TestModelCodec_RoundTrip(t *testing.T) {
	m := newTestModel(7, 42)
	m.Version = 3

	var buf bytes.Buffer
	if err := EncodeModel(&buf, m); err != nil {
		t.Fatalf("EncodeModel: %v", err)
	}
	wantLen := 4 + 5*4 + 4 + len(m.SupportVectors)*4 + 4 + len(m.Alphas)*4 + 2*FeatureCount*4
	if buf.Len() != wantLen {
		t.Fatalf("Expected %d bytes, got %d", wantLen, buf.Len())
	}

	got, err := DecodeModel(buf.Bytes())
	if err != nil {
		t.Fatalf("DecodeModel: %v", err)
	}
	if got.Version != 3 || got.NumFeatures != FeatureCount || got.NumSupportVectors != 7 {
		t.Errorf("header mismatch: %+v", got)
	}
	if got.Gamma != m.Gamma || got.Rho != m.Rho {
		t.Errorf("scalars mismatch: gamma %v/%v rho %v/%v", got.Gamma, m.Gamma, got.Rho, m.Rho)
	}
	compare := func(name string, a, b []float32) {
		if len(a) != len(b) {
			t.Fatalf("%s: length %d != %d", name, len(a), len(b))
		}
		for i := range a {
			if math.Float32bits(a[i]) != math.Float32bits(b[i]) {
				t.Fatalf("%s[%d]: %v != %v", name, i, a[i], b[i])
			}
		}
	}
	compare("SupportVectors", got.SupportVectors, m.SupportVectors)
	compare("Alphas", got.Alphas, m.Alphas)
	compare("RangeMin", got.RangeMin, m.RangeMin)
	compare("RangeMax", got.RangeMax, m.RangeMax)
}

func TestDecodeModel_Malformed(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodeModel(&buf, newTestModel(3, 1)); err != nil {
		t.Fatal(err)
	}
	valid := buf.Bytes()

	hugeCount := append([]byte(nil), valid...)
	// Support vector count sits after magic and five 4-byte fields.
	copy(hugeCount[24:28], []byte{0xFF, 0xFF, 0xFF, 0x7F})

	testCases := []struct {
		name string
		data []byte
	}{
		{"Empty", nil},
		{"BadMagic", append([]byte("XXXX"), valid[4:]...)},
		{"Truncated", valid[:len(valid)-3]},
		{"HeaderOnly", valid[:12]},
		{"HugeCount", hugeCount},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := DecodeModel(tc.data); !errors.Is(err, ErrMalformedModel) {
				t.Errorf("Expected ErrMalformedModel, got %v", err)
			}
		})
	}
}

func TestScore_DeterministicAndBounded(t *testing.T) {
	m := newTestModel(16, 8)
	img := imaging.Noise(48, 40, 1)

	first, err := ScoreWithModel(m, img)
	if err != nil {
		t.Fatal(err)
	}
	second, _ := ScoreWithModel(m, img)
	if math.Float32bits(first) != math.Float32bits(second) {
		t.Errorf("Expected bit-identical scores, got %v and %v", first, second)
	}
	if first < 0 || first > 100 {
		t.Errorf("score %v out of range", first)
	}
}

type failingProvider struct{ err error }

func (f failingProvider) Model(context.Context) (*Model, error) { return nil, f.err }

type panickingProvider struct{}

func (panickingProvider) Model(context.Context) (*Model, error) { panic("boom") }

func TestAssessor_Sentinels(t *testing.T) {
	ctx := context.Background()
	img := imaging.Checkerboard(24, 24, 4)

	testCases := []struct {
		name     string
		provider ModelProvider
		src      imaging.PixelSource
		want     float32
	}{
		{"NoModel", StaticModel{}, img, ScoreModelUnavailable},
		{"LoadError", failingProvider{errors.New("disk gone")}, img, ScoreModelUnavailable},
		{"EmptyImage", StaticModel{M: newTestModel(2, 1)}, imaging.NewARGBImage(0, 0), ScoreError},
		{"Panic", panickingProvider{}, img, ScoreError},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			a := NewAssessor(tc.provider)
			if got := a.AssessImageQuality(ctx, tc.src); got != tc.want {
				t.Errorf("Expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestAssessor_Ready(t *testing.T) {
	ctx := context.Background()
	if err := NewAssessor(StaticModel{M: newTestModel(2, 1)}).Ready(ctx); err != nil {
		t.Errorf("Expected ready, got %v", err)
	}
	err := NewAssessor(failingProvider{errors.New("x")}).Ready(ctx)
	if !errors.Is(err, ErrModelUnavailable) {
		t.Errorf("Expected ErrModelUnavailable, got %v", err)
	}
}

func TestAssessor_ScoreInRange(t *testing.T) {
	a := NewAssessor(StaticModel{M: newTestModel(10, 4)})
	got := a.AssessImageQuality(context.Background(), imaging.Gradient(30, 20))
	if got < 0 || got > 100 {
		t.Errorf("score %v out of range", got)
	}
}
