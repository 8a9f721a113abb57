// SPDX-License-Identifier: MIT
package dsp

import (
	"errors"
	"math"
	"testing"

	"visualizer/internal/settings"
	"visualizer/pkg/utils"
)

func TestWeightFlatSkew(t *testing.T) {
	for _, f := range []float64{0, 20, 441, 11025, 22050, 30000} {
		if got := Weight(f, 0, 44100); got != 1 {
			t.Errorf("Weight(%v, 0) = %v, want 1", f, got)
		}
	}
}

func TestWeightClampsAndScales(t *testing.T) {
	tests := []struct {
		name string
		f    float64
		skew float64
		want float64
	}{
		{"nyquist", 22050, 0.45, 1},
		{"above nyquist", 40000, 0.45, 1},
		{"quarter", 11025 / 2.0, 0.5, 0.5},
		{"linear half", 11025, 1, 0.5},
		{"zero frequency", 0, 0.45, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Weight(tt.f, tt.skew, 44100); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Weight(%v, %v) = %v, want %v", tt.f, tt.skew, got, tt.want)
			}
		})
	}
}

func TestHalfWindowBins(t *testing.T) {
	df := 44100.0 / 4096
	prev := 0
	for f := 1.0; f < 22050; f *= 1.1 {
		r := HalfWindowBins(f, df)
		if r < 1 {
			t.Fatalf("HalfWindowBins(%v) = %d, want >= 1", f, r)
		}
		if r < prev {
			t.Fatalf("HalfWindowBins not monotonic at f=%v: %d < %d", f, r, prev)
		}
		prev = r
	}
	if got := HalfWindowBins(13000, df); got != 181 {
		t.Errorf("HalfWindowBins(13000) = %d, want 181", got)
	}
}

func TestBandLevelSkipsOutOfRange(t *testing.T) {
	bins := make([]Bin, 5)
	for i := range bins {
		bins[i] = Bin{Freq: float64(i), Mag: float64(i + 1)}
	}

	// Center 0, radius 1: only bins 0 and 1 exist.
	if got := BandLevel(bins, 0.1, 1); got != 1.5 {
		t.Errorf("BandLevel at low edge = %v, want 1.5", got)
	}
	// Center 4, radius 1: only bins 3 and 4 exist.
	if got := BandLevel(bins, 4, 1); got != 4.5 {
		t.Errorf("BandLevel at high edge = %v, want 4.5", got)
	}
	// Entirely above the spectrum.
	if got := BandLevel(bins, 100, 1); got != 0 {
		t.Errorf("BandLevel beyond spectrum = %v, want 0", got)
	}
}

func TestFFTSinePeak(t *testing.T) {
	const n = 1024
	f, err := NewFFT(n, n, Rectangular)
	if err != nil {
		t.Fatal(err)
	}
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = math.Sin(2 * math.Pi * 100 * float64(i) / n)
	}

	bins, err := f.Transform(samples)
	if err != nil {
		t.Fatal(err)
	}
	if len(bins) != n/2+1 {
		t.Fatalf("len(bins) = %d, want %d", len(bins), n/2+1)
	}
	if bins[100].Freq != 100 {
		t.Errorf("bins[100].Freq = %v, want 100", bins[100].Freq)
	}
	// |X[k]| = N/2 for a unit sine, scaled by 1/sqrt(N).
	want := (n / 2) / math.Sqrt(n)
	if math.Abs(bins[100].Mag-want) > 1e-6 {
		t.Errorf("peak magnitude = %v, want %v", bins[100].Mag, want)
	}
	if bins[50].Mag > 1e-6 {
		t.Errorf("off-peak magnitude = %v, want ~0", bins[50].Mag)
	}
}

func TestFFTWindowedPeak(t *testing.T) {
	const (
		n    = 2048
		rate = 44100
	)
	for _, w := range []WindowFunc{Rectangular, Hann, Hamming, Blackman} {
		t.Run(w.String(), func(t *testing.T) {
			f, err := NewFFT(n, rate, w)
			if err != nil {
				t.Fatal(err)
			}
			wave := utils.GenerateSineWave(n, rate, 1000, 0.8)
			samples := make([]float64, n)
			for i, s := range wave {
				samples[i] = float64(s)
			}
			bins, err := f.Transform(samples)
			if err != nil {
				t.Fatal(err)
			}
			mags := make([]float64, len(bins))
			for i, b := range bins {
				mags[i] = b.Mag
			}
			peak := utils.FindPeakBin(mags, 1, len(mags)-1)
			if got := bins[peak].Freq; math.Abs(got-1000) > float64(rate)/n {
				t.Errorf("peak at %.1f Hz, want ~1000 Hz", got)
			}
		})
	}
}

func TestNewFFTRejectsBadSizes(t *testing.T) {
	for _, size := range []int{0, 1, 100, 1000} {
		if _, err := NewFFT(size, 44100, Hann); !errors.Is(err, ErrTransformSize) {
			t.Errorf("NewFFT(%d) error = %v, want ErrTransformSize", size, err)
		}
	}
	f, _ := NewFFT(64, 44100, Hann)
	if _, err := f.Transform(make([]float64, 32)); !errors.Is(err, ErrTransformSize) {
		t.Errorf("Transform with short input error = %v, want ErrTransformSize", err)
	}
}

func TestParseWindowFunc(t *testing.T) {
	tests := []struct {
		in   string
		want WindowFunc
		err  bool
	}{
		{"Hann", Hann, false},
		{"hanning", Hann, false},
		{"", Rectangular, false},
		{"NUTTALL", Nuttall, false},
		{"triangle", Rectangular, true},
	}
	for _, tt := range tests {
		got, err := ParseWindowFunc(tt.in)
		if (err != nil) != tt.err || got != tt.want {
			t.Errorf("ParseWindowFunc(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestFFTTransformZeroAllocs(t *testing.T) {
	f, _ := NewFFT(1024, 44100, Hann)
	samples := make([]float64, 1024)
	allocs := testing.AllocsPerRun(50, func() {
		_, _ = f.Transform(samples)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in Transform, got %.1f", allocs)
	}
}

// flatTransform reports a magnitude of 1 in every bin.
type flatTransform struct {
	size int
	fail bool
}

func (f *flatTransform) Size() int { return f.size }

func (f *flatTransform) Transform(samples []float64) ([]Bin, error) {
	if f.fail {
		return nil, errors.New("transform failed")
	}
	bins := make([]Bin, f.size/2+1)
	for i := range bins {
		bins[i].Mag = 1
	}
	return bins, nil
}

func newTestSettings(t *testing.T, size int) *settings.Settings {
	t.Helper()
	p := settings.DefaultParams()
	p.Bands = []float64{1000}
	p.Gains = []float64{1}
	p.Skew = 0
	p.TransformSize = size
	s, err := settings.New(p)
	if err != nil {
		t.Fatalf("settings.New: %v", err)
	}
	return s
}

func TestExtractorAccumulatesBeforeTransform(t *testing.T) {
	s := newTestSettings(t, 64)
	calls := 0
	e, err := NewExtractor(s, 6400, func(size int, _ float64) (Transformer, error) {
		calls++
		return &flatTransform{size: size}, nil
	})
	if err != nil {
		t.Fatal(err)
	}

	e.AddSamples(make([]float32, 63))
	if e.Ready() {
		t.Error("Ready() with 63 of 64 samples")
	}
	if lv := e.Levels(1, nil); lv[0].Average != 0 || calls != 0 {
		t.Fatalf("levels updated while accumulating: %+v (transform calls %d)", lv, calls)
	}

	e.AddSamples(make([]float32, 1))
	lv := e.Levels(1, nil)
	if lv[0].Average != 1 || lv[0].Max != 1 {
		t.Errorf("level after first transform = %+v, want {1 1}", lv[0])
	}
}

func TestExtractorKeepsLevelsOnTransformFailure(t *testing.T) {
	s := newTestSettings(t, 64)
	ft := &flatTransform{size: 64}
	e, _ := NewExtractor(s, 6400, func(int, float64) (Transformer, error) { return ft, nil })

	e.AddSamples(make([]float32, 64))
	before := e.Levels(settings.BandHistory, nil)[0]

	ft.fail = true
	e.AddSamples(make([]float32, 16))
	after := e.Levels(settings.BandHistory, nil)[0]

	if before != after {
		t.Errorf("levels changed after failed transform: %+v -> %+v", before, after)
	}
}

func TestExtractorRebuildsOnSizeChange(t *testing.T) {
	s := newTestSettings(t, 64)
	var sizes []int
	e, _ := NewExtractor(s, 6400, func(size int, _ float64) (Transformer, error) {
		sizes = append(sizes, size)
		return &flatTransform{size: size}, nil
	})

	e.AddSamples(make([]float32, 64))
	if err := s.SetTransformSize(128); err != nil {
		t.Fatal(err)
	}
	e.AddSamples(make([]float32, 32)) // 96 buffered, accumulating again
	e.AddSamples(make([]float32, 32))

	if len(sizes) != 2 || sizes[0] != 64 || sizes[1] != 128 {
		t.Errorf("transform sizes = %v, want [64 128]", sizes)
	}
}

func TestExtractorAppliesWeight(t *testing.T) {
	s := newTestSettings(t, 64)
	if err := s.SetSkew(1); err != nil {
		t.Fatal(err)
	}
	e, _ := NewExtractor(s, 6400, func(size int, _ float64) (Transformer, error) {
		return &flatTransform{size: size}, nil
	})
	e.AddSamples(make([]float32, 64))

	// 1000 Hz over a 3200 Hz Nyquist with skew 1.
	want := 1000.0 / 3200
	if got := e.Levels(1, nil)[0].Average; math.Abs(got-want) > 1e-12 {
		t.Errorf("weighted level = %v, want %v", got, want)
	}
}

func BenchmarkExtractorAddSamples(b *testing.B) {
	s, _ := settings.New(settings.DefaultParams())
	e, _ := NewExtractor(s, 44100, FFTFactory(Hann))
	block := make([]float32, 512)
	for range 16 {
		e.AddSamples(block)
	}
	b.ReportAllocs()
	for b.Loop() {
		e.AddSamples(block)
	}
}
