// SPDX-License-Identifier: MIT
package dsp

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"strings"

	applog "visualizer/internal/log"
	"visualizer/pkg/bitint"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

// ErrTransformSize is returned for transform sizes that are not a power of two
// or for inputs whose length does not match the transform size.
var ErrTransformSize = errors.New("dsp: invalid transform size")

// WindowFunc selects the window applied to the samples before the transform.
type WindowFunc int

const (
	Rectangular WindowFunc = iota // no windowing
	BartlettHann
	Blackman
	BlackmanNuttall
	Hann
	Hamming
	Lanczos
	Nuttall
)

var windowNames = [...]string{
	"rectangular", "bartletthann", "blackman", "blackmannuttall", "hann", "hamming", "lanczos", "nuttall",
}

func (w WindowFunc) String() string {
	if w >= 0 && int(w) < len(windowNames) {
		return windowNames[w]
	}
	return fmt.Sprintf("window(%d)", int(w))
}

// ParseWindowFunc converts a name (case-insensitive) to a WindowFunc. Unknown
// names return Rectangular and an error.
func ParseWindowFunc(name string) (WindowFunc, error) {
	switch strings.ToLower(name) {
	case "", "rectangular", "none":
		return Rectangular, nil
	case "bartletthann":
		return BartlettHann, nil
	case "blackman":
		return Blackman, nil
	case "blackmannuttall":
		return BlackmanNuttall, nil
	case "hann", "hanning":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "lanczos":
		return Lanczos, nil
	case "nuttall":
		return Nuttall, nil
	default:
		return Rectangular, fmt.Errorf("unknown FFT window function name: '%s'", name)
	}
}

// Bin is one entry of a magnitude spectrum.
type Bin struct {
	Freq float64 // Hz
	Mag  float64
}

// Transformer turns a fixed-length sample vector into a magnitude spectrum
// covering [0, sampleRate/2].
type Transformer interface {
	Size() int
	Transform(samples []float64) ([]Bin, error)
}

// TransformerFactory builds a Transformer for a transform size. The extractor
// calls it again whenever the configured size changes.
type TransformerFactory func(size int, sampleRate float64) (Transformer, error)

// fftWorkspace holds the buffers reused by every Transform call.
type fftWorkspace struct {
	input  []float64
	coeffs []complex128
	window []float64
	bins   []Bin
}

// FFT is a gonum-backed real FFT with pre-allocated buffers. Magnitudes are
// scaled by 1/sqrt(N). It is not safe for concurrent use.
type FFT struct {
	fft        *fourier.FFT
	size       int
	sampleRate float64
	windowType WindowFunc
	ws         fftWorkspace
}

var _ Transformer = (*FFT)(nil)

// NewFFT creates a transformer of the given size. size must be a power of two.
func NewFFT(size int, sampleRate float64, windowType WindowFunc) (*FFT, error) {
	if size < 2 || !bitint.IsPowerOfTwo(size) {
		return nil, fmt.Errorf("%w: %d is not a power of two", ErrTransformSize, size)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %f", sampleRate)
	}

	coeffs := make([]float64, size)
	applyWindow(coeffs, windowType)

	nBins := size/2 + 1
	bins := make([]Bin, nBins)
	df := sampleRate / float64(size)
	for i := range bins {
		bins[i].Freq = float64(i) * df
	}

	applog.Debugf("FFT: Initializing (Size: %d, SampleRate: %.1f Hz, Window: %v)", size, sampleRate, windowType)

	return &FFT{
		fft:        fourier.NewFFT(size),
		size:       size,
		sampleRate: sampleRate,
		windowType: windowType,
		ws: fftWorkspace{
			input:  make([]float64, size),
			coeffs: make([]complex128, nBins),
			window: coeffs,
			bins:   bins,
		},
	}, nil
}

// FFTFactory returns a TransformerFactory producing FFTs with the given window.
func FFTFactory(windowType WindowFunc) TransformerFactory {
	return func(size int, sampleRate float64) (Transformer, error) {
		return NewFFT(size, sampleRate, windowType)
	}
}

func (f *FFT) Size() int { return f.size }

// SampleRate returns the sample rate the bin frequencies were computed for.
func (f *FFT) SampleRate() float64 { return f.sampleRate }

// Transform windows samples, runs the FFT and returns size/2+1 bins. The
// returned slice is reused by the next call.
func (f *FFT) Transform(samples []float64) ([]Bin, error) {
	if len(samples) != f.size {
		return nil, fmt.Errorf("%w: got %d samples, want %d", ErrTransformSize, len(samples), f.size)
	}

	for i, s := range samples {
		f.ws.input[i] = s * f.ws.window[i]
	}
	f.fft.Coefficients(f.ws.coeffs, f.ws.input)

	norm := 1 / math.Sqrt(float64(f.size))
	for i, c := range f.ws.coeffs {
		f.ws.bins[i].Mag = cmplx.Abs(c) * norm
	}
	return f.ws.bins, nil
}

// applyWindow fills coeffs with the selected window.
func applyWindow(coeffs []float64, windowType WindowFunc) {
	// gonum windows scale in place, so start from ones.
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	switch windowType {
	case Rectangular:
	case BartlettHann:
		window.BartlettHann(coeffs)
	case Blackman:
		window.Blackman(coeffs)
	case BlackmanNuttall:
		window.BlackmanNuttall(coeffs)
	case Hann:
		window.Hann(coeffs)
	case Hamming:
		window.Hamming(coeffs)
	case Lanczos:
		window.Lanczos(coeffs)
	case Nuttall:
		window.Nuttall(coeffs)
	default:
		applog.Warnf("FFT: Unknown window function type %d, using rectangular", windowType)
	}
}
