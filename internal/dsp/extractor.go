// SPDX-License-Identifier: MIT
/*
Package dsp turns captured audio into one smoothed level per configured band.

The Extractor keeps the most recent samples in a rolling window. While fewer
samples than the transform size have arrived it only accumulates. Once enough
are present every new block triggers a transform over the latest
transform-size samples; each band then averages the magnitudes within roughly
15% of its center frequency, applies the perceptual weight and pushes the
result into that band's history window. The renderer reads (average, max)
pairs from those histories at frame rate.
*/
package dsp

import (
	"fmt"
	"sync"

	applog "visualizer/internal/log"
	"visualizer/internal/rolling"
	"visualizer/internal/settings"
)

// Level is the smoothed state of one band for a frame.
type Level struct {
	Average float64
	Max     float64
}

// Extractor implements the audio-rate half of the pipeline.
type Extractor struct {
	settings   *settings.Settings
	sampleRate float64
	factory    TransformerFactory

	raw   *rolling.Synced
	bands []*rolling.Synced

	mu        sync.Mutex // serializes AddSamples
	transform Transformer
	scratch   []float64
}

// NewExtractor creates an extractor for the band count fixed in s.
func NewExtractor(s *settings.Settings, sampleRate float64, factory TransformerFactory) (*Extractor, error) {
	if s == nil {
		return nil, fmt.Errorf("extractor: settings cannot be nil")
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("extractor: sample rate must be positive, got %f", sampleRate)
	}
	if factory == nil {
		factory = FFTFactory(Rectangular)
	}

	n := s.BandCount()
	bands := make([]*rolling.Synced, n)
	for i := range bands {
		bands[i] = rolling.NewSynced(settings.BandHistory)
	}

	applog.Infof("Extractor: Initializing (Bands: %d, SampleRate: %.0f Hz)", n, sampleRate)

	return &Extractor{
		settings:   s,
		sampleRate: sampleRate,
		factory:    factory,
		raw:        rolling.NewSynced(settings.MaxTransformSize),
		bands:      bands,
	}, nil
}

// SampleRate returns the rate the extractor expects its input at.
func (e *Extractor) SampleRate() float64 { return e.sampleRate }

// AddSamples appends a block of mono samples and, once enough samples are
// buffered, updates every band level. Order within and across blocks is kept.
func (e *Extractor) AddSamples(block []float32) {
	e.raw.AppendSamples(block)

	p := e.settings.Snapshot()
	size := p.TransformSize

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.raw.Len() < size {
		return
	}

	if e.transform == nil || e.transform.Size() != size {
		t, err := e.factory(size, e.sampleRate)
		if err != nil {
			applog.Errorf("Extractor: Failed to create transform of size %d: %v", size, err)
			return
		}
		e.transform = t
		e.scratch = make([]float64, size)
		applog.Debugf("Extractor: Transform size is now %d", size)
	}

	if !e.raw.Last(e.scratch) {
		return
	}

	bins, err := e.transform.Transform(e.scratch)
	if err != nil {
		applog.Errorf("Extractor: Transform failed: %v", err)
		return
	}

	df := e.sampleRate / float64(size)
	for i, f := range p.Bands {
		if i >= len(e.bands) {
			break
		}
		level := BandLevel(bins, f, df) * Weight(f, p.Skew, e.sampleRate)
		e.bands[i].Append(level)
	}
}

// Ready reports whether enough samples are buffered for the current transform size.
func (e *Extractor) Ready() bool {
	return e.raw.Len() >= e.settings.Snapshot().TransformSize
}

// BandCount returns the number of band histories.
func (e *Extractor) BandCount() int { return len(e.bands) }

// Levels fills dst with each band's (average, max) over the last depth
// entries and returns it, growing dst if needed.
func (e *Extractor) Levels(depth int, dst []Level) []Level {
	if cap(dst) < len(e.bands) {
		dst = make([]Level, len(e.bands))
	}
	dst = dst[:len(e.bands)]
	for i, b := range e.bands {
		dst[i].Average, dst[i].Max = b.Stats(depth)
	}
	return dst
}
