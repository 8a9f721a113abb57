// SPDX-License-Identifier: MIT
package dsp

import "math"

// bandwidth is the fractional half-width aggregated around each band center.
const bandwidth = 0.15

// Weight is the perceptual multiplier for a band centered at f. The frequency
// is normalized over [0, sampleRate/2], clamped to [0, 1] and raised to skew.
// A skew of 0 is flat; values in (0, 1) lift the treble relative to the bass.
func Weight(f, skew, sampleRate float64) float64 {
	nyquist := sampleRate / 2
	if nyquist <= 0 {
		return 0
	}
	norm := f / nyquist
	if norm < 0 || math.IsNaN(norm) {
		norm = 0
	}
	if norm > 1 {
		norm = 1
	}
	return math.Pow(norm, skew)
}

// HalfWindowBins is the number of bins aggregated on each side of the center
// bin for a band at f with bin resolution df. It is never below 1.
func HalfWindowBins(f, df float64) int {
	if df <= 0 {
		return 1
	}
	r := int(math.Round(bandwidth * f / df))
	return max(1, r)
}

// BandLevel averages the magnitudes of the bins within HalfWindowBins of f.
// Bins outside the spectrum are skipped; with none in range the level is 0.
func BandLevel(bins []Bin, f, df float64) float64 {
	if len(bins) == 0 || df <= 0 {
		return 0
	}
	center := int(math.Round(f / df))
	r := HalfWindowBins(f, df)

	lo := max(center-r, 0)
	hi := min(center+r, len(bins)-1)
	if lo > hi {
		return 0
	}
	var sum float64
	for i := lo; i <= hi; i++ {
		sum += bins[i].Mag
	}
	return sum / float64(hi-lo+1)
}
