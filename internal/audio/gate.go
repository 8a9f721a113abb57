// SPDX-License-Identifier: MIT
package audio

import "math"

const absMask = 0x7fffffff // clears the float32 sign bit

func (e *Engine) EnableGate() {
	e.gateEnabled.Store(true)
}

func (e *Engine) DisableGate() {
	e.gateEnabled.Store(false)
}

// SetGateThreshold adjusts the noise gate threshold.
// The value is a peak amplitude in 0.0-1.0; 0 keeps the gate always open.
func (e *Engine) SetGateThreshold(threshold float64) {
	if threshold < 0.0 || threshold != threshold {
		threshold = 0.0
	}
	if threshold > 1.0 {
		threshold = 1.0
	}
	e.gateThreshold.Store(math.Float32bits(float32(threshold)))
}

// GetGateThreshold returns the current noise gate threshold.
func (e *Engine) GetGateThreshold() float64 {
	return float64(e.threshold())
}

func (e *Engine) threshold() float32 {
	return math.Float32frombits(e.gateThreshold.Load())
}

// peak returns the largest absolute sample. Non-negative IEEE floats order
// the same as their bit patterns, so the comparison runs on integers.
func peak(block []float32) float32 {
	var p uint32
	for _, s := range block {
		p = max(p, math.Float32bits(s)&absMask)
	}
	return math.Float32frombits(p)
}

// applyGate silences block in place when its peak is below threshold and
// reports whether the gate was open. The block keeps its length.
func applyGate(block []float32, threshold float32) bool {
	if peak(block) >= threshold {
		return true
	}
	clear(block)
	return false
}
