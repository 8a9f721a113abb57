// SPDX-License-Identifier: MIT
/*
Package rolling implements fixed-capacity FIFO sample windows.

Window is an array-backed ring buffer with O(1) inserts and no allocation
after construction. It is not safe for concurrent use; Synced wraps it behind
a mutex and exposes only the append/average/max views so the backing storage
never leaves the critical section.

Averages divide by the requested suffix length, not by the number of samples
available. A window that is still filling therefore under-reports, which keeps
levels from spiking while the pipeline warms up.
*/
package rolling

// Window is a ring buffer of float64 samples.
type Window struct {
	buf  []float64
	head int // next write position
	size int // current fill level
}

// New creates an empty window that retains at most capacity samples.
// A capacity below 1 is raised to 1.
func New(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{buf: make([]float64, capacity)}
}

// Cap returns the maximum number of retained samples.
func (w *Window) Cap() int { return len(w.buf) }

// Len returns the number of retained samples.
func (w *Window) Len() int { return w.size }

// AddSample appends x, evicting the oldest sample once full.
func (w *Window) AddSample(x float64) {
	w.buf[w.head] = x
	w.head++
	if w.head == len(w.buf) {
		w.head = 0
	}
	if w.size < len(w.buf) {
		w.size++
	}
}

// AddSamples appends every element of xs in order.
func (w *Window) AddSamples(xs []float64) {
	for _, x := range xs {
		w.AddSample(x)
	}
}

// AddSamples32 appends float32 samples, as delivered by audio callbacks.
func (w *Window) AddSamples32(xs []float32) {
	for _, x := range xs {
		w.AddSample(float64(x))
	}
}

// Average returns the sum of the last min(n, Len) samples divided by n.
// It returns 0 when n <= 0 or the window is empty.
func (w *Window) Average(n int) float64 {
	if n <= 0 || w.size == 0 {
		return 0
	}
	k := min(n, w.size)
	var sum float64
	for i := range k {
		sum += w.at(w.size - k + i)
	}
	return sum / float64(n)
}

// Max returns the largest of the last min(n, Len) samples, or 0 if there are none.
func (w *Window) Max(n int) float64 {
	if n <= 0 || w.size == 0 {
		return 0
	}
	k := min(n, w.size)
	m := w.at(w.size - k)
	for i := 1; i < k; i++ {
		if v := w.at(w.size - k + i); v > m {
			m = v
		}
	}
	return m
}

// Last copies the most recent len(dst) samples into dst, oldest first.
// It returns false and leaves dst untouched if fewer samples are retained.
func (w *Window) Last(dst []float64) bool {
	n := len(dst)
	if n > w.size {
		return false
	}
	for i := range n {
		dst[i] = w.at(w.size - n + i)
	}
	return true
}

// Snapshot returns a copy of the retained samples, oldest first.
func (w *Window) Snapshot() []float64 {
	out := make([]float64, w.size)
	w.Last(out)
	return out
}

// Reset drops every retained sample.
func (w *Window) Reset() {
	w.head = 0
	w.size = 0
}

// at returns the i-th retained sample counting from the oldest.
func (w *Window) at(i int) float64 {
	start := w.head - w.size
	if start < 0 {
		start += len(w.buf)
	}
	idx := start + i
	if idx >= len(w.buf) {
		idx -= len(w.buf)
	}
	return w.buf[idx]
}
