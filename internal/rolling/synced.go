// SPDX-License-Identifier: MIT
package rolling

import "sync"

// Synced is a Window guarded by a mutex. Each call is one critical section;
// callers never get access to the backing storage.
type Synced struct {
	mu sync.Mutex
	w  *Window
}

// NewSynced creates an empty synchronized window.
func NewSynced(capacity int) *Synced {
	return &Synced{w: New(capacity)}
}

// Append adds a single sample.
func (s *Synced) Append(x float64) {
	s.mu.Lock()
	s.w.AddSample(x)
	s.mu.Unlock()
}

// AppendSamples adds a block of samples under one lock.
func (s *Synced) AppendSamples(xs []float32) {
	s.mu.Lock()
	s.w.AddSamples32(xs)
	s.mu.Unlock()
}

// Average is the locked equivalent of Window.Average.
func (s *Synced) Average(n int) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Average(n)
}

// Max is the locked equivalent of Window.Max.
func (s *Synced) Max(n int) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Max(n)
}

// Stats returns Average(n) and Max(n) from the same locked view.
func (s *Synced) Stats(n int) (avg, max float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Average(n), s.w.Max(n)
}

// Len returns the number of retained samples.
func (s *Synced) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Len()
}

// Last copies the most recent len(dst) samples into dst, oldest first.
func (s *Synced) Last(dst []float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Last(dst)
}
