// SPDX-License-Identifier: MIT
package rolling

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"
)

func TestRetainsLastCapacitySamples(t *testing.T) {
	for _, capacity := range []int{1, 3, 8, 100} {
		t.Run(fmt.Sprintf("cap=%d", capacity), func(t *testing.T) {
			w := New(capacity)
			n := capacity*3 + 1
			for i := range n {
				w.AddSample(float64(i))
			}

			if w.Len() != capacity {
				t.Fatalf("Len() = %d, want %d", w.Len(), capacity)
			}

			got := w.Snapshot()
			for i, v := range got {
				want := float64(n - capacity + i)
				if v != want {
					t.Errorf("sample %d = %v, want %v", i, v, want)
				}
			}
		})
	}
}

func TestRandomInsertsMatchSliceModel(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	w := New(17)
	var model []float64

	for range 500 {
		x := rng.Float64()
		w.AddSample(x)
		model = append(model, x)
		if len(model) > 17 {
			model = model[1:]
		}

		got := w.Snapshot()
		if len(got) != len(model) {
			t.Fatalf("len = %d, want %d", len(got), len(model))
		}
		for i := range got {
			if got[i] != model[i] {
				t.Fatalf("index %d = %v, want %v", i, got[i], model[i])
			}
		}
	}
}

func TestAverageAndMaxSuffix(t *testing.T) {
	w := New(10)
	w.AddSamples([]float64{1, 2, 3, 4, 5})

	if got := w.Average(3); got != 4.0 {
		t.Errorf("Average(3) = %v, want 4", got)
	}
	if got := w.Max(3); got != 5 {
		t.Errorf("Max(3) = %v, want 5", got)
	}
}

func TestAverageDividesByRequestedLength(t *testing.T) {
	// Warm-up: only two samples available for a suffix of four.
	w := New(10)
	w.AddSamples([]float64{2, 2})

	if got := w.Average(4); got != 1.0 {
		t.Errorf("Average(4) on half-filled window = %v, want 1 (sum / n)", got)
	}
	if got := w.Max(4); got != 2 {
		t.Errorf("Max(4) = %v, want 2", got)
	}
}

func TestMaxUsesTrailingSamples(t *testing.T) {
	w := New(10)
	w.AddSamples([]float64{9, 1, 2, 3})

	if got := w.Max(3); got != 3 {
		t.Errorf("Max(3) = %v, want 3 (9 is outside the suffix)", got)
	}
}

func TestDegenerateQueries(t *testing.T) {
	w := New(4)
	if got := w.Average(3); got != 0 {
		t.Errorf("Average on empty = %v, want 0", got)
	}
	if got := w.Max(3); got != 0 {
		t.Errorf("Max on empty = %v, want 0", got)
	}

	w.AddSample(5)
	if got := w.Average(0); got != 0 {
		t.Errorf("Average(0) = %v, want 0", got)
	}
	if got := w.Max(0); got != 0 {
		t.Errorf("Max(0) = %v, want 0", got)
	}
	if got := w.Average(-2); got != 0 {
		t.Errorf("Average(-2) = %v, want 0", got)
	}
}

func TestLast(t *testing.T) {
	w := New(5)
	w.AddSamples32([]float32{1, 2, 3, 4, 5, 6, 7})

	dst := make([]float64, 3)
	if !w.Last(dst) {
		t.Fatal("Last(3) returned false with 5 samples")
	}
	want := []float64{5, 6, 7}
	for i := range want {
		if dst[i] != want[i] {
			t.Errorf("dst[%d] = %v, want %v", i, dst[i], want[i])
		}
	}

	if w.Last(make([]float64, 6)) {
		t.Error("Last(6) should fail with 5 samples")
	}
}

func TestReset(t *testing.T) {
	w := New(3)
	w.AddSamples([]float64{1, 2, 3})
	w.Reset()
	if w.Len() != 0 {
		t.Errorf("Len() after Reset = %d, want 0", w.Len())
	}
}

func TestAddSampleZeroAllocs(t *testing.T) {
	w := New(1024)
	block := make([]float32, 256)

	allocs := testing.AllocsPerRun(100, func() {
		w.AddSamples32(block)
		_ = w.Average(10)
		_ = w.Max(10)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in window hot path, got %.1f", allocs)
	}
}

func TestSyncedConcurrentAccess(t *testing.T) {
	s := NewSynced(64)
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := range 1000 {
			s.Append(float64(i % 10))
		}
	}()
	go func() {
		defer wg.Done()
		for range 1000 {
			avg, max := s.Stats(8)
			if avg < 0 || max > 9 {
				t.Errorf("inconsistent stats avg=%v max=%v", avg, max)
				return
			}
		}
	}()
	wg.Wait()

	if s.Len() != 64 {
		t.Errorf("Len() = %d, want 64", s.Len())
	}
}

func BenchmarkAddSamples32(b *testing.B) {
	w := New(16384)
	block := make([]float32, 512)
	b.ReportAllocs()
	for b.Loop() {
		w.AddSamples32(block)
	}
}
