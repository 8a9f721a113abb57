// SPDX-License-Identifier: MIT
package frame

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"visualizer/internal/animation"
	"visualizer/internal/color"
	"visualizer/internal/dsp"
	"visualizer/internal/settings"
	"visualizer/pkg/utils"
)

const L = settings.LedsPerStrip

func numberedStrips(bands int) []animation.Strip {
	strips := make([]animation.Strip, bands)
	for i := range strips {
		for k := range strips[i] {
			strips[i][k] = color.Color{R: uint8(i), G: uint8(k), B: 1}
		}
	}
	return strips
}

func TestEncodeLayout(t *testing.T) {
	for _, bands := range []int{1, 2, 3, 22} {
		strips := numberedStrips(bands)
		buf := NewEncoder(color.GRB).Encode(nil, strips, 1)

		if len(buf) != 3*bands*L+1 {
			t.Fatalf("bands=%d: len = %d, want %d", bands, len(buf), 3*bands*L+1)
		}
		if buf[len(buf)-1] != EndOfFrame {
			t.Errorf("bands=%d: last byte = %#x", bands, buf[len(buf)-1])
		}
		if i := bytes.IndexByte(buf, EndOfFrame); i != len(buf)-1 {
			t.Errorf("bands=%d: sentinel found inside body at %d", bands, i)
		}

		for i := range bands {
			for k := range L {
				src := k
				if i%2 == 1 {
					src = L - 1 - k
				}
				off := (i*L + k) * 3
				want := []byte{uint8(src), uint8(i), 1} // G, R, B
				if !bytes.Equal(buf[off:off+3], want) {
					t.Fatalf("bands=%d strip %d LED %d = % x, want % x", bands, i, k, buf[off:off+3], want)
				}
			}
		}
	}
}

func TestEncodeRGBOrderAndBrightness(t *testing.T) {
	strips := []animation.Strip{{}}
	strips[0][0] = color.Color{R: 200, G: 100, B: 50}

	buf := NewEncoder(color.RGB).Encode(nil, strips, 0.5)
	if want := []byte{100, 50, 25}; !bytes.Equal(buf[:3], want) {
		t.Errorf("first LED = % x, want % x", buf[:3], want)
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	for _, order := range []color.Order{color.GRB, color.RGB} {
		strips := numberedStrips(5)
		buf := NewEncoder(order).Encode(nil, strips, 1)

		got, err := Decode(buf, order)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != len(strips) {
			t.Fatalf("decoded %d strips, want %d", len(got), len(strips))
		}
		for i := range strips {
			if got[i] != strips[i] {
				t.Errorf("order %d strip %d = %v, want %v", order, i, got[i], strips[i])
			}
		}
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	if _, err := Decode([]byte{1, 2, 3}, color.GRB); err == nil {
		t.Error("frame without sentinel accepted")
	}
	if _, err := Decode([]byte{1, 2, 3, EndOfFrame}, color.GRB); err == nil {
		t.Error("partial strip accepted")
	}
}

func TestEncodeReusesBuffer(t *testing.T) {
	enc := NewEncoder(color.GRB)
	strips := numberedStrips(22)
	buf := make([]byte, 0, Size(22))
	allocs := testing.AllocsPerRun(50, func() {
		buf = enc.Encode(buf, strips, 0.8)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in Encode, got %.1f", allocs)
	}
}

type constLevels struct{ level dsp.Level }

func (c constLevels) Levels(_ int, dst []dsp.Level) []dsp.Level {
	dst = dst[:0]
	for range 22 {
		dst = append(dst, c.level)
	}
	return dst
}

// checkingTransport records frames and what last_frame held while sending.
type checkingTransport struct {
	s       *settings.Settings
	sent    [][]byte
	stored  [][]byte
	failing bool
}

func (c *checkingTransport) Send(frame []byte) error {
	c.sent = append(c.sent, bytes.Clone(frame))
	c.stored = append(c.stored, c.s.LastFrame())
	if c.failing {
		return errors.New("link down")
	}
	return nil
}

func (c *checkingTransport) Close() error { return nil }

func newSettings(t *testing.T) *settings.Settings {
	t.Helper()
	s, err := settings.New(settings.DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestTickStoresFrameBeforeSending(t *testing.T) {
	s := newSettings(t)
	tr := &checkingTransport{s: s}
	sch, err := NewScheduler(s, constLevels{dsp.Level{Average: 1, Max: 1}}, tr, NewEncoder(color.GRB))
	if err != nil {
		t.Fatal(err)
	}

	if err := sch.Tick(); err != nil {
		t.Fatal(err)
	}
	if len(tr.sent) != 1 {
		t.Fatalf("sent %d frames, want 1", len(tr.sent))
	}
	if !bytes.Equal(tr.sent[0], tr.stored[0]) {
		t.Error("last_frame did not hold the frame being sent")
	}
	if len(tr.sent[0]) != settings.FrameSize(22) {
		t.Errorf("frame length = %d, want %d", len(tr.sent[0]), settings.FrameSize(22))
	}
}

func TestTickReportsTransportFailure(t *testing.T) {
	s := newSettings(t)
	tr := &checkingTransport{s: s, failing: true}
	sch, _ := NewScheduler(s, constLevels{}, tr, nil)

	if err := sch.Tick(); err == nil {
		t.Error("Tick succeeded with a failing transport")
	}
	if sch.Failures() != 1 || sch.Frames() != 1 {
		t.Errorf("frames=%d failures=%d, want 1/1", sch.Frames(), sch.Failures())
	}
	// The frame is still recorded for inspection.
	if got := s.LastFrame(); !bytes.Equal(got, tr.sent[0]) {
		t.Error("last_frame not updated on transport failure")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	s := newSettings(t)
	if err := s.SetFrameRate(settings.MaxFrameRate); err != nil {
		t.Fatal(err)
	}
	tr := &utils.CaptureTransport{}
	tr.FailWith(errors.New("link down"))
	sch, _ := NewScheduler(s, constLevels{}, tr, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sch.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for sch.Frames() < 3 {
		if time.Now().After(deadline) {
			t.Fatal("scheduler did not render three frames")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if tr.Count() < 3 || !bytes.Equal(tr.Last(), s.LastFrame()) {
		t.Errorf("transport saw %d frames; last frame mismatch", tr.Count())
	}
}
