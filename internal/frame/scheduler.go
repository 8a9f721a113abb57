// SPDX-License-Identifier: MIT
/*
Package frame serializes rendered strips and paces the render loop.

Each tick the Scheduler snapshots the settings and the band levels, renders
every band, encodes the strips into the wire layout, stores a copy of the
result as the settings' last frame and hands it to the transport. It then
sleeps for whatever is left of the frame interval. A late frame is never
dropped; the next one simply starts late. Transport errors are logged and the
loop carries on with the next frame.
*/
package frame

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"visualizer/internal/animation"
	"visualizer/internal/color"
	"visualizer/internal/dsp"
	applog "visualizer/internal/log"
	"visualizer/internal/settings"
	"visualizer/internal/transport"
)

// LevelSource provides per-band (average, max) pairs over a suffix length.
type LevelSource interface {
	Levels(depth int, dst []dsp.Level) []dsp.Level
}

// Scheduler drives rendering at the configured frame rate.
type Scheduler struct {
	settings  *settings.Settings
	levels    LevelSource
	transport transport.Transport
	encoder   *Encoder

	// Reused across ticks; only the Run goroutine touches them.
	lv     []dsp.Level
	strips []animation.Strip
	buf    []byte

	frames   atomic.Uint64
	failures atomic.Uint64
}

// NewScheduler wires the scheduler to its collaborators.
func NewScheduler(s *settings.Settings, levels LevelSource, t transport.Transport, enc *Encoder) (*Scheduler, error) {
	if s == nil || levels == nil || t == nil {
		return nil, fmt.Errorf("scheduler: settings, level source and transport are required")
	}
	if enc == nil {
		enc = NewEncoder(color.GRB)
	}
	return &Scheduler{
		settings:  s,
		levels:    levels,
		transport: t,
		encoder:   enc,
		buf:       make([]byte, 0, Size(s.BandCount())),
	}, nil
}

// Tick renders, stores and sends one frame. It returns the transport error, if any.
func (s *Scheduler) Tick() error {
	return s.tick(s.settings.Snapshot())
}

func (s *Scheduler) tick(p settings.Params) error {
	s.lv = s.levels.Levels(p.SmoothingDepth, s.lv)
	s.strips = animation.Render(p, s.lv, s.strips)
	s.buf = s.encoder.Encode(s.buf, s.strips, p.Brightness)

	s.settings.SetLastFrame(s.buf)
	s.frames.Add(1)

	if err := s.transport.Send(s.buf); err != nil {
		s.failures.Add(1)
		return err
	}
	return nil
}

// Run ticks until ctx is cancelled. The frame rate is re-read every frame.
func (s *Scheduler) Run(ctx context.Context) error {
	applog.Infof("Scheduler: Starting render loop (%d bands)", s.settings.BandCount())
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		start := time.Now()
		p := s.settings.Snapshot()
		if err := s.tick(p); err != nil {
			applog.Errorf("Scheduler: Frame %d not delivered: %v", s.frames.Load(), err)
		}

		interval := time.Second / time.Duration(max(p.FrameRate, 1))
		timer.Reset(max(interval-time.Since(start), 0))

		select {
		case <-ctx.Done():
			applog.Infof("Scheduler: Stopped after %d frames (%d failed)", s.frames.Load(), s.failures.Load())
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Frames returns the number of frames rendered so far.
func (s *Scheduler) Frames() uint64 { return s.frames.Load() }

// Failures returns the number of frames the transport rejected.
func (s *Scheduler) Failures() uint64 { return s.failures.Load() }
