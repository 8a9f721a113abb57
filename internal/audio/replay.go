// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	applog "visualizer/internal/log"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Replay streams a PCM WAV file to a SampleSink as mono float32 blocks.
type Replay struct {
	file       *os.File
	dec        *wav.Decoder
	sampleRate float64
	channels   int
	scale      float32 // 1 / full scale of the source bit depth
	offset     int     // 8-bit PCM is unsigned
}

// OpenReplay opens and validates a WAV file.
func OpenReplay(path string) (*Replay, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open replay file: %w", err)
	}
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		f.Close()
		return nil, fmt.Errorf("'%s' is not a valid WAV file", path)
	}
	if err := dec.FwdToPCM(); err != nil {
		f.Close()
		return nil, fmt.Errorf("reading WAV PCM data: %w", err)
	}
	if dec.BitDepth == 0 || dec.BitDepth > 32 || dec.NumChans == 0 {
		f.Close()
		return nil, fmt.Errorf("unsupported WAV format: %d bit, %d channels", dec.BitDepth, dec.NumChans)
	}

	r := &Replay{
		file:       f,
		dec:        dec,
		sampleRate: float64(dec.SampleRate),
		channels:   int(dec.NumChans),
		scale:      1 / float32(uint64(1)<<(dec.BitDepth-1)),
	}
	if dec.BitDepth == 8 {
		r.offset = 128
	}
	applog.Infof("Replay: %s, %.0f Hz, %d ch, %d bit", path, r.sampleRate, r.channels, dec.BitDepth)
	return r, nil
}

// SampleRate is the file's sample rate; the extractor must use it.
func (r *Replay) SampleRate() float64 { return r.sampleRate }

// Run delivers blocks of frames mono samples until the file ends or ctx is
// done. When paced, each block is released at the file's real-time rate.
// The end of the file returns nil.
func (r *Replay) Run(ctx context.Context, frames int, sink SampleSink, paced bool) error {
	if frames <= 0 {
		return fmt.Errorf("replay block size must be positive, got %d", frames)
	}
	buf := &audio.IntBuffer{
		Data:   make([]int, frames*r.channels),
		Format: &audio.Format{NumChannels: r.channels, SampleRate: int(r.sampleRate)},
	}
	interleaved := make([]float32, 0, frames*r.channels)
	var mono []float32

	interval := time.Duration(float64(frames) / r.sampleRate * float64(time.Second))
	ticker := time.NewTicker(max(interval, time.Millisecond))
	defer ticker.Stop()

	var blocks int
	for {
		n, err := r.dec.PCMBuffer(buf)
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to read PCM data: %w", err)
		}
		n -= n % r.channels
		if n == 0 {
			applog.Infof("Replay: Finished after %d blocks", blocks)
			return nil
		}

		interleaved = interleaved[:n]
		for i, v := range buf.Data[:n] {
			interleaved[i] = float32(v-r.offset) * r.scale
		}
		mono = downmix(mono, interleaved, r.channels)
		sink.AddSamples(mono)
		blocks++

		if paced {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
	}
}

func (r *Replay) Close() error {
	return r.file.Close()
}
