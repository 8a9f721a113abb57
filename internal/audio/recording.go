// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	applog "visualizer/internal/log"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const recordingBitDepth = 32

// StartRecording writes the mono input to a 32-bit PCM WAV file until
// StopRecording.
func (e *Engine) StartRecording(filename string) error {
	e.recMu.Lock()
	defer e.recMu.Unlock()
	if e.isRecording.Load() {
		return fmt.Errorf("already recording")
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create recording: %w", err)
	}
	e.outputFile = file

	e.wavEncoder = wav.NewEncoder(file, int(e.config.SampleRate), recordingBitDepth, 1, 1)
	e.sampleBuf = &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: 1,
			SampleRate:  int(e.config.SampleRate),
		},
		Data:           make([]int, e.config.FramesPerBuffer),
		SourceBitDepth: recordingBitDepth,
	}

	e.isRecording.Store(true)
	applog.Infof("AudioEngine: Recording to %s", filename)
	return nil
}

// StartRecordingIn records to a timestamped file inside dir.
func (e *Engine) StartRecordingIn(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create recording directory '%s': %w", dir, err)
	}
	name := filepath.Join(dir, "capture_"+time.Now().Format("20060102_150405")+".wav")
	return name, e.StartRecording(name)
}

// StopRecording finalizes the WAV header and closes the file. The file is
// closed even when the encoder fails.
func (e *Engine) StopRecording() error {
	e.recMu.Lock()
	defer e.recMu.Unlock()
	if !e.isRecording.Load() {
		return nil
	}
	e.isRecording.Store(false)

	var errs []error
	if e.wavEncoder != nil {
		if err := e.wavEncoder.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to finalize recording: %w", err))
		}
		e.wavEncoder = nil
	}
	if e.outputFile != nil {
		if err := e.outputFile.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close recording: %w", err))
		}
		e.outputFile = nil
	}
	return errors.Join(errs...)
}

// record converts one mono block to PCM and appends it to the WAV file.
func (e *Engine) record(block []float32) {
	e.recMu.Lock()
	defer e.recMu.Unlock()
	if e.wavEncoder == nil {
		return
	}
	if cap(e.sampleBuf.Data) < len(block) {
		e.sampleBuf.Data = make([]int, len(block))
	}
	e.sampleBuf.Data = e.sampleBuf.Data[:len(block)]
	for i, s := range block {
		e.sampleBuf.Data[i] = toPCM32(s)
	}
	if err := e.wavEncoder.Write(e.sampleBuf); err != nil {
		applog.Errorf("AudioEngine: Error writing to WAV file: %v", err)
	}
}

func toPCM32(s float32) int {
	v := float64(s) * math.MaxInt32
	return int(max(min(v, math.MaxInt32), math.MinInt32))
}

// Close stops the input stream first, so no callback can write to the
// recording while it is finalized.
func (e *Engine) Close() error {
	return errors.Join(e.StopInputStream(), e.StopRecording())
}
