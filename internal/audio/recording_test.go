// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"visualizer/pkg/utils"
)

func TestRecordingStartStop(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "test_recording.wav")
	engine := newTestEngine(1, discardSink{})

	if err := engine.StartRecording(filename); err != nil {
		t.Fatalf("Failed to start recording: %v", err)
	}
	if !engine.isRecording.Load() {
		t.Error("Engine should be in recording state")
	}
	if engine.wavEncoder == nil || engine.sampleBuf == nil {
		t.Fatal("Encoder and sample buffer should be initialized")
	}
	if engine.sampleBuf.Format.NumChannels != 1 {
		t.Errorf("recording channels = %d, want 1", engine.sampleBuf.Format.NumChannels)
	}
	if err := engine.StartRecording(filename); err == nil || !strings.Contains(err.Error(), "already recording") {
		t.Errorf("second StartRecording = %v", err)
	}

	if err := engine.StopRecording(); err != nil {
		t.Fatalf("Failed to stop recording: %v", err)
	}
	if engine.isRecording.Load() || engine.outputFile != nil || engine.wavEncoder != nil {
		t.Error("recording state not cleared after stopping")
	}
	if _, err := os.Stat(filename); err != nil {
		t.Errorf("Recording file was not created: %v", err)
	}
	if err := engine.StopRecording(); err != nil {
		t.Errorf("StopRecording when idle = %v", err)
	}
}

func TestCloseFinalizesRecording(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "closed.wav")
	engine := newTestEngine(1, discardSink{})
	if err := engine.StartRecording(filename); err != nil {
		t.Fatal(err)
	}
	engine.processBuffer(utils.GenerateSineWave(testFrameSize, testSampleRate, 440, 0.5))

	if err := engine.Close(); err != nil {
		t.Fatalf("Close = %v", err)
	}
	r, err := OpenReplay(filename)
	if err != nil {
		t.Fatalf("recording not finalized: %v", err)
	}
	r.Close()
}

func TestStopRecordingClearsStateOnFailure(t *testing.T) {
	engine := newTestEngine(1, discardSink{})
	if err := engine.StartRecording(filepath.Join(t.TempDir(), "broken.wav")); err != nil {
		t.Fatal(err)
	}
	engine.outputFile.Close()

	if err := engine.Close(); err == nil {
		t.Error("Close hid the failure to finalize the recording")
	}
	if engine.isRecording.Load() || engine.outputFile != nil || engine.wavEncoder != nil {
		t.Error("recording state left behind after a failed stop")
	}
	if err := engine.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
}

func TestRecordingInvalidPath(t *testing.T) {
	engine := newTestEngine(1, discardSink{})
	if err := engine.StartRecording("/nonexistent/path/file.wav"); err == nil {
		t.Error("expected error for an unwritable path")
	}
	if engine.isRecording.Load() {
		t.Error("failed start left the engine recording")
	}
}

func TestRecordingReplayRoundTrip(t *testing.T) {
	dir := t.TempDir()
	engine := newTestEngine(2, discardSink{})
	filename, err := engine.StartRecordingIn(filepath.Join(dir, "rec"))
	if err != nil {
		t.Fatal(err)
	}

	mono := utils.GenerateSineWave(3*testFrameSize, testSampleRate, 440, 0.5)
	for i := 0; i < len(mono); i += testFrameSize {
		engine.processBuffer(utils.Interleave(mono[i:i+testFrameSize], 2))
	}
	if err := engine.Close(); err != nil {
		t.Fatal(err)
	}

	r, err := OpenReplay(filename)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	if r.SampleRate() != testSampleRate {
		t.Errorf("replay sample rate = %v", r.SampleRate())
	}

	sink := &collectSink{}
	if err := r.Run(context.Background(), 100, sink, false); err != nil {
		t.Fatal(err)
	}
	got := sink.samples()
	if len(got) != len(mono) {
		t.Fatalf("replayed %d samples, want %d", len(got), len(mono))
	}
	for i := range mono {
		if math.Abs(float64(got[i]-mono[i])) > 1e-6 {
			t.Fatalf("sample %d = %v, want %v", i, got[i], mono[i])
		}
	}
	for _, b := range sink.blocks[:len(sink.blocks)-1] {
		if len(b) != 100 {
			t.Fatalf("block of %d samples, want 100", len(b))
		}
	}
}

func TestReplayPacedStopsOnCancel(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "long.wav")
	engine := newTestEngine(1, discardSink{})
	if err := engine.StartRecording(filename); err != nil {
		t.Fatal(err)
	}
	block := utils.GenerateSineWave(testFrameSize, testSampleRate, 440, 0.5)
	for range 200 {
		engine.processBuffer(block)
	}
	if err := engine.StopRecording(); err != nil {
		t.Fatal(err)
	}

	r, err := OpenReplay(filename)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	if err := r.Run(ctx, testFrameSize, &collectSink{}, true); err != context.DeadlineExceeded {
		t.Errorf("Run = %v, want deadline exceeded", err)
	}
	if time.Since(start) > time.Second {
		t.Error("paced replay ignored cancellation")
	}
}

func TestOpenReplayRejectsNonWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "noise.wav")
	if err := os.WriteFile(path, []byte("definitely not RIFF"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenReplay(path); err == nil {
		t.Error("garbage accepted as WAV")
	}
	if _, err := OpenReplay(filepath.Join(t.TempDir(), "missing.wav")); err == nil {
		t.Error("missing file accepted")
	}
}
