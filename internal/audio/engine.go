// SPDX-License-Identifier: MIT
/*
Package audio captures audio and delivers it as mono float32 blocks.

The Engine opens a PortAudio input stream and, for every callback, downmixes
the block to mono, applies the optional noise gate, appends it to an active
WAV recording and hands it to a SampleSink. A Replay feeds a WAV file through
the same sink at the file's real-time pace.

Thread Safety:
- The capture callback only touches buffers allocated up front
- Gate and recording state are atomics read once per callback
*/
package audio

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"visualizer/internal/config"
	applog "visualizer/internal/log"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gordonklaus/portaudio"
)

// SampleSink receives mono blocks in capture order. The block is only valid
// for the duration of the call.
type SampleSink interface {
	AddSamples(block []float32)
}

type Engine struct {
	config *config.AudioConfig
	sink   SampleSink

	// Audio input handling.
	inputDevice  *portaudio.DeviceInfo
	inputLatency time.Duration
	inputStream  *portaudio.Stream
	mono         []float32

	// Noise gate.
	gateEnabled   atomic.Bool
	gateThreshold atomic.Uint32 // float32 bits of the peak threshold

	// Recording state and buffers.
	isRecording atomic.Bool
	recMu       sync.Mutex
	outputFile  *os.File
	wavEncoder  *wav.Encoder
	sampleBuf   *audio.IntBuffer // reusable buffer for format conversion
}

// NewEngine resolves the input device; the stream starts with StartInputStream.
func NewEngine(cfg *config.AudioConfig, sink SampleSink) (*Engine, error) {
	if sink == nil {
		return nil, fmt.Errorf("audio engine requires a sample sink")
	}
	inputDevice, err := InputDevice(cfg.InputDevice)
	if err != nil {
		return nil, err
	}

	e := newEngine(cfg, sink)
	e.inputDevice = inputDevice
	if cfg.LowLatency {
		e.inputLatency = inputDevice.DefaultLowInputLatency
	} else {
		e.inputLatency = inputDevice.DefaultHighInputLatency
	}
	return e, nil
}

// newEngine builds everything except the device binding.
func newEngine(cfg *config.AudioConfig, sink SampleSink) *Engine {
	e := &Engine{
		config: cfg,
		sink:   sink,
		mono:   make([]float32, cfg.FramesPerBuffer),
	}
	e.gateEnabled.Store(cfg.GateEnabled)
	e.SetGateThreshold(cfg.GateThreshold)
	return e
}

func (e *Engine) StartInputStream() error {
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: e.config.InputChannels,
			Device:   e.inputDevice,
			Latency:  e.inputLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0,
			Device:   nil,
		},
		FramesPerBuffer: e.config.FramesPerBuffer,
		SampleRate:      e.config.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, e.processInputStream)
	if err != nil {
		return fmt.Errorf("failed to open input stream on '%s': %w", e.inputDevice.Name, err)
	}
	e.inputStream = stream

	if err := e.inputStream.Start(); err != nil {
		e.inputStream.Close()
		e.inputStream = nil
		return fmt.Errorf("failed to start input stream: %w", err)
	}
	applog.Infof("AudioEngine: Capturing from '%s' at %.0f Hz, %d ch, %d frames/buffer",
		e.inputDevice.Name, e.config.SampleRate, e.config.InputChannels, e.config.FramesPerBuffer)
	return nil
}

func (e *Engine) StopInputStream() error {
	if e.inputStream == nil {
		return nil
	}
	err := errors.Join(e.inputStream.Stop(), e.inputStream.Close())
	e.inputStream = nil
	if err != nil {
		return fmt.Errorf("failed to stop input stream: %w", err)
	}
	return nil
}

// processInputStream is the PortAudio callback. It uses pre-allocated
// buffers only.
func (e *Engine) processInputStream(in []float32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	e.processBuffer(in)
}

// processBuffer downmixes, gates, records and delivers one interleaved block.
func (e *Engine) processBuffer(in []float32) {
	e.mono = downmix(e.mono, in, e.config.InputChannels)
	mono := e.mono

	if e.gateEnabled.Load() {
		applyGate(mono, e.threshold())
	}

	if e.isRecording.Load() {
		e.record(mono)
	}

	e.sink.AddSamples(mono)
}

// downmix averages interleaved frames into dst, growing it only when a
// block is larger than expected.
func downmix(dst, in []float32, channels int) []float32 {
	if channels <= 1 {
		return append(dst[:0], in...)
	}
	frames := len(in) / channels
	if cap(dst) < frames {
		dst = make([]float32, frames)
	}
	dst = dst[:frames]
	scale := 1 / float32(channels)
	for i := range frames {
		var sum float32
		for c := range channels {
			sum += in[i*channels+c]
		}
		dst[i] = sum * scale
	}
	return dst
}
