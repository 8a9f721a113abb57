// SPDX-License-Identifier: MIT
package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"visualizer/internal/config"
	"visualizer/internal/preset"
	"visualizer/internal/settings"
	"visualizer/internal/transport"
	"visualizer/pkg/utils"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeTone(t *testing.T, seconds float64) string {
	t.Helper()
	const rate = 44100
	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	samples := utils.GenerateSineWave(int(seconds*rate), rate, 440, 0.5)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: rate},
		Data:           make([]int, len(samples)),
		SourceBitDepth: 16,
	}
	for i, s := range samples {
		buf.Data[i] = int(s * 32767)
	}
	enc := wav.NewEncoder(f, rate, 16, 1, 1)
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestOpenTransportKinds(t *testing.T) {
	cfg := config.Default()
	cfg.Transport.Kind = config.TransportLog
	tr, err := openTransport(&cfg.Transport, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := tr.(*transport.LoggingTransport); !ok {
		t.Errorf("log kind opened %T", tr)
	}

	cfg.Transport.Kind = "carrier-pigeon"
	if _, err := openTransport(&cfg.Transport, 0); err == nil {
		t.Error("unknown kind accepted")
	}
}

func TestPipelineSendsFrames(t *testing.T) {
	cfg := config.Default()
	cfg.Transport.Kind = config.TransportLog
	cfg.Control.Enabled = false

	p, err := newPipeline(&cfg, 44100)
	if err != nil {
		t.Fatal(err)
	}
	out := p.out.(*transport.LoggingTransport)

	source := func(ctx context.Context) error {
		for out.Frames() == 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Millisecond):
			}
		}
		return errStopped
	}
	if err := p.run(context.Background(), source, false); err != nil {
		t.Fatalf("run = %v", err)
	}
	if out.Frames() == 0 {
		t.Error("no frames sent")
	}
	if got := len(p.settings.LastFrame()); got != settings.FrameSize(p.settings.BandCount()) {
		t.Errorf("last frame has %d bytes", got)
	}
}

func TestReplayCommand(t *testing.T) {
	path := writeTone(t, 0.5)
	cfgPath := writeConfig(t, "transport:\n  kind: log\ncontrol:\n  enabled: false\n")

	if _, err := execute(t, "replay", path, "--fast", "-c", cfgPath); err != nil {
		t.Errorf("replay command = %v", err)
	}
	if _, err := execute(t, "replay", filepath.Join(t.TempDir(), "missing.wav"), "-c", cfgPath); err == nil {
		t.Error("replay of a missing file succeeded")
	}
}

func TestSharedAddressGetsOneServer(t *testing.T) {
	cfg := config.Default()
	cfg.Transport.Kind = config.TransportLog
	cfg.Transport.MirrorWebSocket = true
	cfg.Transport.WebSocketAddress = "127.0.0.1:0"
	cfg.Control.Enabled = true
	cfg.Control.Address = "127.0.0.1:0"
	cfg.Presets.Dir = t.TempDir()

	p, err := newPipeline(&cfg, 44100)
	if err != nil {
		t.Fatal(err)
	}
	defer p.close()
	if len(p.servers) != 1 {
		t.Fatalf("got %d servers, want 1", len(p.servers))
	}
	if _, ok := p.out.(transport.Fanout); !ok {
		t.Errorf("mirrored output is %T, want Fanout", p.out)
	}
}

func TestPresetsCommands(t *testing.T) {
	dir := t.TempDir()
	store, err := preset.NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Save(preset.New(7, "Sunset", settings.DefaultParams())); err != nil {
		t.Fatal(err)
	}
	cfgPath := writeConfig(t, "presets:\n  dir: "+dir+"\n")

	out, err := execute(t, "presets", "list", "-c", cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Sunset") || !strings.Contains(out, "7") {
		t.Errorf("list output:\n%s", out)
	}

	if _, err := execute(t, "presets", "delete", "7", "-c", cfgPath); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "presets", "delete", "7", "-c", cfgPath); err == nil {
		t.Error("deleting a missing preset succeeded")
	}
	if _, err := execute(t, "presets", "delete", "300", "-c", cfgPath); err == nil {
		t.Error("out of range id accepted")
	}

	out, err = execute(t, "presets", "list", "-c", cfgPath)
	if err != nil || !strings.Contains(out, "No presets") {
		t.Errorf("list after delete = %q, %v", out, err)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "visualizer dev") {
		t.Errorf("version output = %q", out)
	}
}

type stubCloser struct{ err error }

func (s stubCloser) Close() error { return s.err }

func TestFinishCaptureReportsAfterClose(t *testing.T) {
	var out bytes.Buffer
	if err := finishCapture(&out, stubCloser{}, "capture.wav"); err != nil {
		t.Fatal(err)
	}
	if out.String() != "Recording saved to: capture.wav\n" {
		t.Errorf("output = %q", out.String())
	}

	out.Reset()
	if err := finishCapture(&out, stubCloser{errors.New("wav header")}, "capture.wav"); err == nil {
		t.Error("close failure not reported")
	}
	if out.Len() != 0 {
		t.Errorf("reported a recording that was not finalized: %q", out.String())
	}

	out.Reset()
	if err := finishCapture(&out, stubCloser{}, ""); err != nil || out.Len() != 0 {
		t.Errorf("no recording: err=%v output=%q", err, out.String())
	}
}

