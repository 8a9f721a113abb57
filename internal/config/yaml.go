// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"visualizer/internal/color"
	"visualizer/internal/dsp"
	applog "visualizer/internal/log"
	"visualizer/internal/settings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Hardware and processing limits.
const (
	MinDeviceID     = -1 // system default input device
	MinSampleRate   = 8000
	MaxSampleRate   = 192000
	MaxBufferFrames = 8192
)

// Transport kinds.
const (
	TransportSerial = "serial"
	TransportUDP    = "udp"
	TransportOPC    = "opc"
	TransportLog    = "log"
)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`
	LogLevel  string          `yaml:"log_level"` // debug, info, warn, error; "info,Component=debug" per component
	Audio     AudioConfig     `yaml:"audio"`
	LEDs      LEDConfig       `yaml:"leds"`
	Visual    VisualConfig    `yaml:"visual"`
	Transport TransportConfig `yaml:"transport"`
	Control   ControlConfig   `yaml:"control"`
	Presets   PresetConfig    `yaml:"presets"`
	Recording RecordingConfig `yaml:"recording"`
}

// AudioConfig holds settings related to audio capture.
type AudioConfig struct {
	InputDevice     int     `yaml:"input_device"`      // PortAudio device index (-1 for default).
	SampleRate      float64 `yaml:"sample_rate"`       // Hz
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // frames per capture callback
	LowLatency      bool    `yaml:"low_latency"`       // request low latency from PortAudio
	InputChannels   int     `yaml:"input_channels"`    // 1 or 2; stereo is downmixed
	FFTWindow       string  `yaml:"fft_window"`        // window function name, "none" for rectangular
	GateEnabled     bool    `yaml:"gate_enabled"`
	GateThreshold   float64 `yaml:"gate_threshold"` // peak amplitude in [0, 1]
}

// LEDConfig describes the physical LED layout.
type LEDConfig struct {
	Strips       int    `yaml:"strips"`         // informational; must match the band count when set
	LedsPerStrip int    `yaml:"leds_per_strip"` // fixed by the hardware
	ColorOrder   string `yaml:"color_order"`    // grb or rgb
}

// VisualConfig holds the initial visualizer parameters.
type VisualConfig struct {
	Gain           float64   `yaml:"gain"`
	Gains          []float64 `yaml:"gains,flow"`
	Bands          []float64 `yaml:"bands,flow"`
	SmoothingDepth int       `yaml:"smoothing_depth"`
	TransformSize  int       `yaml:"transform_size"`
	Skew           float64   `yaml:"skew"`
	Brightness     float64   `yaml:"brightness"`
	Primary        string    `yaml:"primary"` // color name or #rrggbb
	Secondary      string    `yaml:"secondary"`
	Accent         string    `yaml:"accent"`
	DisplayMode    string    `yaml:"display_mode"`
	AnimationMode  string    `yaml:"animation_mode"`
	FrameRate      int       `yaml:"frame_rate"`
}

// TransportConfig selects where frames go.
type TransportConfig struct {
	Kind             string `yaml:"kind"` // serial, udp, opc or log
	SerialPort       string `yaml:"serial_port"`
	BaudRate         int    `yaml:"baud_rate"`
	UDPTargetAddress string `yaml:"udp_target_address"`
	UDPRaw           bool   `yaml:"udp_raw"` // send bare frames without the sequence header
	OPCAddress       string `yaml:"opc_address"`
	OPCChannel       uint8  `yaml:"opc_channel"`
	MirrorWebSocket  bool   `yaml:"mirror_websocket"` // also broadcast frames to browsers
	WebSocketAddress string `yaml:"websocket_address"`
}

// ControlConfig configures the WebSocket control plane.
type ControlConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// PresetConfig locates the preset store.
type PresetConfig struct {
	Dir string `yaml:"dir"`
}

// RecordingConfig holds settings related to audio recording functionality.
type RecordingConfig struct {
	Enabled   bool   `yaml:"enabled"`
	OutputDir string `yaml:"output_dir"`
}

// Default returns the built-in configuration.
func Default() Config {
	p := settings.DefaultParams()
	return Config{
		LogLevel: "info",
		Audio: AudioConfig{
			InputDevice:     MinDeviceID,
			SampleRate:      44100,
			FramesPerBuffer: 512,
			InputChannels:   1,
			FFTWindow:       "none",
			GateThreshold:   0.001,
		},
		LEDs: LEDConfig{
			Strips:       len(p.Bands),
			LedsPerStrip: settings.LedsPerStrip,
			ColorOrder:   "grb",
		},
		Visual: VisualConfig{
			Gain:           p.Gain,
			Gains:          p.Gains,
			Bands:          p.Bands,
			SmoothingDepth: p.SmoothingDepth,
			TransformSize:  p.TransformSize,
			Skew:           p.Skew,
			Brightness:     p.Brightness,
			Primary:        "blue",
			Secondary:      "red",
			Accent:         "magenta",
			DisplayMode:    p.DisplayMode.String(),
			AnimationMode:  p.AnimationMode.String(),
			FrameRate:      p.FrameRate,
		},
		Transport: TransportConfig{
			Kind:             TransportSerial,
			SerialPort:       "/dev/ttyACM0",
			BaudRate:         500000,
			UDPTargetAddress: "127.0.0.1:9090",
			OPCAddress:       "127.0.0.1:7890",
			WebSocketAddress: ":8080",
		},
		Control: ControlConfig{
			Enabled: true,
			Address: ":8080",
		},
		Presets: PresetConfig{
			Dir: "./presets",
		},
		Recording: RecordingConfig{
			OutputDir: "./recordings",
		},
	}
}

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches default locations ("config.yaml"). If no file is found, it uses built-in
// defaults. A .env file next to the config file (or in the working directory) is
// loaded into the environment, then ENV_* variables override the result, which is
// validated last.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}

	envDir := "."
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		envDir = filepath.Dir(path)
	}

	if err := loadDotEnv(filepath.Join(envDir, ".env")); err != nil {
		return nil, err
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// loadDotEnv exports the variables of an optional .env file. Variables that
// are already set win.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	applog.Debugf("Config: Loaded environment from %s", path)
	return nil
}

// Validate checks every section and that the visual section forms valid parameters.
func (c *Config) Validate() error {
	if _, err := applog.ParseLevels(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}

	a := c.Audio
	if a.InputDevice < MinDeviceID {
		return fmt.Errorf("audio.input_device %d is invalid", a.InputDevice)
	}
	if a.SampleRate < MinSampleRate || a.SampleRate > MaxSampleRate {
		return fmt.Errorf("audio.sample_rate %.0f outside [%d, %d]", a.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if a.FramesPerBuffer <= 0 || a.FramesPerBuffer > MaxBufferFrames {
		return fmt.Errorf("audio.frames_per_buffer %d outside [1, %d]", a.FramesPerBuffer, MaxBufferFrames)
	}
	if a.InputChannels != 1 && a.InputChannels != 2 {
		return fmt.Errorf("audio.input_channels must be 1 or 2, got %d", a.InputChannels)
	}
	if _, err := dsp.ParseWindowFunc(a.FFTWindow); err != nil {
		return fmt.Errorf("audio.fft_window: %w", err)
	}
	if a.GateThreshold < 0 || a.GateThreshold > 1 {
		return fmt.Errorf("audio.gate_threshold %v outside [0, 1]", a.GateThreshold)
	}

	if c.LEDs.LedsPerStrip != settings.LedsPerStrip {
		return fmt.Errorf("leds.leds_per_strip must be %d, got %d", settings.LedsPerStrip, c.LEDs.LedsPerStrip)
	}
	if c.LEDs.Strips != 0 && c.LEDs.Strips != len(c.Visual.Bands) {
		return fmt.Errorf("leds.strips is %d but %d bands are configured", c.LEDs.Strips, len(c.Visual.Bands))
	}
	if _, err := c.ColorOrder(); err != nil {
		return err
	}
	if _, err := c.Params(); err != nil {
		return fmt.Errorf("visual: %w", err)
	}

	t := c.Transport
	switch strings.ToLower(t.Kind) {
	case TransportSerial:
		if t.SerialPort == "" {
			return fmt.Errorf("transport.serial_port must be set for the serial transport")
		}
		if t.BaudRate <= 0 {
			return fmt.Errorf("transport.baud_rate must be positive")
		}
	case TransportUDP:
		if !strings.Contains(t.UDPTargetAddress, ":") {
			return fmt.Errorf("transport.udp_target_address '%s' appears invalid (missing port?)", t.UDPTargetAddress)
		}
	case TransportOPC:
		if !strings.Contains(t.OPCAddress, ":") {
			return fmt.Errorf("transport.opc_address '%s' appears invalid (missing port?)", t.OPCAddress)
		}
	case TransportLog:
	default:
		return fmt.Errorf("transport.kind '%s' is unknown", t.Kind)
	}
	if t.MirrorWebSocket && t.WebSocketAddress == "" {
		return fmt.Errorf("transport.websocket_address must be set when mirroring")
	}

	if c.Control.Enabled && c.Control.Address == "" {
		return fmt.Errorf("control.address must be set when the control plane is enabled")
	}
	if c.Presets.Dir == "" {
		return fmt.Errorf("presets.dir must be set")
	}
	if c.Recording.Enabled && c.Recording.OutputDir == "" {
		return fmt.Errorf("recording.output_dir must be set when recording is enabled")
	}
	return nil
}

// ColorOrder returns the configured wire color order.
func (c *Config) ColorOrder() (color.Order, error) {
	switch strings.ToLower(c.LEDs.ColorOrder) {
	case "", "grb":
		return color.GRB, nil
	case "rgb":
		return color.RGB, nil
	}
	return color.GRB, fmt.Errorf("leds.color_order '%s' must be grb or rgb", c.LEDs.ColorOrder)
}

// Params converts the visual section into validated settings parameters.
func (c *Config) Params() (settings.Params, error) {
	v := c.Visual
	p := settings.Params{
		Gain:           v.Gain,
		Gains:          v.Gains,
		Bands:          v.Bands,
		SmoothingDepth: v.SmoothingDepth,
		TransformSize:  v.TransformSize,
		Skew:           v.Skew,
		Brightness:     v.Brightness,
		FrameRate:      v.FrameRate,
	}
	var err error
	if p.Palette.Primary, err = color.Parse(v.Primary); err != nil {
		return p, err
	}
	if p.Palette.Secondary, err = color.Parse(v.Secondary); err != nil {
		return p, err
	}
	if p.Palette.Accent, err = color.Parse(v.Accent); err != nil {
		return p, err
	}
	if p.DisplayMode, err = settings.ParseDisplayMode(v.DisplayMode); err != nil {
		return p, err
	}
	if p.AnimationMode, err = settings.ParseAnimationMode(v.AnimationMode); err != nil {
		return p, err
	}
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p.Clone(), nil
}

// applyEnvOverrides applies ENV_* variables on top of the file values.
func (c *Config) applyEnvOverrides() error {
	overrides := []struct {
		name  string
		apply func(string) error
	}{
		{"ENV_DEBUG", boolVar(&c.Debug)},
		{"ENV_LOG_LEVEL", stringVar(&c.LogLevel)},
		{"ENV_INPUT_DEVICE", intVar(&c.Audio.InputDevice)},
		{"ENV_SAMPLE_RATE", floatVar(&c.Audio.SampleRate)},
		{"ENV_GATE_ENABLED", boolVar(&c.Audio.GateEnabled)},
		{"ENV_TRANSPORT", stringVar(&c.Transport.Kind)},
		{"ENV_SERIAL_PORT", stringVar(&c.Transport.SerialPort)},
		{"ENV_BAUD_RATE", intVar(&c.Transport.BaudRate)},
		{"ENV_UDP_TARGET_ADDRESS", stringVar(&c.Transport.UDPTargetAddress)},
		{"ENV_OPC_ADDRESS", stringVar(&c.Transport.OPCAddress)},
		{"ENV_CONTROL_ENABLED", boolVar(&c.Control.Enabled)},
		{"ENV_CONTROL_ADDRESS", stringVar(&c.Control.Address)},
		{"ENV_PRESET_DIR", stringVar(&c.Presets.Dir)},
		{"ENV_BRIGHTNESS", floatVar(&c.Visual.Brightness)},
		{"ENV_FRAME_RATE", intVar(&c.Visual.FrameRate)},
	}
	for _, o := range overrides {
		val, ok := os.LookupEnv(o.name)
		if !ok {
			continue
		}
		if err := o.apply(val); err != nil {
			return fmt.Errorf("invalid %s=%q: %w", o.name, val, err)
		}
		applog.Infof("Config: Overriding from %s: %s", o.name, val)
	}
	return nil
}

func stringVar(dst *string) func(string) error {
	return func(s string) error { *dst = s; return nil }
}

func boolVar(dst *bool) func(string) error {
	return func(s string) error {
		v, err := strconv.ParseBool(s)
		if err == nil {
			*dst = v
		}
		return err
	}
}

func intVar(dst *int) func(string) error {
	return func(s string) error {
		v, err := strconv.Atoi(s)
		if err == nil {
			*dst = v
		}
		return err
	}
}

func floatVar(dst *float64) func(string) error {
	return func(s string) error {
		v, err := strconv.ParseFloat(s, 64)
		if err == nil {
			*dst = v
		}
		return err
	}
}
