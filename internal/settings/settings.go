// SPDX-License-Identifier: MIT
/*
Package settings holds the shared runtime configuration of the visualizer.

A single *Settings is created at startup and handed to the extractor, the
renderer, the frame scheduler and the control plane. Every accessor takes the
lock for exactly one logical read or write, so readers see each field either
before or after a concurrent update; tears across fields are acceptable
because every field is independently meaningful.

Setters validate their input and leave the field untouched on rejection.
*/
package settings

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"

	"visualizer/internal/color"
	"visualizer/pkg/bitint"
)

// LedsPerStrip is the number of LEDs on one physical strip. Each band
// drives exactly one strip.
const LedsPerStrip = 12

// Bounds enforced by the setters.
const (
	MinTransformSize  = 64
	MaxTransformSize  = 16384
	BandHistory       = 100 // per-band level history retained by the extractor
	MaxSmoothingDepth = BandHistory
	MaxFrameRate      = 1000
)

var (
	// ErrInvalidValue is returned when a setter rejects a value.
	ErrInvalidValue = errors.New("settings: invalid value")
	// ErrBandCount is returned when a per-band array does not match the configured band count.
	ErrBandCount = errors.New("settings: band count mismatch")
)

// PaletteSlot addresses one of the three palette colors.
type PaletteSlot int

const (
	Primary PaletteSlot = iota
	Secondary
	Accent
)

// Palette is the three-color scheme used by every renderer.
type Palette struct {
	Primary   color.Color
	Secondary color.Color
	Accent    color.Color // max-marker color
}

// Get returns the color in the given slot.
func (p Palette) Get(slot PaletteSlot) color.Color {
	switch slot {
	case Secondary:
		return p.Secondary
	case Accent:
		return p.Accent
	default:
		return p.Primary
	}
}

// Params is a value snapshot of every tunable parameter.
type Params struct {
	Gain           float64
	Gains          []float64 // one per band
	Bands          []float64 // center frequencies in Hz
	SmoothingDepth int
	TransformSize  int
	Skew           float64
	Brightness     float64
	Palette        Palette
	DisplayMode    DisplayMode
	AnimationMode  AnimationMode
	FrameRate      int
}

// Clone returns a deep copy of p.
func (p Params) Clone() Params {
	p.Gains = slices.Clone(p.Gains)
	p.Bands = slices.Clone(p.Bands)
	return p
}

// Validate checks every invariant of p.
func (p Params) Validate() error {
	if len(p.Bands) == 0 {
		return fmt.Errorf("%w: at least one band is required", ErrInvalidValue)
	}
	if len(p.Gains) != len(p.Bands) {
		return fmt.Errorf("%w: %d gains for %d bands", ErrBandCount, len(p.Gains), len(p.Bands))
	}
	if err := checkGain(p.Gain); err != nil {
		return err
	}
	if err := checkFloats("gains", p.Gains); err != nil {
		return err
	}
	if err := checkFloats("bands", p.Bands); err != nil {
		return err
	}
	if err := checkSmoothingDepth(p.SmoothingDepth); err != nil {
		return err
	}
	if err := checkTransformSize(p.TransformSize); err != nil {
		return err
	}
	if err := checkSkew(p.Skew); err != nil {
		return err
	}
	if err := checkBrightness(p.Brightness); err != nil {
		return err
	}
	if err := checkFrameRate(p.FrameRate); err != nil {
		return err
	}
	if !p.DisplayMode.Valid() {
		return fmt.Errorf("%w: display mode %d", ErrInvalidValue, p.DisplayMode)
	}
	if !p.AnimationMode.Valid() {
		return fmt.Errorf("%w: animation mode %d", ErrInvalidValue, p.AnimationMode)
	}
	return nil
}

// DefaultBands are the center frequencies of the reference 22-strip build.
var DefaultBands = []float64{
	41, 55, 65, 82, 110, 146, 220, 261, 329, 392, 440,
	523, 880, 987, 2000, 3000, 4000, 5000, 6000, 7500, 9000, 13000,
}

// DefaultGains pair with DefaultBands.
var DefaultGains = []float64{
	1.3, 1.2, 1.1, 1.0, 1.0, 1.0, 1.0, 0.85, 0.75, 0.75, 0.75,
	0.75, 0.75, 0.75, 1.0, 1.0, 1.0, 1.0, 1.2, 3.0, 4.0, 4.0,
}

// DefaultParams returns the startup parameters of the reference build.
func DefaultParams() Params {
	return Params{
		Gain:           1.0,
		Gains:          slices.Clone(DefaultGains),
		Bands:          slices.Clone(DefaultBands),
		SmoothingDepth: 10,
		TransformSize:  4096,
		Skew:           0.45,
		Brightness:     1.0,
		Palette:        Palette{Primary: color.Blue, Secondary: color.Red, Accent: color.Magenta},
		DisplayMode:    Spectrum,
		AnimationMode:  Full,
		FrameRate:      60,
	}
}

// Settings is the shared, lock-protected configuration handle.
type Settings struct {
	mu             sync.RWMutex
	p              Params
	lastFrame      []byte
	selectedPreset uint8
	activePreset   uint8
}

// New validates p and returns a handle owning a copy of it.
// The band count is fixed from here on.
func New(p Params) (*Settings, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p = p.Clone()
	return &Settings{
		p:         p,
		lastFrame: make([]byte, FrameSize(len(p.Bands))),
	}, nil
}

// FrameSize is the serialized frame length for the given band count,
// including the end-of-frame sentinel.
func FrameSize(bands int) int {
	return bands*LedsPerStrip*3 + 1
}

// Snapshot returns a deep copy of the current parameters.
func (s *Settings) Snapshot() Params {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.p.Clone()
}

// BandCount returns the fixed number of configured bands.
func (s *Settings) BandCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.p.Bands)
}

// LedCount returns the total number of driven LEDs.
func (s *Settings) LedCount() int {
	return s.BandCount() * LedsPerStrip
}

// Apply replaces every parameter at once. It is used when activating a preset.
func (s *Settings) Apply(p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(p.Bands) != len(s.p.Bands) {
		return fmt.Errorf("%w: %d bands, want %d", ErrBandCount, len(p.Bands), len(s.p.Bands))
	}
	s.p = p.Clone()
	return nil
}

func (s *Settings) SetGain(v float64) error {
	if err := checkGain(v); err != nil {
		return err
	}
	s.mu.Lock()
	s.p.Gain = v
	s.mu.Unlock()
	return nil
}

// SetGains replaces the per-band gains; the length must match the band count.
func (s *Settings) SetGains(v []float64) error {
	if err := checkFloats("gains", v); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(v) != len(s.p.Gains) {
		return fmt.Errorf("%w: %d gains, want %d", ErrBandCount, len(v), len(s.p.Gains))
	}
	s.p.Gains = slices.Clone(v)
	return nil
}

// SetBands replaces the band center frequencies; the length must match the band count.
func (s *Settings) SetBands(v []float64) error {
	if err := checkFloats("bands", v); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(v) != len(s.p.Bands) {
		return fmt.Errorf("%w: %d bands, want %d", ErrBandCount, len(v), len(s.p.Bands))
	}
	s.p.Bands = slices.Clone(v)
	return nil
}

func (s *Settings) SetSmoothingDepth(v int) error {
	if err := checkSmoothingDepth(v); err != nil {
		return err
	}
	s.mu.Lock()
	s.p.SmoothingDepth = v
	s.mu.Unlock()
	return nil
}

func (s *Settings) SetTransformSize(v int) error {
	if err := checkTransformSize(v); err != nil {
		return err
	}
	s.mu.Lock()
	s.p.TransformSize = v
	s.mu.Unlock()
	return nil
}

func (s *Settings) SetSkew(v float64) error {
	if err := checkSkew(v); err != nil {
		return err
	}
	s.mu.Lock()
	s.p.Skew = v
	s.mu.Unlock()
	return nil
}

func (s *Settings) SetBrightness(v float64) error {
	if err := checkBrightness(v); err != nil {
		return err
	}
	s.mu.Lock()
	s.p.Brightness = v
	s.mu.Unlock()
	return nil
}

func (s *Settings) SetPaletteColor(slot PaletteSlot, c color.Color) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch slot {
	case Primary:
		s.p.Palette.Primary = c
	case Secondary:
		s.p.Palette.Secondary = c
	case Accent:
		s.p.Palette.Accent = c
	default:
		return fmt.Errorf("%w: palette slot %d", ErrInvalidValue, slot)
	}
	return nil
}

func (s *Settings) SetDisplayMode(m DisplayMode) error {
	if !m.Valid() {
		return fmt.Errorf("%w: display mode %d", ErrInvalidValue, m)
	}
	s.mu.Lock()
	s.p.DisplayMode = m
	s.mu.Unlock()
	return nil
}

func (s *Settings) SetAnimationMode(m AnimationMode) error {
	if !m.Valid() {
		return fmt.Errorf("%w: animation mode %d", ErrInvalidValue, m)
	}
	s.mu.Lock()
	s.p.AnimationMode = m
	s.mu.Unlock()
	return nil
}

func (s *Settings) SetFrameRate(v int) error {
	if err := checkFrameRate(v); err != nil {
		return err
	}
	s.mu.Lock()
	s.p.FrameRate = v
	s.mu.Unlock()
	return nil
}

// SetLastFrame stores a copy of the most recently serialized frame.
func (s *Settings) SetLastFrame(frame []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cap(s.lastFrame) < len(frame) {
		s.lastFrame = make([]byte, len(frame))
	}
	s.lastFrame = s.lastFrame[:len(frame)]
	copy(s.lastFrame, frame)
}

// LastFrame returns a copy of the most recently serialized frame.
func (s *Settings) LastFrame() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.lastFrame)
}

func (s *Settings) SelectedPreset() uint8 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedPreset
}

func (s *Settings) SetSelectedPreset(id uint8) {
	s.mu.Lock()
	s.selectedPreset = id
	s.mu.Unlock()
}

func (s *Settings) ActivePreset() uint8 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activePreset
}

func (s *Settings) SetActivePreset(id uint8) {
	s.mu.Lock()
	s.activePreset = id
	s.mu.Unlock()
}

func checkGain(v float64) error {
	if !finite(v) || v < 0 {
		return fmt.Errorf("%w: gain %v", ErrInvalidValue, v)
	}
	return nil
}

func checkFloats(name string, vs []float64) error {
	for i, v := range vs {
		if !finite(v) || v < 0 {
			return fmt.Errorf("%w: %s[%d] = %v", ErrInvalidValue, name, i, v)
		}
	}
	return nil
}

func checkSmoothingDepth(v int) error {
	if v < 1 || v > MaxSmoothingDepth {
		return fmt.Errorf("%w: smoothing depth %d outside [1, %d]", ErrInvalidValue, v, MaxSmoothingDepth)
	}
	return nil
}

func checkTransformSize(v int) error {
	if v < MinTransformSize || v > MaxTransformSize {
		return fmt.Errorf("%w: transform size %d outside [%d, %d]",
			ErrInvalidValue, v, MinTransformSize, MaxTransformSize)
	}
	if !bitint.IsPowerOfTwo(v) {
		return fmt.Errorf("%w: transform size %d is not a power of two (nearest above is %d)",
			ErrInvalidValue, v, bitint.NextPowerOfTwo(v))
	}
	return nil
}

func checkSkew(v float64) error {
	if !finite(v) {
		return fmt.Errorf("%w: skew %v", ErrInvalidValue, v)
	}
	return nil
}

func checkBrightness(v float64) error {
	if !finite(v) || v < 0 || v > 1 {
		return fmt.Errorf("%w: brightness %v outside [0, 1]", ErrInvalidValue, v)
	}
	return nil
}

func checkFrameRate(v int) error {
	if v < 1 || v > MaxFrameRate {
		return fmt.Errorf("%w: frame rate %d outside [1, %d]", ErrInvalidValue, v, MaxFrameRate)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
