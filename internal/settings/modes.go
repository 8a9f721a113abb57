// SPDX-License-Identifier: MIT
package settings

import (
	"fmt"
	"strings"
)

// DisplayMode selects what the LEDs show. Values are the control-plane wire codes.
type DisplayMode uint8

const (
	Spectrum DisplayMode = iota
	Oscilloscope
	ColorGradient
)

// AnimationMode selects how a Spectrum level is drawn on a strip.
// Values are the control-plane wire codes.
type AnimationMode uint8

const (
	Full AnimationMode = iota
	FullWithMax
	Points
	FullMiddle
	FullMiddleWithMax
	PointsMiddle
)

var displayNames = [...]string{"spectrum", "oscilloscope", "gradient"}

var animationNames = [...]string{"full", "full-max", "points", "middle", "middle-max", "points-middle"}

func (m DisplayMode) String() string {
	if int(m) < len(displayNames) {
		return displayNames[m]
	}
	return fmt.Sprintf("display(%d)", uint8(m))
}

// Valid reports whether m is a known display mode.
func (m DisplayMode) Valid() bool { return int(m) < len(displayNames) }

func (m AnimationMode) String() string {
	if int(m) < len(animationNames) {
		return animationNames[m]
	}
	return fmt.Sprintf("animation(%d)", uint8(m))
}

// Valid reports whether m is a known animation mode.
func (m AnimationMode) Valid() bool { return int(m) < len(animationNames) }

// DisplayModeFromCode converts a wire code, rejecting unknown values.
func DisplayModeFromCode(code uint8) (DisplayMode, error) {
	m := DisplayMode(code)
	if !m.Valid() {
		return Spectrum, fmt.Errorf("%w: unknown display mode code %d", ErrInvalidValue, code)
	}
	return m, nil
}

// AnimationModeFromCode converts a wire code, rejecting unknown values.
func AnimationModeFromCode(code uint8) (AnimationMode, error) {
	m := AnimationMode(code)
	if !m.Valid() {
		return Full, fmt.Errorf("%w: unknown animation mode code %d", ErrInvalidValue, code)
	}
	return m, nil
}

// ParseDisplayMode converts a config name (case-insensitive) to a DisplayMode.
func ParseDisplayMode(name string) (DisplayMode, error) {
	for i, n := range displayNames {
		if strings.EqualFold(name, n) {
			return DisplayMode(i), nil
		}
	}
	return Spectrum, fmt.Errorf("%w: unknown display mode %q", ErrInvalidValue, name)
}

// ParseAnimationMode converts a config name (case-insensitive) to an AnimationMode.
func ParseAnimationMode(name string) (AnimationMode, error) {
	for i, n := range animationNames {
		if strings.EqualFold(name, n) {
			return AnimationMode(i), nil
		}
	}
	return Full, fmt.Errorf("%w: unknown animation mode %q", ErrInvalidValue, name)
}
