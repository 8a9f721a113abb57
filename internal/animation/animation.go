// SPDX-License-Identifier: MIT
/*
Package animation converts band levels into LED colors.

Every band is rendered on its own into a Strip of settings.LedsPerStrip
colors, starting from black. The animation modes form a closed set: each
settings.AnimationMode maps to exactly one Animation value through For, and
nothing outside this package can add a variant.
*/
package animation

import (
	"math"

	"visualizer/internal/color"
	"visualizer/internal/settings"
)

// L is the strip length all animations draw on.
const L = settings.LedsPerStrip

// Strip holds the colors of one physical strip in rendered order.
type Strip [L]color.Color

// Animation draws a single band level onto a strip.
type Animation interface {
	Mode() settings.AnimationMode
	// Render draws level (and peak, for the max-marker variants) with the palette.
	// Both inputs are already scaled by the global and per-band gains.
	Render(level, peak float64, p settings.Palette) Strip
	sealed()
}

type (
	// Full lights a bar from LED 0 with an anti-aliased top.
	Full struct{}
	// FullWithMax is Full plus a max marker on the last LED.
	FullWithMax struct{}
	// Points draws a single dot that slides between two LEDs.
	Points struct{}
	// FullMiddle mirrors the Full bar outward from the strip center.
	FullMiddle struct{}
	// FullMiddleWithMax is FullMiddle plus max markers on both ends.
	FullMiddleWithMax struct{}
	// PointsMiddle is reserved for a mirrored dot; it currently draws like Full.
	PointsMiddle struct{}
)

var (
	_ Animation = Full{}
	_ Animation = FullWithMax{}
	_ Animation = Points{}
	_ Animation = FullMiddle{}
	_ Animation = FullMiddleWithMax{}
	_ Animation = PointsMiddle{}
)

// For returns the animation for mode. Unknown modes draw like Full.
func For(mode settings.AnimationMode) Animation {
	switch mode {
	case settings.FullWithMax:
		return FullWithMax{}
	case settings.Points:
		return Points{}
	case settings.FullMiddle:
		return FullMiddle{}
	case settings.FullMiddleWithMax:
		return FullMiddleWithMax{}
	case settings.PointsMiddle:
		return PointsMiddle{}
	default:
		return Full{}
	}
}

func (Full) Mode() settings.AnimationMode              { return settings.Full }
func (FullWithMax) Mode() settings.AnimationMode       { return settings.FullWithMax }
func (Points) Mode() settings.AnimationMode            { return settings.Points }
func (FullMiddle) Mode() settings.AnimationMode        { return settings.FullMiddle }
func (FullMiddleWithMax) Mode() settings.AnimationMode { return settings.FullMiddleWithMax }
func (PointsMiddle) Mode() settings.AnimationMode      { return settings.PointsMiddle }

func (Full) sealed()              {}
func (FullWithMax) sealed()       {}
func (Points) sealed()            {}
func (FullMiddle) sealed()        {}
func (FullMiddleWithMax) sealed() {}
func (PointsMiddle) sealed()      {}

func (Full) Render(level, _ float64, p settings.Palette) Strip {
	var s Strip
	ramp(s[:], level, p, false)
	return s
}

func (FullWithMax) Render(level, peak float64, p settings.Palette) Strip {
	s := Full{}.Render(level, peak, p)
	s[L-1] = marker(peak, p)
	return s
}

// Render places the dot at level*L. An exact LED position writes the lower
// LED at full weight and then the same LED at frac = 0, so whole positions
// (silence included) stay dark.
func (Points) Render(level, _ float64, p settings.Palette) Strip {
	var s Strip
	pos := level * L
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	frac := pos - math.Floor(pos)
	lower = max(min(lower, L-1), 0)

	c := p.Primary.Mix(p.Secondary, level)
	s[lower] = c.Brightness(1 - frac)
	if upper >= 0 && upper < L {
		s[upper] = c.Brightness(frac)
	}
	return s
}

func (FullMiddle) Render(level, _ float64, p settings.Palette) Strip {
	var s Strip
	const mid = L / 2
	ramp(s[:mid], level, p, true)
	ramp(s[mid:], level, p, false)
	return s
}

func (FullMiddleWithMax) Render(level, peak float64, p settings.Palette) Strip {
	s := FullMiddle{}.Render(level, peak, p)
	m := marker(peak, p)
	s[0] = m
	s[L-1] = m
	return s
}

func (PointsMiddle) Render(level, peak float64, p settings.Palette) Strip {
	return Full{}.Render(level, peak, p)
}

// ramp lights ceil(min(level*len(seg), len(seg))) LEDs of seg. LED k gets
// the primary-to-secondary blend at (k+1)/n; the last lit LED is dimmed by
// the fractional leftover. A lone LED is drawn as the reversed blend at the
// leftover instead. A reversed ramp grows from the end of seg.
func ramp(seg []color.Color, level float64, p settings.Palette, reversed bool) {
	length := float64(len(seg))
	lit := level * length
	if !(lit > 0) {
		return
	}
	lit = min(lit, length)
	n := int(math.Ceil(lit))
	leftover := 1 - max(0, float64(n)-lit)

	at := func(k int) int {
		if reversed {
			return len(seg) - 1 - k
		}
		return k
	}

	if n == 1 {
		seg[at(0)] = p.Secondary.Mix(p.Primary, leftover)
		return
	}
	for k := range n {
		c := p.Primary.Mix(p.Secondary, float64(k+1)/float64(n))
		if k == n-1 {
			c = c.Brightness(leftover)
		}
		seg[at(k)] = c
	}
}

func marker(peak float64, p settings.Palette) color.Color {
	return p.Accent.Brightness(min(peak, 1))
}
