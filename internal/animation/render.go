// SPDX-License-Identifier: MIT
package animation

import (
	"visualizer/internal/dsp"
	"visualizer/internal/settings"
)

// RenderBand draws band i of a frame. The level and max are scaled by the
// global gain and the band's gain before the display mode is applied.
func RenderBand(p settings.Params, i int, lv dsp.Level) Strip {
	switch p.DisplayMode {
	case settings.Spectrum:
		g := p.Gain
		if i < len(p.Gains) {
			g *= p.Gains[i]
		}
		return For(p.AnimationMode).Render(lv.Average*g, lv.Max*g, p.Palette)
	case settings.ColorGradient:
		return Gradient(p.Palette)
	default:
		// Oscilloscope has no renderer yet and stays dark.
		return Strip{}
	}
}

// Render draws every band into dst, growing it if needed, and returns it.
func Render(p settings.Params, levels []dsp.Level, dst []Strip) []Strip {
	if cap(dst) < len(levels) {
		dst = make([]Strip, len(levels))
	}
	dst = dst[:len(levels)]
	for i, lv := range levels {
		dst[i] = RenderBand(p, i, lv)
	}
	return dst
}

// Gradient is the static primary-to-secondary fill of the ColorGradient display.
func Gradient(pal settings.Palette) Strip {
	var s Strip
	for i := range s {
		s[i] = pal.Primary.Mix(pal.Secondary, float64(i+1)/L)
	}
	return s
}
