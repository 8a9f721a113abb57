// SPDX-License-Identifier: MIT
/*
Package color implements the 8-bit RGB value used for every LED.

Channels never exceed MaxChannel (254). The LED driver reserves 255 as the
end-of-frame sentinel, so every constructor and operation clamps.
*/
package color

import (
	"fmt"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// MaxChannel is the largest encodable channel value.
const MaxChannel = 254

// Color is an immutable RGB triple, copied by value.
type Color struct {
	R, G, B uint8
}

// Order selects the byte order a Color is written to the wire in.
type Order uint8

const (
	GRB Order = iota // WS2812 native order
	RGB
)

// Named colors.
var (
	Black   = Color{0, 0, 0}
	White   = Color{254, 254, 254}
	Red     = Color{254, 0, 0}
	Green   = Color{0, 254, 0}
	Blue    = Color{0, 0, 254}
	Yellow  = Color{254, 254, 0}
	Cyan    = Color{0, 254, 254}
	Magenta = Color{254, 0, 254}
	Orange  = Color{254, 165, 0}
	Purple  = Color{128, 0, 128}
	Pink    = Color{254, 100, 100}
	Gray    = Color{128, 128, 128}
)

var names = map[string]Color{
	"black":   Black,
	"white":   White,
	"red":     Red,
	"green":   Green,
	"blue":    Blue,
	"yellow":  Yellow,
	"cyan":    Cyan,
	"magenta": Magenta,
	"orange":  Orange,
	"purple":  Purple,
	"pink":    Pink,
	"gray":    Gray,
}

// New returns a color with every channel clamped to MaxChannel.
func New(r, g, b uint8) Color {
	return Color{R: min(r, MaxChannel), G: min(g, MaxChannel), B: min(b, MaxChannel)}
}

// FromBytes builds a color from a 3-byte RGB slice.
func FromBytes(b []byte) (Color, error) {
	if len(b) != 3 {
		return Black, fmt.Errorf("color: expected 3 bytes, got %d", len(b))
	}
	return New(b[0], b[1], b[2]), nil
}

// Bytes returns the RGB triple.
func (c Color) Bytes() [3]byte {
	return [3]byte{c.R, c.G, c.B}
}

// Append writes the color to dst in the given wire order.
func (c Color) Append(dst []byte, order Order) []byte {
	if order == RGB {
		return append(dst, c.R, c.G, c.B)
	}
	return append(dst, c.G, c.R, c.B)
}

// Brightness scales every channel by factor. Factors outside [0,1] are clamped.
func (c Color) Brightness(factor float64) Color {
	factor = clamp01(factor)
	return Color{
		R: channel(float64(c.R) * factor),
		G: channel(float64(c.G) * factor),
		B: channel(float64(c.B) * factor),
	}
}

// Mix blends c towards other; factor 0 yields c, factor 1 yields other.
func (c Color) Mix(other Color, factor float64) Color {
	factor = clamp01(factor)
	inv := 1 - factor
	return Color{
		R: channel(float64(c.R)*inv + float64(other.R)*factor),
		G: channel(float64(c.G)*inv + float64(other.G)*factor),
		B: channel(float64(c.B)*inv + float64(other.B)*factor),
	}
}

// Hex formats the color as #rrggbb.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func (c Color) String() string {
	return fmt.Sprintf("%02X%02X%02X", c.R, c.G, c.B)
}

// Parse accepts one of the named colors ("blue", "magenta", ...) or a
// #rrggbb / #rgb hex string.
func Parse(s string) (Color, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if c, ok := names[key]; ok {
		return c, nil
	}
	if !strings.HasPrefix(key, "#") {
		key = "#" + key
	}
	parsed, err := colorful.Hex(key)
	if err != nil {
		return Black, fmt.Errorf("color: cannot parse %q: %w", s, err)
	}
	r, g, b := parsed.RGB255()
	return New(r, g, b), nil
}

// channel truncates towards zero like an unsigned cast, after clamping.
func channel(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= MaxChannel {
		return MaxChannel
	}
	return uint8(v)
}

func clamp01(v float64) float64 {
	if v != v || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
