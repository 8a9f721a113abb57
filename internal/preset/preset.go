// SPDX-License-Identifier: MIT
/*
Package preset stores named snapshots of the visualizer parameters.

A Preset carries every tunable parameter plus an index and a 16-byte name;
runtime state (the last frame, preset selection) is never part of it. Two
encodings exist: the fixed little-endian layout exchanged over the control
plane, and the YAML documents a FileStore keeps on disk.

Binary layout (little endian, N = band count):

	offset        size  field
	0             1     index
	1             16    name, zero padded
	17            2     smoothing depth (u16)
	19            4     gain (f32)
	23            2     frame rate (u16)
	25            3     primary RGB
	28            3     secondary RGB
	31            3     accent RGB
	34            2     transform size (u16)
	36            4N    band frequencies (f32)
	36+4N         4N    band gains (f32)
	36+8N         4     skew (f32)
	40+8N         4     brightness (f32)
	44+8N         1     display mode
	45+8N         1     animation mode
*/
package preset

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"visualizer/internal/color"
	"visualizer/internal/settings"
)

// NameSize is the fixed length of a preset name in bytes.
const NameSize = 16

var (
	// ErrNotFound is returned for preset ids with no stored preset.
	ErrNotFound = errors.New("preset: not found")
	// ErrInvalidLength is returned when an encoded preset has the wrong size.
	ErrInvalidLength = errors.New("preset: invalid encoded length")
)

// Preset is a named parameter snapshot.
type Preset struct {
	Index  uint8
	Name   [NameSize]byte
	Params settings.Params
}

// New builds a preset; name is truncated to NameSize bytes.
func New(index uint8, name string, p settings.Params) Preset {
	pr := Preset{Index: index, Params: p.Clone()}
	copy(pr.Name[:], name)
	return pr
}

// Title returns the name without its zero padding.
func (p Preset) Title() string {
	if i := bytes.IndexByte(p.Name[:], 0); i >= 0 {
		return string(p.Name[:i])
	}
	return string(p.Name[:])
}

// EncodedSize is the binary length of a preset with the given band count.
func EncodedSize(bands int) int {
	return 46 + 8*bands
}

// MarshalBinary encodes p in the fixed control-plane layout.
func (p Preset) MarshalBinary() ([]byte, error) {
	q := p.Params
	if len(q.Gains) != len(q.Bands) {
		return nil, fmt.Errorf("%w: %d gains for %d bands", settings.ErrBandCount, len(q.Gains), len(q.Bands))
	}
	for _, f := range []struct {
		name string
		v    int
	}{
		{"smoothing depth", q.SmoothingDepth},
		{"frame rate", q.FrameRate},
		{"transform size", q.TransformSize},
	} {
		if f.v < 0 || f.v > math.MaxUint16 {
			return nil, fmt.Errorf("%w: %s %d does not fit 16 bits", settings.ErrInvalidValue, f.name, f.v)
		}
	}

	b := make([]byte, 0, EncodedSize(len(q.Bands)))
	b = append(b, p.Index)
	b = append(b, p.Name[:]...)
	b = binary.LittleEndian.AppendUint16(b, uint16(q.SmoothingDepth))
	b = appendFloat(b, q.Gain)
	b = binary.LittleEndian.AppendUint16(b, uint16(q.FrameRate))
	b = appendColor(b, q.Palette.Primary)
	b = appendColor(b, q.Palette.Secondary)
	b = appendColor(b, q.Palette.Accent)
	b = binary.LittleEndian.AppendUint16(b, uint16(q.TransformSize))
	for _, f := range q.Bands {
		b = appendFloat(b, f)
	}
	for _, g := range q.Gains {
		b = appendFloat(b, g)
	}
	b = appendFloat(b, q.Skew)
	b = appendFloat(b, q.Brightness)
	b = append(b, uint8(q.DisplayMode), uint8(q.AnimationMode))
	return b, nil
}

// Unmarshal decodes a preset encoded for the given band count. Unknown mode
// codes are rejected; other ranges are checked when the preset is applied.
func Unmarshal(b []byte, bands int) (Preset, error) {
	if len(b) != EncodedSize(bands) {
		return Preset{}, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidLength, len(b), EncodedSize(bands))
	}

	var p Preset
	r := reader{b: b}
	p.Index = r.u8()
	copy(p.Name[:], r.next(NameSize))

	q := &p.Params
	q.SmoothingDepth = int(r.u16())
	q.Gain = r.f32()
	q.FrameRate = int(r.u16())
	q.Palette.Primary = r.color()
	q.Palette.Secondary = r.color()
	q.Palette.Accent = r.color()
	q.TransformSize = int(r.u16())
	q.Bands = make([]float64, bands)
	for i := range q.Bands {
		q.Bands[i] = r.f32()
	}
	q.Gains = make([]float64, bands)
	for i := range q.Gains {
		q.Gains[i] = r.f32()
	}
	q.Skew = r.f32()
	q.Brightness = r.f32()

	var err error
	if q.DisplayMode, err = settings.DisplayModeFromCode(r.u8()); err != nil {
		return Preset{}, err
	}
	if q.AnimationMode, err = settings.AnimationModeFromCode(r.u8()); err != nil {
		return Preset{}, err
	}
	return p, nil
}

func appendFloat(b []byte, v float64) []byte {
	return binary.LittleEndian.AppendUint32(b, math.Float32bits(float32(v)))
}

func appendColor(b []byte, c color.Color) []byte {
	return append(b, c.R, c.G, c.B)
}

// reader walks a buffer whose length has already been checked.
type reader struct {
	b   []byte
	off int
}

func (r *reader) next(n int) []byte {
	s := r.b[r.off : r.off+n]
	r.off += n
	return s
}

func (r *reader) u8() uint8 { return r.next(1)[0] }

func (r *reader) u16() uint16 { return binary.LittleEndian.Uint16(r.next(2)) }

func (r *reader) f32() float64 {
	return float64(math.Float32frombits(binary.LittleEndian.Uint32(r.next(4))))
}

func (r *reader) color() color.Color {
	b := r.next(3)
	return color.New(b[0], b[1], b[2])
}
