// SPDX-License-Identifier: MIT
package frame

import (
	"fmt"

	"visualizer/internal/animation"
	"visualizer/internal/color"
	"visualizer/internal/settings"
)

// EndOfFrame terminates every serialized frame. No color channel can take this value.
const EndOfFrame byte = 0xFF

/*
Frame layout

	+----------------+----------------+-----+--------------------+------+
	| strip 0 (fwd)  | strip 1 (rev)  | ... | strip B-1          | 0xFF |
	| L x 3 bytes    | L x 3 bytes    |     | L x 3 bytes        |      |
	+----------------+----------------+-----+--------------------+------+

Strips are daisy-chained in alternating direction, so every odd strip is
written last LED first. Each LED is three bytes in the configured color
order (GRB by default).
*/

// Size is the encoded length of a frame with the given band count.
func Size(bands int) int { return settings.FrameSize(bands) }

// Encoder serializes rendered strips into the wire format.
type Encoder struct {
	order color.Order
}

// NewEncoder returns an encoder writing colors in the given order.
func NewEncoder(order color.Order) *Encoder {
	return &Encoder{order: order}
}

// Order returns the color byte order used on the wire.
func (e *Encoder) Order() color.Order { return e.order }

// Encode appends the frame for strips to dst[:0] and returns it. Every color
// is scaled by brightness first.
func (e *Encoder) Encode(dst []byte, strips []animation.Strip, brightness float64) []byte {
	dst = dst[:0]
	for i := range strips {
		s := &strips[i]
		if i%2 == 1 {
			for k := len(s) - 1; k >= 0; k-- {
				dst = s[k].Brightness(brightness).Append(dst, e.order)
			}
			continue
		}
		for k := range s {
			dst = s[k].Brightness(brightness).Append(dst, e.order)
		}
	}
	return append(dst, EndOfFrame)
}

// Decode reverses Encode: it splits frame into strips in rendered order,
// undoing the serpentine reversal and the color order. Brightness cannot be undone.
func Decode(frame []byte, order color.Order) ([]animation.Strip, error) {
	const stripBytes = settings.LedsPerStrip * 3
	if len(frame) == 0 || frame[len(frame)-1] != EndOfFrame {
		return nil, fmt.Errorf("frame: missing end-of-frame marker")
	}
	body := frame[:len(frame)-1]
	if len(body)%stripBytes != 0 {
		return nil, fmt.Errorf("frame: body length %d is not a multiple of %d", len(body), stripBytes)
	}

	strips := make([]animation.Strip, len(body)/stripBytes)
	for i := range strips {
		chunk := body[i*stripBytes : (i+1)*stripBytes]
		for k := range settings.LedsPerStrip {
			c := fromWire(chunk[k*3:k*3+3], order)
			if i%2 == 1 {
				strips[i][settings.LedsPerStrip-1-k] = c
			} else {
				strips[i][k] = c
			}
		}
	}
	return strips, nil
}

func fromWire(b []byte, order color.Order) color.Color {
	if order == color.RGB {
		return color.Color{R: b[0], G: b[1], B: b[2]}
	}
	return color.Color{R: b[1], G: b[0], B: b[2]}
}
