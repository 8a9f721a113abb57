// SPDX-License-Identifier: MIT
package control

import (
	"encoding/binary"
	"fmt"
	"math"
)

func checkLength(b []byte, want int) error {
	if len(b) != want {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidLength, len(b), want)
	}
	return nil
}

func encodeU16(v int) []byte {
	return binary.LittleEndian.AppendUint16(nil, uint16(v))
}

func decodeU16(b []byte) (uint16, error) {
	if err := checkLength(b, 2); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func encodeF32(v float64) []byte {
	return binary.LittleEndian.AppendUint32(nil, math.Float32bits(float32(v)))
}

func decodeF32(b []byte) (float64, error) {
	if err := checkLength(b, 4); err != nil {
		return 0, err
	}
	return float64(math.Float32frombits(binary.LittleEndian.Uint32(b))), nil
}

func encodeFloats(vs []float64) []byte {
	b := make([]byte, 0, 4*len(vs))
	for _, v := range vs {
		b = binary.LittleEndian.AppendUint32(b, math.Float32bits(float32(v)))
	}
	return b
}

// decodeFloats requires exactly n little-endian f32 values.
func decodeFloats(b []byte, n int) ([]float64, error) {
	if err := checkLength(b, 4*n); err != nil {
		return nil, err
	}
	vs := make([]float64, n)
	for i := range vs {
		vs[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:])))
	}
	return vs, nil
}
