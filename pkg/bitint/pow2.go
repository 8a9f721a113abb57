// SPDX-License-Identifier: MIT
/*
Package bitint provides power-of-two helpers used to validate and suggest
transform sizes.

NextPowerOfTwo subtracts one before taking the bit length so that exact
powers of two map to themselves:

	8 - 1 = 0111b, bits.Len = 3, 1 << 3 = 8
	9 - 1 = 1000b, bits.Len = 4, 1 << 4 = 16
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of two >= size, or 1 for
// size <= 0.
//
//	Input  Output
//	4      4
//	5      8
//	0      1
//	-1     1
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of two. A power of two
// has a single bit set, so n&(n-1) clears it to zero.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
