// SPDX-License-Identifier: MIT

// Package bitint has power-of-two helpers for sizing analysis blocks. Both
// functions are constant time and allocation free.
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of two >= size, and 1 for
// size <= 0. Subtracting one first keeps exact powers of two unchanged:
// bits.Len(7) is 3, so 8 maps to 1<<3 rather than 1<<4.
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n has exactly one bit set.
//
//	8 & 7 = 1000 & 0111 = 0   true
//	6 & 5 = 0110 & 0101 = 4   false
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
