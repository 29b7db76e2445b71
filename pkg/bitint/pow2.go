// SPDX-License-Identifier: MIT

// Package bitint holds the power-of-two helpers used for ring and FFT sizing.
// Both functions are allocation free and safe on the audio path.
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of 2 >= size, and 1 for
// size <= 0. Powers of two are returned unchanged: the size-1 keeps
// 8 (0b1000) at bits.Len(7) = 3 rather than 4.
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

// IsPowerOfTwo reports whether n is a positive power of 2. A power of two
// has one bit set, so n&(n-1) clears it to zero.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// Mask returns size-1 when size is a power of two, for index wrapping with
// i & mask. It returns false otherwise.
func Mask(size int) (uint64, bool) {
	if !IsPowerOfTwo(size) {
		return 0, false
	}
	return uint64(size - 1), true
}
