// SPDX-License-Identifier: MIT
package bitint

import (
	"fmt"
	"testing"
)

func TestNextPowerOfTwo(t *testing.T) {
	tests := []struct {
		n        int
		expected int
	}{
		{-10, 1},           // Negative number
		{0, 1},             // Zero
		{1, 1},             // One is 2^0
		{8, 8},             // Already power of two
		{10, 16},           // Not power of two
		{1000, 1024},       // Large number
		{3, 4},             // Small non-power
		{4097, 8192},       // Output ring sizing
		{1 << 40, 1 << 40}, // Beyond 32 bits
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d→%d", tt.n, tt.expected), func(t *testing.T) {
			result := NextPowerOfTwo(tt.n)
			if result != tt.expected {
				t.Errorf("NextPowerOfTwo(%d) = %d, expected %d", tt.n, result, tt.expected)
			}
		})
	}
}

func TestIsPowerOfTwo(t *testing.T) {
	tests := []struct {
		n        int
		expected bool
	}{
		{-8, false},
		{0, false},
		{1, true},
		{2, true},
		{6, false},
		{256, true},
		{257, false},
	}

	for _, tt := range tests {
		if got := IsPowerOfTwo(tt.n); got != tt.expected {
			t.Errorf("IsPowerOfTwo(%d) = %v, expected %v", tt.n, got, tt.expected)
		}
	}
}

func TestMask(t *testing.T) {
	if m, ok := Mask(1024); !ok || m != 1023 {
		t.Errorf("Mask(1024) = %d, %v; want 1023, true", m, ok)
	}
	if _, ok := Mask(1000); ok {
		t.Error("Mask(1000) ok = true, want false")
	}
}

func BenchmarkNextPowerOfTwo(b *testing.B) {
	for i := 0; b.Loop(); i++ {
		_ = NextPowerOfTwo(i)
	}
}
