// SPDX-License-Identifier: MIT
package audio

import (
	"sync/atomic"

	"pluck/pkg/bitint"
)

// outputRing is a lock-free single-producer single-consumer float32 ring.
// The simulation loop is the only writer and the backend callback the only
// reader. Capacity is a power of 2 so indices wrap with a mask.
type outputRing struct {
	data []float32
	mask uint64
	head atomic.Uint64 // next read, owned by the consumer
	_    [56]byte      // keep head and tail on separate cache lines
	tail atomic.Uint64 // next write, owned by the producer
}

func newOutputRing(size int) *outputRing {
	size = bitint.NextPowerOfTwo(size)
	mask, _ := bitint.Mask(size)
	return &outputRing{
		data: make([]float32, size),
		mask: mask,
	}
}

// Write appends v and reports false when the ring is full.
func (r *outputRing) Write(v float32) bool {
	tail := r.tail.Load()
	if tail-r.head.Load() == uint64(len(r.data)) {
		return false
	}
	r.data[tail&r.mask] = v
	r.tail.Store(tail + 1)
	return true
}

// ReadInto moves up to len(dst) samples into dst and returns the count.
func (r *outputRing) ReadInto(dst []float32) int {
	head := r.head.Load()
	avail := r.tail.Load() - head
	n := uint64(len(dst))
	if avail < n {
		n = avail
	}
	for i := range n {
		dst[i] = r.data[(head+i)&r.mask]
	}
	r.head.Store(head + n)
	return int(n)
}

// Len returns the number of buffered samples.
func (r *outputRing) Len() int {
	return int(r.tail.Load() - r.head.Load())
}

// Cap returns the ring capacity.
func (r *outputRing) Cap() int { return len(r.data) }
