// SPDX-License-Identifier: MIT
/*
Package ring implements a fixed-capacity FIFO of float64 samples.

The buffer is a circular array with head and tail indices taken modulo the
capacity and an explicit length counter. Enqueue, Dequeue and Peek are O(1)
and never allocate, which matters because a string oscillator calls them
twice per audio sample.

Saturation policy:
  - Enqueue on a full buffer is a silent no-op.
  - Dequeue or Peek on an empty buffer returns ErrEmptyBuffer and 0.

A Buffer is not safe for concurrent use. Owners that share one across
goroutines (see synth.Window) must provide their own locking.
*/
package ring

import (
	"errors"
	"iter"
)

var (
	// ErrEmptyBuffer is returned by Dequeue and Peek when the buffer holds no samples.
	ErrEmptyBuffer = errors.New("ring: buffer is empty")

	// ErrInvalidCapacity is returned when a buffer is created with capacity < 1.
	ErrInvalidCapacity = errors.New("ring: capacity must be at least 1")
)

// Buffer is a fixed-capacity circular FIFO of samples.
type Buffer struct {
	data   []float64
	head   int // index of the oldest sample
	tail   int // index the next sample is written to
	length int
}

// New returns an empty buffer that holds at most capacity samples.
func New(capacity int) (*Buffer, error) {
	if capacity < 1 {
		return nil, ErrInvalidCapacity
	}
	return &Buffer{data: make([]float64, capacity)}, nil
}

// NewFilled returns a full buffer of the given capacity with every slot set to v.
func NewFilled(capacity int, v float64) (*Buffer, error) {
	b, err := New(capacity)
	if err != nil {
		return nil, err
	}
	for range capacity {
		b.Enqueue(v)
	}
	return b, nil
}

// Enqueue appends v at the tail. A full buffer drops v.
func (b *Buffer) Enqueue(v float64) {
	if b.length == len(b.data) {
		return
	}
	b.data[b.tail] = v
	b.tail++
	if b.tail == len(b.data) {
		b.tail = 0
	}
	b.length++
}

// Dequeue removes and returns the head sample.
func (b *Buffer) Dequeue() (float64, error) {
	if b.length == 0 {
		return 0, ErrEmptyBuffer
	}
	v := b.data[b.head]
	b.head++
	if b.head == len(b.data) {
		b.head = 0
	}
	b.length--
	return v, nil
}

// Peek returns the head sample without removing it.
func (b *Buffer) Peek() (float64, error) {
	if b.length == 0 {
		return 0, ErrEmptyBuffer
	}
	return b.data[b.head], nil
}

// Len returns the number of samples currently held.
func (b *Buffer) Len() int { return b.length }

// Cap returns the fixed capacity.
func (b *Buffer) Cap() int { return len(b.data) }

// IsEmpty reports whether the buffer holds no samples.
func (b *Buffer) IsEmpty() bool { return b.length == 0 }

// IsFull reports whether the buffer holds Cap() samples.
func (b *Buffer) IsFull() bool { return b.length == len(b.data) }

// All yields the current contents from head to tail. The sequence can be
// ranged over any number of times and does not mutate the buffer; mutating
// the buffer while ranging gives unspecified results.
func (b *Buffer) All() iter.Seq[float64] {
	return func(yield func(float64) bool) {
		idx := b.head
		for range b.length {
			if !yield(b.data[idx]) {
				return
			}
			idx++
			if idx == len(b.data) {
				idx = 0
			}
		}
	}
}

// SnapshotInto copies the contents, head first, into dst and returns the
// number of samples copied (min(len(dst), Len())).
func (b *Buffer) SnapshotInto(dst []float64) int {
	n := min(len(dst), b.length)
	if n == 0 {
		return 0
	}
	// At most two contiguous runs: head..end of array, then 0..tail.
	first := min(n, len(b.data)-b.head)
	copy(dst, b.data[b.head:b.head+first])
	if first < n {
		copy(dst[first:n], b.data[:n-first])
	}
	return n
}
