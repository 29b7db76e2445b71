// SPDX-License-Identifier: MIT
package synth

import (
	"sync"

	"pluck/internal/ring"
)

// DefaultWindowSize is the number of mixed samples kept for renderers.
const DefaultWindowSize = 400

// Window is the rolling history of the most recent mixed samples. The loop
// writes with Push; renderers read with SnapshotInto at their own cadence.
type Window struct {
	mu  sync.Mutex
	buf *ring.Buffer
}

// NewWindow returns a window of size samples, all zero.
func NewWindow(size int) (*Window, error) {
	buf, err := ring.NewFilled(size, 0)
	if err != nil {
		return nil, err
	}
	return &Window{buf: buf}, nil
}

// Push drops the oldest sample and appends sample.
func (w *Window) Push(sample float64) {
	w.mu.Lock()
	_, _ = w.buf.Dequeue()
	w.buf.Enqueue(sample)
	w.mu.Unlock()
}

// SnapshotInto copies the history, oldest first, into dst and returns the
// number of samples copied.
func (w *Window) SnapshotInto(dst []float64) int {
	w.mu.Lock()
	n := w.buf.SnapshotInto(dst)
	w.mu.Unlock()
	return n
}

// Snapshot returns a copy of the history, oldest first.
func (w *Window) Snapshot() []float64 {
	dst := make([]float64, w.Size())
	w.SnapshotInto(dst)
	return dst
}

// Size returns the fixed number of samples in the window.
func (w *Window) Size() int { return w.buf.Cap() }
