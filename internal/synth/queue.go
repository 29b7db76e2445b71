// SPDX-License-Identifier: MIT
package synth

import (
	"sync/atomic"

	"pluck/internal/metrics"
)

// DefaultTriggerQueueSize bounds pending pluck events between two cycles.
const DefaultTriggerQueueSize = 256

// TriggerQueue carries key presses from input goroutines to the simulation
// loop. Push never blocks: when the queue is full the newest event is
// dropped. Drain is for the loop goroutine only.
type TriggerQueue struct {
	ch      chan rune
	dropped atomic.Uint64
}

// NewTriggerQueue returns a queue holding at most capacity pending events.
// Non-positive capacities fall back to DefaultTriggerQueueSize.
func NewTriggerQueue(capacity int) *TriggerQueue {
	if capacity <= 0 {
		capacity = DefaultTriggerQueueSize
	}
	return &TriggerQueue{ch: make(chan rune, capacity)}
}

// Push enqueues key and reports whether it was accepted.
func (q *TriggerQueue) Push(key rune) bool {
	select {
	case q.ch <- key:
		return true
	default:
		q.dropped.Add(1)
		metrics.TriggersDroppedTotal.Inc()
		return false
	}
}

// Drain passes every event pending at entry to fn, oldest first, and returns
// how many were delivered. It never waits for more input; events pushed while
// draining are left for the next call.
func (q *TriggerQueue) Drain(fn func(rune)) int {
	pending := len(q.ch)
	for i := range pending {
		select {
		case key := <-q.ch:
			fn(key)
		default:
			return i
		}
	}
	return pending
}

// Len returns the number of pending events.
func (q *TriggerQueue) Len() int { return len(q.ch) }

// Cap returns the queue bound.
func (q *TriggerQueue) Cap() int { return cap(q.ch) }

// Dropped returns how many events Push has rejected.
func (q *TriggerQueue) Dropped() uint64 { return q.dropped.Load() }
