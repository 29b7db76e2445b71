// SPDX-License-Identifier: MIT
package synth

// Sink receives every mixed sample, once per simulated sample, from the loop
// goroutine. Implementations must not block; buffering and clipping are the
// sink's business.
type Sink interface {
	Push(sample float64)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(sample float64)

func (f SinkFunc) Push(sample float64) { f(sample) }

// MultiSink fans each sample out to every sink in order.
type MultiSink []Sink

func (m MultiSink) Push(sample float64) {
	for _, s := range m {
		s.Push(sample)
	}
}

type discardSink struct{}

func (discardSink) Push(float64) {}

// Discard is a Sink that drops every sample.
var Discard Sink = discardSink{}
