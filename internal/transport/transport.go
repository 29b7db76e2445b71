// SPDX-License-Identifier: MIT
package transport

import "pluck/internal/analysis"

// Transport defines a generic interface for sending visualization frames.
// Implementations should be thread-safe and must not block the caller for
// long; slow peers are dropped rather than waited on.
type Transport interface {
	Send(data any) error
	Close() error
}

// WindowSource is the read side of the visualization window.
type WindowSource interface {
	SnapshotInto(dst []float64) int
	Size() int
}

// Plucker accepts key events from remote clients.
type Plucker interface {
	Push(key rune) bool
}

const (
	FrameType = "frame"
	PluckType = "pluck"
)

// Frame is one visualization update: the most recent window of mixed
// samples, oldest first, and what the analysis made of it.
type Frame struct {
	Type     string                   `json:"type"`
	Seq      uint32                   `json:"seq"`
	Time     int64                    `json:"time"`
	Samples  []float32                `json:"samples"`
	Spectrum []float32                `json:"spectrum,omitempty"`
	PeakHz   float64                  `json:"peak_hz"`
	Peak     float64                  `json:"peak"`
	RMS      float64                  `json:"rms"`
	Bands    []analysis.FrequencyBand `json:"bands,omitempty"`
	Onset    bool                     `json:"onset"`
}

// Message is sent by clients. Only PluckType is understood.
type Message struct {
	Type string `json:"type"`
	Key  string `json:"key"`
}
