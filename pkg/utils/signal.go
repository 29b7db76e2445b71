// SPDX-License-Identifier: MIT
package utils

import (
	"math"
	"sync"
)

// GenerateSineWave returns size samples of a unit-amplitude sine at frequency.
func GenerateSineWave(size int, sampleRate, frequency float64) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = math.Sin(2 * math.Pi * frequency * t)
	}
	return buffer
}

// GenerateComplexWave returns a 440Hz fundamental with two harmonics, peak
// amplitude 1.
func GenerateComplexWave(size int, sampleRate float64) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		tm := float64(i) / sampleRate
		buffer[i] = math.Sin(2*math.Pi*440*tm)*0.5 +
			math.Sin(2*math.Pi*880*tm)*0.3 +
			math.Sin(2*math.Pi*1320*tm)*0.2
	}
	return buffer
}

// FindPeakBin returns the index of the largest magnitude in [startBin, endBin].
// Out of range bounds are clamped.
func FindPeakBin(magnitudes []float64, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}

	if startBin < 0 {
		startBin = 0
	}

	if endBin >= len(magnitudes) {
		endBin = len(magnitudes) - 1
	}

	peakBin := startBin
	peakValue := magnitudes[startBin]

	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > peakValue {
			peakValue = magnitudes[bin]
			peakBin = bin
		}
	}

	return peakBin
}

// CaptureSink records every pushed sample. It satisfies synth.Sink and is
// safe for concurrent use.
type CaptureSink struct {
	mu      sync.Mutex
	samples []float64
}

// Push appends sample.
func (c *CaptureSink) Push(sample float64) {
	c.mu.Lock()
	c.samples = append(c.samples, sample)
	c.mu.Unlock()
}

// Samples returns a copy of everything pushed so far.
func (c *CaptureSink) Samples() []float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]float64, len(c.samples))
	copy(out, c.samples)
	return out
}

// Len returns how many samples were pushed.
func (c *CaptureSink) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.samples)
}

// MockTransport implements transport.Transport for testing. It keeps the
// last value sent and counts sends.
type MockTransport struct {
	mu       sync.Mutex
	LastData any
	Sends    int
	Err      error
	Closed   bool
}

// Send stores data for later inspection instead of transmitting.
func (m *MockTransport) Send(data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.LastData = data
	m.Sends++
	return nil
}

// Close marks the transport closed.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	m.Closed = true
	m.mu.Unlock()
	return nil
}

// Snapshot returns the last data and send count under the lock.
func (m *MockTransport) Snapshot() (any, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.LastData, m.Sends
}
