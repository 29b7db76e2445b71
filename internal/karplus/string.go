// SPDX-License-Identifier: MIT
/*
Package karplus simulates a single plucked string with the Karplus-Strong
algorithm.

A String holds N = ceil(sampleRate / frequency) displacement samples in a
ring buffer. Each Tic removes the head sample, averages it with the new head
and appends the average scaled by the decay factor. The averaging is a
two-tap low-pass filter and the decay factor (< 1) drains energy, so a plucked
string rings at roughly sampleRate/N Hz and fades towards silence.

Performance Critical:
  - Tic, Sample and Time never allocate
  - Pluck performs N dequeue/enqueue pairs and never allocates
*/
package karplus

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"pluck/internal/ring"
)

const (
	// DefaultDecay is the energy decay factor applied on every tic.
	DefaultDecay = 0.994

	// MaxCapacity bounds the delay line, about 6 minutes at 44.1 kHz.
	MaxCapacity = 1 << 24
)

var (
	// ErrInvalidFrequency is returned for a frequency that is not positive
	// and finite, or so low that the delay line would exceed MaxCapacity.
	ErrInvalidFrequency = errors.New("karplus: frequency must be positive and finite")

	// ErrInvalidSampleRate is returned for a sample rate that is not positive and finite.
	ErrInvalidSampleRate = errors.New("karplus: sample rate must be positive and finite")

	// ErrInvalidDecay is returned by New when the decay factor is outside (0, 1).
	ErrInvalidDecay = errors.New("karplus: decay must be in (0, 1)")
)

// String is one Karplus-Strong oscillator. It is not safe for concurrent use;
// the simulation loop is its only mutator.
type String struct {
	frequency float64
	decay     float64
	buf       *ring.Buffer
	rng       *rand.Rand
	tics      uint64
}

// Option configures a String at construction.
type Option func(*String)

// WithDecay sets the decay factor. New rejects values outside (0, 1).
func WithDecay(d float64) Option {
	return func(s *String) { s.decay = d }
}

// WithRand sets the noise source used by Pluck. A nil source keeps the default.
func WithRand(r *rand.Rand) Option {
	return func(s *String) {
		if r != nil {
			s.rng = r
		}
	}
}

// Capacity returns ceil(sampleRate / frequency), the number of samples a
// string tuned to frequency holds. Frequencies above the sample rate get a
// single sample; frequencies that need more than MaxCapacity are rejected.
func Capacity(frequency, sampleRate float64) (int, error) {
	if frequency <= 0 || math.IsNaN(frequency) || math.IsInf(frequency, 0) {
		return 0, fmt.Errorf("%w: got %v", ErrInvalidFrequency, frequency)
	}
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return 0, fmt.Errorf("%w: got %v", ErrInvalidSampleRate, sampleRate)
	}
	q := math.Ceil(sampleRate / frequency)
	if math.IsInf(q, 0) || q > MaxCapacity {
		return 0, fmt.Errorf("%w: %v Hz needs more than %d samples at %v Hz",
			ErrInvalidFrequency, frequency, MaxCapacity, sampleRate)
	}
	return max(int(q), 1), nil
}

// New returns a string at rest (N zero samples) tuned to frequency.
func New(frequency, sampleRate float64, opts ...Option) (*String, error) {
	n, err := Capacity(frequency, sampleRate)
	if err != nil {
		return nil, err
	}

	s := &String{
		frequency: frequency,
		decay:     DefaultDecay,
	}
	for _, opt := range opts {
		opt(s)
	}
	if !(s.decay > 0 && s.decay < 1) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidDecay, s.decay)
	}
	if s.rng == nil {
		// Deterministic per frequency so two runs with the same tuning match.
		s.rng = rand.New(rand.NewPCG(math.Float64bits(frequency), uint64(n)))
	}

	s.buf, err = ring.NewFilled(n, 0)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Pluck replaces every sample with white noise uniform in [-0.5, 0.5).
func (s *String) Pluck() {
	for range s.buf.Len() {
		_, _ = s.buf.Dequeue()
		s.buf.Enqueue(s.rng.Float64() - 0.5)
	}
}

// Tic advances the simulation by one sample.
func (s *String) Tic() {
	s0, err := s.buf.Dequeue()
	if err != nil {
		return // unreachable: the buffer always holds N samples
	}
	s1, err := s.buf.Peek()
	if err != nil {
		s1 = s0 // N == 1: the only sample was just removed
	}
	s.buf.Enqueue(((s0 + s1) / 2) * s.decay)
	s.tics++
}

// Sample returns the current output without advancing.
func (s *String) Sample() float64 {
	v, _ := s.buf.Peek()
	return v
}

// Time returns the number of tics since construction.
func (s *String) Time() uint64 { return s.tics }

// Capacity returns N, the number of samples in the string's buffer.
func (s *String) Capacity() int { return s.buf.Cap() }

// Frequency returns the frequency the string was tuned to.
func (s *String) Frequency() float64 { return s.frequency }

// Decay returns the decay factor.
func (s *String) Decay() float64 { return s.decay }

// SamplesInto copies the string's current displacement samples into dst.
func (s *String) SamplesInto(dst []float64) int {
	return s.buf.SnapshotInto(dst)
}
