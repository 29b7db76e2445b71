// SPDX-License-Identifier: MIT
package synth

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"pluck/internal/karplus"
	applog "pluck/internal/log"
)

// Bank owns one string per trigger key. Membership is fixed at construction;
// each string mutates independently. A Bank is only touched by the goroutine
// running the simulation loop.
type Bank struct {
	keys    []rune
	strings []*karplus.String // strings[i] belongs to keys[i]
	index   map[rune]int
}

type bankOptions struct {
	decay float64
	rng   *rand.Rand
}

// BankOption configures NewBank.
type BankOption func(*bankOptions)

// WithDecay sets the decay factor of every string.
func WithDecay(d float64) BankOption {
	return func(o *bankOptions) { o.decay = d }
}

// WithSeed makes plucks reproducible: all strings draw noise from one PCG
// generator seeded with seed.
func WithSeed(seed uint64) BankOption {
	return func(o *bankOptions) { o.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }
}

// WithRand shares r between all strings.
func WithRand(r *rand.Rand) BankOption {
	return func(o *bankOptions) { o.rng = r }
}

// NewBank builds one string per entry of freqs.
func NewBank(sampleRate float64, freqs map[rune]float64, opts ...BankOption) (*Bank, error) {
	o := bankOptions{decay: karplus.DefaultDecay}
	for _, opt := range opts {
		opt(&o)
	}

	keys := make([]rune, 0, len(freqs))
	for k := range freqs {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	b := &Bank{
		keys:    keys,
		strings: make([]*karplus.String, len(keys)),
		index:   make(map[rune]int, len(keys)),
	}
	for i, k := range keys {
		s, err := karplus.New(freqs[k], sampleRate, karplus.WithDecay(o.decay), karplus.WithRand(o.rng))
		if err != nil {
			return nil, fmt.Errorf("string for key %q: %w", k, err)
		}
		b.strings[i] = s
		b.index[k] = i
	}

	applog.Debugf("Bank: Built %d strings (SampleRate: %.0f Hz, Decay: %.4f)", len(keys), sampleRate, o.decay)
	return b, nil
}

// Trigger plucks the string mapped to key and reports whether key is known.
func (b *Bank) Trigger(key rune) bool {
	i, ok := b.index[key]
	if !ok {
		return false
	}
	b.strings[i].Pluck()
	return true
}

// Mix returns the sum of every string's current sample.
func (b *Bank) Mix() float64 {
	var sum float64
	for _, s := range b.strings {
		sum += s.Sample()
	}
	return sum
}

// Advance tics every string once.
func (b *Bank) Advance() {
	for _, s := range b.strings {
		s.Tic()
	}
}

// String returns the oscillator mapped to key.
func (b *Bank) String(key rune) (*karplus.String, bool) {
	i, ok := b.index[key]
	if !ok {
		return nil, false
	}
	return b.strings[i], true
}

// Keys returns the trigger keys in ascending order.
func (b *Bank) Keys() []rune { return slices.Clone(b.keys) }

// Len returns the number of strings.
func (b *Bank) Len() int { return len(b.strings) }
