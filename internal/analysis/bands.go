// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"sync"
)

// FrequencyBand is a named frequency range and its latest level.
type FrequencyBand struct {
	Name   string  `json:"name"`
	LowHz  float64 `json:"low_hz"`
	HighHz float64 `json:"high_hz"`
	Level  float64 `json:"level"`
}

// DefaultBands splits the instrument's range into registers: the lower and
// upper octaves of the keyboard, and the harmonics above them.
func DefaultBands(sampleRate float64) []FrequencyBand {
	return []FrequencyBand{
		{Name: "low", LowHz: 20, HighHz: 220},
		{Name: "mid", LowHz: 220, HighHz: 880},
		{Name: "high", LowHz: 880, HighHz: 3520},
		{Name: "air", LowHz: 3520, HighHz: sampleRate / 2},
	}
}

// BandEnergyProcessor reduces the spectrum of an FFTResultProvider to one
// RMS magnitude per band.
type BandEnergyProcessor struct {
	provider FFTResultProvider

	mu     sync.Mutex
	bands  []FrequencyBand
	mags   []float64
	bins   []int // band index per FFT bin, -1 when no band covers it
	energy []float64
	count  []int
}

// NewBandEnergyProcessor precomputes the bin to band mapping.
func NewBandEnergyProcessor(provider FFTResultProvider, bands []FrequencyBand) *BandEnergyProcessor {
	n := provider.GetFFTSize()/2 + 1
	p := &BandEnergyProcessor{
		provider: provider,
		bands:    append([]FrequencyBand(nil), bands...),
		mags:     make([]float64, n),
		bins:     make([]int, n),
		energy:   make([]float64, len(bands)),
		count:    make([]int, len(bands)),
	}
	for i := range p.bins {
		p.bins[i] = -1
		freq := provider.GetFrequencyForBin(i)
		for b, band := range p.bands {
			if freq >= band.LowHz && freq < band.HighHz {
				p.bins[i] = b
				break
			}
		}
	}
	return p
}

// Process reads the provider's latest spectrum and updates every band.
func (p *BandEnergyProcessor) Process() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.provider.GetMagnitudesInto(p.mags); err != nil {
		return
	}

	clear(p.energy)
	clear(p.count)
	for i, m := range p.mags {
		if b := p.bins[i]; b >= 0 {
			p.energy[b] += m * m
			p.count[b]++
		}
	}
	for b := range p.bands {
		p.bands[b].Level = 0
		if p.count[b] > 0 {
			p.bands[b].Level = math.Sqrt(p.energy[b] / float64(p.count[b]))
		}
	}
}

// Bands returns a copy of the bands with their latest levels.
func (p *BandEnergyProcessor) Bands() []FrequencyBand {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]FrequencyBand(nil), p.bands...)
}

// BandsInto copies the bands into dst and returns how many were copied.
func (p *BandEnergyProcessor) BandsInto(dst []FrequencyBand) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return copy(dst, p.bands)
}
