// SPDX-License-Identifier: MIT
package analysis

import (
	"math"

	"gonum.org/v1/gonum/floats"

	applog "pluck/internal/log"
)

// OnsetDetector flags blocks whose energy jumps above the previous block's,
// which is what a fresh pluck looks like in the mixed output.
type OnsetDetector struct {
	threshold      float64 // Minimum RMS for an onset
	minEnergyRatio float64 // Minimum RMS increase over the previous block
	lastEnergy     float64
}

// NewOnsetDetector returns a detector. Typical values are 0.01 and 1.5.
func NewOnsetDetector(threshold, minEnergyRatio float64) *OnsetDetector {
	applog.Debugf("Analysis: Initializing OnsetDetector (Threshold: %.3f, MinRatio: %.2f)", threshold, minEnergyRatio)
	return &OnsetDetector{
		threshold:      threshold,
		minEnergyRatio: minEnergyRatio,
	}
}

// Detect reports whether block starts a new note.
func (d *OnsetDetector) Detect(block []float64) bool {
	current := RMS(block)
	onset := current > d.threshold &&
		(d.lastEnergy == 0 || current/d.lastEnergy > d.minEnergyRatio)
	d.lastEnergy = current
	return onset
}

// Process implements SampleProcessor.
func (d *OnsetDetector) Process(block []float64) { d.Detect(block) }

// RMS returns the root mean square of samples, 0 for an empty block.
func RMS(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	return floats.Norm(samples, 2) / math.Sqrt(float64(len(samples)))
}

// Peak returns the largest absolute sample, 0 for an empty block.
func Peak(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	return math.Max(math.Abs(floats.Max(samples)), math.Abs(floats.Min(samples)))
}
