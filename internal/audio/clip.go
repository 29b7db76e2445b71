// SPDX-License-Identifier: MIT
package audio

import "math"

func (e *Engine) EnableClip() {
	e.clipEnabled.Store(true)
}

func (e *Engine) DisableClip() {
	e.clipEnabled.Store(false)
}

// SetClipLevel adjusts the hard clip applied to every output sample.
// The value is in the range of 0.0-1.0 where 1 passes full scale.
func (e *Engine) SetClipLevel(level float64) {
	if level < 0.0 {
		level = 0.0
	}
	if level > 1.0 {
		level = 1.0
	}
	e.clipLevel.Store(math.Float64bits(level))
}

// GetClipLevel returns the current clip level in the range 0.0-1.0.
func (e *Engine) GetClipLevel() float64 {
	return math.Float64frombits(e.clipLevel.Load())
}

// clip limits sample to the clip level when clipping is enabled. The mixer
// sums strings without bounds, so this is the only place levels are capped.
func (e *Engine) clip(sample float64) float64 {
	if !e.clipEnabled.Load() {
		return sample
	}
	level := math.Float64frombits(e.clipLevel.Load())
	return math.Max(-level, math.Min(level, sample))
}
