// SPDX-License-Identifier: MIT
package analysis

// SampleProcessor analyzes a block of mixed samples. Blocks come from
// Window snapshots, oldest sample first, never from the simulation loop itself.
type SampleProcessor interface {
	Process(samples []float64)
}

// ClosableProcessor combines SampleProcessor with a Close method for resource cleanup.
type ClosableProcessor interface {
	SampleProcessor
	Close() error
}

// FFTResultProvider is implemented by processors that expose a magnitude
// spectrum. BandEnergyProcessor reads through it so it does not depend on a
// specific FFT implementation.
type FFTResultProvider interface {
	GetMagnitudes() []float64                // Thread-safe copy of the latest spectrum.
	GetMagnitudesInto(dest []float64) error  // Allocation-free copy of the latest spectrum.
	GetFrequencyForBin(binIndex int) float64 // Center frequency (Hz) of a bin.
	GetFFTSize() int                         // Number of FFT points.
	GetSampleRate() float64                  // Sample rate of the analyzed signal.
}
