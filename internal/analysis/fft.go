// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"fmt"
	"math/cmplx"
	"strings"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
	"gonum.org/v1/gonum/floats"

	applog "pluck/internal/log"
	"pluck/pkg/bitint"
	"pluck/pkg/utils"
)

var (
	ErrInvalidFFTSize    = errors.New("analysis: fft size must be a power of 2")
	ErrInvalidSampleRate = errors.New("analysis: sample rate must be positive")
	ErrSizeMismatch      = errors.New("analysis: destination length mismatch")
	ErrUnknownWindow     = errors.New("analysis: unknown FFT window function")
)

// WindowFunc defines the type for selecting an FFT window function.
type WindowFunc int

// Enum for available window functions.
const (
	BartlettHann WindowFunc = iota
	Blackman
	BlackmanNuttall
	Hann
	Hamming
	Lanczos
	Nuttall
)

func (w WindowFunc) String() string {
	switch w {
	case BartlettHann:
		return "BartlettHann"
	case Blackman:
		return "Blackman"
	case BlackmanNuttall:
		return "BlackmanNuttall"
	case Hann:
		return "Hann"
	case Hamming:
		return "Hamming"
	case Lanczos:
		return "Lanczos"
	case Nuttall:
		return "Nuttall"
	default:
		return fmt.Sprintf("WindowFunc(%d)", int(w))
	}
}

// Pre-allocated buffers for FFT calculations.
type fftWorkspace struct {
	input     []float64    // Windowed input block.
	fftOutput []complex128 // FFT complex results.
	magnitude []float64    // Scaled magnitudes.
	window    []float64    // Pre-calculated window coefficients.
	mu        sync.RWMutex // Protects magnitude against concurrent readers.
}

// FFTProcessor computes the magnitude spectrum of the most recent fftSize
// samples of each block it is given. Magnitudes are scaled so that a full
// scale sine reads close to 1 in its bin.
type FFTProcessor struct {
	fftCalculator *fourier.FFT
	fftSize       int
	sampleRate    float64
	windowType    WindowFunc
	scale         float64
	workspace     fftWorkspace
}

// Compile-time checks for interface implementations.
var _ SampleProcessor = (*FFTProcessor)(nil)
var _ FFTResultProvider = (*FFTProcessor)(nil)
var _ ClosableProcessor = (*FFTProcessor)(nil)

// NewFFTProcessor prepares an FFT of fftSize points (a power of 2) and the
// window coefficients for windowType.
func NewFFTProcessor(fftSize int, sampleRate float64, windowType WindowFunc) (*FFTProcessor, error) {
	if !bitint.IsPowerOfTwo(fftSize) {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidFFTSize, fftSize)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w, got %f", ErrInvalidSampleRate, sampleRate)
	}

	windowCoeffs := make([]float64, fftSize)
	applyWindow(windowCoeffs, windowType)

	scale := 0.0
	if sum := floats.Sum(windowCoeffs); sum > 0 {
		scale = 2 / sum
	}

	// FFT output size for real input is N/2 + 1 complex values.
	magnitudeSize := fftSize/2 + 1

	applog.Debugf("Analysis: Initializing FFTProcessor (Size: %d, SampleRate: %.1f Hz, Window: %v)", fftSize, sampleRate, windowType)

	return &FFTProcessor{
		fftCalculator: fourier.NewFFT(fftSize),
		fftSize:       fftSize,
		sampleRate:    sampleRate,
		windowType:    windowType,
		scale:         scale,
		workspace: fftWorkspace{
			input:     make([]float64, fftSize),
			fftOutput: make([]complex128, magnitudeSize),
			magnitude: make([]float64, magnitudeSize),
			window:    windowCoeffs,
		},
	}, nil
}

// Process windows the newest fftSize samples of block, zero padding at the
// front when the block is shorter, and recomputes the spectrum.
func (p *FFTProcessor) Process(block []float64) {
	p.workspace.mu.Lock()
	defer p.workspace.mu.Unlock()

	if len(block) > p.fftSize {
		block = block[len(block)-p.fftSize:]
	}
	pad := p.fftSize - len(block)
	for i := range pad {
		p.workspace.input[i] = 0
	}
	for i, v := range block {
		p.workspace.input[pad+i] = v
	}
	floats.Mul(p.workspace.input, p.workspace.window)

	p.fftCalculator.Coefficients(p.workspace.fftOutput, p.workspace.input)

	for i, c := range p.workspace.fftOutput {
		p.workspace.magnitude[i] = cmplx.Abs(c) * p.scale
	}
}

// GetMagnitudes returns a thread-safe copy of the latest magnitudes. It
// allocates; readers on a timer should use GetMagnitudesInto.
func (p *FFTProcessor) GetMagnitudes() []float64 {
	p.workspace.mu.RLock()
	defer p.workspace.mu.RUnlock()

	magCopy := make([]float64, len(p.workspace.magnitude))
	copy(magCopy, p.workspace.magnitude)
	return magCopy
}

// GetMagnitudesInto copies the latest magnitudes into dest, which must have
// length fftSize/2 + 1.
func (p *FFTProcessor) GetMagnitudesInto(dest []float64) error {
	p.workspace.mu.RLock()
	defer p.workspace.mu.RUnlock()

	if len(dest) != len(p.workspace.magnitude) {
		return fmt.Errorf("%w: got %d, want %d", ErrSizeMismatch, len(dest), len(p.workspace.magnitude))
	}

	copy(dest, p.workspace.magnitude)
	return nil
}

// PeakFrequency returns the center frequency of the strongest non-DC bin and
// its magnitude. A silent spectrum reports bin 1.
func (p *FFTProcessor) PeakFrequency() (float64, float64) {
	p.workspace.mu.RLock()
	defer p.workspace.mu.RUnlock()

	mags := p.workspace.magnitude
	bin := utils.FindPeakBin(mags, 1, len(mags)-1)
	return p.GetFrequencyForBin(bin), mags[bin]
}

// GetFrequencyForBin returns the center frequency (Hz) for a given FFT bin
// index, or 0 outside the spectrum.
func (p *FFTProcessor) GetFrequencyForBin(binIndex int) float64 {
	// fftOutput length is fixed after creation.
	if binIndex < 0 || binIndex >= len(p.workspace.fftOutput) {
		return 0.0
	}
	return float64(binIndex) * (p.sampleRate / float64(p.fftSize))
}

// BinCount returns the number of magnitude bins (fftSize/2 + 1).
func (p *FFTProcessor) BinCount() int { return len(p.workspace.magnitude) }

// GetFFTSize returns the configured FFT size (number of points).
func (p *FFTProcessor) GetFFTSize() int { return p.fftSize }

// GetSampleRate returns the configured sample rate (Hz).
func (p *FFTProcessor) GetSampleRate() float64 { return p.sampleRate }

// Window returns the configured window function.
func (p *FFTProcessor) Window() WindowFunc { return p.windowType }

// Close is a no-op; the processor owns no external resources.
func (p *FFTProcessor) Close() error {
	applog.Debugf("Analysis: Closing FFTProcessor (no specific resources to release)")
	return nil
}

// ParseWindowFunc converts a string name (case-insensitive) to a WindowFunc
// enum, returns a known default (Hann) and an error if the name is unknown.
func ParseWindowFunc(name string) (WindowFunc, error) {
	switch strings.ToLower(name) {
	case "bartletthann":
		return BartlettHann, nil
	case "blackman":
		return Blackman, nil
	case "blackmannuttall":
		return BlackmanNuttall, nil
	case "hann", "hanning":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "lanczos":
		return Lanczos, nil
	case "nuttall":
		return Nuttall, nil
	default:
		return Hann, fmt.Errorf("%w: '%s'", ErrUnknownWindow, name)
	}
}

// applyWindow fills coeffs with the selected window function, Hann when the
// type is unknown.
func applyWindow(coeffs []float64, windowType WindowFunc) {
	// The gonum window functions scale in place, so start from ones.
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	switch windowType {
	case BartlettHann:
		window.BartlettHann(coeffs)
	case Blackman:
		window.Blackman(coeffs)
	case BlackmanNuttall:
		window.BlackmanNuttall(coeffs)
	case Hann:
		window.Hann(coeffs)
	case Hamming:
		window.Hamming(coeffs)
	case Lanczos:
		window.Lanczos(coeffs)
	case Nuttall:
		window.Nuttall(coeffs)
	default:
		applog.Warnf("Analysis: Unknown window function type %d, defaulting to Hann", windowType)
		window.Hann(coeffs)
	}
}
