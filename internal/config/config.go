// SPDX-License-Identifier: MIT
package config

import "time"

// Core configuration constants that define the boundaries and defaults
// for the instrument.
const (
	// Audio output
	DefaultBackend         = BackendPortAudio
	DefaultOutputDevice    = MinDeviceID // System default device
	DefaultSampleRate      = 44100       // CD-quality audio
	DefaultFramesPerBuffer = 512         // Balanced latency/performance
	DefaultLowLatency      = false
	DefaultOutputBuffer    = 8192 // Samples between the loop and the backend
	DefaultClipLevel       = 1.0
	DefaultFFTWindow       = "Hann"
	DefaultFFTSize         = 256

	// Instrument
	DefaultKeyboard       = "q2we4r5ty7u8i9op-[=zxdcfvgbnjmk,.;/' "
	DefaultTuning         = TuningEqual
	DefaultReference      = 440.0
	DefaultReferenceIndex = 24
	DefaultStepsPerOctave = 12
	DefaultDecay          = 0.994

	// Engine
	DefaultWindowSize    = 400
	DefaultQueueSize     = 256
	DefaultTickInterval  = time.Millisecond
	DefaultMaxLag        = 4410
	DefaultDisplayPoints = 100

	// Transport
	DefaultHTTPAddress      = "127.0.0.1:8080"
	DefaultFrameInterval    = 33 * time.Millisecond // ~30Hz
	DefaultUDPTargetAddress = "127.0.0.1:9090"

	// Hardware and processing limits
	MinDeviceID     = -1     // -1 represents system default device
	MinSampleRate   = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate   = 192000 // Maximum supported sample rate (Hz)
	MaxBufferFrames = 8192   // Maximum frames per buffer (power of 2)
)

// Output backends.
const (
	BackendPortAudio = "portaudio"
	BackendOto       = "oto"
	BackendNull      = "null"
)

// Tuning rules.
const (
	TuningEqual = "equal"
	Tuning12TET = "12tet"
	TuningLua   = "lua"
)

// NewConfig returns a Config holding the built-in defaults. LoadConfig starts
// from it before applying the file and the environment.
func NewConfig() *Config {
	return &Config{
		LogLevel: "info",
		Audio: AudioConfig{
			Backend:         DefaultBackend,
			OutputDevice:    DefaultOutputDevice,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			LowLatency:      DefaultLowLatency,
			BufferSize:      DefaultOutputBuffer,
			ClipLevel:       DefaultClipLevel,
			FFTWindow:       DefaultFFTWindow,
			FFTSize:         DefaultFFTSize,
		},
		Instrument: InstrumentConfig{
			Keyboard:       DefaultKeyboard,
			Tuning:         DefaultTuning,
			Reference:      DefaultReference,
			ReferenceIndex: DefaultReferenceIndex,
			StepsPerOctave: DefaultStepsPerOctave,
			Decay:          DefaultDecay,
		},
		Engine: EngineConfig{
			WindowSize:    DefaultWindowSize,
			QueueSize:     DefaultQueueSize,
			TickInterval:  DefaultTickInterval,
			MaxLag:        DefaultMaxLag,
			DisplayPoints: DefaultDisplayPoints,
		},
		Transport: TransportConfig{
			HTTPEnabled:      false,
			HTTPAddress:      DefaultHTTPAddress,
			FrameInterval:    DefaultFrameInterval,
			UDPEnabled:       false,
			UDPTargetAddress: DefaultUDPTargetAddress,
		},
	}
}
