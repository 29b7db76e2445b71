// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"pluck/internal/analysis"
	applog "pluck/internal/log"
	"pluck/pkg/bitint"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug      bool             `yaml:"debug"`             // Shorthand for log_level: debug.
	LogLevel   string           `yaml:"log_level"`         // Logging level (e.g., "debug", "info", "warn", "error").
	LogFile    string           `yaml:"log_file"`          // Log destination while the terminal UI owns the screen.
	Command    string           `yaml:"command,omitempty"` // A one-off command to execute instead of playing (e.g., "list", "keys").
	Headless   bool             `yaml:"headless"`          // Run without the terminal UI even on a TTY.
	Audio      AudioConfig      `yaml:"audio"`             // Output device and analysis settings.
	Instrument InstrumentConfig `yaml:"instrument"`        // Keyboard layout, tuning and string physics.
	Engine     EngineConfig     `yaml:"engine"`            // Simulation loop settings.
	Transport  TransportConfig  `yaml:"transport"`         // Frame publishing settings.
}

// AudioConfig holds settings related to audio output and analysis.
type AudioConfig struct {
	Backend         string  `yaml:"backend"`           // "portaudio", "oto" or "null".
	OutputDevice    int     `yaml:"output_device"`     // PortAudio device index for output (-1 for default).
	SampleRate      float64 `yaml:"sample_rate"`       // Simulation and output rate in Hz.
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Frames per backend callback.
	LowLatency      bool    `yaml:"low_latency"`       // Request low latency settings from the device.
	BufferSize      int     `yaml:"buffer_size"`       // Output ring size in samples (rounded up to a power of 2).
	ClipLevel       float64 `yaml:"clip_level"`        // Hard clip applied by the output stage, 0..1.
	FFTWindow       string  `yaml:"fft_window"`        // Window function for the spectrum (e.g., "Hann", "Hamming").
	FFTSize         int     `yaml:"fft_size"`          // Spectrum size (power of 2).
}

// InstrumentConfig holds the keyboard and string settings.
type InstrumentConfig struct {
	Keyboard       string  `yaml:"keyboard"`         // Trigger keys, lowest pitch first.
	Tuning         string  `yaml:"tuning"`           // "equal", "12tet" or "lua".
	Reference      float64 `yaml:"reference"`        // Pitch of the reference key in Hz.
	ReferenceIndex int     `yaml:"reference_index"`  // Position of the reference key in the keyboard.
	StepsPerOctave int     `yaml:"steps_per_octave"` // Equal temperament divisions.
	Script         string  `yaml:"script"`           // Lua source, or @path, for the lua tuning.
	Decay          float64 `yaml:"decay"`            // Energy decay factor per tic, 0 < d < 1.
	Seed           uint64  `yaml:"seed"`             // Pluck noise seed (0 for per-string defaults).
}

// EngineConfig holds the simulation loop settings.
type EngineConfig struct {
	WindowSize    int           `yaml:"window_size"`    // Samples kept for renderers.
	QueueSize     int           `yaml:"queue_size"`     // Pending pluck events before drops.
	TickInterval  time.Duration `yaml:"tick_interval"`  // Pacing granularity.
	MaxLag        int           `yaml:"max_lag"`        // Samples the loop may trail the clock before skipping.
	DisplayPoints int           `yaml:"display_points"` // Points drawn by the waveform renderer.
}

// TransportConfig holds settings related to sending frames over the network.
type TransportConfig struct {
	HTTPEnabled      bool          `yaml:"http_enabled"`       // Serve /ws, /metrics and the API.
	HTTPAddress      string        `yaml:"http_address"`       // Listen address for the HTTP server.
	FrameInterval    time.Duration `yaml:"frame_interval"`     // Interval between published frames.
	UDPEnabled       bool          `yaml:"udp_enabled"`        // Enable sending frames over UDP.
	UDPTargetAddress string        `yaml:"udp_target_address"` // Target address and port for UDP packets.
}

// ConfigCandidates are searched, in order, when LoadConfig gets no path.
var ConfigCandidates = []string{"pluck.yaml", "config.yaml"}

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches ConfigCandidates. If no file is found, it uses built-in defaults.
// After loading defaults or from file, it applies environment variable overrides
// and validates the final configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		for _, candidate := range ConfigCandidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		applog.Debugf("Config: Loaded %s", path)
	}

	// Apply environment variable overrides AFTER loading from file.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first setting outside its allowed range. Backend and
// tuning names are lower-cased in place.
func (c *Config) Validate() error {
	c.Audio.Backend = strings.ToLower(c.Audio.Backend)
	c.Instrument.Tuning = strings.ToLower(c.Instrument.Tuning)

	if c.LogLevel != "" {
		if _, ok := applog.ParseLevel(c.LogLevel); !ok {
			return fmt.Errorf("%w: unknown log_level %q", ErrInvalidConfig, c.LogLevel)
		}
	}

	// Audio
	switch c.Audio.Backend {
	case BackendPortAudio, BackendOto, BackendNull:
	default:
		return fmt.Errorf("%w: unknown audio.backend %q", ErrInvalidConfig, c.Audio.Backend)
	}
	if c.Audio.SampleRate < MinSampleRate || c.Audio.SampleRate > MaxSampleRate {
		return fmt.Errorf("%w: audio.sample_rate %.0f outside [%d, %d]",
			ErrInvalidConfig, c.Audio.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if c.Audio.OutputDevice < MinDeviceID {
		return fmt.Errorf("%w: audio.output_device %d below %d", ErrInvalidConfig, c.Audio.OutputDevice, MinDeviceID)
	}
	if c.Audio.FramesPerBuffer < 1 || c.Audio.FramesPerBuffer > MaxBufferFrames {
		return fmt.Errorf("%w: audio.frames_per_buffer %d outside [1, %d]",
			ErrInvalidConfig, c.Audio.FramesPerBuffer, MaxBufferFrames)
	}
	if c.Audio.BufferSize < c.Audio.FramesPerBuffer {
		return fmt.Errorf("%w: audio.buffer_size %d smaller than frames_per_buffer %d",
			ErrInvalidConfig, c.Audio.BufferSize, c.Audio.FramesPerBuffer)
	}
	if c.Audio.ClipLevel <= 0 || c.Audio.ClipLevel > 1 {
		return fmt.Errorf("%w: audio.clip_level %v outside (0, 1]", ErrInvalidConfig, c.Audio.ClipLevel)
	}
	if _, err := analysis.ParseWindowFunc(c.Audio.FFTWindow); err != nil {
		return fmt.Errorf("%w: audio.fft_window: %v", ErrInvalidConfig, err)
	}
	if c.Audio.FFTSize < 2 || !bitint.IsPowerOfTwo(c.Audio.FFTSize) {
		return fmt.Errorf("%w: audio.fft_size %d is not a power of 2", ErrInvalidConfig, c.Audio.FFTSize)
	}

	// Instrument
	if c.Instrument.Keyboard == "" {
		return fmt.Errorf("%w: instrument.keyboard is empty", ErrInvalidConfig)
	}
	switch c.Instrument.Tuning {
	case TuningEqual, Tuning12TET:
	case TuningLua:
		if c.Instrument.Script == "" {
			return fmt.Errorf("%w: instrument.script is required for the lua tuning", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown instrument.tuning %q", ErrInvalidConfig, c.Instrument.Tuning)
	}
	if c.Instrument.Reference <= 0 {
		return fmt.Errorf("%w: instrument.reference must be positive, got %v", ErrInvalidConfig, c.Instrument.Reference)
	}
	if c.Instrument.StepsPerOctave < 1 {
		return fmt.Errorf("%w: instrument.steps_per_octave must be positive, got %d",
			ErrInvalidConfig, c.Instrument.StepsPerOctave)
	}
	if c.Instrument.Decay <= 0 || c.Instrument.Decay >= 1 {
		return fmt.Errorf("%w: instrument.decay %v outside (0, 1)", ErrInvalidConfig, c.Instrument.Decay)
	}

	// Engine
	if c.Engine.WindowSize < 1 {
		return fmt.Errorf("%w: engine.window_size must be at least 1, got %d", ErrInvalidConfig, c.Engine.WindowSize)
	}
	if c.Engine.QueueSize < 1 {
		return fmt.Errorf("%w: engine.queue_size must be at least 1, got %d", ErrInvalidConfig, c.Engine.QueueSize)
	}
	if c.Engine.TickInterval <= 0 {
		return fmt.Errorf("%w: engine.tick_interval must be positive", ErrInvalidConfig)
	}
	if c.Engine.MaxLag < 1 {
		return fmt.Errorf("%w: engine.max_lag must be at least 1, got %d", ErrInvalidConfig, c.Engine.MaxLag)
	}
	if c.Engine.DisplayPoints < 1 || c.Engine.DisplayPoints > c.Engine.WindowSize {
		return fmt.Errorf("%w: engine.display_points %d outside [1, window_size]", ErrInvalidConfig, c.Engine.DisplayPoints)
	}

	// Transport
	if c.Transport.HTTPEnabled && c.Transport.HTTPAddress == "" {
		return fmt.Errorf("%w: transport.http_address must be set when HTTP is enabled", ErrInvalidConfig)
	}
	if c.Transport.UDPEnabled {
		if !strings.Contains(c.Transport.UDPTargetAddress, ":") {
			return fmt.Errorf("%w: transport.udp_target_address %q appears invalid (missing port?)",
				ErrInvalidConfig, c.Transport.UDPTargetAddress)
		}
	}
	if (c.Transport.HTTPEnabled || c.Transport.UDPEnabled) && c.Transport.FrameInterval <= 0 {
		return fmt.Errorf("%w: transport.frame_interval must be positive", ErrInvalidConfig)
	}
	return nil
}

// EffectiveLogLevel resolves Debug and LogLevel into one level.
func (c *Config) EffectiveLogLevel() applog.LogLevel {
	if c.Debug {
		return applog.LevelDebug
	}
	level, _ := applog.ParseLevel(c.LogLevel)
	return level
}

// applyEnvOverrides reads PLUCK_* variables. Unparseable values are ignored.
func (c *Config) applyEnvOverrides() {
	// PLUCK_DEBUG
	if val, ok := os.LookupEnv("PLUCK_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Debug = bVal
			applog.Debugf("Config: Overriding debug from env: %v", bVal)
		}
	}
	// PLUCK_LOG_LEVEL
	if val, ok := os.LookupEnv("PLUCK_LOG_LEVEL"); ok {
		c.LogLevel = val
		applog.Debugf("Config: Overriding log_level from env: %s", val)
	}
	// PLUCK_BACKEND
	if val, ok := os.LookupEnv("PLUCK_BACKEND"); ok {
		c.Audio.Backend = strings.ToLower(val)
		applog.Debugf("Config: Overriding audio.backend from env: %s", val)
	}
	// PLUCK_SAMPLE_RATE
	if val, ok := os.LookupEnv("PLUCK_SAMPLE_RATE"); ok {
		if fVal, err := strconv.ParseFloat(val, 64); err == nil {
			c.Audio.SampleRate = fVal
			applog.Debugf("Config: Overriding audio.sample_rate from env: %v", fVal)
		}
	}
	// PLUCK_REFERENCE
	if val, ok := os.LookupEnv("PLUCK_REFERENCE"); ok {
		if fVal, err := strconv.ParseFloat(val, 64); err == nil {
			c.Instrument.Reference = fVal
			applog.Debugf("Config: Overriding instrument.reference from env: %v", fVal)
		}
	}

	// PLUCK_HTTP_{...}
	if val, ok := os.LookupEnv("PLUCK_HTTP_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Transport.HTTPEnabled = bVal
			applog.Debugf("Config: Overriding transport.http_enabled from env: %v", bVal)
		}
	}
	if val, ok := os.LookupEnv("PLUCK_HTTP_ADDRESS"); ok {
		c.Transport.HTTPAddress = val
		applog.Debugf("Config: Overriding transport.http_address from env: %s", val)
	}

	// PLUCK_UDP_{...}
	if val, ok := os.LookupEnv("PLUCK_UDP_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Transport.UDPEnabled = bVal
			applog.Debugf("Config: Overriding transport.udp_enabled from env: %v", bVal)
		}
	}
	if val, ok := os.LookupEnv("PLUCK_UDP_TARGET_ADDRESS"); ok {
		c.Transport.UDPTargetAddress = val
		applog.Debugf("Config: Overriding transport.udp_target_address from env: %s", val)
	}
	if val, ok := os.LookupEnv("PLUCK_FRAME_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			c.Transport.FrameInterval = dur
			applog.Debugf("Config: Overriding transport.frame_interval from env: %s", dur)
		}
	}
}
