// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	applog "pluck/internal/log"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "pluck.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	t.Parallel()
	cfg, err := LoadConfig("")
	if err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
	if cfg == nil {
		t.Fatal("expected default config, got nil")
	}
	if cfg.Audio.SampleRate != DefaultSampleRate {
		t.Errorf("SampleRate = %v, want %v", cfg.Audio.SampleRate, DefaultSampleRate)
	}
	if cfg.Instrument.Keyboard != DefaultKeyboard {
		t.Errorf("Keyboard = %q, want %q", cfg.Instrument.Keyboard, DefaultKeyboard)
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	t.Parallel()
	cfg, err := LoadConfig("nonexistent.yaml")
	if err == nil {
		t.Errorf("expected error for missing file, got nil")
	}
	if cfg != nil {
		t.Errorf("expected nil config on error, got %+v", cfg)
	}
}

func TestLoadConfig_UnmarshalError(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, ":\n:bad")
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "failed to parse config file") {
		t.Error("expected unmarshal error, got nil or wrong error")
	}
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, `
log_level: debug
audio:
  backend: "null"
  sample_rate: 48000
instrument:
  reference: 432
  decay: 0.99
  seed: 7
engine:
  window_size: 800
transport:
  http_enabled: true
  frame_interval: 50ms
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Audio.Backend != BackendNull {
		t.Errorf("Backend = %q, want %q", cfg.Audio.Backend, BackendNull)
	}
	if cfg.Audio.SampleRate != 48000 {
		t.Errorf("SampleRate = %v, want 48000", cfg.Audio.SampleRate)
	}
	if cfg.Instrument.Reference != 432 || cfg.Instrument.Decay != 0.99 || cfg.Instrument.Seed != 7 {
		t.Errorf("Instrument = %+v", cfg.Instrument)
	}
	if cfg.Engine.WindowSize != 800 {
		t.Errorf("WindowSize = %d, want 800", cfg.Engine.WindowSize)
	}
	if !cfg.Transport.HTTPEnabled || cfg.Transport.FrameInterval != 50*time.Millisecond {
		t.Errorf("Transport = %+v", cfg.Transport)
	}
	// Untouched keys keep their defaults.
	if cfg.Engine.QueueSize != DefaultQueueSize {
		t.Errorf("QueueSize = %d, want %d", cfg.Engine.QueueSize, DefaultQueueSize)
	}
	if cfg.EffectiveLogLevel() != applog.LevelDebug {
		t.Errorf("EffectiveLogLevel() = %v, want %v", cfg.EffectiveLogLevel(), applog.LevelDebug)
	}
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, "instrument:\n  decay: 1.5\n")
	_, err := LoadConfig(path)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("LoadConfig() error = %v, want %v", err, ErrInvalidConfig)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("PLUCK_BACKEND", "OTO")
	t.Setenv("PLUCK_SAMPLE_RATE", "22050")
	t.Setenv("PLUCK_REFERENCE", "415")
	t.Setenv("PLUCK_UDP_ENABLED", "true")
	t.Setenv("PLUCK_UDP_TARGET_ADDRESS", "10.0.0.1:7000")
	t.Setenv("PLUCK_FRAME_INTERVAL", "10ms")
	t.Setenv("PLUCK_DEBUG", "not-a-bool")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Audio.Backend != BackendOto {
		t.Errorf("Backend = %q, want %q", cfg.Audio.Backend, BackendOto)
	}
	if cfg.Audio.SampleRate != 22050 {
		t.Errorf("SampleRate = %v, want 22050", cfg.Audio.SampleRate)
	}
	if cfg.Instrument.Reference != 415 {
		t.Errorf("Reference = %v, want 415", cfg.Instrument.Reference)
	}
	if !cfg.Transport.UDPEnabled || cfg.Transport.UDPTargetAddress != "10.0.0.1:7000" {
		t.Errorf("Transport = %+v", cfg.Transport)
	}
	if cfg.Transport.FrameInterval != 10*time.Millisecond {
		t.Errorf("FrameInterval = %v, want 10ms", cfg.Transport.FrameInterval)
	}
	if cfg.Debug {
		t.Error("Debug = true from an unparseable value")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"unknown log level", func(c *Config) { c.LogLevel = "loud" }, true},
		{"unknown backend", func(c *Config) { c.Audio.Backend = "alsa" }, true},
		{"backend case-insensitive", func(c *Config) { c.Audio.Backend = "PortAudio" }, false},
		{"sample rate too low", func(c *Config) { c.Audio.SampleRate = 4000 }, true},
		{"sample rate too high", func(c *Config) { c.Audio.SampleRate = 384000 }, true},
		{"device below default", func(c *Config) { c.Audio.OutputDevice = -2 }, true},
		{"frames too large", func(c *Config) { c.Audio.FramesPerBuffer = MaxBufferFrames + 1 }, true},
		{"buffer smaller than frames", func(c *Config) { c.Audio.BufferSize = 64 }, true},
		{"clip zero", func(c *Config) { c.Audio.ClipLevel = 0 }, true},
		{"unknown fft window", func(c *Config) { c.Audio.FFTWindow = "triangle" }, true},
		{"fft size not pow2", func(c *Config) { c.Audio.FFTSize = 300 }, true},
		{"empty keyboard", func(c *Config) { c.Instrument.Keyboard = "" }, true},
		{"unknown tuning", func(c *Config) { c.Instrument.Tuning = "just" }, true},
		{"lua without script", func(c *Config) { c.Instrument.Tuning = TuningLua }, true},
		{"lua with script", func(c *Config) {
			c.Instrument.Tuning = TuningLua
			c.Instrument.Script = "function frequency(i, k, r) return r end"
		}, false},
		{"zero reference", func(c *Config) { c.Instrument.Reference = 0 }, true},
		{"zero steps", func(c *Config) { c.Instrument.StepsPerOctave = 0 }, true},
		{"decay one", func(c *Config) { c.Instrument.Decay = 1 }, true},
		{"decay zero", func(c *Config) { c.Instrument.Decay = 0 }, true},
		{"zero window", func(c *Config) { c.Engine.WindowSize = 0 }, true},
		{"zero queue", func(c *Config) { c.Engine.QueueSize = 0 }, true},
		{"zero tick", func(c *Config) { c.Engine.TickInterval = 0 }, true},
		{"zero max lag", func(c *Config) { c.Engine.MaxLag = 0 }, true},
		{"display beyond window", func(c *Config) { c.Engine.DisplayPoints = c.Engine.WindowSize + 1 }, true},
		{"http without address", func(c *Config) {
			c.Transport.HTTPEnabled = true
			c.Transport.HTTPAddress = ""
		}, true},
		{"udp without port", func(c *Config) {
			c.Transport.UDPEnabled = true
			c.Transport.UDPTargetAddress = "localhost"
		}, true},
		{"publishing with zero interval", func(c *Config) {
			c.Transport.UDPEnabled = true
			c.Transport.FrameInterval = 0
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := NewConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() error = %v, want wrapped %v", err, ErrInvalidConfig)
			}
		})
	}
}
