// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"sync"
	"time"

	"pluck/internal/config"
)

// RenderFunc fills out with the next mono samples. Backends call it from
// their audio thread.
type RenderFunc func(out []float32)

// Backend pulls samples from a RenderFunc and plays them.
type Backend interface {
	Name() string
	Start(render RenderFunc) error
	Stop() error
}

// NewBackend creates the backend named in cfg.Audio.Backend. PortAudio must
// already be initialized when the portaudio backend is selected.
func NewBackend(cfg *config.Config) (Backend, error) {
	switch cfg.Audio.Backend {
	case config.BackendPortAudio:
		return newPortAudioBackend(cfg)
	case config.BackendOto:
		return newOtoBackend(cfg), nil
	case config.BackendNull:
		return NewNullBackend(cfg.Audio.SampleRate, cfg.Audio.FramesPerBuffer), nil
	default:
		return nil, fmt.Errorf("unknown audio backend %q", cfg.Audio.Backend)
	}
}

// NullBackend consumes samples at the sample rate without playing them.
// It keeps the output queue draining when no device is wanted.
type NullBackend struct {
	interval time.Duration
	buf      []float32

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

func NewNullBackend(sampleRate float64, framesPerBuffer int) *NullBackend {
	if framesPerBuffer <= 0 {
		framesPerBuffer = config.DefaultFramesPerBuffer
	}
	return &NullBackend{
		interval: time.Duration(float64(framesPerBuffer) / sampleRate * float64(time.Second)),
		buf:      make([]float32, framesPerBuffer),
	}
}

func (b *NullBackend) Name() string { return config.BackendNull }

func (b *NullBackend) Start(render RenderFunc) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stop != nil {
		return ErrEngineRunning
	}
	b.stop = make(chan struct{})
	b.done = make(chan struct{})

	go func(stop, done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(b.interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				render(b.buf)
			}
		}
	}(b.stop, b.done)
	return nil
}

func (b *NullBackend) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stop == nil {
		return nil
	}
	close(b.stop)
	<-b.done
	b.stop, b.done = nil, nil
	return nil
}
