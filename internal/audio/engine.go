// SPDX-License-Identifier: MIT
/*
Package audio implements the real-time output stage of the instrument:
- Lock-free sample hand-off from the simulation loop to the device
- Hard clipping of the unbounded mixer sum
- Pluggable backends (PortAudio, oto, null)

Thread Safety:
- Push is called only by the simulation loop goroutine
- Render is called only by the backend's audio thread
- Counters and clip settings use atomic operations
*/
package audio

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"pluck/internal/config"
	applog "pluck/internal/log"
	"pluck/internal/metrics"

	"github.com/go-audio/audio"
)

var (
	ErrEngineRunning = errors.New("audio engine already running")
	ErrEngineClosed  = errors.New("audio engine closed")
)

// Engine buffers mixed samples for a Backend and implements synth.Sink.
type Engine struct {
	config  *config.Config
	backend Backend

	ring  *outputRing
	block *audio.Float32Buffer // Reused by the backend thread on every render.

	clipEnabled atomic.Bool
	clipLevel   atomic.Uint64 // float64 bits

	underruns atomic.Uint64
	overflows atomic.Uint64

	running atomic.Bool
	closed  atomic.Bool
}

// NewEngine creates an engine with the backend named in cfg.Audio.Backend.
func NewEngine(cfg *config.Config) (*Engine, error) {
	backend, err := NewBackend(cfg)
	if err != nil {
		return nil, err
	}
	return NewEngineWithBackend(cfg, backend), nil
}

// NewEngineWithBackend creates an engine that feeds backend.
func NewEngineWithBackend(cfg *config.Config, backend Backend) *Engine {
	e := &Engine{
		config:  cfg,
		backend: backend,
		ring:    newOutputRing(cfg.Audio.BufferSize),
		block: &audio.Float32Buffer{
			Format: &audio.Format{
				NumChannels: 1,
				SampleRate:  int(cfg.Audio.SampleRate),
			},
			SourceBitDepth: 32,
		},
	}
	e.SetClipLevel(cfg.Audio.ClipLevel)
	e.EnableClip()
	return e
}

// Push clips sample and queues it for the device. A full buffer drops the
// sample and counts an overflow.
func (e *Engine) Push(sample float64) {
	if !e.ring.Write(float32(e.clip(sample))) {
		e.overflows.Add(1)
		metrics.OverflowsTotal.Inc()
	}
}

// Render fills buf.Data from the queued samples and returns how many were
// available. Missing samples are written as silence and counted as
// underruns.
func (e *Engine) Render(buf *audio.Float32Buffer) int {
	n := e.ring.ReadInto(buf.Data)
	if missing := len(buf.Data) - n; missing > 0 {
		clear(buf.Data[n:])
		e.underruns.Add(uint64(missing))
		metrics.UnderrunsTotal.Add(float64(missing))
	}
	metrics.OutputBufferFill.Set(float64(e.ring.Len()))
	return n
}

// render adapts Render to the backend callback.
func (e *Engine) render(out []float32) {
	e.block.Data = out
	e.Render(e.block)
}

// Start opens the backend and begins pulling samples.
func (e *Engine) Start() error {
	if e.closed.Load() {
		return ErrEngineClosed
	}
	if !e.running.CompareAndSwap(false, true) {
		return ErrEngineRunning
	}
	if err := e.backend.Start(e.render); err != nil {
		e.running.Store(false)
		return fmt.Errorf("failed to start %s backend: %w", e.backend.Name(), err)
	}
	applog.Infof("Audio: %s output at %.0f Hz, %d frames per buffer, %d sample queue",
		e.backend.Name(), e.config.Audio.SampleRate, e.config.Audio.FramesPerBuffer, e.ring.Cap())
	return nil
}

// Stop halts the backend. Queued samples are kept.
func (e *Engine) Stop() error {
	if !e.running.CompareAndSwap(true, false) {
		return nil
	}
	if err := e.backend.Stop(); err != nil {
		return fmt.Errorf("failed to stop %s backend: %w", e.backend.Name(), err)
	}
	return nil
}

// Close stops the engine. A closed engine cannot be restarted.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := e.Stop()
	if u, o := e.Underruns(), e.Overflows(); u > 0 || o > 0 {
		applog.Warnf("Audio: %d underrun samples, %d overflow samples", u, o)
	}
	return err
}

func (e *Engine) Underruns() uint64 { return e.underruns.Load() }
func (e *Engine) Overflows() uint64 { return e.overflows.Load() }

// Buffered returns the number of samples waiting for the device.
func (e *Engine) Buffered() int { return e.ring.Len() }

// BufferCapacity returns the size of the output queue in samples.
func (e *Engine) BufferCapacity() int { return e.ring.Cap() }

func (e *Engine) BackendName() string { return e.backend.Name() }

func (e *Engine) Running() bool { return e.running.Load() }

// Latency returns the delay a newly pushed sample waits before playback.
func (e *Engine) Latency() time.Duration {
	return time.Duration(float64(e.ring.Len()) / e.config.Audio.SampleRate * float64(time.Second))
}
