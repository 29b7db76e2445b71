// SPDX-License-Identifier: MIT
/*
Package synth is the real-time scheduling core: a bank of Karplus-Strong
strings, the queue that carries key presses to it, the rolling window read by
renderers and the loop that ties them together.

Cycle (one per audio sample):
 1. Drain pending trigger events, oldest first, plucking matching strings
 2. Mix the current sample of every string
 3. Push the mixed sample to the sink and to the window
 4. Advance every string by one tic

Thread Safety:
  - The loop goroutine is the only mutator of the bank and of the window's
    write side
  - TriggerQueue.Push and Window.SnapshotInto may be called from any goroutine
  - Step never allocates; Run paces Step against the wall clock
*/
package synth

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	applog "pluck/internal/log"
	"pluck/internal/metrics"
)

const (
	DefaultSampleRate   = 44100
	DefaultTickInterval = time.Millisecond
	DefaultMaxLag       = 4410 // 100ms at 44.1kHz
)

var (
	ErrLoopRunning = errors.New("synth: loop is already running")
	ErrLoopStopped = errors.New("synth: loop is stopped")
)

// State is the lifecycle state of a Loop.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Loop advances the bank once per sample and distributes the mixed output.
type Loop struct {
	bank   *Bank
	queue  *TriggerQueue
	window *Window
	sink   Sink

	sampleRate   float64
	tickInterval time.Duration
	maxLag       int64
	now          func() time.Time

	state    atomic.Int32
	cycles   atomic.Uint64
	stopCh   chan struct{}
	stopOnce sync.Once

	trigger func(rune) // bound once so Drain does not allocate per cycle
	depth   int        // last queue depth reported to metrics
}

// LoopOption configures NewLoop.
type LoopOption func(*Loop)

// WithSampleRate sets the rate Run paces cycles at.
func WithSampleRate(rate float64) LoopOption {
	return func(l *Loop) {
		if rate > 0 {
			l.sampleRate = rate
		}
	}
}

// WithTickInterval sets how often Run wakes up to catch up with the clock.
func WithTickInterval(d time.Duration) LoopOption {
	return func(l *Loop) {
		if d > 0 {
			l.tickInterval = d
		}
	}
}

// WithMaxLag sets how many samples Run may fall behind the clock before it
// skips ahead instead of catching up.
func WithMaxLag(samples int) LoopOption {
	return func(l *Loop) {
		if samples > 0 {
			l.maxLag = int64(samples)
		}
	}
}

// WithClock replaces time.Now for pacing.
func WithClock(now func() time.Time) LoopOption {
	return func(l *Loop) {
		if now != nil {
			l.now = now
		}
	}
}

// NewLoop wires a loop in the Idle state. A nil sink discards samples.
func NewLoop(bank *Bank, queue *TriggerQueue, window *Window, sink Sink, opts ...LoopOption) *Loop {
	if sink == nil {
		sink = Discard
	}
	l := &Loop{
		bank:         bank,
		queue:        queue,
		window:       window,
		sink:         sink,
		sampleRate:   DefaultSampleRate,
		tickInterval: DefaultTickInterval,
		maxLag:       DefaultMaxLag,
		now:          time.Now,
		stopCh:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.trigger = l.applyTrigger
	return l
}

func (l *Loop) applyTrigger(key rune) {
	if l.bank.Trigger(key) {
		metrics.PlucksApplied.Inc()
	} else {
		metrics.PlucksIgnored.Inc()
	}
}

// Step runs one cycle and returns the emitted sample. Step must only be
// called from one goroutine at a time and not while Run is active.
func (l *Loop) Step() float64 {
	if n := l.queue.Len(); n != l.depth {
		l.depth = n
		metrics.TriggerQueueDepth.Set(float64(n))
	}
	l.queue.Drain(l.trigger)

	sample := l.bank.Mix()
	l.sink.Push(sample)
	l.window.Push(sample)

	l.bank.Advance()
	l.cycles.Add(1)
	metrics.CyclesTotal.Inc()
	return sample
}

// Run moves the loop to Running and emits cycles at the sample rate until
// ctx is done or Stop is called. The loop is Stopped when Run returns.
func (l *Loop) Run(ctx context.Context) error {
	if !l.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		if l.State() == StateRunning {
			return ErrLoopRunning
		}
		return ErrLoopStopped
	}
	metrics.LoopState.Set(float64(StateRunning))
	defer func() {
		l.state.Store(int32(StateStopped))
		metrics.LoopState.Set(float64(StateStopped))
		applog.Infof("Loop: Stopped after %d cycles", l.cycles.Load())
	}()

	// Keep the simulation on one OS thread while it runs.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	applog.Infof("Loop: Running (SampleRate: %.0f Hz, Tick: %s, MaxLag: %d samples, Strings: %d)",
		l.sampleRate, l.tickInterval, l.maxLag, l.bank.Len())

	ticker := time.NewTicker(l.tickInterval)
	defer ticker.Stop()

	start := l.now()
	var emitted int64
	for {
		select {
		case <-ctx.Done():
			applog.Debugf("Loop: Context done: %v", ctx.Err())
			return nil
		case <-l.stopCh:
			applog.Debugf("Loop: Stop signal received")
			return nil
		case <-ticker.C:
			due := int64(l.now().Sub(start).Seconds() * l.sampleRate)
			if behind := due - emitted; behind > l.maxLag {
				skipped := behind - l.maxLag
				emitted += skipped
				metrics.LoopLagSkippedTotal.Add(float64(skipped))
				applog.Warnf("Loop: Fell behind the sample clock, skipped %d samples", skipped)
			}
			for ; emitted < due; emitted++ {
				l.Step()
			}
		}
	}
}

// Stop signals Run to return. Stopping an Idle loop moves it straight to
// Stopped. Stop is idempotent and safe from any goroutine.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
	if l.state.CompareAndSwap(int32(StateIdle), int32(StateStopped)) {
		metrics.LoopState.Set(float64(StateStopped))
	}
}

// State returns the current lifecycle state.
func (l *Loop) State() State { return State(l.state.Load()) }

// Cycles returns how many cycles have been emitted.
func (l *Loop) Cycles() uint64 { return l.cycles.Load() }

// Queue returns the trigger queue input goroutines push to.
func (l *Loop) Queue() *TriggerQueue { return l.queue }

// Window returns the visualization window renderers read from.
func (l *Loop) Window() *Window { return l.window }

// SampleRate returns the pacing rate.
func (l *Loop) SampleRate() float64 { return l.sampleRate }
