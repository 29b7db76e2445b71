// SPDX-License-Identifier: MIT
package audio

import (
	"encoding/binary"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"pluck/internal/config"

	"github.com/ebitengine/oto/v3"
)

// oto allows a single context per process.
var (
	otoOnce    sync.Once
	otoContext *oto.Context
	otoErr     error
)

func sharedOtoContext(opts *oto.NewContextOptions) (*oto.Context, error) {
	otoOnce.Do(func() {
		ctx, ready, err := oto.NewContext(opts)
		if err != nil {
			otoErr = err
			return
		}
		<-ready
		otoContext = ctx
	})
	return otoContext, otoErr
}

// otoBackend plays through the platform mixer without cgo. The oto player
// pulls bytes from Read, which renders float32 samples and encodes them
// little endian.
type otoBackend struct {
	opts *oto.NewContextOptions

	render  atomic.Pointer[RenderFunc]
	samples []float32 // Grown once to the player's read size.

	mu     sync.Mutex
	player *oto.Player
}

func newOtoBackend(cfg *config.Config) *otoBackend {
	return &otoBackend{
		opts: &oto.NewContextOptions{
			SampleRate:   int(cfg.Audio.SampleRate),
			ChannelCount: 1,
			Format:       oto.FormatFloat32LE,
			BufferSize:   time.Duration(float64(cfg.Audio.FramesPerBuffer) / cfg.Audio.SampleRate * float64(time.Second)),
		},
	}
}

func (b *otoBackend) Name() string { return config.BackendOto }

func (b *otoBackend) Start(render RenderFunc) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.player != nil {
		return ErrEngineRunning
	}

	ctx, err := sharedOtoContext(b.opts)
	if err != nil {
		return err
	}
	b.render.Store(&render)
	b.player = ctx.NewPlayer(b)
	b.player.Play()
	return nil
}

// Read implements io.Reader for the oto player. It writes silence until a
// render function is attached.
func (b *otoBackend) Read(p []byte) (int, error) {
	n := len(p) / 4
	render := b.render.Load()
	if render == nil {
		clear(p[:n*4])
		return n * 4, nil
	}

	if cap(b.samples) < n {
		b.samples = make([]float32, n)
	}
	samples := b.samples[:n]
	(*render)(samples)
	for i, v := range samples {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(v))
	}
	return n * 4, nil
}

func (b *otoBackend) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.player == nil {
		return nil
	}
	b.render.Store(nil)
	err := b.player.Close()
	b.player = nil
	return err
}
