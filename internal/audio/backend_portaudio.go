// SPDX-License-Identifier: MIT
package audio

import (
	"runtime"
	"time"

	"pluck/internal/config"

	"github.com/gordonklaus/portaudio"
)

type portAudioBackend struct {
	config *config.Config

	outputDevice  *portaudio.DeviceInfo
	outputLatency time.Duration
	outputStream  *portaudio.Stream

	render RenderFunc
}

func newPortAudioBackend(cfg *config.Config) (*portAudioBackend, error) {
	device, err := OutputDevice(cfg.Audio.OutputDevice)
	if err != nil {
		return nil, err
	}

	b := &portAudioBackend{
		config:       cfg,
		outputDevice: device,
	}
	if cfg.Audio.LowLatency {
		b.outputLatency = device.DefaultLowOutputLatency
	} else {
		b.outputLatency = device.DefaultHighOutputLatency
	}
	return b, nil
}

func (b *portAudioBackend) Name() string { return config.BackendPortAudio }

func (b *portAudioBackend) Start(render RenderFunc) error {
	if b.outputStream != nil {
		return ErrEngineRunning
	}
	b.render = render

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: 0, // No input device
			Device:   nil,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 1,
			Device:   b.outputDevice,
			Latency:  b.outputLatency,
		},
		FramesPerBuffer: b.config.Audio.FramesPerBuffer,
		SampleRate:      b.config.Audio.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, b.processOutputStream)
	if err != nil {
		return err
	}
	b.outputStream = stream

	if err := b.outputStream.Start(); err != nil {
		b.outputStream.Close()
		b.outputStream = nil
		return err
	}
	return nil
}

func (b *portAudioBackend) Stop() error {
	if b.outputStream != nil {
		if err := b.outputStream.Stop(); err != nil {
			return err
		}

		if err := b.outputStream.Close(); err != nil {
			return err
		}

		b.outputStream = nil
	}
	return nil
}

// processOutputStream is the device callback.
// Performance Critical:
// - Runs in a dedicated OS thread (LockOSThread)
// - Renders straight into the PortAudio buffer
func (b *portAudioBackend) processOutputStream(out []float32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	b.render(out)
}
