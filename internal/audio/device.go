// SPDX-License-Identifier: MIT
package audio

import "time"

// Device represents an audio device
type Device struct {
	ID                int
	Name              string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
	LowOutputLatency  time.Duration
	HighOutputLatency time.Duration
}

// CanOutput reports whether the device can be used for playback.
func (d Device) CanOutput() bool { return d.MaxOutputChannels > 0 }

// HostDevices returns all devices known to an initialized PortAudio.
func HostDevices() ([]Device, error) {
	paDeviceInfos, err := paDevicesFunc()
	if err != nil {
		return nil, err
	}

	devices := make([]Device, len(paDeviceInfos))
	for i, info := range paDeviceInfos {
		devices[i] = Device{
			ID:                i,
			Name:              info.Name,
			MaxInputChannels:  info.MaxInputChannels,
			MaxOutputChannels: info.MaxOutputChannels,
			DefaultSampleRate: info.DefaultSampleRate,
			LowOutputLatency:  info.DefaultLowOutputLatency,
			HighOutputLatency: info.DefaultHighOutputLatency,
		}
	}
	return devices, nil
}

// GetDevices initializes PortAudio, lists its devices and terminates it.
func GetDevices() ([]Device, error) {
	if err := Initialize(); err != nil {
		return nil, err
	}
	defer Terminate()

	return HostDevices()
}
