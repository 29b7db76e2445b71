// SPDX-License-Identifier: MIT
package audio

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/gordonklaus/portaudio"
)

var mockDevices = []*portaudio.DeviceInfo{
	{Name: "Built-in Microphone", MaxInputChannels: 2, DefaultSampleRate: 48000},
	{Name: "Built-in Speakers", MaxOutputChannels: 2, DefaultSampleRate: 44100,
		DefaultLowOutputLatency: 5 * time.Millisecond, DefaultHighOutputLatency: 20 * time.Millisecond},
	{Name: "USB Interface", MaxInputChannels: 2, MaxOutputChannels: 4, DefaultSampleRate: 96000},
}

func withMockDevices(t *testing.T, devices []*portaudio.DeviceInfo) {
	t.Helper()
	orig := paLibDevicesFunc
	origDefault := paLibDefaultOutputDeviceFunc
	t.Cleanup(func() {
		paLibDevicesFunc = orig
		paLibDefaultOutputDeviceFunc = origDefault
	})
	paLibDevicesFunc = func() ([]*portaudio.DeviceInfo, error) {
		return devices, nil
	}
	paLibDefaultOutputDeviceFunc = func() (*portaudio.DeviceInfo, error) {
		return devices[1], nil
	}
}

func TestHostDevices(t *testing.T) {
	withMockDevices(t, mockDevices)

	devices, err := HostDevices()
	if err != nil {
		t.Fatalf("HostDevices error: %v", err)
	}
	if len(devices) != len(mockDevices) {
		t.Fatalf("HostDevices() len = %d, want %d", len(devices), len(mockDevices))
	}
	for i, d := range devices {
		if d.ID != i {
			t.Errorf("Device ID mismatch: got %d, want %d", d.ID, i)
		}
		if d.Name != mockDevices[i].Name {
			t.Errorf("Device %d name = %q, want %q", i, d.Name, mockDevices[i].Name)
		}
	}
	if devices[0].CanOutput() {
		t.Error("input-only device reports CanOutput")
	}
	if !devices[1].CanOutput() || devices[1].LowOutputLatency != 5*time.Millisecond {
		t.Errorf("speakers = %+v", devices[1])
	}
}

func TestHostDevices_paDevicesError(t *testing.T) {
	orig := paDevicesFunc
	defer func() { paDevicesFunc = orig }()
	paDevicesFunc = func() ([]*portaudio.DeviceInfo, error) {
		return nil, fmt.Errorf("mock error")
	}

	_, err := HostDevices()
	if err == nil || !strings.Contains(err.Error(), "mock error") {
		t.Errorf("expected mock error, got %v", err)
	}
}

func TestOutputDevice(t *testing.T) {
	withMockDevices(t, mockDevices)

	t.Run("Default output device", func(t *testing.T) {
		dev, err := OutputDevice(-1)
		if err != nil {
			t.Fatalf("OutputDevice(-1) error: %v", err)
		}
		if dev.Name != "Built-in Speakers" {
			t.Errorf("default device = %q", dev.Name)
		}
	})

	t.Run("Valid output device", func(t *testing.T) {
		dev, err := OutputDevice(2)
		if err != nil {
			t.Fatalf("OutputDevice(2) error: %v", err)
		}
		if dev.Name != "USB Interface" {
			t.Errorf("device = %q", dev.Name)
		}
	})

	tests := []struct {
		name   string
		id     int
		substr string
	}{
		{"Negative ID", -2, "invalid device ID"},
		{"Too high ID", len(mockDevices) + 10, "invalid device ID"},
		{"Non-output device", 0, "does not support output"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := OutputDevice(tt.id)
			if err == nil {
				t.Errorf("Expected error for ID %d", tt.id)
			} else if !strings.Contains(err.Error(), tt.substr) {
				t.Errorf("Error = %q, want substring %q", err.Error(), tt.substr)
			}
		})
	}
}

func TestOutputDevice_paDevicesError(t *testing.T) {
	orig := paDevicesFunc
	defer func() { paDevicesFunc = orig }()
	paDevicesFunc = func() ([]*portaudio.DeviceInfo, error) {
		return nil, fmt.Errorf("mock error")
	}

	_, err := OutputDevice(-1)
	if err == nil || !strings.Contains(err.Error(), "mock error") {
		t.Errorf("expected mock error, got %v", err)
	}
}

func TestOutputDevice_paDefaultOutputDeviceError(t *testing.T) {
	withMockDevices(t, mockDevices)
	paLibDefaultOutputDeviceFunc = func() (*portaudio.DeviceInfo, error) {
		return nil, fmt.Errorf("mock default output error")
	}

	_, err := OutputDevice(-1)
	if err == nil || !strings.Contains(err.Error(), "mock default output error") {
		t.Errorf("expected mock error, got %v", err)
	}
}

func TestListDevices(t *testing.T) {
	withMockDevices(t, mockDevices)

	var buf bytes.Buffer
	if err := ListDevices(&buf); err != nil {
		t.Fatalf("ListDevices error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"[0] Built-in Microphone (Input)",
		"[1] Built-in Speakers (Output)",
		"[2] USB Interface (Input/Output)",
		"Output latency: Low=5.00ms, High=20.00ms",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("ListDevices output missing %q:\n%s", want, out)
		}
	}
}

func TestErrorInitialize(t *testing.T) {
	orig := paLibInitialize
	defer func() { paLibInitialize = orig }()

	paLibInitialize = func() error { return nil }
	if err := Initialize(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}

	paLibInitialize = func() error { return fmt.Errorf("mock init error") }
	if err := Initialize(); err == nil || !strings.Contains(err.Error(), "mock init error") {
		t.Errorf("expected mock init error, got %v", err)
	}
}

func TestErrorTerminate(t *testing.T) {
	orig := paLibTerminate
	defer func() { paLibTerminate = orig }()

	paLibTerminate = func() error { return nil }
	if err := Terminate(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}

	paLibTerminate = func() error { return fmt.Errorf("mock term error") }
	if err := Terminate(); err == nil || !strings.Contains(err.Error(), "mock term error") {
		t.Errorf("expected mock term error, got %v", err)
	}
}

func TestGetDevices(t *testing.T) {
	withMockDevices(t, mockDevices)
	origInit, origTerm := paLibInitialize, paLibTerminate
	defer func() { paLibInitialize, paLibTerminate = origInit, origTerm }()

	var terminated bool
	paLibInitialize = func() error { return nil }
	paLibTerminate = func() error { terminated = true; return nil }

	devices, err := GetDevices()
	if err != nil {
		t.Fatalf("GetDevices error: %v", err)
	}
	if len(devices) != len(mockDevices) {
		t.Errorf("GetDevices() len = %d, want %d", len(devices), len(mockDevices))
	}
	if !terminated {
		t.Error("GetDevices did not terminate PortAudio")
	}

	paLibInitialize = func() error { return fmt.Errorf("no host") }
	if _, err := GetDevices(); err == nil {
		t.Error("expected initialize error")
	}
}

func TestNilDevices(t *testing.T) {
	orig := paLibDevicesFunc
	defer func() { paLibDevicesFunc = orig }()
	paLibDevicesFunc = func() ([]*portaudio.DeviceInfo, error) {
		return nil, nil
	}

	devices, err := paDevices()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if devices == nil {
		t.Errorf("expected empty slice, got nil")
	}
	if len(devices) != 0 {
		t.Errorf("expected length 0, got %d", len(devices))
	}
}

func TestPortAudioNotInitialized(t *testing.T) {
	orig := paLibDevicesFunc
	defer func() { paLibDevicesFunc = orig }()
	paLibDevicesFunc = func() ([]*portaudio.DeviceInfo, error) {
		return nil, fmt.Errorf("PortAudio not initialized")
	}

	devices, err := paDevices()
	if err == nil || !strings.Contains(err.Error(), "PortAudio not initialized") {
		t.Errorf("expected 'PortAudio not initialized' error, got %v", err)
	}
	if devices != nil {
		t.Errorf("expected devices to be nil on error, got %v", devices)
	}
}
