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

func fakeDevices() []*portaudio.DeviceInfo {
	return []*portaudio.DeviceInfo{
		{
			Name:                    "Built-in Microphone",
			MaxInputChannels:        2,
			DefaultSampleRate:       48000,
			DefaultLowInputLatency:  3 * time.Millisecond,
			DefaultHighInputLatency: 12 * time.Millisecond,
		},
		{
			Name:              "Built-in Output",
			MaxOutputChannels: 2,
			DefaultSampleRate: 48000,
		},
		{
			Name:              "Interface",
			MaxInputChannels:  8,
			MaxOutputChannels: 8,
			DefaultSampleRate: 96000,
		},
	}
}

// stubPortAudio replaces the PortAudio entry points for the duration of t.
func stubPortAudio(t *testing.T, devices []*portaudio.DeviceInfo, err error) {
	t.Helper()
	origDevices, origDefault := paDevices, paDefaultInputDevice
	t.Cleanup(func() {
		paDevices, paDefaultInputDevice = origDevices, origDefault
	})

	paDevices = func() ([]*portaudio.DeviceInfo, error) { return devices, err }
	paDefaultInputDevice = func() (*portaudio.DeviceInfo, error) {
		if err != nil {
			return nil, err
		}
		return devices[0], nil
	}
}

func TestHostDevices(t *testing.T) {
	stubPortAudio(t, fakeDevices(), nil)

	devices, err := HostDevices()
	if err != nil {
		t.Fatalf("HostDevices error: %v", err)
	}
	if len(devices) != 3 {
		t.Fatalf("got %d devices, want 3", len(devices))
	}
	for i, d := range devices {
		if d.ID != i {
			t.Errorf("Device ID mismatch: got %d, want %d", d.ID, i)
		}
		if d.Name == "" {
			t.Errorf("Device %d has empty name", i)
		}
	}
	if devices[0].DefaultLowInputLatency != 3*time.Millisecond {
		t.Errorf("latency not copied: %v", devices[0].DefaultLowInputLatency)
	}
}

func TestHostDevices_paDevicesError(t *testing.T) {
	stubPortAudio(t, nil, fmt.Errorf("mock error"))

	_, err := HostDevices()
	if err == nil || !strings.Contains(err.Error(), "mock error") {
		t.Errorf("expected mock error, got %v", err)
	}
}

func TestInputDevice(t *testing.T) {
	stubPortAudio(t, fakeDevices(), nil)

	dev, err := InputDevice(DefaultDeviceID)
	if err != nil || dev.Name != "Built-in Microphone" {
		t.Errorf("InputDevice(default) = %v, %v", dev, err)
	}
	if dev, err := InputDevice(2); err != nil || dev.Name != "Interface" {
		t.Errorf("InputDevice(2) = %v, %v", dev, err)
	}

	tests := []struct {
		name   string
		id     int
		substr string
	}{
		{"Negative ID", -2, "invalid device ID"},
		{"Too high ID", 13, "invalid device ID"},
		{"Non-input device", 1, "has no input channels"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := InputDevice(tt.id)
			if err == nil {
				t.Errorf("Expected error for ID %d", tt.id)
			} else if !strings.Contains(err.Error(), tt.substr) {
				t.Errorf("Error = %q, want substring %q", err.Error(), tt.substr)
			}
		})
	}
}

func TestInputDevice_Errors(t *testing.T) {
	stubPortAudio(t, nil, fmt.Errorf("mock default input error"))

	for _, id := range []int{DefaultDeviceID, 0} {
		_, err := InputDevice(id)
		if err == nil || !strings.Contains(err.Error(), "mock default input error") {
			t.Errorf("InputDevice(%d): expected mock error, got %v", id, err)
		}
	}
}

func TestInitializeTerminateErrors(t *testing.T) {
	origInit, origTerm := paInitialize, paTerminate
	defer func() { paInitialize, paTerminate = origInit, origTerm }()

	paInitialize = func() error { return nil }
	paTerminate = func() error { return nil }
	if err := Initialize(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
	if err := Terminate(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}

	paInitialize = func() error { return fmt.Errorf("mock init error") }
	paTerminate = func() error { return fmt.Errorf("mock term error") }
	if err := Initialize(); err == nil || !strings.Contains(err.Error(), "mock init error") {
		t.Errorf("expected mock init error, got %v", err)
	}
	if err := Terminate(); err == nil || !strings.Contains(err.Error(), "mock term error") {
		t.Errorf("expected mock term error, got %v", err)
	}
}

func TestListDevices(t *testing.T) {
	stubPortAudio(t, fakeDevices(), nil)

	var out bytes.Buffer
	if err := ListDevices(&out); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"[0] Built-in Microphone (Input)",
		"[1] Built-in Output (Output)",
		"[2] Interface (Input/Output)",
		"Latency: Low=3.00ms, High=12.00ms",
		"Default sample rate: 96000 Hz",
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}
