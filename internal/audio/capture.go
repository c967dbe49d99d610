// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/gordonklaus/portaudio"

	applog "audiomon/internal/log"
)

// CaptureSource reads blocks from a PortAudio input device.
type CaptureSource struct {
	DeviceID    int     // DefaultDeviceID selects the system default.
	Channels    int     // Input channels opened; down-mixed to mono.
	SampleRate  float64 // Hz.
	BlockLength int     // Frames per callback and per block.
	LowLatency  bool    // Use the device's low input latency instead of the high one.

	log *applog.Logger
}

// NewCaptureSource returns a source for the given device.
func NewCaptureSource(deviceID, channels int, sampleRate float64, blockLength int, lowLatency bool) *CaptureSource {
	return &CaptureSource{
		DeviceID:    deviceID,
		Channels:    channels,
		SampleRate:  sampleRate,
		BlockLength: blockLength,
		LowLatency:  lowLatency,
		log:         applog.New("capture"),
	}
}

// Run opens the input stream and delivers one block per PortAudio callback
// until ctx is done. PortAudio is initialized and terminated by Run.
func (s *CaptureSource) Run(ctx context.Context, handle BlockHandler) error {
	if err := Initialize(); err != nil {
		return err
	}
	defer func() {
		if err := Terminate(); err != nil {
			s.log.Warnf("%v", err)
		}
	}()

	device, err := InputDevice(s.DeviceID)
	if err != nil {
		return err
	}
	channels := s.Channels
	if channels < 1 {
		channels = 1
	}
	if channels > device.MaxInputChannels {
		return fmt.Errorf("device %q supports %d input channels, %d requested",
			device.Name, device.MaxInputChannels, channels)
	}

	latency := device.DefaultHighInputLatency
	if s.LowLatency {
		latency = device.DefaultLowInputLatency
	}

	// Pre-allocated; the callback must not allocate.
	mono := make([]float32, s.BlockLength)
	sampleRate := s.SampleRate

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: channels,
			Device:   device,
			Latency:  latency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0, // No output device
			Device:   nil,
		},
		FramesPerBuffer: s.BlockLength,
		SampleRate:      sampleRate,
	}

	stream, err := portaudio.OpenStream(params, func(in []float32) {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		frames := Downmix(mono, in, channels)
		handle(mono[:frames], sampleRate)
	})
	if err != nil {
		return fmt.Errorf("open input stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("start input stream: %w", err)
	}
	s.log.Infof("capturing from %q: %d ch, %.0f Hz, %d frames/block, latency %s",
		device.Name, channels, sampleRate, s.BlockLength, latency.Round(time.Microsecond))

	<-ctx.Done()

	if err := stream.Stop(); err != nil {
		return fmt.Errorf("stop input stream: %w", err)
	}
	s.log.Infof("capture stopped")
	return nil
}
