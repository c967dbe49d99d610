// SPDX-License-Identifier: MIT
package config

import (
	"time"

	"audiomon/internal/analysis"
)

// Core configuration constants that define the boundaries and defaults
// for the audio monitor.
const (
	// Audio input defaults
	DefaultDeviceID      = MinDeviceID // System default input device
	DefaultInputChannels = 1           // Mono capture
	DefaultSampleRate    = 48000       // Hz
	DefaultBlockLength   = 1024        // Samples per analysis block (~21 ms at 48 kHz)
	DefaultLowLatency    = false       // Standard latency mode

	// Analysis defaults
	DefaultMode      = "bands"
	DefaultWindow    = "hann"
	DefaultMelBands  = 12
	DefaultMelMinHz  = 20.0
	DefaultMelMaxHz  = 20000.0
	DefaultMinDB     = -60.0
	DefaultMelMinDB  = -80.0
	DefaultMaxDB     = 0.0
	DefaultEpsilon   = 1e-10
	DefaultScale     = "db"
	DefaultSmoothing = 0.1

	// Transport defaults
	DefaultSocketPath     = "/tmp/audio_monitor.sock"
	DefaultPrecision      = 1
	DefaultClientBuffer   = 8
	DefaultWriteTimeout   = 250 * time.Millisecond
	DefaultReportInterval = 10 * time.Second

	DefaultLogLevel = "info"

	// Hardware and processing limits
	MinDeviceID     = -1     // -1 represents system default device
	MinSampleRate   = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate   = 192000 // Maximum supported sample rate (Hz)
	MaxBlockLength  = 65536  // Largest analysis block
	MaxPrecision    = 6      // Decimals per record field
	MaxInputChannel = 64
)

// Default returns the built-in configuration used when no file is found.
func Default() Config {
	return Config{
		Debug:    false,
		LogLevel: DefaultLogLevel,
		Audio: AudioConfig{
			InputDevice:   DefaultDeviceID,
			InputChannels: DefaultInputChannels,
			SampleRate:    DefaultSampleRate,
			BlockLength:   DefaultBlockLength,
			LowLatency:    DefaultLowLatency,
			Realtime:      true,
		},
		Analysis: AnalysisConfig{
			Mode:      DefaultMode,
			Window:    DefaultWindow,
			BandEdges: append([]float64(nil), analysis.DefaultBandEdges...),
			BandNames: append([]string(nil), analysis.DefaultBandNames...),
			MelBands:  DefaultMelBands,
			MelMinHz:  DefaultMelMinHz,
			MelMaxHz:  DefaultMelMaxHz,
			MinDB:     DefaultMinDB,
			MelMinDB:  DefaultMelMinDB,
			MaxDB:     DefaultMaxDB,
			Epsilon:   DefaultEpsilon,
			BandScale: DefaultScale,
			RMSScale:  DefaultScale,
			Adaptive:  false,
			Smoothing: DefaultSmoothing,
		},
		Transport: TransportConfig{
			SocketPath:     DefaultSocketPath,
			Precision:      DefaultPrecision,
			ClientBuffer:   DefaultClientBuffer,
			WriteTimeout:   DefaultWriteTimeout,
			ReportInterval: DefaultReportInterval,
		},
	}
}
