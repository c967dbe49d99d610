// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"audiomon/internal/analysis"
	applog "audiomon/internal/log"
	"audiomon/pkg/bitint"
)

var log = applog.New("config")

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`     // Enable debug mode (forces debug logging).
	LogLevel  string          `yaml:"log_level"` // Logging level ("debug", "info", "warn", "error").
	Audio     AudioConfig     `yaml:"audio"`     // Audio input settings.
	Analysis  AnalysisConfig  `yaml:"analysis"`  // Spectral analysis settings.
	Transport TransportConfig `yaml:"transport"` // Broadcast socket settings.
}

// AudioConfig holds settings related to audio input.
type AudioConfig struct {
	InputDevice   int     `yaml:"input_device"`   // PortAudio device index for audio input (-1 for default).
	InputChannels int     `yaml:"input_channels"` // Channels to capture; down-mixed to mono.
	SampleRate    float64 `yaml:"sample_rate"`    // Sample rate in Hz (e.g., 44100, 48000).
	BlockLength   int     `yaml:"block_length"`   // Samples per analysis block; also the FFT size.
	LowLatency    bool    `yaml:"low_latency"`    // Request low latency settings from PortAudio device.
	InputFile     string  `yaml:"input_file"`     // Read WAV/MP3/Ogg instead of capturing, when set.
	Loop          bool    `yaml:"loop"`           // Restart the input file at its end.
	Realtime      bool    `yaml:"realtime"`       // Pace file blocks at the capture rate.
}

// AnalysisConfig mirrors analysis.Config with names suitable for a file.
type AnalysisConfig struct {
	Mode      string    `yaml:"mode"`          // "bands" or "mel".
	Window    string    `yaml:"window"`        // Window function name, e.g. "hann".
	BandEdges []float64 `yaml:"band_edges_hz"` // Ascending inclusive upper edges in Hz.
	BandNames []string  `yaml:"band_names"`    // Labels for the header line; optional.
	MelBands  int       `yaml:"mel_bands"`
	MelMinHz  float64   `yaml:"mel_min_hz"`
	MelMaxHz  float64   `yaml:"mel_max_hz"`
	MinDB     float64   `yaml:"min_db"`
	MelMinDB  float64   `yaml:"mel_min_db"` // Floor for mel energies.
	MaxDB     float64   `yaml:"max_db"`
	Epsilon   float64   `yaml:"epsilon"`
	BandScale string    `yaml:"band_scale"` // "db" or "linear".
	RMSScale  string    `yaml:"rms_scale"`  // "db" or "linear".
	Adaptive  bool      `yaml:"adaptive"`
	Smoothing float64   `yaml:"smoothing"`
}

// TransportConfig holds settings for the Unix socket broadcaster.
type TransportConfig struct {
	SocketPath     string        `yaml:"socket_path"`     // Filesystem path of the listening socket.
	Precision      int           `yaml:"precision"`       // Decimals per record field.
	ClientBuffer   int           `yaml:"client_buffer"`   // Records queued per client before the oldest is dropped.
	WriteTimeout   time.Duration `yaml:"write_timeout"`   // Per-record write deadline.
	ReportInterval time.Duration `yaml:"report_interval"` // Interval between status lines.
}

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches default locations ("audiomon.yaml", then "config.yaml"). If no file is
// found, it uses built-in defaults. After loading defaults or from file, it applies
// environment variable overrides and validates the final configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		candidates := []string{
			"audiomon.yaml",
			"config.yaml",
		}
		found := false
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				found = true
				break
			}
		}
		if !found {
			cfg.applyEnvOverrides()
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("invalid default configuration: %w", err)
			}
			return &cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply environment variable overrides AFTER loading from file.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate reports the first setting that cannot produce a working monitor.
func (c *Config) Validate() error {
	if _, ok := applog.ParseLevel(c.LogLevel); !ok && c.LogLevel != "" {
		return fmt.Errorf("log_level %q is not one of debug, info, warn, error, fatal", c.LogLevel)
	}

	// Audio
	a := c.Audio
	if a.InputDevice < MinDeviceID {
		return fmt.Errorf("audio.input_device must be >= %d, got %d", MinDeviceID, a.InputDevice)
	}
	if a.InputChannels < 1 || a.InputChannels > MaxInputChannel {
		return fmt.Errorf("audio.input_channels must be in [1, %d], got %d", MaxInputChannel, a.InputChannels)
	}
	if a.SampleRate < MinSampleRate || a.SampleRate > MaxSampleRate {
		return fmt.Errorf("audio.sample_rate must be in [%d, %d], got %g", MinSampleRate, MaxSampleRate, a.SampleRate)
	}
	if a.BlockLength < 2 || a.BlockLength%2 != 0 || a.BlockLength > MaxBlockLength {
		return fmt.Errorf("audio.block_length must be even and in [2, %d], got %d", MaxBlockLength, a.BlockLength)
	}
	if a.Loop && a.InputFile == "" {
		return errors.New("audio.loop requires audio.input_file")
	}

	// Analysis
	n := c.Analysis
	if len(n.BandEdges) == 0 {
		return errors.New("analysis.band_edges_hz must not be empty")
	}
	for i := 1; i < len(n.BandEdges); i++ {
		if n.BandEdges[i] <= n.BandEdges[i-1] {
			return fmt.Errorf("analysis.band_edges_hz must be strictly ascending: %g follows %g",
				n.BandEdges[i], n.BandEdges[i-1])
		}
	}
	if n.BandEdges[0] < 0 {
		return fmt.Errorf("analysis.band_edges_hz must be non-negative, got %g", n.BandEdges[0])
	}
	if len(n.BandNames) != 0 && len(n.BandNames) != len(n.BandEdges) {
		return fmt.Errorf("analysis.band_names has %d entries for %d bands", len(n.BandNames), len(n.BandEdges))
	}
	if n.MelBands < 1 {
		return fmt.Errorf("analysis.mel_bands must be at least 1, got %d", n.MelBands)
	}
	if n.MelMinHz < 0 || n.MelMinHz >= n.MelMaxHz {
		return fmt.Errorf("analysis.mel_min_hz (%g) must be non-negative and below mel_max_hz (%g)", n.MelMinHz, n.MelMaxHz)
	}
	if n.MinDB >= n.MaxDB {
		return fmt.Errorf("analysis.min_db (%g) must be below max_db (%g)", n.MinDB, n.MaxDB)
	}
	if n.MelMinDB >= n.MaxDB {
		return fmt.Errorf("analysis.mel_min_db (%g) must be below max_db (%g)", n.MelMinDB, n.MaxDB)
	}
	if n.Epsilon <= 0 {
		return fmt.Errorf("analysis.epsilon must be positive, got %g", n.Epsilon)
	}
	if n.Smoothing <= 0 || n.Smoothing > 1 {
		return fmt.Errorf("analysis.smoothing must be in (0, 1], got %g", n.Smoothing)
	}
	if _, err := analysis.ParseMode(n.Mode); err != nil {
		return fmt.Errorf("analysis.mode: %w", err)
	}
	if _, err := analysis.ParseWindowFunc(n.Window); err != nil {
		return fmt.Errorf("analysis.window: %w", err)
	}
	if _, err := analysis.ParseScale(n.BandScale); err != nil {
		return fmt.Errorf("analysis.band_scale: %w", err)
	}
	if _, err := analysis.ParseScale(n.RMSScale); err != nil {
		return fmt.Errorf("analysis.rms_scale: %w", err)
	}

	// Transport
	t := c.Transport
	if t.SocketPath == "" {
		return errors.New("transport.socket_path must be set")
	}
	if t.Precision < 0 || t.Precision > MaxPrecision {
		return fmt.Errorf("transport.precision must be in [0, %d], got %d", MaxPrecision, t.Precision)
	}
	if t.ClientBuffer < 1 {
		return fmt.Errorf("transport.client_buffer must be at least 1, got %d", t.ClientBuffer)
	}
	if t.WriteTimeout <= 0 {
		return fmt.Errorf("transport.write_timeout must be positive, got %s", t.WriteTimeout)
	}
	if t.ReportInterval <= 0 {
		return fmt.Errorf("transport.report_interval must be positive, got %s", t.ReportInterval)
	}

	return nil
}

// Warnings lists settings that are valid but probably unintended.
func (c *Config) Warnings() []string {
	var warnings []string
	if n := c.Audio.BlockLength; !bitint.IsPowerOfTwo(n) {
		warnings = append(warnings, fmt.Sprintf(
			"block_length %d is not a power of two; %d transforms faster",
			n, bitint.NextPowerOfTwo(n)))
	}
	nyquist := c.Audio.SampleRate / 2
	if edges := c.Analysis.BandEdges; len(edges) > 0 && edges[len(edges)-1] < nyquist {
		warnings = append(warnings, fmt.Sprintf(
			"last band edge %g Hz is below Nyquist (%g Hz); bins above it are not reported",
			edges[len(edges)-1], nyquist))
	}
	if c.isMel() && c.Analysis.MelMaxHz > nyquist {
		warnings = append(warnings, fmt.Sprintf(
			"mel_max_hz %g Hz exceeds Nyquist (%g Hz); the top filters will be silent",
			c.Analysis.MelMaxHz, nyquist))
	}
	return warnings
}

// Level resolves the effective log level. Debug forces LevelDebug.
func (c *Config) Level() applog.LogLevel {
	if c.Debug {
		return applog.LevelDebug
	}
	level, _ := applog.ParseLevel(c.LogLevel)
	return level
}

// AnalyzerConfig converts the analysis and audio sections into an
// analysis.Config.
func (c *Config) AnalyzerConfig() (analysis.Config, error) {
	mode, err := analysis.ParseMode(c.Analysis.Mode)
	if err != nil {
		return analysis.Config{}, err
	}
	window, err := analysis.ParseWindowFunc(c.Analysis.Window)
	if err != nil {
		return analysis.Config{}, err
	}
	bandScale, err := analysis.ParseScale(c.Analysis.BandScale)
	if err != nil {
		return analysis.Config{}, err
	}
	rmsScale, err := analysis.ParseScale(c.Analysis.RMSScale)
	if err != nil {
		return analysis.Config{}, err
	}

	return analysis.Config{
		BlockLength: c.Audio.BlockLength,
		SampleRate:  c.Audio.SampleRate,
		Mode:        mode,
		Window:      window,
		BandEdges:   append([]float64(nil), c.Analysis.BandEdges...),
		MelBands:    c.Analysis.MelBands,
		MelMinHz:    c.Analysis.MelMinHz,
		MelMaxHz:    c.Analysis.MelMaxHz,
		MinDB:       c.Analysis.MinDB,
		MelMinDB:    c.Analysis.MelMinDB,
		MaxDB:       c.Analysis.MaxDB,
		Epsilon:     c.Analysis.Epsilon,
		BandScale:   bandScale,
		RMSScale:    rmsScale,
		Adaptive:    c.Analysis.Adaptive,
		Smoothing:   c.Analysis.Smoothing,
	}, nil
}

// BandLabels returns the header names for the configured mode. Mel mode and
// unnamed band layouts yield nil, leaving broadcast.Header to number them.
func (c *Config) BandLabels() []string {
	if c.isMel() {
		return nil
	}
	return c.Analysis.BandNames
}

func (c *Config) isMel() bool {
	mode, err := analysis.ParseMode(c.Analysis.Mode)
	return err == nil && mode == analysis.ModeMel
}

// applyEnvOverrides lets the environment replace a handful of file settings
// (ENV_DEBUG, ENV_LOG_LEVEL, ENV_SOCKET_PATH, ENV_INPUT_FILE, ENV_ANALYSIS_MODE).
// Unparseable values are ignored with a warning.
func (cfg *Config) applyEnvOverrides() {
	// ENV_DEBUG
	if val, ok := os.LookupEnv("ENV_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Debug = bVal
			log.Infof("overriding debug from env: %v", bVal)
		} else {
			log.Warnf("ignoring ENV_DEBUG=%q: %v", val, err)
		}
	}
	// ENV_LOG_LEVEL
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		cfg.LogLevel = val
		log.Infof("overriding log_level from env: %s", val)
	}

	// ENV_SOCKET_PATH
	if val, ok := os.LookupEnv("ENV_SOCKET_PATH"); ok && val != "" {
		cfg.Transport.SocketPath = val
		log.Infof("overriding transport.socket_path from env: %s", val)
	}
	// ENV_INPUT_FILE
	if val, ok := os.LookupEnv("ENV_INPUT_FILE"); ok {
		cfg.Audio.InputFile = val
		log.Infof("overriding audio.input_file from env: %s", val)
	}
	// ENV_ANALYSIS_MODE
	if val, ok := os.LookupEnv("ENV_ANALYSIS_MODE"); ok {
		cfg.Analysis.Mode = val
		log.Infof("overriding analysis.mode from env: %s", val)
	}
}
