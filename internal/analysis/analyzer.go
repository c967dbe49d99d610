// SPDX-License-Identifier: MIT
/*
Package analysis reduces fixed-length blocks of mono float samples to a
loudness value plus a handful of band values, all in [0,1].

Pipeline per block:
  - RMS over the raw time-domain samples
  - Hann window, complex forward transform, magnitudes of bins [0, N/2)
  - either first-match band averaging (ModeBands) or a mel filter bank
    (ModeMel)
  - normalization, linear clamp or decibel range, per Config
  - optionally a BandMeter that rescales bands to their recent range

Thread Safety:
  - An Analyzer owns pre-allocated buffers and must be driven by one
    goroutine, normally the audio callback
  - MelFilterBank and window coefficients are immutable after construction
*/
package analysis

import (
	"fmt"
	"strings"
)

// Mode selects how the spectrum is reduced to bands.
type Mode int

const (
	// ModeBands averages magnitudes between configured upper bounds.
	ModeBands Mode = iota
	// ModeMel applies a triangular mel filter bank.
	ModeMel
)

func (m Mode) String() string {
	switch m {
	case ModeBands:
		return "bands"
	case ModeMel:
		return "mel"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode accepts "bands" or "mel". Empty selects bands.
func ParseMode(name string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "bands", "band":
		return ModeBands, nil
	case "mel":
		return ModeMel, nil
	default:
		return ModeBands, fmt.Errorf("%w: unknown analysis mode %q", ErrConfig, name)
	}
}

// Config is everything an Analyzer needs. There are no package-level
// defaults in the hot path; DefaultConfig documents the stock deployment.
type Config struct {
	BlockLength int     // Samples per block, N.
	SampleRate  float64 // Hz.
	Mode        Mode
	Window      WindowFunc

	BandEdges []float64 // ModeBands: ascending upper bounds in Hz.

	MelBands int     // ModeMel: number of filters, K.
	MelMinHz float64 // ModeMel: lower edge of the first filter.
	MelMaxHz float64 // ModeMel: upper edge of the last filter.

	MinDB    float64 // Reads as 0.
	MelMinDB float64 // ModeMel: floor for mel energies, reads as 0.
	MaxDB    float64 // Reads as 1.
	Epsilon  float64 // Floor applied before taking the logarithm.

	BandScale Scale // ModeBands only; mel energies are always in dB.
	RMSScale  Scale

	Adaptive  bool    // Rescale bands with a BandMeter.
	Smoothing float64 // BandMeter smoothing factor.
}

// DefaultConfig returns the five-band deployment: 1024-sample blocks at
// 48 kHz, bands and RMS both on a -60..0 dB scale, mel energies on -80..0 dB.
func DefaultConfig() Config {
	return Config{
		BlockLength: 1024,
		SampleRate:  48000,
		Mode:        ModeBands,
		Window:      Hann,
		BandEdges:   append([]float64(nil), DefaultBandEdges...),
		MelBands:    12,
		MelMinHz:    20,
		MelMaxHz:    20000,
		MinDB:       DefaultMinDB,
		MelMinDB:    DefaultMelMinDB,
		MaxDB:       DefaultMaxDB,
		Epsilon:     DefaultEpsilon,
		BandScale:   ScaleDecibel,
		RMSScale:    ScaleDecibel,
		Smoothing:   0.1,
	}
}

// Result is the outcome of analyzing one block. It is not modified after
// Analyze returns it.
type Result struct {
	RMS   float64
	Bands []float64
}

// Analyzer runs the full per-block pipeline.
type Analyzer struct {
	cfg       Config
	spectrum  *SpectrumAnalyzer
	bands     *BandExtractor
	mel       *MelFilterBank
	norm      Normalizer
	melNorm   Normalizer
	meter     *BandMeter
	bandCount int
}

// NewAnalyzer validates cfg and pre-allocates everything the hot path needs.
func NewAnalyzer(cfg Config) (*Analyzer, error) {
	norm, err := NewNormalizer(cfg.MinDB, cfg.MaxDB, cfg.Epsilon)
	if err != nil {
		return nil, err
	}

	spectrum, err := NewSpectrumAnalyzer(cfg.BlockLength, NewWindow(cfg.BlockLength, cfg.Window))
	if err != nil {
		return nil, err
	}

	a := &Analyzer{cfg: cfg, spectrum: spectrum, norm: norm}

	switch cfg.Mode {
	case ModeBands:
		a.bands, err = NewBandExtractor(cfg.BandEdges, cfg.SampleRate, cfg.BlockLength)
		if err != nil {
			return nil, err
		}
		a.bandCount = a.bands.Len()
	case ModeMel:
		a.mel, err = NewMelFilterBank(cfg.SampleRate, cfg.BlockLength, cfg.MelBands, cfg.MelMinHz, cfg.MelMaxHz)
		if err != nil {
			return nil, err
		}
		a.melNorm, err = NewNormalizer(cfg.MelMinDB, cfg.MaxDB, cfg.Epsilon)
		if err != nil {
			return nil, err
		}
		a.bandCount = a.mel.Len()
	default:
		return nil, fmt.Errorf("%w: unknown mode %v", ErrConfig, cfg.Mode)
	}

	if cfg.Adaptive {
		a.meter, err = NewBandMeter(a.bandCount, cfg.Smoothing)
		if err != nil {
			return nil, err
		}
	}

	return a, nil
}

// Config returns the configuration the analyzer was built with.
func (a *Analyzer) Config() Config {
	return a.cfg
}

// BandCount returns the number of band values per Result.
func (a *Analyzer) BandCount() int {
	return a.bandCount
}

// Analyze returns a fresh Result for block. It fails only when the block
// violates the configured length or sample rate.
func (a *Analyzer) Analyze(block []float32, sampleRate float64) (Result, error) {
	res := Result{Bands: make([]float64, a.bandCount)}
	if err := a.AnalyzeInto(block, sampleRate, &res); err != nil {
		return Result{}, err
	}
	return res, nil
}

// AnalyzeInto is Analyze without the allocation: dst.Bands is reused when it
// has room for BandCount values.
func (a *Analyzer) AnalyzeInto(block []float32, sampleRate float64, dst *Result) error {
	if sampleRate != a.cfg.SampleRate {
		return fmt.Errorf("%w: got %.0f Hz, want %.0f Hz", ErrSampleRate, sampleRate, a.cfg.SampleRate)
	}

	spectrum, err := a.spectrum.Compute(block)
	if err != nil {
		return err
	}

	if cap(dst.Bands) < a.bandCount {
		dst.Bands = make([]float64, a.bandCount)
	}
	dst.Bands = dst.Bands[:a.bandCount]

	if a.mel != nil {
		a.mel.Apply(spectrum, a.melNorm, dst.Bands)
	} else {
		a.bands.Extract(spectrum, dst.Bands)
		for i, v := range dst.Bands {
			dst.Bands[i] = a.norm.Apply(a.cfg.BandScale, v)
		}
	}

	if a.meter != nil {
		a.meter.Update(dst.Bands, dst.Bands)
	}

	dst.RMS = a.norm.Apply(a.cfg.RMSScale, RMS(block))
	return nil
}
