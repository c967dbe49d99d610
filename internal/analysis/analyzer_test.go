// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"math"
	"testing"

	"audiomon/internal/dsptest"
)

func newTestAnalyzer(t testing.TB, mutate func(*Config)) *Analyzer {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	a, err := NewAnalyzer(cfg)
	if err != nil {
		t.Fatalf("NewAnalyzer: %v", err)
	}
	return a
}

func assertUnitRange(t *testing.T, res Result) {
	t.Helper()
	if res.RMS < 0 || res.RMS > 1 || math.IsNaN(res.RMS) {
		t.Errorf("RMS = %v out of [0,1]", res.RMS)
	}
	for i, v := range res.Bands {
		if v < 0 || v > 1 || math.IsNaN(v) {
			t.Errorf("band %d = %v out of [0,1]", i, v)
		}
	}
}

func TestAnalyzeSilence(t *testing.T) {
	for _, scale := range []Scale{ScaleDecibel, ScaleLinear} {
		t.Run(scale.String(), func(t *testing.T) {
			a := newTestAnalyzer(t, func(c *Config) {
				c.BandScale = scale
				c.RMSScale = scale
			})
			res, err := a.Analyze(dsptest.Silence(testBlockLength), testSampleRate)
			if err != nil {
				t.Fatal(err)
			}
			if res.RMS != 0 {
				t.Errorf("RMS = %v, want 0", res.RMS)
			}
			if len(res.Bands) != 5 {
				t.Fatalf("got %d bands, want 5", len(res.Bands))
			}
			for i, v := range res.Bands {
				if v != 0 {
					t.Errorf("band %d = %v, want 0", i, v)
				}
			}
		})
	}
}

func TestAnalyzeSineFavoursMids(t *testing.T) {
	a := newTestAnalyzer(t, nil)
	res, err := a.Analyze(dsptest.SineWave(testBlockLength, testSampleRate, 1000, 1.0), testSampleRate)
	if err != nil {
		t.Fatal(err)
	}
	assertUnitRange(t, res)

	for i, v := range res.Bands {
		if i != 3 && v >= res.Bands[3] {
			t.Errorf("band %d = %v not below band 3 = %v", i, v, res.Bands[3])
		}
	}
	// -3 dBFS on a -60..0 scale.
	if res.RMS < 0.9 {
		t.Errorf("RMS = %v, want > 0.9", res.RMS)
	}
}

func TestAnalyzeDecibelsRelativeToFullScale(t *testing.T) {
	// A single band around bin 21 (984.375 Hz) reads the bin directly.
	a := newTestAnalyzer(t, func(c *Config) { c.BandEdges = []float64{960, 990} })

	tests := []struct {
		name string
		amp  float64
		want float64
	}{
		{"FullScale", 1.0, 1},
		{"Minus20dBFS", 0.1, 2.0 / 3},
		{"Minus40dBFS", 0.01, 1.0 / 3},
		{"BelowFloor", 0.0005, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := a.Analyze(dsptest.SineWave(testBlockLength, testSampleRate, 984.375, tt.amp), testSampleRate)
			if err != nil {
				t.Fatal(err)
			}
			if got := res.Bands[1]; math.Abs(got-tt.want) > 0.01 {
				t.Errorf("band = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAnalyzeQuietSignalsDoNotSaturate(t *testing.T) {
	a := newTestAnalyzer(t, nil)
	res, err := a.Analyze(dsptest.SineWave(testBlockLength, testSampleRate, 1000, 0.1), testSampleRate)
	if err != nil {
		t.Fatal(err)
	}
	if res.Bands[3] <= 0 || res.Bands[3] >= 0.9 {
		t.Errorf("-20 dBFS tone: band 3 = %v, want inside (0, 0.9)", res.Bands[3])
	}

	mel := newTestAnalyzer(t, func(c *Config) { c.Mode = ModeMel })
	res, err = mel.Analyze(dsptest.SineWave(testBlockLength, testSampleRate, 1000, 0.1), testSampleRate)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range res.Bands {
		if v >= 1 {
			t.Errorf("-20 dBFS tone: mel band %d saturated", i)
		}
	}
}

func TestAnalyzeRejectsBadBlocks(t *testing.T) {
	a := newTestAnalyzer(t, nil)

	if _, err := a.Analyze(make([]float32, 512), testSampleRate); !errors.Is(err, ErrBlockLength) {
		t.Errorf("short block: err = %v, want ErrBlockLength", err)
	}
	if _, err := a.Analyze(make([]float32, testBlockLength), 44100); !errors.Is(err, ErrSampleRate) {
		t.Errorf("wrong rate: err = %v, want ErrSampleRate", err)
	}
}

func TestAnalyzeResultsAreIndependent(t *testing.T) {
	a := newTestAnalyzer(t, nil)
	first, _ := a.Analyze(dsptest.SineWave(testBlockLength, testSampleRate, 1000, 1.0), testSampleRate)
	snapshot := append([]float64(nil), first.Bands...)

	_, _ = a.Analyze(dsptest.Silence(testBlockLength), testSampleRate)
	for i := range snapshot {
		if first.Bands[i] != snapshot[i] {
			t.Fatalf("earlier result changed at band %d", i)
		}
	}
}

func TestAnalyzeMelMode(t *testing.T) {
	a := newTestAnalyzer(t, func(c *Config) { c.Mode = ModeMel })
	if a.BandCount() != 12 {
		t.Fatalf("BandCount = %d, want 12", a.BandCount())
	}

	silent, err := a.Analyze(dsptest.Silence(testBlockLength), testSampleRate)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range silent.Bands {
		if v != 0 {
			t.Errorf("silent mel band %d = %v, want 0", i, v)
		}
	}

	tone, _ := a.Analyze(dsptest.SineWave(testBlockLength, testSampleRate, 1000, 1.0), testSampleRate)
	assertUnitRange(t, tone)
	if peak := dsptest.FindPeakBin(tone.Bands, 0, len(tone.Bands)-1); tone.Bands[peak] == 0 {
		t.Errorf("no mel band responded to a full-scale tone: %v", tone.Bands)
	}
}

func TestAnalyzeMelFloor(t *testing.T) {
	// About -70 dB of mel energy: below the band floor, above the mel floor.
	block := dsptest.SineWave(testBlockLength, testSampleRate, 1000, 1e-7)

	a := newTestAnalyzer(t, func(c *Config) { c.Mode = ModeMel })
	res, err := a.Analyze(block, testSampleRate)
	if err != nil {
		t.Fatal(err)
	}
	peak := dsptest.FindPeakBin(res.Bands, 0, len(res.Bands)-1)
	if v := res.Bands[peak]; v <= 0 || v >= 0.5 {
		t.Errorf("mel band %d = %v, want inside (0, 0.5) on a -80 dB floor", peak, v)
	}

	shared := newTestAnalyzer(t, func(c *Config) {
		c.Mode = ModeMel
		c.MelMinDB = c.MinDB
	})
	res, _ = shared.Analyze(block, testSampleRate)
	if v := res.Bands[peak]; v != 0 {
		t.Errorf("mel band %d = %v on a -60 dB floor, want 0", peak, v)
	}
}

func TestAnalyzeAdaptive(t *testing.T) {
	a := newTestAnalyzer(t, func(c *Config) { c.Adaptive = true })
	blocks := [][]float32{
		dsptest.Silence(testBlockLength),
		dsptest.SineWave(testBlockLength, testSampleRate, 1000, 1.0),
		dsptest.ComplexWave(testBlockLength, testSampleRate),
		dsptest.SineWave(testBlockLength, testSampleRate, 100, 0.3),
	}
	for range 10 {
		for _, b := range blocks {
			res, err := a.Analyze(b, testSampleRate)
			if err != nil {
				t.Fatal(err)
			}
			assertUnitRange(t, res)
		}
	}
}

func TestNewAnalyzerValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"BadEdges", func(c *Config) { c.BandEdges = []float64{500, 20} }},
		{"OddBlock", func(c *Config) { c.BlockLength = 1023 }},
		{"BadRange", func(c *Config) { c.MinDB = 0; c.MaxDB = -60 }},
		{"BadMel", func(c *Config) { c.Mode = ModeMel; c.MelBands = 0 }},
		{"BadMelRange", func(c *Config) { c.Mode = ModeMel; c.MelMinDB = 0 }},
		{"BadSmoothing", func(c *Config) { c.Adaptive = true; c.Smoothing = 0 }},
		{"BadMode", func(c *Config) { c.Mode = Mode(9) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if _, err := NewAnalyzer(cfg); !errors.Is(err, ErrConfig) {
				t.Errorf("err = %v, want ErrConfig", err)
			}
		})
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode(""); m != ModeBands || err != nil {
		t.Errorf("ParseMode(\"\") = %v, %v", m, err)
	}
	if m, err := ParseMode("MEL"); m != ModeMel || err != nil {
		t.Errorf("ParseMode(MEL) = %v, %v", m, err)
	}
	if _, err := ParseMode("chroma"); !errors.Is(err, ErrConfig) {
		t.Errorf("ParseMode(chroma) err = %v, want ErrConfig", err)
	}
}

func TestAnalyzeIntoHotPath(t *testing.T) {
	a := newTestAnalyzer(t, nil)
	block := dsptest.ComplexWave(testBlockLength, testSampleRate)
	var res Result

	// First call sizes res.Bands.
	_ = a.AnalyzeInto(block, testSampleRate, &res)
	allocs := testing.AllocsPerRun(100, func() {
		_ = a.AnalyzeInto(block, testSampleRate, &res)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in AnalyzeInto, got %.1f", allocs)
	}
}

func BenchmarkAnalyze(b *testing.B) {
	for _, mode := range []Mode{ModeBands, ModeMel} {
		b.Run(mode.String(), func(b *testing.B) {
			a := newTestAnalyzer(b, func(c *Config) { c.Mode = mode })
			block := dsptest.ComplexWave(testBlockLength, testSampleRate)
			var res Result

			b.ReportAllocs()
			for b.Loop() {
				_ = a.AnalyzeInto(block, testSampleRate, &res)
			}
		})
	}
}
