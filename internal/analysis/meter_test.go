// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"audiomon/internal/dsptest"
)

func TestRMS(t *testing.T) {
	tests := []struct {
		name  string
		block []float32
		want  float64
		tol   float64
	}{
		{"Empty", nil, 0, 0},
		{"Silence", dsptest.Silence(1024), 0, 0},
		{"Constant", dsptest.Constant(1024, 0.5), 0.5, 1e-9},
		{"NegativeConstant", dsptest.Constant(16, -0.25), 0.25, 1e-9},
		{"FullScaleSine", dsptest.SineWave(48000, 48000, 1000, 1.0), 1 / math.Sqrt2, 1e-3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RMS(tt.block); math.Abs(got-tt.want) > tt.tol {
				t.Errorf("RMS() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewBandMeterValidation(t *testing.T) {
	for _, s := range []float64{0, -0.1, 1.5, math.NaN()} {
		if _, err := NewBandMeter(5, s); !errors.Is(err, ErrConfig) {
			t.Errorf("smoothing %v: err = %v, want ErrConfig", s, err)
		}
	}
	if _, err := NewBandMeter(0, 0.5); !errors.Is(err, ErrConfig) {
		t.Errorf("zero bands: err = %v, want ErrConfig", err)
	}
}

func TestBandMeterEnvelope(t *testing.T) {
	m, err := NewBandMeter(1, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	out := make([]float64, 1)

	m.Update([]float64{0}, out)
	if out[0] != 0 {
		t.Errorf("first update = %v, want 0 (collapsed envelope)", out[0])
	}

	m.Update([]float64{1}, out)
	value, lo, hi := m.Envelope(0)
	if value != 0.5 || lo != 0.25 || hi != 1 {
		t.Errorf("envelope = (%v, %v, %v), want (0.5, 0.25, 1)", value, lo, hi)
	}
	if math.Abs(out[0]-1.0/3) > 1e-12 {
		t.Errorf("second update = %v, want 1/3", out[0])
	}

	m.Reset()
	m.Update([]float64{0.7}, out)
	if value, _, _ := m.Envelope(0); value != 0.7 {
		t.Errorf("after Reset value = %v, want 0.7", value)
	}
}

func TestBandMeterStaysInRange(t *testing.T) {
	m, _ := NewBandMeter(5, 0.1)
	rng := rand.New(rand.NewSource(1))
	in := make([]float64, 5)
	for range 1000 {
		for i := range in {
			in[i] = rng.Float64()
		}
		m.Update(in, in)
		for b, v := range in {
			if v < 0 || v > 1 || math.IsNaN(v) {
				t.Fatalf("band %d = %v out of [0,1]", b, v)
			}
		}
	}
}
