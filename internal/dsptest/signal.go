// SPDX-License-Identifier: MIT

// Package dsptest generates deterministic test signals for the analysis and
// audio packages.
package dsptest

import "math"

// SineWave returns size samples of a sine at frequency Hz with the given peak
// amplitude.
func SineWave(size int, sampleRate, frequency, amplitude float64) []float32 {
	buffer := make([]float32, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = float32(amplitude * math.Sin(2*math.Pi*frequency*t))
	}
	return buffer
}

// ComplexWave returns a 440 Hz fundamental plus two harmonics, peaking below
// full scale.
func ComplexWave(size int, sampleRate float64) []float32 {
	buffer := make([]float32, size)
	for i := range buffer {
		tm := float64(i) / sampleRate
		signal := math.Sin(2*math.Pi*440*tm)*0.5 +
			math.Sin(2*math.Pi*880*tm)*0.3 +
			math.Sin(2*math.Pi*1320*tm)*0.2
		buffer[i] = float32(signal * 0.9)
	}
	return buffer
}

// Silence returns size zero samples.
func Silence(size int) []float32 {
	return make([]float32, size)
}

// Constant returns size samples all equal to v.
func Constant(size int, v float32) []float32 {
	buffer := make([]float32, size)
	for i := range buffer {
		buffer[i] = v
	}
	return buffer
}

// Interleave repeats every mono sample across channels, producing a
// frame-interleaved buffer.
func Interleave(mono []float32, channels int) []float32 {
	out := make([]float32, len(mono)*channels)
	for f, s := range mono {
		for c := range channels {
			out[f*channels+c] = s
		}
	}
	return out
}

// FindPeakBin returns the index of the largest magnitude in
// [startBin, endBin], clamping the range to the slice.
func FindPeakBin(magnitudes []float64, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}
	if startBin < 0 {
		startBin = 0
	}
	if endBin >= len(magnitudes) {
		endBin = len(magnitudes) - 1
	}

	peakBin := startBin
	peakValue := magnitudes[startBin]
	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > peakValue {
			peakValue = magnitudes[bin]
			peakBin = bin
		}
	}
	return peakBin
}
