// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// HzToMel converts a frequency in Hz to the mel scale.
func HzToMel(hz float64) float64 {
	return 2595 * math.Log10(1+hz/700)
}

// MelToHz converts a mel value back to Hz.
func MelToHz(mel float64) float64 {
	return 700 * (math.Pow(10, mel/2595) - 1)
}

// MelFilterBank holds K triangular filters spaced evenly on the mel scale.
// It is immutable after construction and safe to share between analyzers.
type MelFilterBank struct {
	filters [][]float64 // [band][bin], fftSize/2+1 bins each
	points  []int       // K+2 boundary bins
}

// NewMelFilterBank builds bands filters between minHz and maxHz for a
// transform of fftSize points at sampleRate.
//
// Filters whose left, center and right bins are not strictly increasing stay
// all zero; at low frequencies and coarse resolution several neighbouring
// mel points can round to the same bin.
func NewMelFilterBank(sampleRate float64, fftSize, bands int, minHz, maxHz float64) (*MelFilterBank, error) {
	switch {
	case sampleRate <= 0:
		return nil, fmt.Errorf("%w: sample rate must be positive, got %f", ErrConfig, sampleRate)
	case fftSize < 2:
		return nil, fmt.Errorf("%w: transform size must be >= 2, got %d", ErrConfig, fftSize)
	case bands < 1:
		return nil, fmt.Errorf("%w: mel band count must be >= 1, got %d", ErrConfig, bands)
	case minHz < 0 || !(minHz < maxHz):
		return nil, fmt.Errorf("%w: mel range must satisfy 0 <= min < max, got [%v, %v]", ErrConfig, minHz, maxHz)
	}

	maxBin := fftSize / 2
	minMel := HzToMel(minHz)
	maxMel := HzToMel(maxHz)

	points := make([]int, bands+2)
	for i := range points {
		mel := minMel + float64(i)/float64(bands+1)*(maxMel-minMel)
		bin := int(math.Round(MelToHz(mel) / sampleRate * float64(fftSize)))
		points[i] = max(0, min(bin, maxBin))
	}

	filters := make([][]float64, bands)
	for k := range filters {
		filter := make([]float64, maxBin+1)
		filters[k] = filter

		left, center, right := points[k], points[k+1], points[k+2]
		if left >= center || center >= right {
			continue
		}
		for j := left; j < center; j++ {
			filter[j] = float64(j-left) / float64(center-left)
		}
		for j := center; j < right; j++ {
			filter[j] = float64(right-j) / float64(right-center)
		}
	}

	return &MelFilterBank{filters: filters, points: points}, nil
}

// Len returns the number of filters.
func (m *MelFilterBank) Len() int {
	return len(m.filters)
}

// Filters returns the filter weights, indexed [band][bin]. Callers must not
// modify them.
func (m *MelFilterBank) Filters() [][]float64 {
	return m.filters
}

// Points returns the K+2 boundary bins the triangles were built from.
func (m *MelFilterBank) Points() []int {
	return m.points
}

// Apply weights spectrum by every filter, converts each energy to dB and
// writes the normalized value into dst (length Len()).
func (m *MelFilterBank) Apply(spectrum []float64, norm Normalizer, dst []float64) {
	for k, filter := range m.filters {
		n := min(len(filter), len(spectrum))
		energy := floats.Dot(filter[:n], spectrum[:n])
		dst[k] = norm.Energy(energy)
	}
}
