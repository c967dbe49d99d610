// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
)

// Pre-allocated buffers for the transform.
type spectrumWorkspace struct {
	input     []complex128 // Windowed block as complex samples with zero imaginary part.
	output    []complex128 // Transform coefficients, length N.
	magnitude []float64    // Magnitudes of the first N/2 coefficients.
}

// SpectrumAnalyzer windows a fixed-length block and produces its magnitude
// spectrum. It owns its buffers and is not safe for concurrent use; one
// analyzer belongs to one audio callback.
type SpectrumAnalyzer struct {
	size      int
	window    []float64
	scale     float64 // 2/sum(window): a full-scale sine reads 1.0 at its bin.
	fft       *fourier.CmplxFFT
	workspace spectrumWorkspace
}

// NewSpectrumAnalyzer pre-allocates every buffer needed to transform blocks of
// length size. window must have the same length and is only read.
func NewSpectrumAnalyzer(size int, window []float64) (*SpectrumAnalyzer, error) {
	if size < 2 || size%2 != 0 {
		return nil, fmt.Errorf("%w: transform size must be even and >= 2, got %d", ErrConfig, size)
	}
	if len(window) != size {
		return nil, fmt.Errorf("%w: window length %d does not match transform size %d", ErrConfig, len(window), size)
	}

	sum := floats.Sum(window)
	if !(sum > 0) {
		return nil, fmt.Errorf("%w: window coefficients must sum to a positive value, got %v", ErrConfig, sum)
	}

	return &SpectrumAnalyzer{
		size:   size,
		window: window,
		scale:  2 / sum,
		fft:    fourier.NewCmplxFFT(size),
		workspace: spectrumWorkspace{
			input:     make([]complex128, size),
			output:    make([]complex128, size),
			magnitude: make([]float64, size/2),
		},
	}, nil
}

// Size returns the block length the analyzer accepts.
func (s *SpectrumAnalyzer) Size() int {
	return s.size
}

// Bins returns the number of magnitude bins produced per block (N/2).
func (s *SpectrumAnalyzer) Bins() int {
	return len(s.workspace.magnitude)
}

// Compute returns the single-sided amplitude spectrum of block, scaled by
// 2/sum(window) so a sine of amplitude A peaks at A. The returned slice is
// owned by the analyzer and is overwritten by the next call.
//
// The upper half of the transform of a real signal mirrors the lower half, so
// only bins [0, N/2) are kept.
func (s *SpectrumAnalyzer) Compute(block []float32) ([]float64, error) {
	if len(block) != s.size {
		return nil, fmt.Errorf("%w: got %d samples, want %d", ErrBlockLength, len(block), s.size)
	}

	ws := &s.workspace
	for i, sample := range block {
		ws.input[i] = complex(float64(sample)*s.window[i], 0)
	}

	s.fft.Coefficients(ws.output, ws.input)

	for i := range ws.magnitude {
		ws.magnitude[i] = cmplx.Abs(ws.output[i]) * s.scale
	}
	return ws.magnitude, nil
}
