// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math"
)

// DefaultBandEdges are the upper bounds (Hz) of the default five-band schema:
// bass, low mids, mids, high mids, highs.
var DefaultBandEdges = []float64{20, 250, 500, 2000, 6000}

// DefaultBandNames labels DefaultBandEdges in wire-record order.
var DefaultBandNames = []string{"bass", "low_mids", "mids", "high_mids", "highs"}

// BandExtractor averages spectrum magnitudes over an ordered set of frequency
// bands. A bin belongs to the first band whose upper bound is >= the bin's
// center frequency; a bin above every bound belongs to no band.
//
// The bin-to-band table is computed once so Extract does not allocate.
type BandExtractor struct {
	edges      []float64
	sampleRate float64
	blockLen   int
	assignment []int // band index per bin, -1 when dropped
	sums       []float64
	counts     []int
}

// NewBandExtractor builds an extractor for spectra of blockLength/2 bins
// captured at sampleRate. edges must be non-empty and strictly ascending.
func NewBandExtractor(edges []float64, sampleRate float64, blockLength int) (*BandExtractor, error) {
	if err := validateEdges(edges); err != nil {
		return nil, err
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate must be positive, got %f", ErrConfig, sampleRate)
	}
	if blockLength < 2 {
		return nil, fmt.Errorf("%w: block length must be >= 2, got %d", ErrConfig, blockLength)
	}

	e := &BandExtractor{
		edges:      append([]float64(nil), edges...),
		sampleRate: sampleRate,
		blockLen:   blockLength,
		assignment: make([]int, blockLength/2),
		sums:       make([]float64, len(edges)),
		counts:     make([]int, len(edges)),
	}
	for i := range e.assignment {
		e.assignment[i] = e.bandFor(e.BinFrequency(i))
	}
	return e, nil
}

func validateEdges(edges []float64) error {
	if len(edges) == 0 {
		return fmt.Errorf("%w: at least one band edge is required", ErrConfig)
	}
	for i, edge := range edges {
		if math.IsNaN(edge) || math.IsInf(edge, 0) || edge < 0 {
			return fmt.Errorf("%w: band edge %d is not a valid frequency: %v", ErrConfig, i, edge)
		}
		if i > 0 && edge <= edges[i-1] {
			return fmt.Errorf("%w: band edges must be strictly ascending (%v after %v)", ErrConfig, edge, edges[i-1])
		}
	}
	return nil
}

// bandFor returns the first band whose upper bound is >= freq, or -1.
func (e *BandExtractor) bandFor(freq float64) int {
	for b, upper := range e.edges {
		if freq <= upper {
			return b
		}
	}
	return -1
}

// BinFrequency returns the center frequency (Hz) of bin i.
func (e *BandExtractor) BinFrequency(i int) float64 {
	return float64(i) * e.sampleRate / float64(e.blockLen)
}

// Assign returns the band index of bin i, or -1 when the bin lies above the
// highest band edge or outside the spectrum.
func (e *BandExtractor) Assign(i int) int {
	if i < 0 || i >= len(e.assignment) {
		return -1
	}
	return e.assignment[i]
}

// Len returns the number of bands.
func (e *BandExtractor) Len() int {
	return len(e.edges)
}

// Coverage reports how many bins each band owns and how many bins are dropped.
// The per-band counts plus dropped always equal the number of bins.
func (e *BandExtractor) Coverage() (perBand []int, dropped int) {
	perBand = make([]int, len(e.edges))
	for _, b := range e.assignment {
		if b < 0 {
			dropped++
			continue
		}
		perBand[b]++
	}
	return perBand, dropped
}

// Extract writes the mean magnitude of each band into dst, which must hold
// Len() values. Bands without bins read 0.
func (e *BandExtractor) Extract(spectrum []float64, dst []float64) {
	for b := range e.sums {
		e.sums[b] = 0
		e.counts[b] = 0
	}

	n := min(len(spectrum), len(e.assignment))
	for i := range n {
		b := e.assignment[i]
		if b < 0 {
			continue
		}
		e.sums[b] += spectrum[i]
		e.counts[b]++
	}

	for b := range dst[:len(e.edges)] {
		if e.counts[b] > 0 {
			dst[b] = e.sums[b] / float64(e.counts[b])
		} else {
			dst[b] = 0
		}
	}
}
