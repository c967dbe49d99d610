// SPDX-License-Identifier: MIT
package analysis

import "fmt"

// minMeterRange is the smallest min/max spread that still produces a reading.
const minMeterRange = 1e-9

// BandMeter adapts band values to their recent dynamic range. Per band it
// keeps a smoothed value and a min/max envelope; the envelope jumps to new
// extremes and otherwise decays toward the smoothed value by the smoothing
// factor on every update.
//
// The meter is stateful and belongs to a single analyzer.
type BandMeter struct {
	smoothing float64
	value     []float64
	lo        []float64
	hi        []float64
	primed    bool
}

// NewBandMeter returns a meter for bands values. smoothing must be in (0,1];
// 1 follows the input without memory.
func NewBandMeter(bands int, smoothing float64) (*BandMeter, error) {
	if bands < 1 {
		return nil, fmt.Errorf("%w: meter needs at least one band, got %d", ErrConfig, bands)
	}
	if !(smoothing > 0 && smoothing <= 1) {
		return nil, fmt.Errorf("%w: smoothing must be in (0,1], got %v", ErrConfig, smoothing)
	}
	return &BandMeter{
		smoothing: smoothing,
		value:     make([]float64, bands),
		lo:        make([]float64, bands),
		hi:        make([]float64, bands),
	}, nil
}

// Update feeds one set of band values and writes each band's position within
// its envelope, in [0,1], to dst. in and dst may be the same slice. A band
// whose envelope has collapsed reads 0.
func (m *BandMeter) Update(in []float64, dst []float64) {
	s := m.smoothing
	for b := range m.value {
		x := in[b]
		if !m.primed {
			m.value[b], m.lo[b], m.hi[b] = x, x, x
		}

		m.value[b] += s * (x - m.value[b])
		if x > m.hi[b] {
			m.hi[b] = x
		} else {
			m.hi[b] -= s * (m.hi[b] - m.value[b])
		}
		if x < m.lo[b] {
			m.lo[b] = x
		} else {
			m.lo[b] += s * (m.value[b] - m.lo[b])
		}

		spread := m.hi[b] - m.lo[b]
		if spread < minMeterRange {
			dst[b] = 0
			continue
		}
		dst[b] = LinearClamp((m.value[b] - m.lo[b]) / spread)
	}
	m.primed = true
}

// Envelope returns the current smoothed value, minimum and maximum of band b.
func (m *BandMeter) Envelope(b int) (value, lo, hi float64) {
	return m.value[b], m.lo[b], m.hi[b]
}

// Reset forgets all history.
func (m *BandMeter) Reset() {
	m.primed = false
}
