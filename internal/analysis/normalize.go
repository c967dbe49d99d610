// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math"
	"strings"
)

// Scale selects how raw magnitudes are mapped onto [0,1].
type Scale int

const (
	// ScaleDecibel converts to dB and maps [MinDB, MaxDB] onto [0,1].
	ScaleDecibel Scale = iota
	// ScaleLinear reports the raw value clamped to [0,1].
	ScaleLinear
)

func (s Scale) String() string {
	switch s {
	case ScaleDecibel:
		return "db"
	case ScaleLinear:
		return "linear"
	default:
		return fmt.Sprintf("Scale(%d)", int(s))
	}
}

// ParseScale accepts "db" or "linear" (case-insensitive). Empty selects dB.
func ParseScale(name string) (Scale, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "db", "decibel":
		return ScaleDecibel, nil
	case "linear":
		return ScaleLinear, nil
	default:
		return ScaleDecibel, fmt.Errorf("%w: unknown scale %q", ErrConfig, name)
	}
}

// Defaults for the decibel normalizer.
const (
	DefaultMinDB    = -60.0
	DefaultMelMinDB = -80.0 // Mel energies span a wider range than band means.
	DefaultMaxDB    = 0.0
	DefaultEpsilon  = 1e-10
)

// LinearClamp passes values already in [0,1] through unchanged and clamps
// everything else into range. NaN maps to 0.
func LinearClamp(v float64) float64 {
	switch {
	case v >= 0 && v <= 1:
		return v
	case v > 1:
		return 1
	default:
		return 0
	}
}

// Normalizer maps magnitudes and energies onto [0,1] through the decibel
// domain. MinDB reads as silence, MaxDB as full scale. Epsilon floors the
// input of the logarithm so zero never yields -Inf or NaN.
type Normalizer struct {
	MinDB   float64
	MaxDB   float64
	Epsilon float64
}

// NewNormalizer validates the range and floor.
func NewNormalizer(minDB, maxDB, epsilon float64) (Normalizer, error) {
	if !(minDB < maxDB) {
		return Normalizer{}, fmt.Errorf("%w: min_db (%v) must be below max_db (%v)", ErrConfig, minDB, maxDB)
	}
	if !(epsilon > 0) {
		return Normalizer{}, fmt.Errorf("%w: epsilon must be positive, got %v", ErrConfig, epsilon)
	}
	return Normalizer{MinDB: minDB, MaxDB: maxDB, Epsilon: epsilon}, nil
}

// Decibels maps a dB value linearly from [MinDB, MaxDB] onto [0,1], clamping
// both ends.
func (n Normalizer) Decibels(db float64) float64 {
	if db <= n.MinDB || math.IsNaN(db) {
		return 0
	}
	if db >= n.MaxDB {
		return 1
	}
	return (db - n.MinDB) / (n.MaxDB - n.MinDB)
}

// Magnitude normalizes an amplitude-like value: 20*log10(max(v, eps)).
func (n Normalizer) Magnitude(v float64) float64 {
	return n.Decibels(20 * math.Log10(math.Max(v, n.Epsilon)))
}

// Energy normalizes a power-like value: 10*log10(max(v, eps)).
func (n Normalizer) Energy(v float64) float64 {
	return n.Decibels(10 * math.Log10(math.Max(v, n.Epsilon)))
}

// Apply normalizes an amplitude-like value with the selected scale.
func (n Normalizer) Apply(s Scale, v float64) float64 {
	if s == ScaleLinear {
		return LinearClamp(v)
	}
	return n.Magnitude(v)
}
