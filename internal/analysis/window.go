// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/dsp/window"
)

// WindowFunc selects the analysis window applied before the transform.
type WindowFunc int

// Enum for available window functions. Hann is the periodic Hann window used
// by every deployment unless configured otherwise; the rest come from gonum
// and are symmetric.
const (
	Hann WindowFunc = iota
	BartlettHann
	Blackman
	BlackmanNuttall
	Hamming
	Lanczos
	Nuttall
)

var windowNames = map[WindowFunc]string{
	Hann:            "hann",
	BartlettHann:    "bartletthann",
	Blackman:        "blackman",
	BlackmanNuttall: "blackmannuttall",
	Hamming:         "hamming",
	Lanczos:         "lanczos",
	Nuttall:         "nuttall",
}

func (w WindowFunc) String() string {
	if name, ok := windowNames[w]; ok {
		return name
	}
	return fmt.Sprintf("WindowFunc(%d)", int(w))
}

// ParseWindowFunc converts a string name (case-insensitive) to a WindowFunc.
// An empty name selects Hann.
func ParseWindowFunc(name string) (WindowFunc, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "hann", "hanning":
		return Hann, nil
	case "bartletthann":
		return BartlettHann, nil
	case "blackman":
		return Blackman, nil
	case "blackmannuttall":
		return BlackmanNuttall, nil
	case "hamming":
		return Hamming, nil
	case "lanczos":
		return Lanczos, nil
	case "nuttall":
		return Nuttall, nil
	default:
		return Hann, fmt.Errorf("%w: unknown window function %q", ErrConfig, name)
	}
}

// HannWindow returns the periodic Hann window of length n:
//
//	w[i] = 0.5 - 0.5*cos(2*pi*i/n)
//
// All weights lie in [0,1]. The window is meant to be computed once and
// shared read-only.
func HannWindow(n int) []float64 {
	w := make([]float64, n)
	for i := range n {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}

// NewWindow returns the coefficients of the selected window for length n.
func NewWindow(n int, fn WindowFunc) []float64 {
	if fn == Hann {
		return HannWindow(n)
	}

	// gonum windows scale the sequence in place, so start from ones.
	coeffs := make([]float64, n)
	for i := range coeffs {
		coeffs[i] = 1
	}
	switch fn {
	case BartlettHann:
		window.BartlettHann(coeffs)
	case Blackman:
		window.Blackman(coeffs)
	case BlackmanNuttall:
		window.BlackmanNuttall(coeffs)
	case Hamming:
		window.Hamming(coeffs)
	case Lanczos:
		window.Lanczos(coeffs)
	case Nuttall:
		window.Nuttall(coeffs)
	default:
		return HannWindow(n)
	}
	return coeffs
}
