// SPDX-License-Identifier: MIT
package analysis

import "math"

// RMS returns the root-mean-square amplitude of block, 0 for an empty block.
func RMS(block []float32) float64 {
	if len(block) == 0 {
		return 0
	}

	var sumSquare float64
	for _, sample := range block {
		s := float64(sample)
		sumSquare += s * s
	}
	return math.Sqrt(sumSquare / float64(len(block)))
}
