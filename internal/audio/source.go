// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"errors"
)

// ErrUnsupportedFormat is returned for input files no decoder handles.
var ErrUnsupportedFormat = errors.New("audio: unsupported file format")

// BlockHandler receives one mono block of samples in [-1,1] and the rate
// they were captured at. It must not retain samples after returning.
type BlockHandler func(samples []float32, sampleRate float64)

// Source produces blocks until ctx is done or the input is exhausted.
type Source interface {
	Run(ctx context.Context, handle BlockHandler) error
}
