// SPDX-License-Identifier: MIT
package analysis

import "errors"

var (
	// ErrBlockLength is returned when a block does not match the configured length.
	ErrBlockLength = errors.New("block length does not match configured size")

	// ErrSampleRate is returned when a block arrives at a different sample rate
	// than the analyzer was built for.
	ErrSampleRate = errors.New("sample rate does not match configured rate")

	// ErrConfig wraps every construction-time validation failure.
	ErrConfig = errors.New("invalid analysis configuration")
)
