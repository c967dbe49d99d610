// SPDX-License-Identifier: MIT
package broadcast

import "errors"

var (
	// ErrClosed is returned by operations on a closed Manager.
	ErrClosed = errors.New("broadcast: manager closed")
	// ErrRecordFormat reports a line that is not a valid analysis record.
	ErrRecordFormat = errors.New("broadcast: malformed record")
)
