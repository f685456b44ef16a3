//go:build !linux

package restrict

import "errors"

// ErrNotSupported is returned on platforms without Landlock. The caller
// must treat the worker as unhardened rather than pretend otherwise.
var ErrNotSupported = errors.New("restrict: not supported on this platform")

// Restrict is unavailable off Linux.
func Restrict(exceptions []Exception) (Status, error) {
	return StatusUnavailable, ErrNotSupported
}

// Probe is unavailable off Linux.
func Probe() (Status, error) {
	return StatusUnavailable, ErrNotSupported
}
