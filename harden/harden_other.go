//go:build !linux

package harden

import (
	"errors"

	"github.com/valbox/go-harden/restrict"
)

// ErrNotSupported is returned on platforms without the required
// isolation primitives. Hardening is unavailable there and the system
// must not pretend otherwise.
var ErrNotSupported = errors.New("harden: not supported on this platform")

// Harden is unavailable off Linux.
func Harden(cfg Config) (Report, error) {
	return Report{
		Enforcement: restrict.StatusUnavailable,
		FailedStep:  "platform",
		Failure:     ErrNotSupported.Error(),
	}, ErrNotSupported
}
