//go:build !linux

package seccomp

import "errors"

// ErrNotSupported is returned on platforms without seccomp-bpf.
var ErrNotSupported = errors.New("seccomp: not supported on this platform")

// Supported reports whether the kernel can take the filter.
func Supported() bool { return false }

// Install is unavailable off Linux.
func Install() error { return ErrNotSupported }
