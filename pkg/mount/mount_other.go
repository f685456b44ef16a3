//go:build !linux

package mount

import (
	"errors"
	"fmt"
)

// ErrNotSupported is returned on platforms without bind mounts.
var ErrNotSupported = errors.New("mount: only supported on Linux")

// MakeRootPrivate marks the root mount and all submounts as private.
func MakeRootPrivate() error {
	return ErrNotSupported
}

// SelfBind binds dir onto itself with the hardened bind flags.
func SelfBind(dir string) Mount {
	return Mount{Source: dir, Target: dir}
}

// ReadOnlyBind binds source onto target read-only with the hardened
// bind flags.
func ReadOnlyBind(source, target string) Mount {
	return Mount{Source: source, Target: target}
}

// Mount calls mount syscall
func (m Mount) Mount() error {
	return ErrNotSupported
}

func (m Mount) String() string {
	return fmt.Sprintf("mount[%s:%s]", m.Source, m.Target)
}
