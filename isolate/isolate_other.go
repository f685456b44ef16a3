//go:build !linux

package isolate

import "syscall"

// SysProcAttr returns the spawn attributes a worker requires; off
// Linux there are none and spawned workers report unhardened.
func SysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{}
}

// Isolate is unavailable off Linux.
func Isolate(workerDir string) error {
	return ErrNotSupported
}
