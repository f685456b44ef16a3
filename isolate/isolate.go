// Package isolate confines the worker process to its worker directory:
// a fresh unprivileged user namespace, a fresh mount namespace, and a
// root swap that makes the worker directory the process root. After a
// successful Isolate no path that existed outside the worker directory
// is reachable.
//
// The namespaces must be created at clone time by the spawner (see
// SysProcAttr): the kernel rejects unshare(2) of a user or mount
// namespace from a multithreaded process, and the Go runtime is
// multithreaded before main runs. Isolate verifies the namespaces and
// performs the root swap in-process.
package isolate

import (
	"errors"
	"fmt"
)

// Step identifies the syscall step that failed during isolation.
type Step int

const (
	// StepWorkerDir is the precondition check on the worker directory.
	StepWorkerDir Step = iota
	// StepUserNS verifies the process is in a fresh user namespace.
	StepUserNS
	// StepMountNS verifies the process is in a fresh mount namespace.
	StepMountNS
	// StepMountPrivate marks the root mount and submounts private.
	StepMountPrivate
	// StepBindWorkerDir self bind-mounts the worker directory.
	StepBindWorkerDir
	// StepStagingDir creates the staging directory for the old root.
	StepStagingDir
	// StepPivotRoot swaps the process root to the worker directory.
	StepPivotRoot
	// StepChdir changes the working directory to the new root.
	StepChdir
	// StepDetachOldRoot lazily unmounts the old root.
	StepDetachOldRoot
	// StepRemoveStaging removes the emptied staging directory.
	StepRemoveStaging
)

func (s Step) String() string {
	switch s {
	case StepWorkerDir:
		return "check worker dir"
	case StepUserNS:
		return "verify user namespace"
	case StepMountNS:
		return "verify mount namespace"
	case StepMountPrivate:
		return "mount MS_PRIVATE"
	case StepBindWorkerDir:
		return "bind-mount worker dir"
	case StepStagingDir:
		return "mkdir oldroot staging"
	case StepPivotRoot:
		return "pivot_root"
	case StepChdir:
		return "chdir to new root"
	case StepDetachOldRoot:
		return "umount2 the oldroot"
	case StepRemoveStaging:
		return "rmdir the oldroot"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// Error is a fatal isolation failure at a specific step. The caller
// must not run untrusted code after receiving one; the namespace state
// is not safely retryable mid-sequence.
type Error struct {
	Step Step
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("isolate: %s: %v", e.Step, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrAlreadyIsolated reports a second Isolate call in the same process.
// Isolation is one-way and unrepeatable.
var ErrAlreadyIsolated = errors.New("isolation already applied to this process")

// ErrNotSupported is returned on platforms without the required
// namespace primitives; the caller must treat the worker as unhardened.
var ErrNotSupported = errors.New("isolate: not supported on this platform")
