// Package restrict installs a kernel-enforced filesystem allow-list on
// the worker process using Landlock. It is defense in depth beneath the
// namespace confinement: the ruleset holds even if the root swap were
// somehow bypassed, and is inherited by any child the worker spawns.
package restrict

import "errors"

// RequiredABI is the Landlock ABI version enforced on the worker.
//
// It is pinned to the minimum kernel version guaranteed across the
// whole fleet rather than the best ABI the local kernel offers. If the
// enforcement level varied by host, a payload could behave differently
// depending on the inferred level, and independent hosts that must
// agree on payload behavior would diverge. The constant is only ever
// raised fleet-wide.
const RequiredABI = 1

// Status is the degree to which a requested restriction was actually
// applied by the host kernel. It is terminal: derived once per
// restriction or probe and never upgraded afterwards.
type Status int

const (
	// StatusUnavailable means the mechanism is absent at the platform
	// level, or the probe crashed and the real status is unknown.
	StatusUnavailable Status = iota
	// StatusNotEnforced means the kernel has no Landlock support and
	// nothing was applied.
	StatusNotEnforced
	// StatusPartiallyEnforced means the kernel handles only part of the
	// pinned ABI's access categories. Useful for diagnostics, not
	// sufficient for production.
	StatusPartiallyEnforced
	// StatusFullyEnforced means every requested rule is in force.
	StatusFullyEnforced
)

func (s Status) String() string {
	switch s {
	case StatusNotEnforced:
		return "not-enforced"
	case StatusPartiallyEnforced:
		return "partially-enforced"
	case StatusFullyEnforced:
		return "fully-enforced"
	default:
		return "unavailable"
	}
}

// FullyEnforced is the fail-safe check callers use to decide whether
// the worker is actually protected.
func (s Status) FullyEnforced() bool {
	return s == StatusFullyEnforced
}

// AccessMode is the set of rights granted by an Exception.
type AccessMode uint8

const (
	// ModeRead allows reading files beneath the path.
	ModeRead AccessMode = 1 << iota
	// ModeWrite allows writing and creating files beneath the path.
	ModeWrite
	// ModeListDir allows enumerating directory contents. Deliberately
	// separate from ModeRead: a worker may read known artifact files
	// without learning what else is cached.
	ModeListDir
)

// Exception is a (path, rights) carve-out layered on top of the
// otherwise total filesystem restriction.
type Exception struct {
	Path string
	Mode AccessMode
}

// ReadFiles grants read access to known files beneath path, without
// directory listing.
func ReadFiles(path string) Exception {
	return Exception{Path: path, Mode: ModeRead}
}

// ReadDir grants read plus listing beneath path.
func ReadDir(path string) Exception {
	return Exception{Path: path, Mode: ModeRead | ModeListDir}
}

// ReadWriteDir grants full read/write/list access beneath path.
func ReadWriteDir(path string) Exception {
	return Exception{Path: path, Mode: ModeRead | ModeWrite | ModeListDir}
}

// ErrProbeCrashed reports that the probe goroutine panicked; the real
// enforcement status is unknown.
var ErrProbeCrashed = errors.New("restrict: probe crashed")
