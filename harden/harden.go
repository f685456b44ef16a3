// Package harden sequences the worker-hardening steps: resource
// clamps, namespace and root isolation, the Landlock ruleset, the
// environment scrub and the seccomp filter. It is fail-closed: if any
// mandatory step fails, or enforcement falls short of what policy
// requires, the worker must never hand control to the untrusted
// payload.
package harden

import (
	"github.com/valbox/go-harden/pkg/rlimit"
	"github.com/valbox/go-harden/restrict"
)

// Config describes one worker's hardening inputs. All paths in
// Exceptions are interpreted inside the confined root, i.e. after the
// worker directory has become "/".
type Config struct {
	// WorkerDir is the absolute, existing, writable directory that
	// becomes the process root.
	WorkerDir string

	// Exceptions is the complete filesystem allow-list layered on the
	// default-deny ruleset.
	Exceptions []restrict.Exception

	// KeepEnv lists environment variables exempt from scrubbing. Nil
	// means the default allow-list (the log-level variable only).
	KeepEnv []string

	// RLimits are optional resource clamps; core dumps are disabled
	// regardless of what this carries.
	RLimits rlimit.RLimits

	// AllowPartial accepts less than full filesystem enforcement.
	// Diagnostics only; production policy requires full enforcement.
	AllowPartial bool

	// DisableSeccomp skips the syscall deny-list. Diagnostics only.
	DisableSeccomp bool
}

// Report is the composite hardening outcome consumed by the worker
// startup sequence (and relayed to the spawning host) to decide go or
// no-go.
type Report struct {
	// Hardened is true only when every mandatory step succeeded.
	Hardened bool

	// Enforcement is the filesystem restriction status that was
	// achieved; never upgraded after the fact.
	Enforcement restrict.Status

	// FailedStep names the step that aborted hardening, empty on
	// success.
	FailedStep string

	// Failure carries the failing step's error text, empty on success.
	Failure string
}
