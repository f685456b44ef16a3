// Package worker implements the startup handshake between a spawning
// host and a hardening worker. The two sides share a SOCK_SEQPACKET
// socketpair: the worker inherits one end at fd 3, receives its
// hardening request, confines itself, and reports the outcome before
// any payload work begins. The host decides go or no-go from the
// report.
package worker

import (
	"github.com/valbox/go-harden/harden"
	"github.com/valbox/go-harden/pkg/rlimit"
	"github.com/valbox/go-harden/restrict"
)

// HandshakeFd is the fd number at which a spawned worker finds its end
// of the socketpair.
const HandshakeFd = 3

// Request is the hardening order sent from host to worker.
type Request struct {
	// WorkerDir is the confinement directory prepared by the host.
	WorkerDir string

	// Exceptions is the filesystem allow-list, with paths as seen
	// inside the confined root.
	Exceptions []restrict.Exception

	// KeepEnv lists environment variables exempt from scrubbing; nil
	// means the default allow-list.
	KeepEnv []string

	// RLimits are the host-chosen resource clamps.
	RLimits rlimit.RLimits

	// AllowPartial and DisableSeccomp weaken the policy for
	// diagnostic runs only.
	AllowPartial   bool
	DisableSeccomp bool
}

// Config converts the request into the hardening configuration.
func (r Request) Config() harden.Config {
	return harden.Config{
		WorkerDir:      r.WorkerDir,
		Exceptions:     r.Exceptions,
		KeepEnv:        r.KeepEnv,
		RLimits:        r.RLimits,
		AllowPartial:   r.AllowPartial,
		DisableSeccomp: r.DisableSeccomp,
	}
}
