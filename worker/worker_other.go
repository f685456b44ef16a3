//go:build !linux

package worker

import (
	"context"
	"errors"
	"os/exec"

	"github.com/valbox/go-harden/harden"
)

// ErrNotSupported is returned on platforms without the handshake.
var ErrNotSupported = errors.New("worker: only supported on Linux")

// Proc is a spawned worker that completed its handshake.
type Proc struct {
	Cmd *exec.Cmd
}

// Close releases the host end of the handshake socket.
func (p *Proc) Close() error {
	return nil
}

// Run performs the worker side of the handshake on the inherited fd.
func Run() (harden.Report, error) {
	return harden.Report{}, ErrNotSupported
}

// Spawn starts the worker binary and waits for its hardening report.
func Spawn(ctx context.Context, bin string, args []string, req Request) (*Proc, harden.Report, error) {
	return nil, harden.Report{}, ErrNotSupported
}
