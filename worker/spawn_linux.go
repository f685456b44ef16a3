package worker

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/valbox/go-harden/harden"
	"github.com/valbox/go-harden/isolate"
	"github.com/valbox/go-harden/pkg/unixsocket"
)

// Proc is a spawned worker that completed its handshake. The caller
// owns the process lifecycle from here on.
type Proc struct {
	Cmd *exec.Cmd

	soc *socket
}

// Close releases the host end of the handshake socket. It does not
// terminate the worker process.
func (p *Proc) Close() error {
	return p.soc.Close()
}

// Spawn starts the worker binary inside fresh user and mount
// namespaces, with one end of a socketpair at the handshake fd, sends
// it the hardening request, and waits for its report. A worker that fails to harden exits on its own; a worker
// that reports success is left running for payload work and returned
// to the caller.
//
// Spawn kills the child and returns an error if the handshake itself
// breaks. A clean handshake with a failed report returns the report
// and a nil error: the no-go decision belongs to the caller.
func Spawn(ctx context.Context, bin string, args []string, req Request) (*Proc, harden.Report, error) {
	fds, err := syscall.Socketpair(syscall.AF_LOCAL, syscall.SOCK_SEQPACKET|syscall.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, harden.Report{}, fmt.Errorf("spawn: socketpair: %w", err)
	}

	hostEnd, err := unixsocket.NewSocket(fds[0])
	if err != nil {
		syscall.Close(fds[0])
		syscall.Close(fds[1])
		return nil, harden.Report{}, fmt.Errorf("spawn: host socket: %w", err)
	}
	soc := newSocket(hostEnd)
	childEnd := os.NewFile(uintptr(fds[1]), "worker-handshake")

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	// ExtraFiles[0] lands at fd 3 in the child.
	cmd.ExtraFiles = []*os.File{childEnd}
	// The worker gets its namespaces at clone time; it cannot unshare
	// them itself once the Go runtime is multithreaded.
	cmd.SysProcAttr = isolate.SysProcAttr()

	if err := cmd.Start(); err != nil {
		childEnd.Close()
		soc.Close()
		return nil, harden.Report{}, fmt.Errorf("spawn: start %s: %w", bin, err)
	}
	// The child holds its own copy now.
	childEnd.Close()

	if dl, ok := ctx.Deadline(); ok {
		soc.SetDeadline(dl)
	}

	rep, err := handshake(soc, req)
	if err != nil {
		soc.Close()
		cmd.Process.Kill()
		cmd.Wait()
		return nil, harden.Report{}, fmt.Errorf("spawn: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"pid":         cmd.Process.Pid,
		"hardened":    rep.Hardened,
		"enforcement": rep.Enforcement.String(),
	}).Debug("Worker handshake complete")

	return &Proc{Cmd: cmd, soc: soc}, rep, nil
}

func handshake(soc *socket, req Request) (harden.Report, error) {
	if err := soc.SendMsg(req, unixsocket.Msg{}); err != nil {
		return harden.Report{}, fmt.Errorf("send request: %w", err)
	}
	var rep harden.Report
	if _, err := soc.RecvMsg(&rep); err != nil {
		return harden.Report{}, fmt.Errorf("read report: %w", err)
	}
	return rep, nil
}
