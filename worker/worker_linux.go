package worker

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/valbox/go-harden/harden"
	"github.com/valbox/go-harden/pkg/unixsocket"
)

// Run performs the worker side of the handshake on the inherited fd.
// It receives the hardening request, applies it, and sends the report
// back before returning. The hardening error, if any, is returned so
// the caller can exit non-zero; the report has already been delivered
// to the host at that point.
func Run() (harden.Report, error) {
	us, err := unixsocket.NewSocket(HandshakeFd)
	if err != nil {
		return harden.Report{}, fmt.Errorf("worker: open handshake fd: %w", err)
	}
	soc := newSocket(us)
	defer soc.Close()

	var req Request
	if _, err := soc.RecvMsg(&req); err != nil {
		return harden.Report{}, fmt.Errorf("worker: read request: %w", err)
	}
	logrus.WithField("worker_dir", req.WorkerDir).Debug("Received hardening request")

	rep, herr := harden.Harden(req.Config())
	if err := soc.SendMsg(rep, unixsocket.Msg{}); err != nil {
		return rep, fmt.Errorf("worker: send report: %w", err)
	}
	return rep, herr
}
